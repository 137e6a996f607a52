package search

import (
	"strings"
	"unicode"
)

// Stop words to filter out when checking for verbatim matches.
var stopWords = map[string]bool{
	// Spanish
	"el": true, "la": true, "los": true, "las": true, "un": true, "una": true,
	"de": true, "del": true, "al": true, "y": true, "o": true, "en": true,
	"que": true, "por": true, "para": true, "con": true, "se": true, "su": true,
	"sus": true, "es": true, "lo": true, "como": true, "sobre": true, "entre": true,
	"cuál": true, "cual": true, "qué": true, "cuánto": true, "cuanto": true,
	// English
	"the": true, "a": true, "an": true, "is": true, "are": true, "to": true,
	"of": true, "and": true, "in": true, "for": true, "on": true, "with": true,
}

// tokenizeAndFilter splits text into lowercased words without surrounding
// punctuation, dropping stop words.
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		}))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// containsAllQueryWords checks if all significant query words appear in the document.
func containsAllQueryWords(document, query string) bool {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return false
	}

	docWordSet := make(map[string]bool)
	for _, word := range tokenizeAndFilter(document) {
		docWordSet[word] = true
	}

	for _, qWord := range queryWords {
		if !docWordSet[qWord] {
			return false
		}
	}
	return true
}
