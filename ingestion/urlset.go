package ingestion

import "sync"

// URLSet remembers which call pages have been handed to the pipeline.
// It is safe for concurrent use.
type URLSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewURLSet returns an empty set.
func NewURLSet() *URLSet {
	return &URLSet{urls: make(map[string]struct{})}
}

// Add inserts url and reports whether it was absent.
func (s *URLSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.urls[url]; ok {
		return false
	}
	s.urls[url] = struct{}{}
	return true
}

// Contains reports whether url was added.
func (s *URLSet) Contains(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.urls[url]
	return ok
}

// Len returns the number of URLs in the set.
func (s *URLSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}
