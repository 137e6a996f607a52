package chunking

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("palabra%03d", i)
	}
	return strings.Join(parts, " ")
}

func TestSplit_TableIsAtomic(t *testing.T) {
	s, err := New(WithChunkSize(1000), WithChunkOverlap(200))
	require.NoError(t, err)

	var rows strings.Builder
	for rows.Len() < 5000 {
		rows.WriteString("Partida presupuestaria | 12.000,00 EUR | Subvencionable\n")
	}
	table := "--- TABLE 1 PAGE 4 ---\n" + strings.TrimSpace(rows.String())
	text := "Resumen de la convocatoria.\n\n" + table

	chunks := s.Split(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Resumen de la convocatoria.", chunks[0])
	assert.Equal(t, table, chunks[1])
	assert.GreaterOrEqual(t, len(chunks[1]), 5000)
}

func TestSegments_TableMetadata(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	text := "Texto inicial\n\n--- TABLE 1 PAGE 2 ---\nA | B\n1 | 2\n\n--- TABLE 2 PAGE 2 ---\nC | D"
	segments := s.Segments(text)
	require.Len(t, segments, 3)

	assert.Equal(t, Segment{Text: "Texto inicial"}, segments[0])
	assert.Equal(t, Segment{Text: "--- TABLE 1 PAGE 2 ---\nA | B\n1 | 2", IsTable: true, TableNumber: 1}, segments[1])
	assert.Equal(t, Segment{Text: "--- TABLE 2 PAGE 2 ---\nC | D", IsTable: true, TableNumber: 2}, segments[2])
}

func TestSplit_TagWithoutBody(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	chunks := s.Split("intro --- TABLE 3 PAGE 1 ---   ")
	assert.Equal(t, []string{"intro", "--- TABLE 3 PAGE 1 ---"}, chunks)
}

func TestSplit_ProseRespectsChunkSize(t *testing.T) {
	s, err := New(WithChunkSize(100), WithChunkOverlap(20))
	require.NoError(t, err)

	chunks := s.Split(words(200))
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 100, c)
	}
}

func TestSplit_FallsBackToRunes(t *testing.T) {
	s, err := New(WithChunkSize(10), WithChunkOverlap(0))
	require.NoError(t, err)

	chunks := s.Split("abcdefghijklmnopqrstuvwxyz")
	require.NotEmpty(t, chunks)
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 10)
	}
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	s, err := New(WithChunkSize(100), WithChunkOverlap(30))
	require.NoError(t, err)

	chunks := s.Split(words(100))
	require.Greater(t, len(chunks), 2)
	for i := 1; i < len(chunks); i++ {
		first := strings.Fields(chunks[i])[0]
		assert.Contains(t, chunks[i-1], first, "chunk %d should start inside chunk %d", i, i-1)
	}
}

func TestSplit_PreservesOrder(t *testing.T) {
	s, err := New(WithChunkSize(50), WithChunkOverlap(0))
	require.NoError(t, err)

	text := words(60)
	chunks := s.Split(text)
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestSplit_DropsBlankInput(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split(" \n\n \t"))
}

func TestSplit_ParagraphsFirst(t *testing.T) {
	s, err := New(WithChunkSize(40), WithChunkOverlap(0))
	require.NoError(t, err)

	chunks := s.Split("Primer parrafo corto.\n\nSegundo parrafo corto.")
	assert.Equal(t, []string{"Primer parrafo corto.", "Segundo parrafo corto."}, chunks)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(WithChunkSize(0))
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	_, err = New(WithChunkOverlap(-1))
	assert.ErrorIs(t, err, ErrInvalidChunkOverlap)

	_, err = New(WithChunkSize(100), WithChunkOverlap(100))
	assert.ErrorIs(t, err, ErrInvalidChunkOverlap)
}
