package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVector_DeterministicUnitLength(t *testing.T) {
	a := Vector("convocatoria", 384)
	b := Vector("convocatoria", 384)
	c := Vector("subvencion", 384)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	require.Len(t, a, 384)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
}

func TestMockEmbedder_RecordsCalls(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	_, err := m.EmbedText(ctx, "a")
	require.NoError(t, err)
	vectors, err := m.EmbedTexts(ctx, []string{"b", "c"})
	require.NoError(t, err)

	assert.Len(t, vectors, 2)
	assert.Equal(t, 2, m.CallCount())
	assert.Equal(t, []string{"a", "b", "c"}, m.Texts())

	m.Reset()
	assert.Zero(t, m.CallCount())
	assert.Empty(t, m.Texts())
}
