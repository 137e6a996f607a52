package reembed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVector(t *testing.T) {
	sqrt2 := float32(1 / math.Sqrt(2))

	tests := map[string]struct {
		input []float32
		want  []float32
	}{
		"already unit":  {input: []float32{0, 1, 0}, want: []float32{0, 1, 0}},
		"3-4-5":         {input: []float32{3, 4}, want: []float32{0.6, 0.8}},
		"negative":      {input: []float32{-2, 2}, want: []float32{-sqrt2, sqrt2}},
		"tiny values":   {input: []float32{1e-20, 1e-20}, want: []float32{sqrt2, sqrt2}},
		"mixed scale":   {input: []float32{1e3, 0, -1e3}, want: []float32{sqrt2, 0, -sqrt2}},
		"single value":  {input: []float32{-7}, want: []float32{-1}},
		"embedding-ish": {input: []float32{1, 2, 2}, want: []float32{1.0 / 3, 2.0 / 3, 2.0 / 3}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := NormalizeVector(tt.input)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-6, "element %d", i)
			}
			assert.InDelta(t, 1.0, magnitude(got), 1e-6)
		})
	}
}

func TestNormalizeVector_DoesNotMutateInput(t *testing.T) {
	input := []float32{3, 4}
	NormalizeVector(input)
	assert.Equal(t, []float32{3, 4}, input)
}

func TestNormalizeVector_Degenerate(t *testing.T) {
	assert.Equal(t, []float32{0, 0, 0}, NormalizeVector([]float32{0, 0, 0}))
	assert.Empty(t, NormalizeVector(nil))
	assert.Empty(t, NormalizeVector([]float32{}))
}
