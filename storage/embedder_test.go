package storage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestHashEmbedderDeterministicAndNormalized(t *testing.T) {
	e := NewHashEmbedder(64)
	a, err := e.Embed(context.Background(), "Quarterly revenue table")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "quarterly REVENUE table")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
	assert.Equal(t, 64, e.Dimension())
}

func TestHashEmbedderEmptyText(t *testing.T) {
	v, err := NewHashEmbedder(8).Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, 0.0, norm(v))
}

func TestSlicedNormL2(t *testing.T) {
	out := slicedNormL2([]float32{3, 4, 12}, 2)
	require.Len(t, out, 2)
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)

	assert.Len(t, slicedNormL2([]float32{1, 2}, 5), 2)
}
