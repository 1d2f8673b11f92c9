package similarity

import (
	"math"
	"testing"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedNormalized(t *testing.T) {
	vec := Embed([]string{"subway", "ridership"}, []string{"transit"}, []string{"Transportation"})
	require.Len(t, vec, Dim)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-5, "unit length")

	// Deterministic.
	assert.Equal(t, vec, Embed([]string{"subway", "ridership"}, []string{"transit"}, []string{"Transportation"}))
}

func TestEmbedEmptyIsZeroVector(t *testing.T) {
	vec := Embed(nil, nil, nil)
	require.Len(t, vec, Dim)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestSimilarExcludesSelf(t *testing.T) {
	fs, err := mem.NewFS()
	require.NoError(t, err)
	idx, err := NewIndex(fs, "similarity.bin")
	require.NoError(t, err)

	transit := []string{"transit", "daily"}
	health := []string{"health", "inspections"}

	require.NoError(t, idx.Add("subway", Embed([]string{"subway", "ridership"}, transit, []string{"Transportation"})))
	require.NoError(t, idx.Add("bus", Embed([]string{"bus", "ridership"}, transit, []string{"Transportation"})))
	require.NoError(t, idx.Add("restaurants", Embed([]string{"restaurant", "grades"}, health, []string{"Health"})))

	got, err := idx.Similar("subway", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotContains(t, got, "subway")
	assert.Equal(t, "bus", got[0], "shared tags and category dominate")
}

func TestSimilarUnknownID(t *testing.T) {
	fs, err := mem.NewFS()
	require.NoError(t, err)
	idx, err := NewIndex(fs, "similarity.bin")
	require.NoError(t, err)

	_, err = idx.Similar("missing", 3)
	require.Error(t, err)
}

func TestAddRejectsDuplicateAndBadDimension(t *testing.T) {
	fs, err := mem.NewFS()
	require.NoError(t, err)
	idx, err := NewIndex(fs, "similarity.bin")
	require.NoError(t, err)

	require.NoError(t, idx.Add("a", Embed([]string{"one"}, nil, nil)))
	assert.Error(t, idx.Add("a", Embed([]string{"one"}, nil, nil)))
	assert.Error(t, idx.Add("b", []float32{1, 2, 3}))
}

func TestIndexRoundTrip(t *testing.T) {
	fs, err := mem.NewFS()
	require.NoError(t, err)

	{
		idx, err := NewIndex(fs, "similarity.bin")
		require.NoError(t, err)
		require.NoError(t, idx.Add("subway", Embed([]string{"subway"}, []string{"transit"}, nil)))
		require.NoError(t, idx.Add("bus", Embed([]string{"bus"}, []string{"transit"}, nil)))
		require.NoError(t, idx.Add("parks", Embed([]string{"parks"}, []string{"recreation"}, nil)))
		require.NoError(t, idx.Save())
	}

	idx, err := NewIndex(fs, "similarity.bin")
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	got, err := idx.Similar("subway", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bus", got[0])
}

func TestEmbedCosineAgreement(t *testing.T) {
	a := Embed([]string{"subway", "ridership"}, []string{"transit"}, nil)
	b := Embed([]string{"bus", "ridership"}, []string{"transit"}, nil)
	c := Embed([]string{"restaurant", "grades"}, []string{"health"}, nil)

	dot := func(x, y []float32) float64 {
		var s float64
		for i := range x {
			s += float64(x[i]) * float64(y[i])
		}
		return s
	}

	assert.Greater(t, dot(a, b), dot(a, c), "shared features raise cosine similarity")
	assert.False(t, math.IsNaN(dot(a, b)))
}
