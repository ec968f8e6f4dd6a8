package index

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(v ...float32) []float32 {
	Normalize(v)
	return v
}

func TestBuild(t *testing.T) {
	t.Parallel()

	_, err := Build(nil)
	require.ErrorIs(t, err, ErrEmpty)

	_, err = Build([][]float32{{1, 0}, {1, 0, 0}})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Build([][]float32{{}})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	idx, err := Build([][]float32{{3, 4}, {0, 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 2, idx.Dim())
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, idx.Vector(0), 1e-6)
	assert.InDeltaSlice(t, []float32{0, 1}, idx.Vector(1), 1e-6)
	assert.Nil(t, idx.Vector(2))
}

func TestBuild_CopiesInput(t *testing.T) {
	t.Parallel()

	in := [][]float32{{1, 0}}
	idx, err := Build(in)
	require.NoError(t, err)

	in[0][0] = 0
	assert.InDeltaSlice(t, []float32{1, 0}, idx.Vector(0), 1e-6)
}

func TestSearch_Ordering(t *testing.T) {
	t.Parallel()

	idx, err := Build([][]float32{
		unit(0, 1),
		unit(1, 0),
		unit(1, 1),
		unit(1, 0),
		unit(-1, 0),
	})
	require.NoError(t, err)

	hits, err := idx.Search(unit(1, 0), 4)
	require.NoError(t, err)
	require.Len(t, hits, 4)

	// Positions 1 and 3 tie; the lower position comes first.
	assert.Equal(t, []int{1, 3, 2, 0}, positions(hits))
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.InDelta(t, 1.0, hits[1].Score, 1e-6)
	assert.InDelta(t, math.Sqrt2/2, hits[2].Score, 1e-6)

	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestSearch_FewerThanK(t *testing.T) {
	t.Parallel()

	idx, err := Build([][]float32{unit(1, 0), unit(0, 1)})
	require.NoError(t, err)

	hits, err := idx.Search(unit(0, 1), 10)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, positions(hits))

	hits, err = idx.Search(unit(0, 1), 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	t.Parallel()

	idx, err := Build([][]float32{unit(1, 0)})
	require.NoError(t, err)

	_, err = idx.Search([]float32{1, 0, 0}, 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearch_NilIndex(t *testing.T) {
	t.Parallel()

	var idx *Flat
	hits, err := idx.Search([]float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFilterHits(t *testing.T) {
	t.Parallel()

	hits := []Hit{{Position: 2}, {Position: -1}, {Position: 0}, {Position: 5}, {Position: 3}}
	assert.Equal(t, []int{2, 0}, positions(FilterHits(hits, 3)))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	v := []float32{3, 4}
	assert.True(t, Normalize(v))
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, v, 1e-6)

	zero := []float32{0, 0}
	assert.False(t, Normalize(zero))
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestCodec(t *testing.T) {
	t.Parallel()

	idx, err := Build([][]float32{unit(1, 2, 3), unit(-1, 0.5, 2), unit(0, 0, 1)})
	require.NoError(t, err)

	data, err := idx.MarshalBinary()
	require.NoError(t, err)

	var decoded Flat
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, idx.Dim(), decoded.Dim())
	assert.Equal(t, idx.Len(), decoded.Len())
	for i := range idx.Len() {
		assert.Equal(t, idx.Vector(i), decoded.Vector(i))
	}
}

func TestCodec_Rejects(t *testing.T) {
	t.Parallel()

	var empty Flat
	_, err := empty.MarshalBinary()
	require.ErrorIs(t, err, ErrEmpty)

	var f Flat
	require.Error(t, f.UnmarshalBinary(nil))
	require.Error(t, f.UnmarshalBinary([]byte("definitely not an index")))
}

func positions(hits []Hit) []int {
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.Position
	}
	return out
}
