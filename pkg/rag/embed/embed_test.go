package embed

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/docqa/pkg/model/provider/base"
	"github.com/docker/docqa/pkg/rag/index"
)

// fakeProvider returns vector [len(text), 1, 0, ...] for every text.
type fakeProvider struct {
	dim       int
	calls     atomic.Int32
	failAfter int32
	zeroFor   string

	mu      sync.Mutex
	batches [][]string
}

func (f *fakeProvider) ID() string { return "fake/test" }

func (f *fakeProvider) vector(text string) []float32 {
	v := make([]float32, f.dim)
	if text == f.zeroFor {
		return v
	}
	v[0] = float32(len(text))
	v[1] = 1
	return v
}

func (f *fakeProvider) CreateEmbedding(_ context.Context, text string) (*base.EmbeddingResult, error) {
	f.calls.Add(1)
	return &base.EmbeddingResult{Embedding: f.vector(text), TotalTokens: 1}, nil
}

func (f *fakeProvider) CreateBatchEmbedding(_ context.Context, texts []string) (*base.BatchEmbeddingResult, error) {
	n := f.calls.Add(1)
	if f.failAfter > 0 && n > f.failAfter {
		return nil, errors.New("provider unavailable")
	}

	f.mu.Lock()
	f.batches = append(f.batches, texts)
	f.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vector(text)
	}
	return &base.BatchEmbeddingResult{Embeddings: out, TotalTokens: int64(len(texts))}, nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestEmbedBatch_OrderAndNormalization(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{dim: 4}
	var tokens atomic.Int64
	e := New(p,
		WithDimension(4),
		WithBatchSize(2),
		WithMaxConcurrency(3),
		WithUsageHandler(func(n int64) { tokens.Add(n) }),
	)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := e.EmbedBatch(t.Context(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, v := range vectors {
		assert.InDelta(t, 1.0, norm(v), 1e-6)
		// The first component grows with the text length, in input order.
		want := float64(len(texts[i])) / math.Sqrt(float64(len(texts[i])*len(texts[i])+1))
		assert.InDelta(t, want, v[0], 1e-6)
	}

	assert.Len(t, p.batches, 3)
	assert.Equal(t, int64(5), tokens.Load())
}

func TestEmbedBatch_Empty(t *testing.T) {
	t.Parallel()

	vectors, err := New(&fakeProvider{dim: 4}, WithDimension(4)).EmbedBatch(t.Context(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedBatch_PropagatesErrors(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{dim: 4, failAfter: 1}
	e := New(p, WithDimension(4), WithBatchSize(1), WithMaxConcurrency(1))

	_, err := e.EmbedBatch(t.Context(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider unavailable")
}

func TestEmbedBatch_DimensionMismatch(t *testing.T) {
	t.Parallel()

	e := New(&fakeProvider{dim: 4}, WithDimension(384))
	_, err := e.EmbedBatch(t.Context(), []string{"a"})
	require.ErrorIs(t, err, index.ErrDimensionMismatch)
}

func TestEmbedBatch_ZeroVector(t *testing.T) {
	t.Parallel()

	e := New(&fakeProvider{dim: 4, zeroFor: "blank"}, WithDimension(4))
	_, err := e.EmbedBatch(t.Context(), []string{"ok", "blank"})
	require.ErrorIs(t, err, ErrZeroVector)
}

func TestEmbed_QueryCache(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{dim: 4}
	e := New(p, WithDimension(4), WithQueryCache(time.Minute))

	first, err := e.Embed(t.Context(), "what is this about?")
	require.NoError(t, err)
	second, err := e.Embed(t.Context(), "what is this about?")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), p.calls.Load())
	assert.InDelta(t, 1.0, norm(first), 1e-6)

	_, err = e.Embed(t.Context(), "another question")
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestEmbed_QueryCacheReturnsCopies(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{dim: 4}
	e := New(p, WithDimension(4), WithQueryCache(time.Minute))

	first, err := e.Embed(t.Context(), "prazo de entrega")
	require.NoError(t, err)
	want := slices.Clone(first)

	first[0] = 42
	second, err := e.Embed(t.Context(), "prazo de entrega")
	require.NoError(t, err)
	assert.Equal(t, want, second)

	second[1] = 42
	third, err := e.Embed(t.Context(), "prazo de entrega")
	require.NoError(t, err)
	assert.Equal(t, want, third)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestEmbed_NoCache(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{dim: 4}
	e := New(p, WithDimension(4), WithQueryCache(0))

	for range 3 {
		_, err := e.Embed(t.Context(), "q")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), p.calls.Load())
}
