package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/docker/docqa/pkg/model/provider"
	"github.com/docker/docqa/pkg/rag/index"
)

// DefaultDimension is the size of all-MiniLM-L6-v2 vectors.
const DefaultDimension = 384

// ErrZeroVector is returned when a provider yields a vector that cannot be
// scaled to unit length.
var ErrZeroVector = errors.New("embedding is a zero vector")

// Embedder generates unit length vector embeddings for text
type Embedder struct {
	provider       provider.BatchEmbeddingProvider
	usageHandler   func(tokens int64) // Callback to emit usage events
	batchSize      int                // Batch size for API calls
	maxConcurrency int                // Maximum concurrent embedding batch requests
	dimension      int                // Expected vector size, 0 accepts any
	queryCache     *gocache.Cache     // Query embeddings, nil when disabled
}

// Option is a functional option for configuring the Embedder
type Option func(*Embedder)

// WithBatchSize sets the batch size for embedding API calls (default: 50)
func WithBatchSize(size int) Option {
	return func(e *Embedder) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// WithMaxConcurrency sets the maximum concurrent embedding batch requests (default: 5)
func WithMaxConcurrency(maxConcurrency int) Option {
	return func(e *Embedder) {
		if maxConcurrency > 0 {
			e.maxConcurrency = maxConcurrency
		}
	}
}

// WithDimension sets the expected vector size (default: 384). Zero
// accepts whatever the provider returns as long as it is consistent.
func WithDimension(dim int) Option {
	return func(e *Embedder) {
		e.dimension = dim
	}
}

// WithQueryCache caches query embeddings for ttl. Zero disables caching.
func WithQueryCache(ttl time.Duration) Option {
	return func(e *Embedder) {
		if ttl <= 0 {
			e.queryCache = nil
			return
		}
		e.queryCache = gocache.New(ttl, 2*ttl)
	}
}

// WithUsageHandler sets a callback to be called after each API call with token usage
func WithUsageHandler(handler func(tokens int64)) Option {
	return func(e *Embedder) {
		e.usageHandler = handler
	}
}

// New creates a new embedder using a model provider with optional configuration
func New(p provider.BatchEmbeddingProvider, opts ...Option) *Embedder {
	e := &Embedder{
		provider:       p,
		batchSize:      50,
		maxConcurrency: 5,
		dimension:      DefaultDimension,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ID returns the underlying provider's ID.
func (e *Embedder) ID() string {
	return e.provider.ID()
}

// Embed generates a unit length embedding for a single query text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.queryCache != nil {
		if cached, ok := e.queryCache.Get(text); ok {
			slog.Debug("Query embedding cache hit", "provider", e.provider.ID())
			return slices.Clone(cached.([]float32)), nil
		}
	}

	result, err := e.provider.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if e.usageHandler != nil {
		e.usageHandler(result.TotalTokens)
	}

	vector, err := e.finish(result.Embedding)
	if err != nil {
		return nil, err
	}

	if e.queryCache != nil {
		e.queryCache.SetDefault(text, slices.Clone(vector))
	}
	return vector, nil
}

// EmbedBatch generates unit length embeddings for multiple texts. Batches
// are sent in parallel; the result is in input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	totalTexts := len(texts)
	numBatches := (totalTexts + e.batchSize - 1) / e.batchSize
	slog.Debug("Starting batch embedding",
		"provider", e.provider.ID(),
		"total_texts", totalTexts,
		"batch_size", e.batchSize,
		"max_concurrency", e.maxConcurrency)

	embeddings := make([][]float32, totalTexts)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrency)

	for start := 0; start < totalTexts; start += e.batchSize {
		end := min(start+e.batchSize, totalTexts)

		g.Go(func() error {
			batchNum := start/e.batchSize + 1

			result, err := e.provider.CreateBatchEmbedding(ctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d/%d failed: %w", batchNum, numBatches, err)
			}
			if len(result.Embeddings) != end-start {
				return fmt.Errorf("batch %d/%d: expected %d embeddings, got %d", batchNum, numBatches, end-start, len(result.Embeddings))
			}

			// Batches write disjoint ranges of the slice.
			for i, v := range result.Embeddings {
				vector, err := e.finish(v)
				if err != nil {
					return fmt.Errorf("text %d: %w", start+i, err)
				}
				embeddings[start+i] = vector
			}

			if e.usageHandler != nil {
				e.usageHandler(result.TotalTokens)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("Batch embedding completed",
		"provider", e.provider.ID(),
		"total_embeddings", len(embeddings),
		"batches_processed", numBatches)

	return embeddings, nil
}

// finish checks the vector size and returns a normalized copy.
func (e *Embedder) finish(v []float32) ([]float32, error) {
	if e.dimension > 0 && len(v) != e.dimension {
		return nil, fmt.Errorf("%w: got %d dimensions, expected %d", index.ErrDimensionMismatch, len(v), e.dimension)
	}

	out := make([]float32, len(v))
	copy(out, v)
	if !index.Normalize(out) {
		return nil, ErrZeroVector
	}
	return out, nil
}
