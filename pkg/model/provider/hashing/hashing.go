// Package hashing provides a deterministic embedding provider that needs
// no model and no network. Words and adjacent word pairs are hashed into
// signed buckets, so texts sharing vocabulary end up close together.
package hashing

import (
	"context"
	"encoding/binary"
	"strings"
	"unicode"

	"github.com/minio/highwayhash"

	"github.com/docker/docqa/pkg/model/provider/base"
)

// DefaultDimension matches the all-MiniLM-L6-v2 embedding size.
const DefaultDimension = 384

var key = []byte("docqa-hashing-embedder-key-32byt")

type Embedder struct {
	dim int
}

func New(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Embedder{dim: dim}
}

func (e *Embedder) ID() string {
	return "hashing/features"
}

func (e *Embedder) Dimension() int {
	return e.dim
}

func (e *Embedder) CreateEmbedding(ctx context.Context, text string) (*base.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &base.EmbeddingResult{Embedding: e.vector(text)}, nil
}

func (e *Embedder) CreateBatchEmbedding(ctx context.Context, texts []string) (*base.BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embeddings[i] = e.vector(text)
	}
	return &base.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

// vector is not normalized; callers scale it to unit length. Only blank
// text yields a zero vector.
func (e *Embedder) vector(text string) []float32 {
	v := make([]float32, e.dim)

	tokens := Tokens(text)
	if len(tokens) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			e.add(v, trimmed, 1)
		}
		return v
	}
	for i, tok := range tokens {
		e.add(v, tok, 1)
		if i > 0 {
			e.add(v, tokens[i-1]+" "+tok, 0.5)
		}
	}
	return v
}

func (e *Embedder) add(v []float32, feature string, weight float32) {
	sum := highwayhash.Sum64([]byte(feature), key)
	bucket := sum % uint64(e.dim)
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	v[bucket] += weight
}

// Tokens lower-cases text and splits it into runs of letters and digits.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Fingerprint returns a stable 64-bit content hash, used to tell documents
// apart in the catalog.
func Fingerprint(text string) []byte {
	sum := highwayhash.Sum64([]byte(text), key)
	return binary.BigEndian.AppendUint64(nil, sum)
}
