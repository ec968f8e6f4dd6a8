// Package index implements an exact inner-product vector index. With unit
// length vectors the inner product equals cosine similarity.
package index

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	ErrEmpty             = errors.New("index has no vectors")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Hit is a search result: the position of a stored vector and its score.
type Hit struct {
	Position int
	Score    float32
}

// Flat stores vectors contiguously and scans all of them on every search.
type Flat struct {
	dim     int
	vectors []float32
}

// Build creates an index over vectors. All vectors must share the same
// non-zero dimension; they are copied and scaled to unit length.
func Build(vectors [][]float32) (*Flat, error) {
	if len(vectors) == 0 {
		return nil, ErrEmpty
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: vectors must not be empty", ErrDimensionMismatch)
	}

	f := &Flat{
		dim:     dim,
		vectors: make([]float32, 0, dim*len(vectors)),
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
		f.vectors = append(f.vectors, v...)
		Normalize(f.vectors[i*dim : (i+1)*dim])
	}

	return f, nil
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	if f == nil || f.dim == 0 {
		return 0
	}
	return len(f.vectors) / f.dim
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int {
	if f == nil {
		return 0
	}
	return f.dim
}

// Vector returns a copy of the vector stored at position i.
func (f *Flat) Vector(i int) []float32 {
	if i < 0 || i >= f.Len() {
		return nil
	}
	return slices.Clone(f.vectors[i*f.dim : (i+1)*f.dim])
}

// Search returns up to k hits ordered by descending score. Equal scores
// are ordered by ascending position.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	n := f.Len()
	if k <= 0 || n == 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), f.dim)
	}

	hits := make([]Hit, n)
	for i := range n {
		hits[i] = Hit{
			Position: i,
			Score:    Dot(query, f.vectors[i*f.dim:(i+1)*f.dim]),
		}
	}

	slices.SortStableFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})

	return hits[:min(k, n)], nil
}

// FilterHits drops hits whose position does not address one of n chunks.
func FilterHits(hits []Hit, n int) []Hit {
	return slices.DeleteFunc(hits, func(h Hit) bool {
		return h.Position < 0 || h.Position >= n
	})
}

// Dot computes the inner product of two vectors of equal length.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Normalize scales v in place to unit length and reports whether it could.
// A zero vector is left unchanged.
func Normalize(v []float32) bool {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return false
	}

	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return true
}
