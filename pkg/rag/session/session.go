// Package session holds the single active document of a process: its
// chunks and their vector index. Learning a document replaces the
// previous one entirely; searching returns the chunks closest to a query.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/docker/docqa/pkg/rag/catalog"
	"github.com/docker/docqa/pkg/rag/chunk"
	"github.com/docker/docqa/pkg/rag/embed"
	"github.com/docker/docqa/pkg/rag/index"
	"github.com/docker/docqa/pkg/rag/normalize"
	"github.com/docker/docqa/pkg/rag/store"
)

// DefaultTopK is the number of chunks returned when a search asks for k <= 0.
const DefaultTopK = 4

// ReasonNoText is reported when a document yields no chunks.
const ReasonNoText = "no_text"

// ErrNoDocument is returned by callers that require a loaded document.
var ErrNoDocument = errors.New("no document loaded")

// State is the lifecycle state of a session.
type State string

const (
	StateEmpty  State = "empty"
	StateLoaded State = "loaded"
)

// Embedder turns texts into unit length vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store persists learned documents.
type Store interface {
	Save(key string, rec store.Record) error
	Load(source string) (store.Record, bool, error)
	LoadKey(key string) (store.Record, bool, error)
	Keys() ([]string, error)
	DeleteAll() error
}

// Catalog keeps a history of learned documents.
type Catalog interface {
	Record(ctx context.Context, e catalog.Entry) (catalog.Entry, error)
	Latest(ctx context.Context) (catalog.Entry, bool, error)
	Clear(ctx context.Context) error
}

// Result reports the outcome of Learn.
type Result struct {
	Success bool   `json:"success"`
	Chunks  int    `json:"chunks"`
	Reason  string `json:"reason,omitempty"`
	// Warnings lists persistence problems that did not prevent the
	// document from being searchable.
	Warnings []string `json:"warnings,omitempty"`
}

// Match is a ranked chunk.
type Match struct {
	Position int     `json:"position"`
	Score    float32 `json:"score"`
	Text     string  `json:"text"`
}

// Meta describes the active document.
type Meta struct {
	SourceFilename string `json:"source_filename"`
	NChunks        int    `json:"n_chunks"`
}

// Session is safe for concurrent use. Every operation holds the same lock
// for its whole duration, so a search never observes a half learned
// document.
type Session struct {
	embedder Embedder
	store    Store
	catalog  Catalog
	tracer   trace.Tracer

	chunkSize    int
	chunkOverlap int
	topK         int

	mu     sync.Mutex
	idx    *index.Flat
	chunks []string
	meta   Meta
}

// Opt configures a Session.
type Opt func(*Session)

// WithChunking sets the window size and overlap in words.
func WithChunking(size, overlap int) Opt {
	return func(s *Session) {
		s.chunkSize = size
		s.chunkOverlap = overlap
	}
}

// WithCatalog records every learned document in c.
func WithCatalog(c Catalog) Opt {
	return func(s *Session) {
		s.catalog = c
	}
}

// WithTopK sets the number of results used when a search passes k <= 0.
func WithTopK(k int) Opt {
	return func(s *Session) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Opt {
	return func(s *Session) {
		s.tracer = t
	}
}

// New creates an empty session. st may be nil, in which case nothing is
// persisted.
func New(embedder Embedder, st Store, opts ...Opt) *Session {
	s := &Session{
		embedder:     embedder,
		store:        st,
		tracer:       otel.Tracer("docqa/session"),
		chunkSize:    chunk.DefaultSize,
		chunkOverlap: chunk.DefaultOverlap,
		topK:         DefaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Learn replaces the active document with rawText. The new index is built
// before anything is swapped, so a failing embedder leaves the previous
// document searchable.
func (s *Session) Learn(ctx context.Context, rawText, sourceName string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "session.learn", trace.WithAttributes(
		attribute.String("source", sourceName),
		attribute.Int("raw.length", len(rawText)),
	))
	defer span.End()

	start := time.Now()

	text := normalize.Text(rawText)
	chunks, err := chunk.Words(text, s.chunkSize, s.chunkOverlap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid chunking")
		return Result{}, fmt.Errorf("failed to chunk document: %w", err)
	}

	if len(chunks) == 0 {
		s.clear()
		slog.Info("[Session] Document has no text", "source", sourceName)
		span.SetStatus(codes.Ok, ReasonNoText)
		return Result{Success: false, Chunks: 0, Reason: ReasonNoText}, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return Result{}, fmt.Errorf("failed to embed document: %w", err)
	}
	if len(vectors) != len(chunks) {
		err := fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return Result{}, err
	}

	idx, err := index.Build(vectors)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index build failed")
		return Result{}, fmt.Errorf("failed to build index: %w", err)
	}

	s.idx = idx
	s.chunks = chunks
	s.meta = Meta{SourceFilename: sourceName, NChunks: len(chunks)}

	result := Result{Success: true, Chunks: len(chunks)}

	if s.store != nil {
		if err := s.store.Save(sourceName, store.Record{Index: idx, Chunks: chunks}); err != nil {
			slog.Warn("[Session] Failed to persist index", "source", sourceName, "error", err)
			result.Warnings = append(result.Warnings, "persist: "+err.Error())
		}
	}

	if s.catalog != nil {
		_, err := s.catalog.Record(ctx, catalog.Entry{
			Source:      sourceName,
			Key:         store.SafeName(sourceName),
			Chunks:      len(chunks),
			ContentHash: catalog.ContentHash(text),
		})
		if err != nil {
			slog.Warn("[Session] Failed to record document", "source", sourceName, "error", err)
			result.Warnings = append(result.Warnings, "catalog: "+err.Error())
		}
	}

	span.SetAttributes(attribute.Int("chunks", len(chunks)))
	span.SetStatus(codes.Ok, "learned")
	slog.Info("[Session] Learned document",
		"source", sourceName,
		"chunks", len(chunks),
		"duration", time.Since(start))

	return result, nil
}

// Search returns the texts of the k chunks closest to query, best first.
// It returns an empty slice when no document is loaded.
func (s *Session) Search(ctx context.Context, query string, k int) ([]string, error) {
	matches, err := s.SearchHits(ctx, query, k)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return texts, nil
}

// SearchHits is Search with positions and scores.
func (s *Session) SearchHits(ctx context.Context, query string, k int) ([]Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "session.search", trace.WithAttributes(
		attribute.Int("k", k),
	))
	defer span.End()

	if k <= 0 {
		k = s.topK
	}
	if s.idx == nil {
		span.SetStatus(codes.Ok, "empty")
		return []Match{}, nil
	}

	q, err := s.embedder.Embed(ctx, query)
	if errors.Is(err, embed.ErrZeroVector) {
		// A query without any features matches nothing.
		span.SetStatus(codes.Ok, "zero query")
		return []Match{}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := s.idx.Search(q, k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	hits = index.FilterHits(hits, len(s.chunks))

	matches := make([]Match, len(hits))
	for i, h := range hits {
		matches[i] = Match{Position: h.Position, Score: h.Score, Text: s.chunks[h.Position]}
	}

	span.SetAttributes(attribute.Int("results", len(matches)))
	span.SetStatus(codes.Ok, "searched")
	return matches, nil
}

// Reset forgets the active document and deletes everything persisted.
// Resetting an empty session is a no-op.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "session.reset")
	defer span.End()

	s.clear()

	var errs []error
	if s.store != nil {
		if err := s.store.DeleteAll(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.catalog != nil {
		if err := s.catalog.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reset incomplete")
		return fmt.Errorf("failed to reset: %w", err)
	}

	slog.Info("[Session] Reset")
	span.SetStatus(codes.Ok, "reset")
	return nil
}

// Restore loads a previously persisted document. With an empty
// sourceName the most recent catalog entry is used, or the only stored
// record when there is no catalog. It reports whether a document was
// loaded; the current state is kept when nothing is found.
func (s *Session) Restore(ctx context.Context, sourceName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return false, nil
	}

	load := s.store.Load
	if sourceName == "" {
		name, isKey, err := s.latestSource(ctx)
		if err != nil || name == "" {
			return false, err
		}
		sourceName = name
		if isKey {
			load = s.store.LoadKey
		}
	}

	rec, ok, err := load(sourceName)
	if err != nil {
		return false, fmt.Errorf("failed to restore %s: %w", sourceName, err)
	}
	if !ok {
		slog.Debug("[Session] Nothing to restore", "source", sourceName)
		return false, nil
	}

	s.idx = rec.Index
	s.chunks = rec.Chunks
	s.meta = Meta{SourceFilename: sourceName, NChunks: len(rec.Chunks)}

	slog.Info("[Session] Restored document", "source", sourceName, "chunks", len(rec.Chunks))
	return true, nil
}

// latestSource picks the document to restore. isKey is true when name is
// a store key rather than a source name.
func (s *Session) latestSource(ctx context.Context) (name string, isKey bool, err error) {
	if s.catalog != nil {
		e, ok, err := s.catalog.Latest(ctx)
		if err != nil {
			return "", false, fmt.Errorf("failed to read catalog: %w", err)
		}
		if ok {
			return e.Source, false, nil
		}
		return "", false, nil
	}

	keys, err := s.store.Keys()
	if err != nil {
		return "", false, fmt.Errorf("failed to list stored documents: %w", err)
	}
	if len(keys) != 1 {
		return "", false, nil
	}
	return keys[0], true, nil
}

// State reports whether a document is loaded.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx == nil {
		return StateEmpty
	}
	return StateLoaded
}

// Meta describes the active document. The boolean is false when empty.
func (s *Session) Meta() (Meta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx == nil {
		return Meta{}, false
	}
	return s.meta, true
}

func (s *Session) clear() {
	s.idx = nil
	s.chunks = nil
	s.meta = Meta{}
}
