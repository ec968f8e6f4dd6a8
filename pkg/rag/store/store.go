// Package store persists a document's vector index together with its
// chunk list. Each record is two files sharing a key derived from the
// document's source name: "<key>.index" and "<key>_chunks.json".
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/docker/docqa/pkg/rag/index"
)

const (
	// DefaultDir is where records live, relative to the working directory.
	DefaultDir = "uploads/indices"

	indexSuffix  = ".index"
	chunksSuffix = "_chunks.json"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Record is the persisted form of a learned document.
type Record struct {
	Index  *index.Flat
	Chunks []string
}

// Validate checks that the index and chunk list are in lock-step.
func (r Record) Validate() error {
	if r.Index == nil {
		return errors.New("record has no index")
	}
	if r.Index.Len() != len(r.Chunks) {
		return fmt.Errorf("record index holds %d vectors for %d chunks", r.Index.Len(), len(r.Chunks))
	}
	return nil
}

// Store reads and writes records under a single directory.
type Store struct {
	dir string
}

// New creates a store rooted at dir.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{dir: dir}
}

// Dir returns the directory holding the records.
func (s *Store) Dir() string {
	return s.dir
}

// SafeName derives a filesystem safe key from a source name: the base
// name without its extension, with anything outside [A-Za-z0-9._-]
// replaced by an underscore.
func SafeName(source string) string {
	base := filepath.Base(strings.ReplaceAll(source, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, ".")
	if base == "" || base == "_" {
		return "document"
	}
	return base
}

// paths takes a key that is already safe, as returned by SafeName or Keys.
func (s *Store) paths(key string) (indexPath, chunksPath string) {
	return filepath.Join(s.dir, key+indexSuffix), filepath.Join(s.dir, key+chunksSuffix)
}

// Save writes both files of a record. The chunk list is written first so
// that an index file never exists without its chunks.
func (s *Store) Save(key string, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	indexPath, chunksPath := s.paths(SafeName(key))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec.Chunks); err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}
	if err := atomic.WriteFile(chunksPath, &buf); err != nil {
		return fmt.Errorf("failed to write chunks file: %w", err)
	}

	data, err := rec.Index.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := atomic.WriteFile(indexPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}

	slog.Debug("[Store] Saved record", "key", SafeName(key), "chunks", len(rec.Chunks), "dir", s.dir)
	return nil
}

// Load reads the record of a source name. The boolean is false when
// either of the two files is missing.
func (s *Store) Load(source string) (Record, bool, error) {
	return s.LoadKey(SafeName(source))
}

// LoadKey is Load for a key returned by Keys. The key is used as is, so
// stems containing dots survive.
func (s *Store) LoadKey(key string) (Record, bool, error) {
	if key == "" || key != filepath.Base(key) {
		return Record{}, false, fmt.Errorf("invalid record key %q", key)
	}
	indexPath, chunksPath := s.paths(key)

	if !exists(indexPath) || !exists(chunksPath) {
		return Record{}, false, nil
	}

	data, err := os.ReadFile(indexPath)
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to read index file: %w", err)
	}
	var idx index.Flat
	if err := idx.UnmarshalBinary(data); err != nil {
		return Record{}, false, fmt.Errorf("failed to decode index file %s: %w", indexPath, err)
	}

	raw, err := os.ReadFile(chunksPath)
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to read chunks file: %w", err)
	}
	var chunks []string
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return Record{}, false, fmt.Errorf("failed to decode chunks file %s: %w", chunksPath, err)
	}

	rec := Record{Index: &idx, Chunks: chunks}
	if err := rec.Validate(); err != nil {
		return Record{}, false, err
	}

	return rec, true, nil
}

// Keys lists the keys that have both files present.
func (s *Store) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var keys []string
	for _, e := range entries {
		key, ok := strings.CutSuffix(e.Name(), indexSuffix)
		if !ok || e.IsDir() {
			continue
		}
		if exists(filepath.Join(s.dir, key+chunksSuffix)) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// DeleteAll removes every file in the store directory. Failures on
// individual files are ignored.
func (s *Store) DeleteAll() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to list index directory: %w", err)
	}

	for _, e := range entries {
		path := filepath.Join(s.dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			slog.Debug("[Store] Failed to remove file", "path", path, "error", err)
		}
	}
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
