// Package watch learns documents dropped into a directory.
package watch

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/docker/docqa/pkg/pdf"
	"github.com/docker/docqa/pkg/rag/catalog"
	"github.com/docker/docqa/pkg/rag/session"
)

const (
	DefaultPattern  = "**/*.{pdf,txt,md}"
	DefaultDebounce = 2 * time.Second
)

// Learner is the part of a session the watcher needs.
type Learner interface {
	Learn(ctx context.Context, rawText, sourceName string) (session.Result, error)
}

// Watcher learns files matching a pattern as they are created or
// rewritten. Events are debounced so that a file being copied in is read
// once, after it settles.
type Watcher struct {
	dir      string
	pattern  string
	debounce time.Duration
	learner  Learner
	read     func(path string) (string, error)
	onLearn  func(path string, result session.Result, err error)

	mu     sync.Mutex
	hashes map[string]string
}

type Opt func(*Watcher)

func WithPattern(pattern string) Opt {
	return func(w *Watcher) {
		if pattern != "" {
			w.pattern = pattern
		}
	}
}

func WithDebounce(d time.Duration) Opt {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithReader replaces the document reader. The default handles PDF and
// plain text.
func WithReader(read func(path string) (string, error)) Opt {
	return func(w *Watcher) {
		w.read = read
	}
}

// OnLearn registers a callback invoked after every learn attempt.
func OnLearn(fn func(path string, result session.Result, err error)) Opt {
	return func(w *Watcher) {
		w.onLearn = fn
	}
}

func New(dir string, learner Learner, opts ...Opt) (*Watcher, error) {
	w := &Watcher{
		dir:      dir,
		pattern:  DefaultPattern,
		debounce: DefaultDebounce,
		learner:  learner,
		read:     pdf.ReadDocument,
		hashes:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}

	if !doublestar.ValidatePattern(w.pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", w.pattern)
	}
	return w, nil
}

// Matches reports whether path, inside the watched directory, matches the
// pattern.
func (w *Watcher) Matches(path string) bool {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	ok, err := doublestar.Match(w.pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create watched directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, w.dir); err != nil {
		return err
	}
	slog.Info("File watcher started", "dir", w.dir, "pattern", w.pattern)

	var (
		debounceTimer *time.Timer
		pending       pendingSet
		processMu     sync.Mutex
	)

	processChanges := func() {
		processMu.Lock()
		defer processMu.Unlock()

		for _, path := range pending.drain() {
			w.process(ctx, path)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			slog.Info("File watcher stopped", "dir", w.dir)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						slog.Debug("Could not watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}

			if !w.Matches(event.Name) {
				continue
			}

			slog.Debug("File system event detected", "event", event.Op.String(), "path", event.Name)

			pending.add(event.Name)

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, processChanges)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", "error", err)
		}
	}
}

// process learns path unless its content is unchanged since the last time.
func (w *Watcher) process(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	path = filepath.Clean(path)
	text, err := w.read(path)
	if err != nil {
		slog.Debug("File no longer readable", "path", path, "error", err)
		return
	}

	hash := catalog.ContentHash(text)
	w.mu.Lock()
	unchanged := w.hashes[path] == hash
	w.hashes[path] = hash
	w.mu.Unlock()
	if unchanged {
		slog.Debug("File content unchanged, skipping", "path", path)
		return
	}

	result, err := w.learner.Learn(ctx, text, filepath.Base(path))
	if err != nil {
		slog.Error("Failed to learn file", "path", path, "error", err)
		w.mu.Lock()
		delete(w.hashes, path)
		w.mu.Unlock()
	} else {
		slog.Info("Learned file", "path", path, "chunks", result.Chunks, "success", result.Success)
	}

	if w.onLearn != nil {
		w.onLearn(path, result, err)
	}
}

// MarkLearned records that the current content of path was learned by
// someone else, such as the upload endpoint saving into the watched
// directory. The next event for path is skipped unless the content changed.
func (w *Watcher) MarkLearned(path, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hashes[filepath.Clean(path)] = catalog.ContentHash(text)
}

// Forget drops what is known about path, so its next event is learned.
func (w *Watcher) Forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.hashes, filepath.Clean(path))
}

// pendingSet collects changed paths between two debounced runs. Paths come
// out ordered by their latest event, so the file touched last is learned
// last and ends up as the active document.
type pendingSet struct {
	mu   sync.Mutex
	seq  uint64
	last map[string]uint64
}

func (p *pendingSet) add(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		p.last = make(map[string]uint64)
	}
	p.seq++
	p.last[path] = p.seq
}

func (p *pendingSet) drain() []string {
	p.mu.Lock()
	last := p.last
	p.last = nil
	p.mu.Unlock()

	paths := make([]string, 0, len(last))
	for path := range last {
		paths = append(paths, path)
	}
	slices.SortFunc(paths, func(a, b string) int {
		return cmp.Compare(last[a], last[b])
	})
	return paths
}

func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
