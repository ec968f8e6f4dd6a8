package chunk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/docker/docqa/pkg/rag/normalize"
)

const (
	// DefaultSize is the number of words per chunk.
	DefaultSize = 500
	// DefaultOverlap is the number of words shared by consecutive chunks.
	DefaultOverlap = 80
)

// ErrInvalidWindow is returned when a window configuration could never
// advance through the text.
var ErrInvalidWindow = errors.New("invalid chunk window")

// Window is a half-open word range [Start, End).
type Window struct {
	Start int
	End   int
}

// Validate checks that size and overlap describe windows that make
// forward progress.
func Validate(size, overlap int) error {
	switch {
	case size <= 0:
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidWindow, size)
	case overlap < 0:
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidWindow, overlap)
	case overlap >= size:
		return fmt.Errorf("%w: overlap (%d) must be smaller than size (%d)", ErrInvalidWindow, overlap, size)
	}
	return nil
}

// Windows computes the word ranges covering n words. Each window starts
// size-overlap words after the previous one; the last window ends at n and
// may be shorter than size.
func Windows(n, size, overlap int) ([]Window, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}

	var windows []Window
	for start := 0; start < n; {
		end := min(start+size, n)
		windows = append(windows, Window{Start: start, End: end})
		if end >= n {
			break
		}
		start = end - overlap
	}

	return windows, nil
}

// Words splits text on whitespace and joins overlapping word windows back
// into chunk strings. Text without words yields no chunks.
func Words(text string, size, overlap int) ([]string, error) {
	words := normalize.Words(text)

	windows, err := Windows(len(words), size, overlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]string, 0, len(windows))
	for _, w := range windows {
		chunks = append(chunks, strings.Join(words[w.Start:w.End], " "))
	}

	return chunks, nil
}
