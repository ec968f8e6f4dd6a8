package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestWords_Empty(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "\n\t"} {
		chunks, err := Words(text, DefaultSize, DefaultOverlap)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestWindows_Offsets(t *testing.T) {
	t.Parallel()

	windows, err := Windows(25, 10, 3)
	require.NoError(t, err)

	assert.Equal(t, []Window{
		{Start: 0, End: 10},
		{Start: 7, End: 17},
		{Start: 14, End: 24},
		{Start: 21, End: 25},
	}, windows)
}

func TestWords_TwentyFiveWords(t *testing.T) {
	t.Parallel()

	chunks, err := Words(numberedWords(25), 10, 3)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.True(t, strings.HasPrefix(chunks[0], "w0 "))
	assert.True(t, strings.HasPrefix(chunks[1], "w7 "))
	assert.True(t, strings.HasPrefix(chunks[2], "w14 "))
	assert.Equal(t, "w21 w22 w23 w24", chunks[3])
}

func TestWords_Coverage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		n       int
		size    int
		overlap int
	}{
		{name: "exact fit", n: 20, size: 10, overlap: 0},
		{name: "single short window", n: 3, size: 10, overlap: 3},
		{name: "one word", n: 1, size: 500, overlap: 80},
		{name: "defaults", n: 1234, size: DefaultSize, overlap: DefaultOverlap},
		{name: "overlap of size minus one", n: 12, size: 4, overlap: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			windows, err := Windows(tt.n, tt.size, tt.overlap)
			require.NoError(t, err)
			require.NotEmpty(t, windows)

			assert.Equal(t, 0, windows[0].Start)
			assert.Equal(t, tt.n, windows[len(windows)-1].End)

			for i := 1; i < len(windows); i++ {
				assert.Equal(t, tt.size-tt.overlap, windows[i].Start-windows[i-1].Start)
				// No gaps between consecutive windows.
				assert.LessOrEqual(t, windows[i].Start, windows[i-1].End)
			}
			for _, w := range windows[:len(windows)-1] {
				assert.Equal(t, tt.size, w.End-w.Start)
			}

			chunks, err := Words(numberedWords(tt.n), tt.size, tt.overlap)
			require.NoError(t, err)
			assert.Len(t, chunks, len(windows))
		})
	}
}

func TestWords_JoinsWithSingleSpaces(t *testing.T) {
	t.Parallel()

	chunks, err := Words("  alpha\n\nbeta \t gamma ", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha beta", "beta gamma"}, chunks)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "defaults", size: DefaultSize, overlap: DefaultOverlap},
		{name: "no overlap", size: 1, overlap: 0},
		{name: "overlap equals size", size: 10, overlap: 10, wantErr: true},
		{name: "overlap exceeds size", size: 10, overlap: 11, wantErr: true},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "negative overlap", size: 10, overlap: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(tt.size, tt.overlap)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidWindow)

				_, err = Words("some words here", tt.size, tt.overlap)
				require.ErrorIs(t, err, ErrInvalidWindow)
				return
			}
			require.NoError(t, err)
		})
	}
}
