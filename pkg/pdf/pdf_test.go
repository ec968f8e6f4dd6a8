package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPDF builds a single page document showing text, with a correct
// cross-reference table.
func minimalPDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractText(t *testing.T) {
	t.Parallel()

	data := minimalPDF("Hello PDF")
	text, err := ExtractText(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Contains(t, text, "Hello")
}

func TestExtractText_NotPDF(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("plain text"), []byte("%PD")} {
		_, err := ExtractText(bytes.NewReader(data), int64(len(data)))
		require.ErrorIs(t, err, ErrNotPDF)
	}
}

func TestExtractText_Corrupt(t *testing.T) {
	t.Parallel()

	data := []byte("%PDF-1.4\nthis is not really a pdf")
	_, err := ExtractText(bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)
}

func TestReadDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	txt := filepath.Join(dir, "notas.txt")
	require.NoError(t, os.WriteFile(txt, []byte("Conteúdo em texto\nsimples"), 0o600))
	got, err := ReadDocument(txt)
	require.NoError(t, err)
	assert.Equal(t, "Conteúdo em texto\nsimples", got)

	// Content decides, not the extension.
	disguised := filepath.Join(dir, "scan.bin")
	require.NoError(t, os.WriteFile(disguised, minimalPDF("Disguised"), 0o600))
	got, err = ReadDocument(disguised)
	require.NoError(t, err)
	assert.True(t, strings.Contains(got, "Disguised"))

	binary := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(binary, []byte{0x89, 'P', 'N', 'G', 0xff, 0xfe, 0x00}, 0o600))
	_, err = ReadDocument(binary)
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = ReadDocument(filepath.Join(dir, "missing.pdf"))
	require.Error(t, err)
}
