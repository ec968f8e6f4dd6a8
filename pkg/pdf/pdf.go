// Package pdf extracts plain text from uploaded documents.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	ErrNotPDF      = errors.New("not a PDF file")
	ErrUnsupported = errors.New("unsupported document type")
)

var magic = []byte("%PDF-")

// IsPDF reports whether header starts with the PDF signature.
func IsPDF(header []byte) bool {
	return bytes.HasPrefix(header, magic)
}

// ExtractText returns the text of every page, one page per line group.
// Pages that fail to decode are skipped.
func ExtractText(r io.ReaderAt, size int64) (text string, err error) {
	header := make([]byte, len(magic))
	if _, err := r.ReadAt(header, 0); err != nil || !IsPDF(header) {
		return "", ErrNotPDF
	}

	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			slog.Debug("[PDF] Skipping page", "page", i, "error", err)
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	return b.String(), nil
}

// ExtractFile extracts the text of the PDF at path.
func ExtractFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	return ExtractText(f, info.Size())
}

// ReadDocument returns the text of a PDF or plain text file. The file
// type is decided by content, not by extension.
func ReadDocument(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, len(magic))
	n, _ := io.ReadFull(f, header)
	if IsPDF(header[:n]) {
		return ExtractFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}
	return string(data), nil
}
