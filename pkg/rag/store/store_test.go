package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/docqa/pkg/rag/index"
)

func testRecord(t *testing.T, chunks ...string) Record {
	t.Helper()

	vectors := make([][]float32, len(chunks))
	for i := range chunks {
		vectors[i] = []float32{float32(i + 1), 1, 0.5}
	}
	idx, err := index.Build(vectors)
	require.NoError(t, err)

	return Record{Index: idx, Chunks: chunks}
}

func TestSafeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		source string
		want   string
	}{
		{source: "doc.pdf", want: "doc"},
		{source: "/tmp/uploads/report.final.pdf", want: "report.final"},
		{source: `C:\Users\ana\contrato.pdf`, want: "contrato"},
		{source: "relatório anual 2024.pdf", want: "relat_rio_anual_2024"},
		{source: "../../etc/passwd", want: "passwd"},
		{source: "noext", want: "noext"},
		{source: "", want: "document"},
		{source: "..", want: "document"},
		{source: "???.pdf", want: "document"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SafeName(tt.source))
		})
	}
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "indices"))
	rec := testRecord(t, "primeiro trecho com acentuação", "second <chunk> & more", "三")

	require.NoError(t, s.Save("uploads/manual.pdf", rec))

	assert.FileExists(t, filepath.Join(s.Dir(), "manual.index"))
	assert.FileExists(t, filepath.Join(s.Dir(), "manual_chunks.json"))

	raw, err := os.ReadFile(filepath.Join(s.Dir(), "manual_chunks.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "acentuação")
	assert.Contains(t, string(raw), "<chunk> & more")

	loaded, ok, err := s.Load("manual.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.Chunks, loaded.Chunks)
	assert.Equal(t, rec.Index.Len(), loaded.Index.Len())
	for i := range rec.Index.Len() {
		assert.Equal(t, rec.Index.Vector(i), loaded.Index.Vector(i))
	}

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"manual"}, keys)
}

func TestSave_Overwrites(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	require.NoError(t, s.Save("a.pdf", testRecord(t, "old one", "old two")))
	require.NoError(t, s.Save("a.pdf", testRecord(t, "new")))

	loaded, ok, err := s.Load("a.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"new"}, loaded.Chunks)
}

func TestSave_RejectsMismatchedRecord(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	rec := testRecord(t, "one", "two")
	rec.Chunks = rec.Chunks[:1]

	require.Error(t, s.Save("bad", rec))
	require.Error(t, s.Save("nil", Record{Chunks: []string{"x"}}))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoad_RequiresBothFiles(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())

	_, ok, err := s.Load("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save("pair.pdf", testRecord(t, "x")))

	require.NoError(t, os.Remove(filepath.Join(s.Dir(), "pair_chunks.json")))
	_, ok, err = s.Load("pair.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, s.Save("other.pdf", testRecord(t, "y")))
	require.NoError(t, os.Remove(filepath.Join(s.Dir(), "other.index")))
	_, ok, err = s.Load("other.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadKey_DottedStem(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	require.NoError(t, s.Save("report.final.pdf", testRecord(t, "a", "b")))

	keys, err := s.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"report.final"}, keys)

	rec, ok, err := s.LoadKey(keys[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, rec.Chunks)

	rec, ok, err = s.Load("report.final.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, rec.Chunks)

	_, _, err = s.LoadKey(filepath.Join("..", "report.final"))
	require.Error(t, err)
}

func TestLoad_CorruptFiles(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	require.NoError(t, s.Save("doc", testRecord(t, "x")))

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "doc_chunks.json"), []byte("{not json"), 0o644))
	_, ok, err := s.Load("doc")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestDeleteAll(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "indices"))

	// Nothing to delete yet.
	require.NoError(t, s.DeleteAll())

	require.NoError(t, s.Save("a.pdf", testRecord(t, "a")))
	require.NoError(t, s.Save("b.pdf", testRecord(t, "b")))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "stray.txt"), []byte("x"), 0o644))

	require.NoError(t, s.DeleteAll())

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, s.DeleteAll())
}
