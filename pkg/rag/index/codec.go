package index

import (
	"errors"
	"fmt"

	"github.com/viant/bintly"
)

const (
	magic         = "docqa.flatip"
	formatVersion = int16(1)
)

var (
	writers = bintly.NewWriters()
	readers = bintly.NewReaders()
)

// MarshalBinary encodes the index as magic, version, dimension, count and
// the raw float32 payload.
func (f *Flat) MarshalBinary() ([]byte, error) {
	if f.Len() == 0 {
		return nil, ErrEmpty
	}

	w := writers.Get()
	defer writers.Put(w)

	w.String(magic)
	w.Int16(formatVersion)
	w.Int(f.dim)
	w.Int(f.Len())
	for _, x := range f.vectors {
		w.Float32(x)
	}

	return append([]byte(nil), w.Bytes()...), nil
}

// UnmarshalBinary restores an index written by MarshalBinary.
func (f *Flat) UnmarshalBinary(data []byte) (err error) {
	if len(data) == 0 {
		return errors.New("empty index data")
	}

	r := readers.Get()
	defer readers.Put(r)

	// bintly panics when reading past the end of a truncated buffer.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("corrupt index data: %v", p)
		}
	}()

	if err := r.FromBytes(data); err != nil {
		return fmt.Errorf("failed to read index data: %w", err)
	}

	var (
		gotMagic   string
		version    int16
		dim, count int
	)
	r.String(&gotMagic)
	if gotMagic != magic {
		return fmt.Errorf("not an index file (magic %q)", gotMagic)
	}
	r.Int16(&version)
	if version != formatVersion {
		return fmt.Errorf("unsupported index format version %d", version)
	}
	r.Int(&dim)
	r.Int(&count)
	if dim <= 0 || count <= 0 || dim*count*4 > len(data) {
		return fmt.Errorf("corrupt index header: dim=%d count=%d", dim, count)
	}

	vectors := make([]float32, dim*count)
	for i := range vectors {
		r.Float32(&vectors[i])
	}

	f.dim = dim
	f.vectors = vectors
	return nil
}
