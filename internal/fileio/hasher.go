package fileio

import (
	"hash"
	"io"
)

// HashingReader feeds every byte read through it into a hash, so a consumer
// can stream data once and take the digest afterwards.
type HashingReader struct {
	r io.Reader
	h hash.Hash
}

// NewHashingReader wraps r so that all data read from it is also written to h.
func NewHashingReader(r io.Reader, h hash.Hash) *HashingReader {
	return &HashingReader{r: r, h: h}
}

// Read implements io.Reader.
func (hr *HashingReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	if n > 0 {
		hr.h.Write(p[:n]) // hash.Hash writes never return an error
	}
	return n, err
}

// Sum returns the hash of everything read so far.
func (hr *HashingReader) Sum() []byte {
	return hr.h.Sum(nil)
}
