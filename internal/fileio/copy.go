// Package fileio provides bounded streaming copies and hashing readers.
package fileio

import (
	"context"
	"io"
)

// CopyChunkSize is the buffer size used by CopyBounded when no buffer is supplied.
const CopyChunkSize = 32 * 1024

// CopyBounded copies at most max bytes from src to dst in fixed-size chunks,
// checking for context cancellation between reads. It never reads past max.
// Reaching end-of-source before max bytes is not an error; callers inspect the
// returned count to detect short sources.
func CopyBounded(ctx context.Context, dst io.Writer, src io.Reader, max int64) (int64, error) {
	var written int64
	buf := make([]byte, CopyChunkSize)
	for written < max {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		chunk := buf
		if remaining := max - written; remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}
		nr, er := src.Read(chunk)
		if nr > 0 {
			nw, ew := dst.Write(chunk[:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if ew != nil {
				return written, ew
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if er != nil {
			if er == io.EOF {
				return written, nil
			}
			return written, er
		}
	}
	return written, nil
}
