package server

import (
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/otakit/otaserve"
	"github.com/otakit/otaserve/internal/fileio"
)

// digestChunkSize bounds memory while hashing payloads of arbitrary size.
const digestChunkSize = 1 << 20

// payloadDigest returns the SHA-256 digest of the whole payload window.
// The payload is immutable for the process lifetime, so the digest is
// computed once; concurrent first callers are deduplicated.
func (s *Server) payloadDigest() (digest.Digest, error) {
	s.digestMu.Lock()
	if d := s.digestVal; d != "" {
		s.digestMu.Unlock()
		return d, nil
	}
	s.digestMu.Unlock()

	v, err, _ := s.digestGroup.Do("payload", func() (any, error) {
		d, err := computePayloadDigest(s.loc)
		if err != nil {
			return nil, err
		}
		s.digestMu.Lock()
		s.digestVal = d
		s.digestMu.Unlock()
		return d, nil
	})
	if err != nil {
		return "", err
	}
	return v.(digest.Digest), nil
}

func computePayloadDigest(loc *otaserve.PayloadLocation) (digest.Digest, error) {
	f, err := os.Open(loc.ContainerPath)
	if err != nil {
		return "", fmt.Errorf("open package: %w", err)
	}
	defer f.Close()

	digester := digest.SHA256.Digester()
	section := io.NewSectionReader(f, loc.Offset, loc.Size)
	hr := fileio.NewHashingReader(section, digester.Hash())

	buf := make([]byte, digestChunkSize)
	var total int64
	for {
		n, err := hr.Read(buf)
		total += int64(n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("hash payload: %w", err)
		}
	}
	if total != loc.Size {
		return "", fmt.Errorf("%w: declared %d, read %d",
			otaserve.ErrTruncatedPayload, loc.Size, total)
	}
	return digester.Digest(), nil
}
