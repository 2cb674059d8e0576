package otaserve

import (
	"bytes"
	"fmt"
	"os"

	"github.com/otakit/otaserve/internal/zipfile"
)

// Locate resolves the payload and properties entries inside the OTA package
// at containerPath and returns the payload's exact byte window.
//
// The entry's data offset comes from a direct read of its local file header,
// not from the central directory alone: the extra-field lengths recorded in
// the two places may legitimately differ, and only the local header's value
// is correct for offset arithmetic.
//
// By default a payload entry that is compressed or does not start with
// [Magic] only logs a warning; [WithStrict] turns both into errors.
func Locate(containerPath string, opts ...LocateOption) (*PayloadLocation, error) {
	cfg := newLocateConfig(opts)

	archive, err := zipfile.Open(containerPath)
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}
	defer archive.Close()

	entry, ok := archive.Lookup(cfg.payloadEntry)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, cfg.payloadEntry)
	}

	if entry.Method != zipfile.Store {
		if cfg.strict {
			return nil, fmt.Errorf("%w: %q uses method %d", ErrNotStored, entry.Name, entry.Method)
		}
		cfg.logger.Warn("payload entry is not stored; served bytes will be the compressed form",
			"entry", entry.Name, "method", entry.Method)
	}

	offset, err := archive.DataOffset(entry)
	if err != nil {
		return nil, err
	}
	size := int64(entry.UncompressedSize)
	if offset+size > archive.Size() {
		return nil, fmt.Errorf("%w: entry %q extends past end of package", ErrTruncatedPayload, entry.Name)
	}

	if err := checkMagic(archive, entry, offset, cfg); err != nil {
		return nil, err
	}

	props, ok := archive.Lookup(cfg.propertiesEntry)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, cfg.propertiesEntry)
	}
	properties, err := archive.Read(props)
	if err != nil {
		return nil, fmt.Errorf("read properties: %w", err)
	}

	cfg.logger.Info("located payload",
		"package", containerPath, "entry", entry.Name, "offset", offset, "size", size)

	return &PayloadLocation{
		ContainerPath: containerPath,
		Offset:        offset,
		Size:          size,
		Properties:    properties,
		ModTime:       archive.ModTime(),
	}, nil
}

// LocateRaw serves a bare payload file instead of one embedded in a package.
// The whole file is the served window. propertiesPath may be empty when no
// properties blob is available.
func LocateRaw(payloadPath, propertiesPath string, opts ...LocateOption) (*PayloadLocation, error) {
	cfg := newLocateConfig(opts)

	f, err := os.Open(payloadPath)
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var magic [len(Magic)]byte
	if n, _ := f.ReadAt(magic[:], 0); n < len(magic) || !bytes.Equal(magic[:], []byte(Magic)) {
		if cfg.strict {
			return nil, fmt.Errorf("%w: %q begins with % x", ErrBadMagic, payloadPath, magic[:n])
		}
		cfg.logger.Warn("payload magic mismatch", "payload", payloadPath, "got", fmt.Sprintf("% x", magic[:n]))
	}

	var properties []byte
	if propertiesPath != "" {
		properties, err = os.ReadFile(propertiesPath)
		if err != nil {
			return nil, fmt.Errorf("read properties: %w", err)
		}
	}

	return &PayloadLocation{
		ContainerPath: payloadPath,
		Offset:        0,
		Size:          fi.Size(),
		Properties:    properties,
		ModTime:       fi.ModTime(),
	}, nil
}

func checkMagic(archive *zipfile.Archive, entry *zipfile.Entry, offset int64, cfg *locateConfig) error {
	var magic [len(Magic)]byte
	if _, err := archive.ReaderAt().ReadAt(magic[:], offset); err != nil {
		return fmt.Errorf("read payload magic: %w", err)
	}
	if bytes.Equal(magic[:], []byte(Magic)) {
		return nil
	}
	if cfg.strict {
		return fmt.Errorf("%w: %q begins with % x", ErrBadMagic, entry.Name, magic)
	}
	// The offset arithmetic may still be right if the payload format evolved
	// its signature, so a mismatch is a strong signal but not fatal.
	cfg.logger.Warn("payload magic mismatch", "entry", entry.Name, "offset", offset,
		"got", fmt.Sprintf("% x", magic))
	return nil
}
