package otaserve_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/otakit/otaserve"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type testEntry struct {
	name   string
	data   []byte
	method uint16
}

func buildPackage(t *testing.T, entries []testEntry) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: e.method})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(e.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "ota.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func payloadBytes(n int) []byte {
	data := make([]byte, n)
	copy(data, otaserve.Magic)
	for i := len(otaserve.Magic); i < n; i++ {
		data[i] = byte(i % 251)
	}
	return data
}

func TestLocate(t *testing.T) {
	payload := payloadBytes(4096)
	props := []byte("FILE_SIZE=4096\nMETADATA_SIZE=128\n")
	path := buildPackage(t, []testEntry{
		{name: "META-INF/com/android/metadata", data: []byte("ota-type=AB\n"), method: zip.Deflate},
		{name: otaserve.PayloadEntry, data: payload, method: zip.Store},
		{name: otaserve.PropertiesEntry, data: props, method: zip.Deflate},
	})

	loc, err := otaserve.Locate(path, otaserve.WithLogger(discard))
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if loc.ContainerPath != path {
		t.Errorf("ContainerPath = %q, want %q", loc.ContainerPath, path)
	}
	if loc.Size != int64(len(payload)) {
		t.Errorf("Size = %d, want %d", loc.Size, len(payload))
	}
	if !bytes.Equal(loc.Properties, props) {
		t.Errorf("Properties = %q, want %q", loc.Properties, props)
	}
	if loc.ModTime.IsZero() {
		t.Error("ModTime is zero")
	}

	// The payload bytes at the resolved offset must be the entry's data as stored.
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got := make([]byte, loc.Size)
	if _, err := f.ReadAt(got, loc.Offset); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("bytes at Offset do not match the payload entry")
	}
}

func TestLocateMissingEntries(t *testing.T) {
	path := buildPackage(t, []testEntry{
		{name: "something-else.txt", data: []byte("hi"), method: zip.Store},
	})

	_, err := otaserve.Locate(path, otaserve.WithLogger(discard))
	if !errors.Is(err, otaserve.ErrEntryNotFound) {
		t.Fatalf("Locate() error = %v, want ErrEntryNotFound", err)
	}

	// Payload present but no properties entry.
	path = buildPackage(t, []testEntry{
		{name: otaserve.PayloadEntry, data: payloadBytes(64), method: zip.Store},
	})
	_, err = otaserve.Locate(path, otaserve.WithLogger(discard))
	if !errors.Is(err, otaserve.ErrEntryNotFound) {
		t.Fatalf("Locate() error = %v, want ErrEntryNotFound", err)
	}
}

func TestLocateSecondary(t *testing.T) {
	primary := payloadBytes(512)
	secondary := payloadBytes(256)
	path := buildPackage(t, []testEntry{
		{name: otaserve.PayloadEntry, data: primary, method: zip.Store},
		{name: otaserve.PropertiesEntry, data: []byte("METADATA_SIZE=1\n"), method: zip.Store},
		{name: otaserve.SecondaryPayloadEntry, data: secondary, method: zip.Store},
		{name: otaserve.SecondaryPropertiesEntry, data: []byte("METADATA_SIZE=2\n"), method: zip.Store},
	})

	loc, err := otaserve.Locate(path, otaserve.WithSecondary(), otaserve.WithLogger(discard))
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if loc.Size != int64(len(secondary)) {
		t.Errorf("Size = %d, want %d", loc.Size, len(secondary))
	}
	if string(loc.Properties) != "METADATA_SIZE=2\n" {
		t.Errorf("Properties = %q, want secondary properties", loc.Properties)
	}
}

func TestLocateMagicMismatch(t *testing.T) {
	noMagic := bytes.Repeat([]byte{0xEE}, 128)
	path := buildPackage(t, []testEntry{
		{name: otaserve.PayloadEntry, data: noMagic, method: zip.Store},
		{name: otaserve.PropertiesEntry, data: []byte("METADATA_SIZE=0\n"), method: zip.Store},
	})

	// Permissive by default: locate succeeds with a warning.
	if _, err := otaserve.Locate(path, otaserve.WithLogger(discard)); err != nil {
		t.Fatalf("Locate() error = %v, want nil", err)
	}

	// Strict mode turns the mismatch into an error.
	_, err := otaserve.Locate(path, otaserve.WithStrict(), otaserve.WithLogger(discard))
	if !errors.Is(err, otaserve.ErrBadMagic) {
		t.Fatalf("Locate(strict) error = %v, want ErrBadMagic", err)
	}
}

func TestLocateCompressedPayload(t *testing.T) {
	path := buildPackage(t, []testEntry{
		{name: otaserve.PayloadEntry, data: payloadBytes(2048), method: zip.Deflate},
		{name: otaserve.PropertiesEntry, data: []byte("METADATA_SIZE=0\n"), method: zip.Store},
	})

	_, err := otaserve.Locate(path, otaserve.WithStrict(), otaserve.WithLogger(discard))
	if !errors.Is(err, otaserve.ErrNotStored) {
		t.Fatalf("Locate(strict) error = %v, want ErrNotStored", err)
	}
}

func TestLocateCustomEntryNames(t *testing.T) {
	path := buildPackage(t, []testEntry{
		{name: "custom/p.bin", data: payloadBytes(96), method: zip.Store},
		{name: "custom/p.txt", data: []byte("METADATA_SIZE=3\n"), method: zip.Store},
	})

	loc, err := otaserve.Locate(path,
		otaserve.WithEntryNames("custom/p.bin", "custom/p.txt"),
		otaserve.WithLogger(discard))
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if loc.Size != 96 {
		t.Errorf("Size = %d, want 96", loc.Size)
	}
}

func TestLocateRaw(t *testing.T) {
	dir := t.TempDir()
	payload := payloadBytes(1024)
	payloadPath := filepath.Join(dir, "payload.bin")
	if err := os.WriteFile(payloadPath, payload, 0o644); err != nil {
		t.Fatal(err)
	}
	propsPath := filepath.Join(dir, "payload_properties.txt")
	if err := os.WriteFile(propsPath, []byte("METADATA_SIZE=9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loc, err := otaserve.LocateRaw(payloadPath, propsPath, otaserve.WithLogger(discard))
	if err != nil {
		t.Fatalf("LocateRaw() error = %v", err)
	}
	if loc.Offset != 0 {
		t.Errorf("Offset = %d, want 0", loc.Offset)
	}
	if loc.Size != int64(len(payload)) {
		t.Errorf("Size = %d, want %d", loc.Size, len(payload))
	}
	if string(loc.Properties) != "METADATA_SIZE=9\n" {
		t.Errorf("Properties = %q", loc.Properties)
	}
}
