package fileio

import (
	"bytes"
	"context"
	"crypto/sha256"
	"io"
	"strings"
	"testing"
)

func TestCopyBoundedShortSource(t *testing.T) {
	src := strings.NewReader("short")
	var dst bytes.Buffer

	n, err := CopyBounded(context.Background(), &dst, src, 100)
	if err != nil {
		t.Fatalf("CopyBounded() error = %v", err)
	}
	if n != 5 {
		t.Errorf("CopyBounded() = %d, want 5", n)
	}
	if dst.String() != "short" {
		t.Errorf("dst = %q, want %q", dst.String(), "short")
	}
}

func TestCopyBoundedStopsAtMax(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 16*1024) // 128 KiB, several chunks
	src := bytes.NewReader(data)
	var dst bytes.Buffer

	max := int64(CopyChunkSize + 100)
	n, err := CopyBounded(context.Background(), &dst, src, max)
	if err != nil {
		t.Fatalf("CopyBounded() error = %v", err)
	}
	if n != max {
		t.Errorf("CopyBounded() = %d, want %d", n, max)
	}
	if !bytes.Equal(dst.Bytes(), data[:max]) {
		t.Error("dst does not match source prefix")
	}
	// Nothing past max may be consumed from the source.
	if remaining := src.Len(); int64(remaining) != int64(len(data))-max {
		t.Errorf("source consumed %d bytes, want %d", int64(len(data))-int64(remaining), max)
	}
}

func TestCopyBoundedZeroMax(t *testing.T) {
	src := strings.NewReader("data")
	var dst bytes.Buffer

	n, err := CopyBounded(context.Background(), &dst, src, 0)
	if err != nil {
		t.Fatalf("CopyBounded() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CopyBounded() = %d, want 0", n)
	}
	if src.Len() != 4 {
		t.Error("source was read despite max = 0")
	}
}

func TestCopyBoundedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := strings.NewReader("data")
	var dst bytes.Buffer
	if _, err := CopyBounded(ctx, &dst, src, 4); err == nil {
		t.Fatal("CopyBounded() error = nil, want context error")
	}
}

// Reading a window through a HashingReader must pass the bytes through
// unchanged and leave the window's hash in the digester.
func TestHashingReader(t *testing.T) {
	data := bytes.Repeat([]byte("hash me please "), 500)
	section := io.NewSectionReader(bytes.NewReader(data), 100, 2000)

	h := sha256.New()
	hr := NewHashingReader(section, h)

	var out bytes.Buffer
	buf := make([]byte, 333)
	for {
		n, err := hr.Read(buf)
		out.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}

	if !bytes.Equal(out.Bytes(), data[100:2100]) {
		t.Error("read bytes do not match the section")
	}
	want := sha256.Sum256(data[100:2100])
	if !bytes.Equal(hr.Sum(), want[:]) {
		t.Errorf("Sum() = %x, want %x", hr.Sum(), want)
	}
}
