// Package zipfile reads zip central directories and resolves the exact byte
// offset of an entry's data within the archive file.
//
// Unlike archive/zip, it exposes the entry's local header offset and performs
// the local-header re-read needed to compute data offsets: the extra-field
// length recorded in the central directory may legitimately differ from the
// one in the local header, and only the local header's value is authoritative
// for offset arithmetic.
package zipfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/flate"
)

// Sentinel errors.
var (
	// ErrFormat is returned when the file does not conform to the zip format.
	ErrFormat = errors.New("zipfile: not a valid zip file")

	// ErrAlgorithm is returned when an entry uses an unsupported compression method.
	ErrAlgorithm = errors.New("zipfile: unsupported compression method")
)

// Compression methods.
const (
	Store   uint16 = 0
	Deflate uint16 = 8
)

const (
	fileHeaderLen      = 30
	directoryHeaderLen = 46
	directoryEndLen    = 22
	directory64LocLen  = 20
	directory64EndLen  = 56

	fileHeaderSignature      = 0x04034b50
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature    = 0x06054b50
	directory64LocSignature  = 0x07064b50
	directory64EndSignature  = 0x06064b50

	zip64ExtraID = 0x0001
)

// Entry describes a file recorded in the central directory.
type Entry struct {
	// Name is the entry path as stored in the archive.
	Name string

	// Method is the compression method (Store or Deflate).
	Method uint16

	// CompressedSize is the size of the entry's data as stored.
	CompressedSize uint64

	// UncompressedSize is the size of the entry's data after decompression.
	// Equal to CompressedSize for stored entries.
	UncompressedSize uint64

	// HeaderOffset is the offset of the entry's local file header,
	// relative to the beginning of the archive file.
	HeaderOffset int64
}

// Archive provides random access to a zip file's entries.
type Archive struct {
	f       *os.File
	size    int64
	modTime time.Time
	entries []Entry
	byName  map[string]int
}

// Open reads the central directory of the zip file at path.
// The returned Archive holds an open file handle until Close.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	a := &Archive{
		f:       f,
		size:    fi.Size(),
		modTime: fi.ModTime(),
		byName:  make(map[string]int),
	}
	if err := a.readDirectory(); err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the underlying file handle.
func (a *Archive) Close() error {
	return a.f.Close()
}

// Path returns the archive file's path.
func (a *Archive) Path() string {
	return a.f.Name()
}

// Size returns the archive file's length in bytes.
func (a *Archive) Size() int64 {
	return a.size
}

// ModTime returns the archive file's modification time.
func (a *Archive) ModTime() time.Time {
	return a.modTime
}

// Entries returns all entries in central directory order.
func (a *Archive) Entries() []Entry {
	return a.entries
}

// Lookup returns the entry with the given name.
func (a *Archive) Lookup(name string) (*Entry, bool) {
	i, ok := a.byName[name]
	if !ok {
		return nil, false
	}
	return &a.entries[i], true
}

// DataOffset returns the offset of the entry's data relative to the beginning
// of the archive file. It re-reads the entry's local file header: the central
// directory's recorded extra-field length is not authoritative for the local
// header, so the name and extra lengths must come from the local header itself.
func (a *Archive) DataOffset(e *Entry) (int64, error) {
	var buf [fileHeaderLen]byte
	if _, err := a.f.ReadAt(buf[:], e.HeaderOffset); err != nil {
		return 0, fmt.Errorf("read local header of %q: %w", e.Name, err)
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != fileHeaderSignature {
		return 0, fmt.Errorf("%w: bad local header signature for %q", ErrFormat, e.Name)
	}
	nameLen := int64(binary.LittleEndian.Uint16(buf[26:28]))
	extraLen := int64(binary.LittleEndian.Uint16(buf[28:30]))
	return e.HeaderOffset + fileHeaderLen + nameLen + extraLen, nil
}

// Read returns the entry's full uncompressed data. Stored entries are read
// directly; deflated entries are inflated. Other methods return ErrAlgorithm.
func (a *Archive) Read(e *Entry) ([]byte, error) {
	off, err := a.DataOffset(e)
	if err != nil {
		return nil, err
	}
	section := io.NewSectionReader(a.f, off, int64(e.CompressedSize))

	var r io.Reader
	switch e.Method {
	case Store:
		r = section
	case Deflate:
		fr := flate.NewReader(section)
		defer fr.Close()
		r = fr
	default:
		return nil, fmt.Errorf("%w: %d (%q)", ErrAlgorithm, e.Method, e.Name)
	}

	data := make([]byte, e.UncompressedSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read %q: %w", e.Name, err)
	}
	return data, nil
}

// ReaderAt exposes positioned reads of the raw archive file.
func (a *Archive) ReaderAt() io.ReaderAt {
	return a.f
}

func (a *Archive) readDirectory() error {
	count, dirOffset, dirSize, err := a.findDirectory()
	if err != nil {
		return err
	}
	if dirOffset < 0 || dirSize < 0 || dirOffset+dirSize > a.size {
		return fmt.Errorf("%w: central directory out of bounds", ErrFormat)
	}

	dir := make([]byte, dirSize)
	if _, err := a.f.ReadAt(dir, dirOffset); err != nil {
		return fmt.Errorf("read central directory: %w", err)
	}

	a.entries = make([]Entry, 0, count)
	for len(dir) >= directoryHeaderLen {
		if binary.LittleEndian.Uint32(dir[0:4]) != directoryHeaderSignature {
			break
		}
		method := binary.LittleEndian.Uint16(dir[10:12])
		compSize := uint64(binary.LittleEndian.Uint32(dir[20:24]))
		uncompSize := uint64(binary.LittleEndian.Uint32(dir[24:28]))
		nameLen := int(binary.LittleEndian.Uint16(dir[28:30]))
		extraLen := int(binary.LittleEndian.Uint16(dir[30:32]))
		commentLen := int(binary.LittleEndian.Uint16(dir[32:34]))
		headerOffset := uint64(binary.LittleEndian.Uint32(dir[42:46]))

		total := directoryHeaderLen + nameLen + extraLen + commentLen
		if len(dir) < total {
			return fmt.Errorf("%w: truncated central directory record", ErrFormat)
		}
		name := string(dir[directoryHeaderLen : directoryHeaderLen+nameLen])
		extra := dir[directoryHeaderLen+nameLen : directoryHeaderLen+nameLen+extraLen]

		uncompSize, compSize, headerOffset = applyZip64(extra, uncompSize, compSize, headerOffset)

		a.byName[name] = len(a.entries)
		a.entries = append(a.entries, Entry{
			Name:             name,
			Method:           method,
			CompressedSize:   compSize,
			UncompressedSize: uncompSize,
			HeaderOffset:     int64(headerOffset),
		})
		dir = dir[total:]
	}
	return nil
}

// findDirectory locates the end-of-central-directory record, following the
// zip64 locator when the 32-bit record carries overflow markers.
func (a *Archive) findDirectory() (count int, offset, size int64, err error) {
	// The EOCD record sits within the last 64 KiB + 22 bytes of the file
	// (the comment field is at most 64 KiB).
	const maxScan = 1<<16 + directoryEndLen
	scan := a.size
	if scan > maxScan {
		scan = maxScan
	}
	if scan < directoryEndLen {
		return 0, 0, 0, ErrFormat
	}

	tail := make([]byte, scan)
	tailStart := a.size - scan
	if _, err := a.f.ReadAt(tail, tailStart); err != nil {
		return 0, 0, 0, fmt.Errorf("read archive tail: %w", err)
	}

	eocd := -1
	for i := len(tail) - directoryEndLen; i >= 0; i-- {
		if binary.LittleEndian.Uint32(tail[i:i+4]) == directoryEndSignature {
			commentLen := int(binary.LittleEndian.Uint16(tail[i+20 : i+22]))
			if i+directoryEndLen+commentLen <= len(tail) {
				eocd = i
				break
			}
		}
	}
	if eocd < 0 {
		return 0, 0, 0, ErrFormat
	}

	rec := tail[eocd:]
	count = int(binary.LittleEndian.Uint16(rec[10:12]))
	size = int64(binary.LittleEndian.Uint32(rec[12:16]))
	offset = int64(binary.LittleEndian.Uint32(rec[16:20]))

	if count != 0xffff && size != 0xffffffff && offset != 0xffffffff {
		return count, offset, size, nil
	}

	// Zip64: the locator immediately precedes the EOCD record.
	locPos := tailStart + int64(eocd) - directory64LocLen
	if locPos < 0 {
		return 0, 0, 0, ErrFormat
	}
	var loc [directory64LocLen]byte
	if _, err := a.f.ReadAt(loc[:], locPos); err != nil {
		return 0, 0, 0, fmt.Errorf("read zip64 locator: %w", err)
	}
	if binary.LittleEndian.Uint32(loc[0:4]) != directory64LocSignature {
		return 0, 0, 0, fmt.Errorf("%w: missing zip64 locator", ErrFormat)
	}
	end64Pos := int64(binary.LittleEndian.Uint64(loc[8:16]))

	var end64 [directory64EndLen]byte
	if _, err := a.f.ReadAt(end64[:], end64Pos); err != nil {
		return 0, 0, 0, fmt.Errorf("read zip64 directory end: %w", err)
	}
	if binary.LittleEndian.Uint32(end64[0:4]) != directory64EndSignature {
		return 0, 0, 0, fmt.Errorf("%w: bad zip64 directory end signature", ErrFormat)
	}
	count = int(binary.LittleEndian.Uint64(end64[32:40]))
	size = int64(binary.LittleEndian.Uint64(end64[40:48]))
	offset = int64(binary.LittleEndian.Uint64(end64[48:56]))
	return count, offset, size, nil
}

// applyZip64 replaces overflow markers with values from the zip64 extended
// information extra field. Per the zip spec, the field carries only the values
// whose 32-bit counterparts are 0xffffffff, in a fixed order.
func applyZip64(extra []byte, uncompSize, compSize, headerOffset uint64) (uint64, uint64, uint64) {
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra[0:2])
		fieldLen := int(binary.LittleEndian.Uint16(extra[2:4]))
		if len(extra) < 4+fieldLen {
			break
		}
		if id == zip64ExtraID {
			field := extra[4 : 4+fieldLen]
			if uncompSize == 0xffffffff && len(field) >= 8 {
				uncompSize = binary.LittleEndian.Uint64(field[0:8])
				field = field[8:]
			}
			if compSize == 0xffffffff && len(field) >= 8 {
				compSize = binary.LittleEndian.Uint64(field[0:8])
				field = field[8:]
			}
			if headerOffset == 0xffffffff && len(field) >= 8 {
				headerOffset = binary.LittleEndian.Uint64(field[0:8])
			}
			break
		}
		extra = extra[4+fieldLen:]
	}
	return uncompSize, compSize, headerOffset
}
