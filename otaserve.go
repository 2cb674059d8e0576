package otaserve

import (
	"errors"
	"time"
)

// Sentinel errors.
var (
	// ErrEntryNotFound is returned when a required entry is absent from the package.
	ErrEntryNotFound = errors.New("otaserve: entry not found in package")

	// ErrBadMagic is returned in strict mode when the payload data does not
	// begin with the payload magic.
	ErrBadMagic = errors.New("otaserve: payload magic mismatch")

	// ErrNotStored is returned in strict mode when the payload entry is
	// compressed. Range serving requires the entry to be stored as-is.
	ErrNotStored = errors.New("otaserve: payload entry is compressed")

	// ErrNotReady is returned when the server has no payload configured.
	ErrNotReady = errors.New("otaserve: no payload configured")

	// ErrMissingAppID is returned when an update-check request carries no app id.
	ErrMissingAppID = errors.New("otaserve: update check request missing app id")

	// ErrTruncatedPayload is returned when the package file holds fewer bytes
	// than the payload's declared size. This signals package corruption.
	ErrTruncatedPayload = errors.New("otaserve: payload shorter than declared size")
)

// Magic is the first four bytes of any update payload.
const Magic = "CrAU"

// Entry names within an OTA package.
const (
	PayloadEntry    = "payload.bin"
	PropertiesEntry = "payload_properties.txt"

	SecondaryPayloadEntry    = "secondary/payload.bin"
	SecondaryPropertiesEntry = "secondary/payload_properties.txt"
)

// PayloadLocation identifies where a payload's bytes live inside a package
// file. It is computed once by [Locate] or [LocateRaw] and is immutable
// afterwards; request handlers share it without locking.
type PayloadLocation struct {
	// ContainerPath is the filesystem path of the package file.
	ContainerPath string

	// Offset is the byte offset from the start of the package file to the
	// first byte of payload data.
	Offset int64

	// Size is the length in bytes of the payload data.
	Size int64

	// Properties is the raw contents of the payload's companion properties
	// entry (key=value lines describing the payload).
	Properties []byte

	// ModTime is the package file's modification time.
	ModTime time.Time
}
