package otaserve

import (
	"strconv"
	"strings"
)

// Properties holds the fields of a payload properties blob. The blob is a
// series of KEY=value lines; unknown keys are ignored.
type Properties struct {
	FileHash     string
	FileSize     int64
	MetadataHash string
	MetadataSize int64
}

// ParseProperties parses a payload properties blob. Lines that do not look
// like KEY=value pairs are skipped; absent numeric fields are zero.
func ParseProperties(data []byte) Properties {
	var p Properties
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "FILE_HASH":
			p.FileHash = value
		case "FILE_SIZE":
			p.FileSize = parseSize(value)
		case "METADATA_HASH":
			p.MetadataHash = value
		case "METADATA_SIZE":
			p.MetadataSize = parseSize(value)
		}
	}
	return p
}

func parseSize(value string) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
