package server

import (
	"strconv"
	"strings"
)

// parseByteRange interprets a Range header against a virtual file of the
// given size and returns the half-open window [start, end) plus whether a
// range was honored.
//
// Supported forms, all relative to size:
//
//	a-b   -> [a, min(b+1, size))
//	a-    -> [a, size)
//	-n    -> last n bytes
//
// An absent or malformed header selects the whole file with partial=false;
// real clients expect permissive parsing, so malformed specs are served in
// full rather than rejected. Multi-range specs are treated as malformed.
func parseByteRange(header string, size int64) (start, end int64, partial bool) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return 0, size, false
	}
	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, size, false
	}

	if first == "" {
		// Suffix form: last n bytes. A zero suffix selects nothing and is
		// treated as malformed like the other unserveable specs.
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return 0, size, false
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		return start, size, true
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 || start > size {
		return 0, size, false
	}
	end = size
	if last != "" {
		lastByte, err := strconv.ParseInt(last, 10, 64)
		if err != nil || lastByte < start {
			return 0, size, false
		}
		if end = lastByte + 1; end > size {
			end = size
		}
	}
	return start, end, true
}
