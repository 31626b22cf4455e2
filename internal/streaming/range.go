package streaming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidRange        = errors.New("streaming: invalid range")
	ErrRangeNotSatisfiable = errors.New("streaming: range not satisfiable")
)

// RangeError carries the resource size needed for a 416 Content-Range header.
type RangeError struct {
	Total int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range not satisfiable for %d bytes", e.Total)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrRangeNotSatisfiable
}

// ByteRange is an inclusive byte interval.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

func (r ByteRange) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// ParseRange parses a single-range Range header against a resource of size bytes.
// An empty header selects the whole resource and reports partial=false.
func ParseRange(header string, size int64) (r ByteRange, partial bool, err error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return ByteRange{Start: 0, End: size - 1}, false, nil
	}

	set, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return ByteRange{}, false, fmt.Errorf("%w: unsupported unit", ErrInvalidRange)
	}
	if strings.Contains(set, ",") {
		return ByteRange{}, false, fmt.Errorf("%w: multiple ranges", ErrInvalidRange)
	}

	startStr, endStr, ok := strings.Cut(strings.TrimSpace(set), "-")
	if !ok {
		return ByteRange{}, false, fmt.Errorf("%w: missing '-'", ErrInvalidRange)
	}
	startStr, endStr = strings.TrimSpace(startStr), strings.TrimSpace(endStr)

	if startStr == "" {
		suffix, err := parseOffset(endStr)
		if err != nil {
			return ByteRange{}, false, err
		}
		if suffix == 0 || size == 0 {
			return ByteRange{}, false, &RangeError{Total: size}
		}
		if suffix > size {
			suffix = size
		}
		return ByteRange{Start: size - suffix, End: size - 1}, true, nil
	}

	start, err := parseOffset(startStr)
	if err != nil {
		return ByteRange{}, false, err
	}

	end := size - 1
	if endStr != "" {
		end, err = parseOffset(endStr)
		if err != nil {
			return ByteRange{}, false, err
		}
		if end < start {
			return ByteRange{}, false, fmt.Errorf("%w: end before start", ErrInvalidRange)
		}
	}

	if start >= size {
		return ByteRange{}, false, &RangeError{Total: size}
	}
	if end >= size {
		end = size - 1
	}
	return ByteRange{Start: start, End: end}, true, nil
}

func parseOffset(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty offset", ErrInvalidRange)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: bad offset %q", ErrInvalidRange, s)
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad offset %q", ErrInvalidRange, s)
	}
	return n, nil
}
