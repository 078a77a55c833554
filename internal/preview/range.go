package preview

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedRange = errors.New("malformed byte range")
	ErrUnsatisfiable  = errors.New("range not satisfiable")
)

// ByteRange is an inclusive span of a file.
type ByteRange struct {
	First int64
	Last  int64
}

func (b ByteRange) Length() int64 {
	return b.Last - b.First + 1
}

func (b ByteRange) Header(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", b.First, b.Last, size)
}

// ParseRange reads a single-span Range header against a file of size bytes.
// An empty header yields (nil, nil). Only the first span of a multi-span
// request is honoured; media elements never send more than one.
func ParseRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}

	spans, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrMalformedRange
	}
	if first, _, found := strings.Cut(spans, ","); found {
		spans = first
	}
	from, to, found := strings.Cut(strings.TrimSpace(spans), "-")
	if !found {
		return nil, ErrMalformedRange
	}

	var br ByteRange
	switch {
	case from == "":
		n, err := strconv.ParseInt(to, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrMalformedRange
		}
		br.First = max(size-n, 0)
		br.Last = size - 1
	default:
		first, err := strconv.ParseInt(from, 10, 64)
		if err != nil || first < 0 {
			return nil, ErrMalformedRange
		}
		br.First = first
		br.Last = size - 1
		if to != "" {
			last, err := strconv.ParseInt(to, 10, 64)
			if err != nil {
				return nil, ErrMalformedRange
			}
			br.Last = last
		}
	}

	if br.First > br.Last || br.First >= size {
		return nil, ErrUnsatisfiable
	}
	br.Last = min(br.Last, size-1)
	return &br, nil
}
