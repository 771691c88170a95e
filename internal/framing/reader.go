// Package framing scans delimiter-terminated fields out of a seekable byte
// source. A scan that does not find its delimiter leaves the source where it
// started so the caller can retry or report the field as absent.
package framing

import (
	"errors"
	"fmt"
	"io"

	"example.com/maskgate/internal/common"
)

// Inclusion flags for ReadUntil.
const (
	Inclusive = true
	Exclusive = false
)

// ErrDelimiterNotFound is returned when the delimiter does not occur within
// the scanned window. The source position is restored.
var ErrDelimiterNotFound = errors.New("delimiter not found")

// ReadUntil reads forward from the current position of src until delim,
// looking at no more than capacity bytes (the delimiter counts). The returned
// slice holds the field, with the delimiter only when inclusive is set.
//
// If delim is not seen before capacity is exhausted or src ends, ReadUntil
// returns ErrDelimiterNotFound, consumes nothing and rewinds src.
func ReadUntil(src io.ReadSeeker, capacity int, delim byte, inclusive bool) ([]byte, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", common.ErrNullParameter)
	}
	start, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTell, err)
	}
	if capacity <= 0 {
		return nil, ErrDelimiterNotFound
	}

	buf := make([]byte, 0, capacity)
	one := make([]byte, 1)
	for len(buf) < capacity {
		n, rerr := src.Read(one)
		if n == 1 {
			if one[0] == delim {
				if inclusive {
					buf = append(buf, one[0])
				}
				return buf, nil
			}
			buf = append(buf, one[0])
			continue
		}
		if rerr == nil {
			continue
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if serr := rewind(src, start); serr != nil {
			return nil, serr
		}
		return nil, fmt.Errorf("%w: %v", common.ErrReadError, rerr)
	}
	if err := rewind(src, start); err != nil {
		return nil, err
	}
	return nil, ErrDelimiterNotFound
}

func rewind(src io.Seeker, pos int64) error {
	if _, err := src.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("%w: back to %d: %v", common.ErrSeek, pos, err)
	}
	return nil
}

// ReadFixed reads exactly n bytes from src.
func ReadFixed(src io.Reader, n int) ([]byte, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", common.ErrNullParameter)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(src, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}
