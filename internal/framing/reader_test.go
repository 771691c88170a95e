package framing

import (
	"errors"
	"io"
	"strings"
	"testing"

	"example.com/maskgate/internal/common"
)

func position(t *testing.T, s io.Seeker) int64 {
	t.Helper()
	pos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	return pos
}

func TestReadUntil(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		capacity  int
		delim     byte
		inclusive bool
		want      string
		wantPos   int64
	}{
		{name: "inclusive anchor", input: "mess=0104", capacity: 6, delim: '=', inclusive: Inclusive, want: "mess=", wantPos: 5},
		{name: "exclusive line", input: "abcdef\nmask=", capacity: 16, delim: '\n', inclusive: Exclusive, want: "abcdef", wantPos: 7},
		{name: "empty field", input: "\nrest", capacity: 4, delim: '\n', inclusive: Exclusive, want: "", wantPos: 1},
		{name: "delimiter at capacity edge", input: "abc\n", capacity: 4, delim: '\n', inclusive: Inclusive, want: "abc\n", wantPos: 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := strings.NewReader(tc.input)
			got, err := ReadUntil(r, tc.capacity, tc.delim, tc.inclusive)
			if err != nil {
				t.Fatalf("ReadUntil: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("ReadUntil = %q, want %q", got, tc.want)
			}
			if pos := position(t, r); pos != tc.wantPos {
				t.Fatalf("position = %d, want %d", pos, tc.wantPos)
			}
		})
	}
}

func TestReadUntilRestoresPositionWhenMissing(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		skip     int64
		capacity int
	}{
		{name: "capacity exhausted", input: "messages=", skip: 0, capacity: 6},
		{name: "source ends", input: "0104abcd", skip: 2, capacity: 64},
		{name: "empty source", input: "", skip: 0, capacity: 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := strings.NewReader(tc.input)
			if _, err := r.Seek(tc.skip, io.SeekStart); err != nil {
				t.Fatalf("Seek: %v", err)
			}
			got, err := ReadUntil(r, tc.capacity, '=', Inclusive)
			if !errors.Is(err, ErrDelimiterNotFound) {
				t.Fatalf("expected ErrDelimiterNotFound, got %v", err)
			}
			if len(got) != 0 {
				t.Fatalf("expected no bytes, got %q", got)
			}
			if pos := position(t, r); pos != tc.skip {
				t.Fatalf("position = %d, want %d", pos, tc.skip)
			}
		})
	}
}

func TestReadUntilRetryAfterMiss(t *testing.T) {
	r := strings.NewReader("abcdefgh;")
	if _, err := ReadUntil(r, 4, ';', Exclusive); !errors.Is(err, ErrDelimiterNotFound) {
		t.Fatalf("expected miss, got %v", err)
	}
	got, err := ReadUntil(r, 16, ';', Exclusive)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if string(got) != "abcdefgh" {
		t.Fatalf("retry read %q", got)
	}
}

type brokenSeeker struct {
	io.Reader
}

func (brokenSeeker) Seek(int64, int) (int64, error) {
	return 0, errors.New("not seekable")
}

func TestReadUntilTellFailure(t *testing.T) {
	_, err := ReadUntil(brokenSeeker{strings.NewReader("a=")}, 4, '=', Inclusive)
	if !errors.Is(err, common.ErrTell) {
		t.Fatalf("expected ErrTell, got %v", err)
	}
}

func TestReadUntilNilSource(t *testing.T) {
	_, err := ReadUntil(nil, 4, '=', Inclusive)
	if !errors.Is(err, common.ErrNullParameter) {
		t.Fatalf("expected ErrNullParameter, got %v", err)
	}
}

func TestReadFixed(t *testing.T) {
	r := strings.NewReader("01x")
	got, err := ReadFixed(r, 2)
	if err != nil || string(got) != "01" {
		t.Fatalf("ReadFixed = %q, %v", got, err)
	}
	if _, err := ReadFixed(r, 2); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}
