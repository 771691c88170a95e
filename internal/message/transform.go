package message

import (
	"encoding/binary"
	"fmt"
	"strings"

	"example.com/maskgate/internal/codec"
	"example.com/maskgate/internal/common"
)

// PadMode selects how many zero bytes Transform appends to the data region.
type PadMode int

const (
	// PadRemainder appends (len mod 4) bytes. This only lands on a tetrad
	// boundary when the remainder is 0 or 2; it is the historical behaviour
	// consumers of the report rely on.
	PadRemainder PadMode = iota
	// PadBoundary appends (4 - len mod 4) mod 4 bytes, a true alignment.
	PadBoundary
)

func (p PadMode) String() string {
	switch p {
	case PadBoundary:
		return "boundary"
	default:
		return "remainder"
	}
}

// ParsePadMode converts a configuration value into a PadMode.
func ParsePadMode(s string) (PadMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "remainder", "literal":
		return PadRemainder, nil
	case "boundary", "align":
		return PadBoundary, nil
	default:
		return PadRemainder, fmt.Errorf("unknown padding mode %q", s)
	}
}

// TransformOptions tunes Transform.
type TransformOptions struct {
	Padding PadMode
}

// PadFor returns the number of zero bytes appended to a data region of n bytes.
func PadFor(n int, mode PadMode) int {
	rem := n % TetradSize
	if mode == PadBoundary {
		return (TetradSize - rem) % TetradSize
	}
	return rem
}

// Transform derives the modified message from orig: the data is copied and
// padded, even-indexed tetrads are ANDed with orig's mask and the checksum is
// recomputed over the result. Type is carried over unchanged. orig is never
// modified and the result shares no memory with it.
func Transform(orig *Message, opts TransformOptions) (*Message, error) {
	if orig == nil {
		return nil, fmt.Errorf("%w: transform", common.ErrNullParameter)
	}
	src := orig.Payload()
	pad := PadFor(len(src), opts.Padding)
	if len(src)+pad > DataCapacity {
		return nil, fmt.Errorf("%w: padded data of %d bytes exceeds capacity %d", common.ErrBufferTooSmall, len(src)+pad, DataCapacity)
	}

	data := make([]byte, len(src)+pad, DataCapacity)
	copy(data, src)
	ApplyMask(data, orig.Mask)

	out := &Message{
		Type:   orig.Type,
		Length: byte(len(data) + codec.ChecksumSize),
		Data:   data,
		Mask:   orig.Mask,
	}
	binary.BigEndian.PutUint32(out.CRC[:], codec.Checksum(data))
	return out, nil
}

// ApplyMask ANDs the mask into tetrads 0, 2, 4, ... of data in place. A data
// region of odd length is left untouched; bytes past the last complete tetrad
// are never masked.
func ApplyMask(data []byte, mask [MaskSize]byte) {
	if len(data)%2 != 0 {
		return
	}
	tetrads := len(data) / TetradSize
	for i := 0; i < tetrads; i += 2 {
		group := data[i*TetradSize : (i+1)*TetradSize]
		for j := range group {
			group[j] &= mask[j]
		}
	}
}

// MaskedTetrads returns the indexes ApplyMask touches for a region of n bytes.
func MaskedTetrads(n int) []int {
	if n%2 != 0 {
		return nil
	}
	var idx []int
	for i := 0; i < n/TetradSize; i += 2 {
		idx = append(idx, i)
	}
	return idx
}
