package codec

import (
	"fmt"

	"example.com/maskgate/internal/common"
)

const hexDigits = "0123456789abcdef"

// HexSize returns the number of hex characters needed for n bytes.
func HexSize(n int) int {
	return n * 2
}

// BinToHex writes the lowercase hex form of src into dst and returns the
// number of characters written. dst must hold at least 2*len(src) bytes.
func BinToHex(dst, src []byte) (int, error) {
	need := HexSize(len(src))
	if len(dst) < need {
		return 0, fmt.Errorf("%w: hex of %d bytes needs %d, have %d", common.ErrBufferTooSmall, len(src), need, len(dst))
	}
	for i, b := range src {
		dst[2*i] = hexDigits[b>>4]
		dst[2*i+1] = hexDigits[b&0x0f]
	}
	return need, nil
}

// EncodeHex returns the lowercase hex form of src.
func EncodeHex(src []byte) string {
	buf := make([]byte, HexSize(len(src)))
	n, _ := BinToHex(buf, src)
	return string(buf[:n])
}

// HexToBin decodes src into dst, one byte per character pair, most
// significant nibble first, and returns the number of bytes written.
//
// When lenient is false any non-hex character is a conversion error. When
// lenient is true a malformed pair decodes from its leading hex digits after
// optional leading blanks, and to 0 when there are none.
func HexToBin(dst, src []byte, lenient bool) (int, error) {
	if len(src)%2 != 0 {
		return 0, fmt.Errorf("%w: odd hex length %d", common.ErrLengthMismatch, len(src))
	}
	n := len(src) / 2
	if n > len(dst) {
		return 0, fmt.Errorf("%w: %d bytes of hex into %d", common.ErrBufferTooSmall, n, len(dst))
	}
	for i := 0; i < n; i++ {
		hi, okHi := fromHexChar(src[2*i])
		lo, okLo := fromHexChar(src[2*i+1])
		if okHi && okLo {
			dst[i] = hi<<4 | lo
			continue
		}
		if !lenient {
			return 0, fmt.Errorf("%w: invalid hex %q at offset %d", common.ErrConversion, src[2*i:2*i+2], 2*i)
		}
		dst[i] = parsePairPrefix(src[2*i], src[2*i+1])
	}
	return n, nil
}

// DecodeHex is the allocating form of HexToBin.
func DecodeHex(src string, lenient bool) ([]byte, error) {
	buf := make([]byte, len(src)/2)
	n, err := HexToBin(buf, []byte(src), lenient)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func fromHexChar(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func parsePairPrefix(a, b byte) byte {
	pair := []byte{a, b}
	for len(pair) > 0 && (pair[0] == ' ' || pair[0] == '\t') {
		pair = pair[1:]
	}
	var v byte
	for _, c := range pair {
		d, ok := fromHexChar(c)
		if !ok {
			break
		}
		v = v<<4 | d
	}
	return v
}
