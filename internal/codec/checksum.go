// Package codec holds the byte-level primitives shared by the message
// decoder and encoder: the CRC-32 checksum and the hex text codec.
package codec

import (
	"encoding/binary"
	"hash/crc32"
)

// ChecksumSize is the width of an encoded checksum in bytes.
const ChecksumSize = 4

// Checksum computes the reflected CRC-32 (ISO-3309, as used by zlib) of b:
// register preset to 0xFFFFFFFF, polynomial 0x04C11DB7 in its reflected form,
// result complemented. The checksum of an empty span is 0.
func Checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// AppendChecksum appends the big-endian checksum of data to dst.
func AppendChecksum(dst, data []byte) []byte {
	var sum [ChecksumSize]byte
	binary.BigEndian.PutUint32(sum[:], Checksum(data))
	return append(dst, sum[:]...)
}

// VerifyChecksum reports whether want, read as a big-endian integer, equals
// the checksum of data. It returns the computed value either way.
func VerifyChecksum(data []byte, want [ChecksumSize]byte) (uint32, bool) {
	got := Checksum(data)
	return got, binary.BigEndian.Uint32(want[:]) == got
}
