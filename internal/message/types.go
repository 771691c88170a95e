// Package message defines the framed message, decodes it from its
// "mess=/mask=" text container, derives the padded and masked copy and renders
// both as a hex-annotated report.
package message

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"example.com/maskgate/internal/codec"
	"example.com/maskgate/internal/common"
)

const (
	// DataCapacity bounds the data region of any message, original or derived.
	DataCapacity = 251
	// MaxLength is the largest value the one-byte length field can carry.
	MaxLength = 255
	// MinLength is the smallest valid length: the checksum alone.
	MinLength = codec.ChecksumSize
	// MaskSize is the width of the mask in bytes.
	MaskSize = 4
	// TetradSize is the unit the mask is applied over.
	TetradSize = 4
)

// Message is one decoded frame. Length counts the data bytes plus the 4-byte
// checksum; CRC holds the checksum in big-endian order. Mask travels with the
// message but is outside the checksum domain.
type Message struct {
	Type   byte
	Length byte
	Data   []byte
	CRC    [codec.ChecksumSize]byte
	Mask   [MaskSize]byte
}

// New builds a message around data with a freshly computed checksum.
func New(typ byte, data []byte, mask [MaskSize]byte) (*Message, error) {
	if len(data) > DataCapacity {
		return nil, fmt.Errorf("%w: %d data bytes, capacity %d", common.ErrBufferTooSmall, len(data), DataCapacity)
	}
	m := &Message{
		Type:   typ,
		Length: byte(len(data) + codec.ChecksumSize),
		Data:   append(make([]byte, 0, DataCapacity), data...),
		Mask:   mask,
	}
	binary.BigEndian.PutUint32(m.CRC[:], codec.Checksum(m.Data))
	return m, nil
}

// DataLen is the number of data bytes the length field declares.
func (m *Message) DataLen() int {
	n := int(m.Length) - codec.ChecksumSize
	if n < 0 {
		return 0
	}
	return n
}

// Payload returns the declared data bytes, clipped to what Data holds.
func (m *Message) Payload() []byte {
	n := m.DataLen()
	if n > len(m.Data) {
		n = len(m.Data)
	}
	return m.Data[:n]
}

// CRCValue returns the stored checksum as a big-endian integer.
func (m *Message) CRCValue() uint32 {
	return binary.BigEndian.Uint32(m.CRC[:])
}

// MaskValue returns the mask as a big-endian integer, for display only.
func (m *Message) MaskValue() uint32 {
	return binary.BigEndian.Uint32(m.Mask[:])
}

// Clone returns a deep copy sharing no memory with m.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Data = append(make([]byte, 0, DataCapacity), m.Data...)
	return &c
}

// Equal reports whether both messages carry the same fields.
func (m *Message) Equal(o *Message) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.Type == o.Type &&
		m.Length == o.Length &&
		bytes.Equal(m.Payload(), o.Payload()) &&
		m.CRC == o.CRC &&
		m.Mask == o.Mask
}
