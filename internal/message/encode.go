package message

import (
	"bytes"
	"fmt"
	"io"

	"example.com/maskgate/internal/codec"
	"example.com/maskgate/internal/common"
)

// Role picks the report block a message is rendered as.
type Role int

const (
	RoleOriginal Role = iota
	RoleModified
)

func (r Role) String() string {
	switch r {
	case RoleOriginal:
		return "original"
	case RoleModified:
		return "modified"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// MaxLineSize bounds a single rendered report line, newline included.
const MaxLineSize = 576

// Report labels. Field order within a block is part of the output format.
const (
	LabelType           = "message type:"
	LabelInitialLength  = "initial message length:"
	LabelInitialData    = "initial message data bytes:"
	LabelInitialCRC     = "initial CRC-32:"
	LabelModifiedLength = "modified message length:"
	LabelModifiedData   = "modified message data bytes with mask:"
	LabelModifiedCRC    = "modified CRC-32:"
)

type field struct {
	label string
	value []byte
}

func fields(m *Message, role Role) ([]field, error) {
	switch role {
	case RoleOriginal:
		return []field{
			{LabelType, []byte{m.Type}},
			{LabelInitialLength, []byte{m.Length}},
			{LabelInitialData, m.Payload()},
			{LabelInitialCRC, m.CRC[:]},
		}, nil
	case RoleModified:
		// Type never changes in a transform, the modified block omits it.
		return []field{
			{LabelModifiedLength, []byte{m.Length}},
			{LabelModifiedData, m.Payload()},
			{LabelModifiedCRC, m.CRC[:]},
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %d", common.ErrStringFormat, int(role))
	}
}

// Encode renders m as a report block for role and writes it to w in one call.
// Nothing is written when any line fails to render.
func Encode(w io.Writer, m *Message, role Role) error {
	if w == nil || m == nil {
		return fmt.Errorf("%w: encode %s", common.ErrNullParameter, role)
	}
	fs, err := fields(m, role)
	if err != nil {
		return err
	}
	var block bytes.Buffer
	for _, f := range fs {
		line, err := formatLine(f.label, f.value)
		if err != nil {
			return fmt.Errorf("encode %s %q: %w", role, f.label, err)
		}
		block.Write(line)
	}
	if _, err := w.Write(block.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", common.ErrWriteFailure, err)
	}
	return nil
}

// EncodeString is Encode into a string.
func EncodeString(m *Message, role Role) (string, error) {
	var b bytes.Buffer
	if err := Encode(&b, m, role); err != nil {
		return "", err
	}
	return b.String(), nil
}

func formatLine(label string, value []byte) ([]byte, error) {
	hex := make([]byte, codec.HexSize(len(value)))
	if _, err := codec.BinToHex(hex, value); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConversion, err)
	}
	size := len(label) + len(" 0x") + len(hex) + 1
	if size > MaxLineSize {
		return nil, fmt.Errorf("%w: line of %d bytes, limit %d", common.ErrBufferTooSmall, size, MaxLineSize)
	}
	line := make([]byte, 0, size)
	line = append(line, label...)
	line = append(line, " 0x"...)
	line = append(line, hex...)
	line = append(line, '\n')
	return line, nil
}

// EncodeErrorReport writes the single line that replaces the message blocks
// when a run fails with kind.
func EncodeErrorReport(w io.Writer, kind common.Kind) error {
	if w == nil {
		return fmt.Errorf("%w: error report", common.ErrNullParameter)
	}
	if _, err := io.WriteString(w, kind.Sentence()+"\n"); err != nil {
		return fmt.Errorf("%w: %v", common.ErrWriteFailure, err)
	}
	return nil
}
