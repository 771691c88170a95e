package message

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"example.com/maskgate/internal/codec"
	"example.com/maskgate/internal/common"
	"example.com/maskgate/internal/framing"
)

const (
	messageAnchor = "mess="
	maskAnchor    = "mask="

	anchorDelim = '='
	lineDelim   = '\n'

	fieldHexLen = 2
	maskHexLen  = MaskSize * 2
	maxBodyHex  = MaxLength * 2
)

// DecodeOptions tunes how strictly the container text is parsed.
type DecodeOptions struct {
	// LenientHex decodes malformed hex pairs with best-effort prefix parsing
	// instead of failing with a conversion error.
	LenientHex bool
}

type decodeState int

const (
	stateMessageAnchor decodeState = iota
	stateType
	stateLength
	stateBody
	stateMaskAnchor
	stateMask
	stateDone
)

func (s decodeState) String() string {
	switch s {
	case stateMessageAnchor:
		return "message anchor"
	case stateType:
		return "type"
	case stateLength:
		return "length"
	case stateBody:
		return "body"
	case stateMaskAnchor:
		return "mask anchor"
	case stateMask:
		return "mask"
	default:
		return "done"
	}
}

// staging holds the as-read hex text until it is converted to binary.
type staging struct {
	body []byte
	mask []byte
}

type decoder struct {
	src   io.ReadSeeker
	opts  DecodeOptions
	state decodeState
	msg   Message
	raw   staging
}

// Decode parses one container from src:
//
//	mess=<type:2><length:2><data+crc:2*length>\n
//	mask=<mask:8>\n
//
// and verifies the big-endian checksum trailing the data. The returned
// message owns its buffers.
func Decode(src io.ReadSeeker, opts DecodeOptions) (*Message, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", common.ErrNullParameter)
	}
	d := &decoder{src: src, opts: opts}
	for d.state != stateDone {
		if err := d.step(); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.state, err)
		}
	}
	if err := d.convert(); err != nil {
		return nil, err
	}
	m := d.msg
	return &m, nil
}

// Load opens path, decodes it and closes it again on every path.
func Load(path string, opts DecodeOptions) (*Message, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", common.ErrNullParameter)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrSourceUnreadable, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSourceUnreadable, err)
	}
	defer f.Close()
	return Decode(f, opts)
}

func (d *decoder) step() error {
	switch d.state {
	case stateMessageAnchor:
		if err := d.anchor(messageAnchor); err != nil {
			return err
		}
		d.state = stateType
	case stateType:
		b, err := d.hexByte(common.ErrUnexpectedData)
		if err != nil {
			return err
		}
		d.msg.Type = b
		d.state = stateLength
	case stateLength:
		b, err := d.hexByte(common.ErrReadError)
		if err != nil {
			return err
		}
		if int(b) < MinLength {
			return fmt.Errorf("%w: declared length %d is shorter than the checksum", common.ErrLengthMismatch, b)
		}
		d.msg.Length = b
		d.state = stateBody
	case stateBody:
		body, err := d.line(maxBodyHex)
		if err != nil {
			return err
		}
		if want := codec.HexSize(int(d.msg.Length)); len(body) != want {
			return fmt.Errorf("%w: body has %d hex characters, length 0x%02x needs %d", common.ErrLengthMismatch, len(body), d.msg.Length, want)
		}
		d.raw.body = body
		d.state = stateMaskAnchor
	case stateMaskAnchor:
		if err := d.anchor(maskAnchor); err != nil {
			return err
		}
		d.state = stateMask
	case stateMask:
		mask, err := d.line(maskHexLen)
		if err != nil {
			return err
		}
		if len(mask) != maskHexLen {
			return fmt.Errorf("%w: mask has %d hex characters, want %d", common.ErrLengthMismatch, len(mask), maskHexLen)
		}
		d.raw.mask = mask
		d.state = stateDone
	}
	return nil
}

// anchor consumes a keyword ending in '=' and requires an exact match.
func (d *decoder) anchor(keyword string) error {
	got, err := framing.ReadUntil(d.src, len(keyword)+1, anchorDelim, framing.Inclusive)
	if err != nil {
		if errors.Is(err, framing.ErrDelimiterNotFound) {
			return fmt.Errorf("%w: anchor %q not found", common.ErrUnexpectedData, keyword)
		}
		return err
	}
	if string(got) != keyword {
		return fmt.Errorf("%w: anchor %q, got %q", common.ErrUnexpectedData, keyword, got)
	}
	return nil
}

// hexByte reads a two character hex field; short reads wrap shortErr.
func (d *decoder) hexByte(shortErr error) (byte, error) {
	raw, err := framing.ReadFixed(d.src, fieldHexLen)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shortErr, err)
	}
	var out [1]byte
	if _, err := codec.HexToBin(out[:], raw, d.opts.LenientHex); err != nil {
		return 0, err
	}
	return out[0], nil
}

// line reads up to the next newline. maxHex bounds the field; a longer or
// unterminated field reads as empty and fails the caller's length check.
func (d *decoder) line(maxHex int) ([]byte, error) {
	got, err := framing.ReadUntil(d.src, maxHex+1, lineDelim, framing.Exclusive)
	if errors.Is(err, framing.ErrDelimiterNotFound) {
		return nil, nil
	}
	return got, err
}

func (d *decoder) convert() error {
	n := d.msg.DataLen()
	dataHex := codec.HexSize(n)

	d.msg.Data = make([]byte, n, DataCapacity)
	if _, err := codec.HexToBin(d.msg.Data, d.raw.body[:dataHex], d.opts.LenientHex); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	if _, err := codec.HexToBin(d.msg.CRC[:], d.raw.body[dataHex:], d.opts.LenientHex); err != nil {
		return fmt.Errorf("decode crc: %w", err)
	}
	if sum, ok := codec.VerifyChecksum(d.msg.Data, d.msg.CRC); !ok {
		return fmt.Errorf("%w: computed 0x%08x, stored 0x%08x", common.ErrChecksumMismatch, sum, d.msg.CRCValue())
	}
	if _, err := codec.HexToBin(d.msg.Mask[:], d.raw.mask, d.opts.LenientHex); err != nil {
		return fmt.Errorf("decode mask: %w", err)
	}
	d.raw = staging{}
	return nil
}

// MarshalContainer renders m in the container format Decode accepts.
func MarshalContainer(m *Message) []byte {
	var b bytes.Buffer
	b.WriteString(messageAnchor)
	b.WriteString(codec.EncodeHex([]byte{m.Type, m.Length}))
	b.WriteString(codec.EncodeHex(m.Payload()))
	b.WriteString(codec.EncodeHex(m.CRC[:]))
	b.WriteByte(lineDelim)
	b.WriteString(maskAnchor)
	b.WriteString(codec.EncodeHex(m.Mask[:]))
	b.WriteByte(lineDelim)
	return b.Bytes()
}

// WriteContainer writes the container form of m to w.
func WriteContainer(w io.Writer, m *Message) error {
	if w == nil || m == nil {
		return fmt.Errorf("%w: write container", common.ErrNullParameter)
	}
	if _, err := w.Write(MarshalContainer(m)); err != nil {
		return fmt.Errorf("%w: %v", common.ErrWriteFailure, err)
	}
	return nil
}
