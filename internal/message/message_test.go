package message

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"example.com/maskgate/internal/codec"
	"example.com/maskgate/internal/common"
)

func buildContainer(t *testing.T, typ byte, data []byte, mask [MaskSize]byte) string {
	t.Helper()
	m, err := New(typ, data, mask)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return string(MarshalContainer(m))
}

func decodeString(t *testing.T, s string, opts DecodeOptions) (*Message, error) {
	t.Helper()
	return Decode(strings.NewReader(s), opts)
}

func TestDecodeEmptyData(t *testing.T) {
	m, err := decodeString(t, "mess=010400000000\nmask=00000000\n", DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Type != 0x01 || m.Length != 0x04 {
		t.Fatalf("type/length = %02x/%02x", m.Type, m.Length)
	}
	if len(m.Payload()) != 0 {
		t.Fatalf("expected empty payload, got % x", m.Payload())
	}
	if m.CRCValue() != 0 {
		t.Fatalf("crc = 0x%08x", m.CRCValue())
	}
}

func TestDecodeFields(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef, 0x01}
	in := buildContainer(t, 0x7a, data, [MaskSize]byte{0xff, 0x0f, 0xf0, 0x00})
	m, err := decodeString(t, in, DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Type != 0x7a || m.Length != 9 {
		t.Fatalf("type/length = %02x/%d", m.Type, m.Length)
	}
	if !bytes.Equal(m.Payload(), data) {
		t.Fatalf("payload = % x", m.Payload())
	}
	if m.CRCValue() != codec.Checksum(data) {
		t.Fatalf("crc = 0x%08x, want 0x%08x", m.CRCValue(), codec.Checksum(data))
	}
	if m.Mask != [MaskSize]byte{0xff, 0x0f, 0xf0, 0x00} {
		t.Fatalf("mask = % x", m.Mask)
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := "mess=010400000000\nmask=00000000\n"
	tests := []struct {
		name  string
		input string
		want  common.Kind
	}{
		{name: "wrong anchor", input: "msg=010400000000\nmask=00000000\n", want: common.UnexpectedData},
		{name: "anchor without equals", input: "message", want: common.UnexpectedData},
		{name: "empty input", input: "", want: common.UnexpectedData},
		{name: "short type", input: "mess=0", want: common.UnexpectedData},
		{name: "short length", input: "mess=010", want: common.ReadError},
		{name: "length below checksum", input: "mess=0103000000\nmask=00000000\n", want: common.LengthMismatch},
		{name: "body too short", input: "mess=0105000000\nmask=00000000\n", want: common.LengthMismatch},
		{name: "body too long", input: "mess=01040000000000\nmask=00000000\n", want: common.LengthMismatch},
		{name: "body unterminated", input: "mess=010400000000", want: common.LengthMismatch},
		{name: "wrong mask anchor", input: "mess=010400000000\nmusk=00000000\n", want: common.UnexpectedData},
		{name: "short mask", input: "mess=010400000000\nmask=000000\n", want: common.LengthMismatch},
		{name: "long mask", input: "mess=010400000000\nmask=0000000000\n", want: common.LengthMismatch},
		{name: "mask unterminated", input: strings.TrimSuffix(valid, "\n"), want: common.LengthMismatch},
		{name: "checksum mismatch", input: "mess=010400000001\nmask=00000000\n", want: common.ChecksumMismatch},
		{name: "malformed data hex", input: "mess=0105zzd202ef8d\nmask=00000000\n", want: common.ConversionError},
		{name: "malformed type hex", input: "mess=xx0400000000\nmask=00000000\n", want: common.ConversionError},
		{name: "malformed mask hex", input: "mess=010400000000\nmask=0000000g\n", want: common.ConversionError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := decodeString(t, tc.input, DecodeOptions{})
			if err == nil {
				t.Fatalf("expected error, got message %+v", m)
			}
			if m != nil {
				t.Fatalf("expected nil message on error")
			}
			if got := common.KindOf(err); got != tc.want {
				t.Fatalf("kind = %s, want %s (%v)", got, tc.want, err)
			}
		})
	}
}

func TestDecodeChecksumIsBigEndian(t *testing.T) {
	data := []byte("123456789")
	// 0xCBF43926 stored little-endian must be rejected.
	in := "mess=010d" + codec.EncodeHex(data) + "2639f4cb\nmask=ffffffff\n"
	if _, err := decodeString(t, in, DecodeOptions{}); !errors.Is(err, common.ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
	in = "mess=010d" + codec.EncodeHex(data) + "cbf43926\nmask=ffffffff\n"
	if _, err := decodeString(t, in, DecodeOptions{}); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}

func TestDecodeLenientHex(t *testing.T) {
	in := "mess=0105zzd202ef8d\nmask=ffffffff\n"
	m, err := decodeString(t, in, DecodeOptions{LenientHex: true})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(m.Payload(), []byte{0x00}) {
		t.Fatalf("payload = % x", m.Payload())
	}
}

func TestDecodeNilSource(t *testing.T) {
	if _, err := Decode(nil, DecodeOptions{}); !errors.Is(err, common.ErrNullParameter) {
		t.Fatalf("expected ErrNullParameter, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data_in.txt")
	in := buildContainer(t, 0x02, []byte{1, 2, 3, 4, 5, 6, 7, 8}, [MaskSize]byte{0xf0, 0xf0, 0xf0, 0xf0})
	if err := os.WriteFile(path, []byte(in), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m, err := Load(path, DecodeOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Length != 12 {
		t.Fatalf("length = %d", m.Length)
	}

	_, err = Load(filepath.Join(dir, "missing.txt"), DecodeOptions{})
	if !errors.Is(err, common.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
	_, err = Load("", DecodeOptions{})
	if !errors.Is(err, common.ErrNullParameter) {
		t.Fatalf("expected ErrNullParameter, got %v", err)
	}
}

func TestMarshalContainerRoundTrip(t *testing.T) {
	data := make([]byte, DataCapacity)
	for i := range data {
		data[i] = byte(i * 7)
	}
	orig, err := New(0xff, data, [MaskSize]byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if orig.Length != MaxLength {
		t.Fatalf("length = %d", orig.Length)
	}
	got, err := Decode(bytes.NewReader(MarshalContainer(orig)), DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.Equal(orig) {
		t.Fatalf("round trip differs:\n got %+v\nwant %+v", got, orig)
	}
}

func TestNewRejectsOversizedData(t *testing.T) {
	if _, err := New(0, make([]byte, DataCapacity+1), [MaskSize]byte{}); !errors.Is(err, common.ErrBufferTooSmall) {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	m, err := New(1, []byte{1, 2, 3, 4}, [MaskSize]byte{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := m.Clone()
	c.Data[0] = 0xff
	c.CRC[0] = 0xff
	if m.Data[0] != 1 || m.CRC == c.CRC {
		t.Fatalf("clone aliases original")
	}
}
