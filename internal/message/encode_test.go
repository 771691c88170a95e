package message

import (
	"errors"
	"strings"
	"testing"

	"example.com/maskgate/internal/common"
)

func TestEncodeEndToEnd(t *testing.T) {
	orig, err := decodeString(t, "mess=010400000000\nmask=00000000\n", DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	mod, err := Transform(orig, TransformOptions{})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	var b strings.Builder
	if err := Encode(&b, orig, RoleOriginal); err != nil {
		t.Fatalf("Encode original: %v", err)
	}
	if err := Encode(&b, mod, RoleModified); err != nil {
		t.Fatalf("Encode modified: %v", err)
	}
	want := "message type: 0x01\n" +
		"initial message length: 0x04\n" +
		"initial message data bytes: 0x\n" +
		"initial CRC-32: 0x00000000\n" +
		"modified message length: 0x04\n" +
		"modified message data bytes with mask: 0x\n" +
		"modified CRC-32: 0x00000000\n"
	if b.String() != want {
		t.Fatalf("report:\n%s\nwant:\n%s", b.String(), want)
	}
}

func TestEncodePaddedMessage(t *testing.T) {
	orig := mustNew(t, 0x03, []byte{0x11, 0x22, 0x33, 0x44, 0x55}, [MaskSize]byte{0xff, 0x00, 0xff, 0x00})
	mod, err := Transform(orig, TransformOptions{})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	got, err := EncodeString(mod, RoleModified)
	if err != nil {
		t.Fatalf("EncodeString: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", got)
	}
	if lines[0] != "modified message length: 0x0a" {
		t.Fatalf("line 0 = %q", lines[0])
	}
	if lines[1] != "modified message data bytes with mask: 0x110033005500" {
		t.Fatalf("line 1 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "modified CRC-32: 0x") || len(lines[2]) != len("modified CRC-32: 0x")+8 {
		t.Fatalf("line 2 = %q", lines[2])
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestEncodeErrors(t *testing.T) {
	m := mustNew(t, 0x01, nil, [MaskSize]byte{})
	if err := Encode(nil, m, RoleOriginal); !errors.Is(err, common.ErrNullParameter) {
		t.Fatalf("nil writer: %v", err)
	}
	if err := Encode(&strings.Builder{}, nil, RoleOriginal); !errors.Is(err, common.ErrNullParameter) {
		t.Fatalf("nil message: %v", err)
	}
	if err := Encode(failingWriter{}, m, RoleOriginal); !errors.Is(err, common.ErrWriteFailure) {
		t.Fatalf("failing writer: %v", err)
	}
	if err := Encode(&strings.Builder{}, m, Role(7)); !errors.Is(err, common.ErrStringFormat) {
		t.Fatalf("unknown role: %v", err)
	}
}

func TestFormatLineLimit(t *testing.T) {
	if _, err := formatLine(strings.Repeat("x", MaxLineSize), nil); !errors.Is(err, common.ErrBufferTooSmall) {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
}

func TestEncodeErrorReport(t *testing.T) {
	var b strings.Builder
	if err := EncodeErrorReport(&b, common.ChecksumMismatch); err != nil {
		t.Fatalf("EncodeErrorReport: %v", err)
	}
	if b.String() != "Error in CRC value of the message\n" {
		t.Fatalf("report = %q", b.String())
	}
	if err := EncodeErrorReport(failingWriter{}, common.LengthMismatch); !errors.Is(err, common.ErrWriteFailure) {
		t.Fatalf("expected ErrWriteFailure, got %v", err)
	}
}
