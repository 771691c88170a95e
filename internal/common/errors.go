package common

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of the decode/transform/encode pipeline. A run
// carries at most one active Kind, the latest one wins.
type Kind int

const (
	NoError Kind = iota
	LengthMismatch
	ChecksumMismatch
	NullParameter
	SourceNotFound
	SourceUnreadable
	UnexpectedData
	ReadError
	ConversionError
	BufferTooSmall
	StringFormatError
	FileCreationError
	SeekError
	TellError
	WriteFailure
)

var (
	ErrLengthMismatch   = errors.New("length mismatch")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrNullParameter    = errors.New("nil parameter")
	ErrSourceNotFound   = errors.New("source not found")
	ErrSourceUnreadable = errors.New("source unreadable")
	ErrUnexpectedData   = errors.New("unexpected data")
	ErrReadError        = errors.New("read error")
	ErrConversion       = errors.New("conversion error")
	ErrBufferTooSmall   = errors.New("buffer too small")
	ErrStringFormat     = errors.New("string format error")
	ErrFileCreation     = errors.New("file creation error")
	ErrSeek             = errors.New("seek error")
	ErrTell             = errors.New("tell error")
	ErrWriteFailure     = errors.New("write failure")
)

var kindSentinels = []struct {
	kind Kind
	err  error
}{
	{LengthMismatch, ErrLengthMismatch},
	{ChecksumMismatch, ErrChecksumMismatch},
	{NullParameter, ErrNullParameter},
	{SourceNotFound, ErrSourceNotFound},
	{SourceUnreadable, ErrSourceUnreadable},
	{UnexpectedData, ErrUnexpectedData},
	{ReadError, ErrReadError},
	{ConversionError, ErrConversion},
	{BufferTooSmall, ErrBufferTooSmall},
	{StringFormatError, ErrStringFormat},
	{FileCreationError, ErrFileCreation},
	{SeekError, ErrSeek},
	{TellError, ErrTell},
	{WriteFailure, ErrWriteFailure},
}

// KindOf reports the Kind of err. A nil error is NoError; an error that wraps
// none of the sentinels is ReadError.
func KindOf(err error) Kind {
	if err == nil {
		return NoError
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	return ReadError
}

// Sentinel returns the sentinel error for k, or nil for NoError.
func (k Kind) Sentinel() error {
	for _, ks := range kindSentinels {
		if ks.kind == k {
			return ks.err
		}
	}
	return nil
}

func (k Kind) String() string {
	switch k {
	case NoError:
		return "NoError"
	case LengthMismatch:
		return "LengthMismatch"
	case ChecksumMismatch:
		return "ChecksumMismatch"
	case NullParameter:
		return "NullParameter"
	case SourceNotFound:
		return "SourceNotFound"
	case SourceUnreadable:
		return "SourceUnreadable"
	case UnexpectedData:
		return "UnexpectedData"
	case ReadError:
		return "ReadError"
	case ConversionError:
		return "ConversionError"
	case BufferTooSmall:
		return "BufferTooSmall"
	case StringFormatError:
		return "StringFormatError"
	case FileCreationError:
		return "FileCreationError"
	case SeekError:
		return "SeekError"
	case TellError:
		return "TellError"
	case WriteFailure:
		return "WriteFailure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name so JSON summaries stay readable.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a name produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	name := string(b)
	for c := NoError; c <= WriteFailure; c++ {
		if c.String() == name {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", name)
}

// Sentence is the one-line, human readable text written to the output in
// place of the message blocks when a run fails.
func (k Kind) Sentence() string {
	switch k {
	case LengthMismatch:
		return "Error in length of the message"
	case ChecksumMismatch:
		return "Error in CRC value of the message"
	case NullParameter:
		return "Error NULL parameter"
	case SourceNotFound:
		return "Error file not exist"
	case SourceUnreadable:
		return "Error could not open file"
	case UnexpectedData:
		return "Data is not expected"
	case ReadError:
		return "Error reading file"
	case ConversionError:
		return "Error converting string"
	case BufferTooSmall:
		return "Error in buffer size"
	case StringFormatError:
		return "Error string format"
	case FileCreationError:
		return "Error file creation"
	case TellError:
		return "Error calling ftell()"
	case SeekError:
		return "Error calling fseek()"
	case WriteFailure:
		return "Error writing file"
	default:
		return fmt.Sprintf("Unknown error value: %d", int(k))
	}
}
