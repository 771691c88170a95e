package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	if KindOf(nil) != NoError {
		t.Fatalf("nil error should be NoError")
	}
	for k := LengthMismatch; k <= WriteFailure; k++ {
		wrapped := fmt.Errorf("outer: %w", fmt.Errorf("%w: detail", k.Sentinel()))
		if got := KindOf(wrapped); got != k {
			t.Fatalf("KindOf(%v) = %s, want %s", wrapped, got, k)
		}
	}
	if KindOf(errors.New("plain")) != ReadError {
		t.Fatalf("unclassified errors should map to ReadError")
	}
}

func TestKindSentences(t *testing.T) {
	tests := map[Kind]string{
		LengthMismatch:   "Error in length of the message",
		ChecksumMismatch: "Error in CRC value of the message",
		UnexpectedData:   "Data is not expected",
		SeekError:        "Error calling fseek()",
		Kind(99):         "Unknown error value: 99",
	}
	for k, want := range tests {
		if got := k.Sentence(); got != want {
			t.Fatalf("%s.Sentence() = %q, want %q", k, got, want)
		}
	}
}

func TestKindJSON(t *testing.T) {
	b, err := json.Marshal(struct{ Kind Kind }{ChecksumMismatch})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"Kind":"ChecksumMismatch"}` {
		t.Fatalf("json = %s", b)
	}
	var out struct{ Kind Kind }
	if err := json.Unmarshal(b, &out); err != nil || out.Kind != ChecksumMismatch {
		t.Fatalf("Unmarshal = %v, %v", out.Kind, err)
	}
}
