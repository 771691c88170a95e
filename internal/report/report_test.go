package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"example.com/maskgate/internal/common"
	"example.com/maskgate/internal/message"
)

func sampleSummary(t *testing.T) Summary {
	t.Helper()
	orig, err := message.New(0x03, []byte{0x11, 0x22, 0x33, 0x44, 0x55}, [message.MaskSize]byte{0xff, 0x00, 0xff, 0x00})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mod, err := message.Transform(orig, message.TransformOptions{})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	ov, err := ViewOf(orig, message.RoleOriginal)
	if err != nil {
		t.Fatalf("ViewOf original: %v", err)
	}
	mv, err := ViewOf(mod, message.RoleModified)
	if err != nil {
		t.Fatalf("ViewOf modified: %v", err)
	}
	return Summary{
		RunID:         "5f0c6a8e-1d0b-4a4e-9d35-0f1b7f3f6a10",
		Input:         "data_in.txt",
		Output:        "data_out.txt",
		Pass:          true,
		Padding:       "remainder",
		Pad:           1,
		MaskHex:       "ff00ff00",
		MaskedTetrads: message.MaskedTetrads(6),
		Original:      ov,
		Modified:      mv,
		Ts:            time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestViewOf(t *testing.T) {
	s := sampleSummary(t)
	if s.Original.Type != "03" || s.Original.Length != 9 || s.Original.DataHex != "1122334455" {
		t.Fatalf("original view = %+v", s.Original)
	}
	if len(s.Original.Lines) != 4 || s.Original.Lines[0] != "message type: 0x03" {
		t.Fatalf("original lines = %q", s.Original.Lines)
	}
	if s.Modified.Length != 10 || s.Modified.DataHex != "110033005500" || len(s.Modified.Lines) != 3 {
		t.Fatalf("modified view = %+v", s.Modified)
	}
	if v, err := ViewOf(nil, message.RoleOriginal); v != nil || err != nil {
		t.Fatalf("ViewOf(nil) = %v, %v", v, err)
	}
}

func TestSummaryJSONRoundTrip(t *testing.T) {
	s := sampleSummary(t)
	s.Pass = false
	s.Kind = common.ChecksumMismatch
	path := filepath.Join(t.TempDir(), "summary.json")
	if err := SaveSummaryJSON(s, path); err != nil {
		t.Fatalf("SaveSummaryJSON: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Contains(raw, []byte(`"kind": "ChecksumMismatch"`)) {
		t.Fatalf("kind not rendered by name:\n%s", raw)
	}
	got, err := LoadSummaryJSON(path)
	if err != nil {
		t.Fatalf("LoadSummaryJSON: %v", err)
	}
	if got.Kind != common.ChecksumMismatch || got.Modified.CRCHex != s.Modified.CRCHex || !got.Ts.Equal(s.Ts) {
		t.Fatalf("round trip differs: %+v", got)
	}
}

func TestNewBatchSummary(t *testing.T) {
	b := NewBatchSummary([]Summary{{Pass: true}, {Pass: false}, {Pass: true, Duplicate: true}, {Pass: true}})
	if b.Total != 4 || b.Passed != 2 || b.Failed != 1 || b.Duplicates != 1 {
		t.Fatalf("batch summary = %+v", b)
	}
}

func TestSaveSummaryPDF(t *testing.T) {
	dir := t.TempDir()
	for _, lang := range []Language{LangEnglish, LangTurkish} {
		out := filepath.Join(dir, string(lang)+".pdf")
		if err := SaveSummaryPDF(sampleSummary(t), lang, out); err != nil {
			t.Fatalf("SaveSummaryPDF(%s): %v", lang, err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			t.Fatalf("%s: not a PDF", lang)
		}
	}
}

func TestSaveBatchPDF(t *testing.T) {
	s := sampleSummary(t)
	failed := Summary{Input: "bad.txt", Kind: common.LengthMismatch, Error: "length mismatch"}
	out := filepath.Join(t.TempDir(), "batch.pdf")
	if err := SaveBatchPDF(NewBatchSummary([]Summary{s, failed}), LangEnglish, out); err != nil {
		t.Fatalf("SaveBatchPDF: %v", err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Fatalf("batch pdf missing: %v", err)
	}
}

func TestHashToQR(t *testing.T) {
	png, err := HashToQR("0x1a2B3c4d", 64)
	if err != nil {
		t.Fatalf("HashToQR: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("not a PNG")
	}
	if _, err := HashToQR("  ", 64); err == nil {
		t.Fatalf("expected error for empty hash")
	}
}

func TestTranslator(t *testing.T) {
	if got := NewTranslator(LangTurkish).T("mask"); got != "Maske" {
		t.Fatalf("tr mask = %q", got)
	}
	if got := NewTranslator(Language("xx")).T("mask"); got != "Mask" {
		t.Fatalf("fallback mask = %q", got)
	}
	if got := NewTranslator(LangEnglish).T("no_such_key"); got != "no_such_key" {
		t.Fatalf("missing key = %q", got)
	}
	if len(Languages()) != 2 {
		t.Fatalf("Languages = %v", Languages())
	}
}

func TestParseLanguage(t *testing.T) {
	for in, want := range map[string]Language{"": LangEnglish, "EN": LangEnglish, "tr_TR.UTF-8": LangTurkish, "en-gb": LangEnglish} {
		got, err := ParseLanguage(in)
		if err != nil || got != want {
			t.Fatalf("ParseLanguage(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseLanguage("fr"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
}
