// Package report persists run summaries as JSON and renders them as PDF.
package report

import (
	"encoding/json"
	"os"
	"time"

	"example.com/maskgate/internal/codec"
	"example.com/maskgate/internal/common"
	"example.com/maskgate/internal/message"
)

// MessageView is the display form of one message.
type MessageView struct {
	Type    string   `json:"type"`
	Length  int      `json:"length"`
	DataHex string   `json:"dataHex"`
	CRCHex  string   `json:"crcHex"`
	Lines   []string `json:"lines,omitempty"`
}

// ViewOf builds the display form of m together with its rendered report
// lines for role.
func ViewOf(m *message.Message, role message.Role) (*MessageView, error) {
	if m == nil {
		return nil, nil
	}
	block, err := message.EncodeString(m, role)
	if err != nil {
		return nil, err
	}
	return &MessageView{
		Type:    codec.EncodeHex([]byte{m.Type}),
		Length:  int(m.Length),
		DataHex: codec.EncodeHex(m.Payload()),
		CRCHex:  codec.EncodeHex(m.CRC[:]),
		Lines:   splitLines(block),
	}, nil
}

// Summary describes the outcome of one run.
type Summary struct {
	RunID         string       `json:"runId"`
	Input         string       `json:"input"`
	Output        string       `json:"output"`
	InputSha256   string       `json:"inputSha256,omitempty"`
	Pass          bool         `json:"pass"`
	Kind          common.Kind  `json:"kind"`
	Error         string       `json:"error,omitempty"`
	Duplicate     bool         `json:"duplicate,omitempty"`
	Padding       string       `json:"padding,omitempty"`
	Pad           int          `json:"pad"`
	MaskHex       string       `json:"maskHex,omitempty"`
	MaskedTetrads []int        `json:"maskedTetrads,omitempty"`
	Original      *MessageView `json:"original,omitempty"`
	Modified      *MessageView `json:"modified,omitempty"`
	Ts            time.Time    `json:"ts"`
}

// BatchSummary aggregates the summaries of a batch run.
type BatchSummary struct {
	Total      int       `json:"total"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	Duplicates int       `json:"duplicates"`
	Results    []Summary `json:"results"`
}

// NewBatchSummary counts outcomes over results.
func NewBatchSummary(results []Summary) BatchSummary {
	b := BatchSummary{Total: len(results), Results: results}
	for _, s := range results {
		switch {
		case s.Duplicate:
			b.Duplicates++
		case s.Pass:
			b.Passed++
		default:
			b.Failed++
		}
	}
	return b
}

func SaveSummaryJSON(s Summary, out string) error {
	return saveJSON(s, out)
}

func LoadSummaryJSON(path string) (Summary, error) {
	var s Summary
	b, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(b, &s)
	return s, err
}

func SaveBatchJSON(b BatchSummary, out string) error {
	return saveJSON(b, out)
}

func saveJSON(v any, out string) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func splitLines(block string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(block); i++ {
		if block[i] == '\n' {
			lines = append(lines, block[start:i])
			start = i + 1
		}
	}
	if start < len(block) {
		lines = append(lines, block[start:])
	}
	return lines
}
