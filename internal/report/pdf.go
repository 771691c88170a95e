package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const qrImageName = "crc-qr"

// SaveSummaryPDF renders one run summary into a PDF document.
func SaveSummaryPDF(s Summary, lang Language, out string) error {
	tr := NewTranslator(lang)
	pdf := newDocument(tr.T("title"))
	utf := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	addPDFTitle(pdf, utf(tr.T("title")))
	addSummarySection(pdf, tr, utf, s)
	if s.Original != nil {
		addMessageSection(pdf, utf(tr.T("section_original")), tr, s.Original, true)
	}
	if s.Modified != nil {
		addMessageSection(pdf, utf(tr.T("section_modified")), tr, s.Modified, false)
		if err := addQRCode(pdf, utf(tr.T("qr_caption")), s.Modified.CRCHex); err != nil {
			return err
		}
	}

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

// SaveBatchPDF renders the outcome table of a batch run.
func SaveBatchPDF(b BatchSummary, lang Language, out string) error {
	tr := NewTranslator(lang)
	pdf := newDocument(tr.T("batch_title"))
	utf := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	addPDFTitle(pdf, utf(tr.T("batch_title")))
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, utf(tr.Format("totals", b.Total, b.Passed, b.Failed, b.Duplicates)), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, utf(tr.T("section_results")))
	pdf.Ln(9)

	headers := []string{tr.T("input"), tr.T("result"), tr.T("error"), tr.T("crc")}
	widths := []float64{70, 26, 54, 30}
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, utf(h), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, s := range b.Results {
		crc := "-"
		if s.Modified != nil {
			crc = "0x" + s.Modified.CRCHex
		}
		errText := s.Error
		if s.Pass {
			errText = ""
		}
		renderTableRow(pdf, widths, []string{s.Input, utf(resultLabel(tr, s)), errText, crc}, 5)
	}

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func newDocument(title string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("maskctl", false)
	pdf.SetCreator("maskctl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	return pdf
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSummarySection(pdf *gofpdf.Fpdf, tr Translator, utf func(string) string, s Summary) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, utf(tr.T("section_summary")))
	pdf.Ln(8)

	masked := tr.T("none")
	if len(s.MaskedTetrads) > 0 {
		parts := make([]string, len(s.MaskedTetrads))
		for i, idx := range s.MaskedTetrads {
			parts[i] = strconv.Itoa(idx)
		}
		masked = strings.Join(parts, ", ")
	}
	items := []struct {
		label string
		value string
	}{
		{label: tr.T("run_id"), value: s.RunID},
		{label: tr.T("input"), value: s.Input},
		{label: tr.T("input_sha256"), value: emptyFallback(s.InputSha256, "-")},
		{label: tr.T("output"), value: s.Output},
		{label: tr.T("result"), value: resultLabel(tr, s)},
		{label: tr.T("error"), value: emptyFallback(s.Error, "-")},
		{label: tr.T("mask"), value: hexOrDash(s.MaskHex)},
		{label: tr.T("padding"), value: tr.Format("pad_bytes", s.Pad, emptyFallback(s.Padding, "-"))},
		{label: tr.T("masked_tetrads"), value: masked},
	}
	if !s.Ts.IsZero() {
		items = append(items, struct {
			label string
			value string
		}{label: "Timestamp", value: s.Ts.Format(time.RFC3339)})
	}
	pdf.SetFont("Helvetica", "", 10)
	for _, item := range items {
		pdf.CellFormat(45, 6, utf(item.label), "", 0, "L", false, 0, "")
		pdf.MultiCell(0, 6, utf(item.value), "", "L", false)
	}
	pdf.Ln(4)
}

func addMessageSection(pdf *gofpdf.Fpdf, title string, tr Translator, v *MessageView, withType bool) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)

	var rows [][2]string
	if withType {
		rows = append(rows, [2]string{tr.T("type"), "0x" + v.Type})
	}
	rows = append(rows,
		[2]string{tr.T("length"), fmt.Sprintf("0x%02x (%d)", v.Length, v.Length)},
		[2]string{tr.T("data"), hexOrDash(v.DataHex)},
		[2]string{tr.T("crc"), hexOrDash(v.CRCHex)},
	)
	pdf.SetFont("Courier", "", 9)
	for _, row := range rows {
		renderTableRow(pdf, []float64{35, 145}, []string{row[0], row[1]}, 5)
	}
	pdf.Ln(4)
}

func addQRCode(pdf *gofpdf.Fpdf, caption, crcHex string) error {
	if strings.TrimSpace(crcHex) == "" {
		return nil
	}
	png, err := HashToQR(crcHex, 256)
	if err != nil {
		return fmt.Errorf("qr code: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(qrImageName, opts, bytes.NewReader(png))
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, caption)
	pdf.Ln(6)
	pdf.ImageOptions(qrImageName, pdf.GetX(), pdf.GetY(), 30, 30, true, opts, 0, "")
	return nil
}

func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := strings.TrimSpace(val)
		if text == "" {
			text = "-"
		}
		lines := pdf.SplitText(text, widths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		pdf.MultiCell(widths[i], lineHeight, strings.Join(lines, "\n"), "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func resultLabel(tr Translator, s Summary) string {
	switch {
	case s.Duplicate:
		return tr.T("duplicate")
	case s.Pass:
		return tr.T("pass")
	default:
		return tr.T("fail")
	}
}

func hexOrDash(h string) string {
	if h == "" {
		return "-"
	}
	return "0x" + h
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
