package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin    = 10.0
	pdfRowHeight = 8.0
)

// WritePDF renders the sheet as a landscape A4 table with a title line and
// a repeated header row on every page.
func WritePDF(w io.Writer, sheet Sheet, generated time.Time) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, _ := pdf.GetPageSize()
	usable := pageWidth - 2*pdfMargin
	total := 0.0
	for i := range sheet.Headers {
		total += sheet.weight(i)
	}
	widths := make([]float64, len(sheet.Headers))
	for i := range sheet.Headers {
		widths[i] = usable * sheet.weight(i) / total
	}

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(229, 231, 235)
		for i, h := range sheet.Headers {
			pdf.CellFormat(widths[i], pdfRowHeight, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(sheet.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s, %d rows", generated.Format("2006-01-02 15:04"), len(sheet.Rows)), "", 1, "L", false, 0, "")
	pdf.Ln(3)
	header()

	_, pageHeight := pdf.GetPageSize()
	for _, row := range sheet.Rows {
		if pdf.GetY()+pdfRowHeight > pageHeight-pdfMargin {
			pdf.AddPage()
			header()
		}
		for i := range sheet.Headers {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(widths[i], pdfRowHeight, fit(pdf, tr(value), widths[i]-2), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// fit cuts text that would overflow its cell and marks the cut.
func fit(pdf *gofpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	for len(text) > 0 && pdf.GetStringWidth(text+"...") > width {
		text = text[:len(text)-1]
	}
	return text + "..."
}
