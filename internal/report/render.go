package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// ContentType is the MIME type of rendered reports.
const ContentType = "application/pdf"

type rgb struct{ r, g, b int }

var (
	colorPrimary = rgb{14, 165, 233}
	colorMuted   = rgb{100, 116, 139}
	colorHeading = rgb{51, 65, 85}
	colorCard    = rgb{241, 245, 249}
	colorStripe  = rgb{248, 250, 252}
	colorGrid    = rgb{203, 213, 225}
	colorWhite   = rgb{255, 255, 255}
)

// Record table column widths in points.
var columnWidths = []float64{158.4, 100.8, 57.6, 57.6, 57.6}

const (
	margin     = 50.0
	rowHeight  = 16.0
	summaryCol = 128.0
)

// Render lays out doc as a Letter-size PDF.
func Render(doc Document) ([]byte, error) {
	return render(doc, true)
}

func render(doc Document, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := layout(doc, compress).Output(&buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

func layout(doc Document, compress bool) *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(compress)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("chemviz", true)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	// Core fonts are cp1252; runes outside it print as ".". Document content
	// from Build keeps the exact strings.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	// Header block
	setColor(pdf.SetTextColor, colorPrimary)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 30, tr(doc.Title), "", 1, "L", false, 0, "")
	setColor(pdf.SetTextColor, colorMuted)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 14, tr("Dataset: "+doc.Filename), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 14, tr("Generated on "+doc.GeneratedAt.Format("January 02, 2006 at 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(14)

	// Summary block
	sectionHeading(pdf, tr, "Executive Summary")
	setColor(pdf.SetDrawColor, colorGrid)
	setColor(pdf.SetFillColor, colorCard)
	setColor(pdf.SetTextColor, colorPrimary)
	pdf.SetFont("Helvetica", "B", 10)
	for _, cell := range doc.Summary {
		pdf.CellFormat(summaryCol, 24, tr(cell.Label), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	setColor(pdf.SetTextColor, colorHeading)
	pdf.SetFont("Helvetica", "", 14)
	for _, cell := range doc.Summary {
		pdf.CellFormat(summaryCol, 30, tr(cell.Value), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.Ln(20)

	// Record table
	sectionHeading(pdf, tr, "Detailed Equipment Logs")
	tableHeader(pdf, tr, doc.Columns)

	_, pageHeight := pdf.GetPageSize()
	pdf.SetFont("Helvetica", "", 9)
	for i, row := range doc.Rows {
		if pdf.GetY()+rowHeight > pageHeight-margin {
			pdf.AddPage()
			tableHeader(pdf, tr, doc.Columns)
			pdf.SetFont("Helvetica", "", 9)
		}
		fill := colorWhite
		if i%2 == 1 {
			fill = colorStripe
		}
		setColor(pdf.SetFillColor, fill)
		setColor(pdf.SetTextColor, colorHeading)
		for j, value := range row {
			align := "L"
			if j >= 2 {
				align = "C"
			}
			pdf.CellFormat(columnWidths[j], rowHeight, tr(value), "1", 0, align, true, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf
}

func setColor(set func(r, g, b int), c rgb) {
	set(c.r, c.g, c.b)
}

func sectionHeading(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	setColor(pdf.SetTextColor, colorHeading)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 26, tr(text), "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func tableHeader(pdf *fpdf.Fpdf, tr func(string) string, columns []string) {
	setColor(pdf.SetFillColor, colorPrimary)
	setColor(pdf.SetTextColor, colorWhite)
	setColor(pdf.SetDrawColor, colorGrid)
	pdf.SetFont("Helvetica", "B", 10)
	for j, col := range columns {
		pdf.CellFormat(columnWidths[j], 22, tr(col), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}
