package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const PDFContentType = "application/pdf"

const (
	pdfRowHeight = 7.0
	pdfCellPad   = 3.0
	pdfMinColumn = 18.0
)

// PDFExporter lays a Dataset out as an A4 landscape table, repeating the
// header row on every page.
type PDFExporter struct {
	now func() time.Time
}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if err := data.validate("pdf"); err != nil {
		return nil, err
	}

	doc := gofpdf.New("L", "mm", "A4", "")
	doc.SetMargins(10, 12, 10)
	doc.SetAutoPageBreak(false, 12)
	doc.AddPage()

	if title != "" {
		doc.SetFont("Arial", "B", 14)
		doc.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
	}
	doc.SetFont("Arial", "I", 8)
	stamp := fmt.Sprintf("Generated %s, %d records", e.now().UTC().Format("2006-01-02 15:04 MST"), data.Len())
	doc.CellFormat(0, 5, stamp, "", 1, "L", false, 0, "")
	doc.Ln(3)

	widths := columnWidths(doc, data)
	drawHeader := func() {
		doc.SetFont("Arial", "B", 9)
		doc.SetFillColor(230, 230, 230)
		for i, col := range data.Columns {
			doc.CellFormat(widths[i], pdfRowHeight, col, "1", 0, "C", true, 0, "")
		}
		doc.Ln(-1)
		doc.SetFont("Arial", "", 9)
	}
	drawHeader()

	_, pageHeight := doc.GetPageSize()
	_, _, _, bottom := doc.GetMargins()
	for _, row := range data.Rows {
		if doc.GetY()+pdfRowHeight > pageHeight-bottom {
			doc.AddPage()
			drawHeader()
		}
		for i := range data.Columns {
			doc.CellFormat(widths[i], pdfRowHeight, fit(doc, data.cell(row, i), widths[i]), "1", 0, "L", false, 0, "")
		}
		doc.Ln(-1)
	}
	if data.Len() == 0 {
		doc.SetFont("Arial", "I", 9)
		doc.CellFormat(0, pdfRowHeight, "No records", "", 1, "L", false, 0, "")
	}

	var out bytes.Buffer
	if err := doc.Output(&out); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return out.Bytes(), nil
}

// columnWidths shares the printable width in proportion to the widest text
// in each column, with a floor so short columns stay readable.
func columnWidths(doc *gofpdf.Fpdf, data Dataset) []float64 {
	pageWidth, _ := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	usable := pageWidth - left - right

	doc.SetFont("Arial", "B", 9)
	natural := make([]float64, len(data.Columns))
	for i, col := range data.Columns {
		natural[i] = doc.GetStringWidth(col)
	}
	doc.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i := range data.Columns {
			if w := doc.GetStringWidth(data.cell(row, i)); w > natural[i] {
				natural[i] = w
			}
		}
	}

	var total float64
	for i := range natural {
		natural[i] += 2 * pdfCellPad
		if natural[i] < pdfMinColumn {
			natural[i] = pdfMinColumn
		}
		total += natural[i]
	}
	for i := range natural {
		natural[i] = natural[i] / total * usable
	}
	return natural
}

// fit trims text that would overflow its cell and marks the cut.
func fit(doc *gofpdf.Fpdf, text string, width float64) string {
	limit := width - 2*pdfCellPad
	if doc.GetStringWidth(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && doc.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
