package output

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDF collects articles and writes a simple report on Close: one block per
// article with a clickable URL.
type PDF struct {
	path     string
	columns  []string
	articles []Article
}

// NewPDF writes to path on Close.
func NewPDF(path string, columns []string) *PDF {
	return &PDF{path: path, columns: columns}
}

func (p *PDF) Write(a Article) error {
	p.articles = append(p.articles, a)
	return nil
}

func (p *PDF) Close() error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, fmt.Sprintf("%d articles", len(p.articles)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, a := range p.articles {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%d.", a.Counter)), "", 1, "L", false, 0, "")
		for _, c := range p.columns {
			v := strings.TrimSpace(cell(a.Joined(c)))
			if v == "" {
				continue
			}
			pdf.SetFont("Helvetica", "B", 10)
			pdf.Write(5, tr(c+": "))
			pdf.SetFont("Helvetica", "", 10)
			pdf.Write(5, tr(v))
			pdf.Ln(5)
		}
		pdf.SetFont("Helvetica", "U", 10)
		pdf.WriteLinkString(5, tr(a.URL), a.URL)
		pdf.Ln(8)
	}
	return pdf.OutputFileAndClose(p.path)
}
