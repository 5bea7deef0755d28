// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

const (
	pdfFamily     = "Helvetica"
	pdfUTF8Family = "report"
	pdfLineHeight = 5.0
)

// drugColumns are the drug table columns and their widths in millimetres.
var drugColumns = []struct {
	title string
	width float64
	value func(types.DrugRecord) string
}{
	{"Drug", 40, func(d types.DrugRecord) string { return d.Name }},
	{"INN (EN)", 40, func(d types.DrugRecord) string { return d.InnEnglish }},
	{"Dosage", 35, func(d types.DrugRecord) string { return d.Dosage }},
	{"Route", 30, func(d types.DrugRecord) string { return d.Route }},
	{"Regimen", 35, func(d types.DrugRecord) string { return d.Frequency }},
}

// PDFRenderer lays out an analysis as an A4 PDF. Without FontPath only the
// cp1252 character set prints; a UTF-8 TrueType font is needed for Cyrillic.
type PDFRenderer struct {
	FontPath string
}

// Render writes the report: title, summary, main condition, the drug table,
// then research findings for each drug that has them.
func (r *PDFRenderer) Render(w io.Writer, doc Document) error {
	p := newPDFWriter(r.FontPath)

	p.pdf.SetTitle("Clinical protocol analysis", true)
	p.pdf.SetCreator("protocol-analyzer", true)
	p.pdf.AddPage()

	p.title("Clinical protocol analysis")

	a := doc.Analysis
	if a.Timestamp != "" {
		p.paragraph("Analysis timestamp: " + a.Timestamp)
	}
	if a.ProtocolSummary != "" {
		p.heading("Protocol summary")
		p.paragraph(a.ProtocolSummary)
	}
	if a.MainCondition != "" {
		p.heading("Main condition")
		p.paragraph(a.MainCondition)
	}
	if len(a.Drugs) > 0 {
		p.heading("Drugs")
		p.drugTable(a.Drugs)
	}

	for _, dr := range orderedResearch(doc) {
		p.research(dr)
	}

	return p.pdf.Output(w)
}

// pdfWriter wraps fpdf with the report's fonts and text translation.
type pdfWriter struct {
	pdf    *fpdf.Fpdf
	family string
	tr     func(string) string
}

func newPDFWriter(fontPath string) *pdfWriter {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")

	p := &pdfWriter{pdf: pdf, family: pdfFamily, tr: func(s string) string { return s }}
	if fontPath != "" {
		pdf.AddUTF8Font(pdfUTF8Family, "", fontPath)
		pdf.AddUTF8Font(pdfUTF8Family, "B", fontPath)
		p.family = pdfUTF8Family
	} else {
		p.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(p.family, "", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	return p
}

func (p *pdfWriter) title(s string) {
	p.pdf.SetFont(p.family, "B", 16)
	p.pdf.SetTextColor(0, 0, 0)
	p.pdf.MultiCell(0, 9, p.tr(s), "", "C", false)
	p.pdf.Ln(4)
}

func (p *pdfWriter) heading(s string) {
	p.pdf.Ln(3)
	p.pdf.SetFont(p.family, "B", 12)
	p.pdf.SetTextColor(0, 0, 0)
	p.pdf.MultiCell(0, 7, p.tr(s), "", "L", false)
}

func (p *pdfWriter) subheading(s string) {
	p.pdf.Ln(1)
	p.pdf.SetFont(p.family, "B", 10)
	p.pdf.MultiCell(0, 6, p.tr(s), "", "L", false)
}

func (p *pdfWriter) paragraph(s string) {
	p.pdf.SetFont(p.family, "", 10)
	p.pdf.SetTextColor(0, 0, 0)
	p.pdf.MultiCell(0, pdfLineHeight, p.tr(s), "", "L", false)
	p.pdf.Ln(1)
}

func (p *pdfWriter) bullet(s string) {
	p.pdf.SetFont(p.family, "", 9)
	p.pdf.MultiCell(0, pdfLineHeight, p.tr("- "+s), "", "L", false)
}

// drugTable draws the drug table with a grey header and wrapped cells.
func (p *pdfWriter) drugTable(drugs []types.DrugRecord) {
	header := make([]string, len(drugColumns))
	for i, c := range drugColumns {
		header[i] = c.title
	}
	p.tableHeader(header)

	p.pdf.SetFont(p.family, "", 8)
	for _, d := range drugs {
		cells := make([]string, len(drugColumns))
		for i, c := range drugColumns {
			cells[i] = c.value(d)
		}
		if p.needsBreak(p.rowHeight(cells)) {
			p.pdf.AddPage()
			p.tableHeader(header)
			p.pdf.SetFont(p.family, "", 8)
		}
		p.tableRow(cells, 245, 245, 220)
	}
}

func (p *pdfWriter) tableHeader(cells []string) {
	p.pdf.SetFont(p.family, "B", 9)
	p.pdf.SetTextColor(255, 255, 255)
	p.tableRow(cells, 128, 128, 128)
	p.pdf.SetTextColor(0, 0, 0)
}

// tableRow draws one row; every cell takes the height of the tallest.
func (p *pdfWriter) tableRow(cells []string, r, g, b int) {
	h := p.rowHeight(cells)
	x, y := p.pdf.GetXY()
	p.pdf.SetFillColor(r, g, b)
	for i, c := range drugColumns {
		p.pdf.Rect(x, y, c.width, h, "FD")
		p.pdf.SetXY(x, y)
		p.pdf.MultiCell(c.width, pdfLineHeight, p.tr(cells[i]), "", "L", false)
		x += c.width
	}
	p.pdf.SetXY(p.leftMargin(), y+h)
}

func (p *pdfWriter) rowHeight(cells []string) float64 {
	lines := 1
	for i, c := range drugColumns {
		n := p.lineCount(p.tr(cells[i]), c.width-2)
		if n > lines {
			lines = n
		}
	}
	return float64(lines) * pdfLineHeight
}

// lineCount estimates how many lines MultiCell needs for s at width,
// wrapping on spaces. s is already translated for the current font.
func (p *pdfWriter) lineCount(s string, width float64) int {
	lines := 0
	for _, para := range strings.Split(s, "\n") {
		n, cur := 1, 0.0
		for _, word := range strings.Fields(para) {
			ww := p.pdf.GetStringWidth(word + " ")
			if cur > 0 && cur+ww > width {
				n++
				cur = 0
			}
			cur += ww
			for cur > width {
				n++
				cur -= width
			}
		}
		lines += n
	}
	return lines
}

func (p *pdfWriter) needsBreak(h float64) bool {
	_, pageH := p.pdf.GetPageSize()
	_, _, _, bottom := p.pdf.GetMargins()
	return p.pdf.GetY()+h > pageH-bottom
}

func (p *pdfWriter) leftMargin() float64 {
	left, _, _, _ := p.pdf.GetMargins()
	return left
}

// research lists one drug's findings grouped by source.
func (p *pdfWriter) research(dr drugResearch) {
	p.heading("Research: " + drugLabel(dr.Drug))
	env := dr.Envelope
	if env.IsEmpty() {
		p.paragraph("No research findings.")
		return
	}

	if len(env.Literature) > 0 {
		p.subheading("Literature")
		for _, h := range env.Literature {
			p.bullet(fmt.Sprintf("[%s] %s. %s. %s %s. %s", h.StudyType, h.Title, h.Authors, h.Venue, h.Year, h.URL))
		}
	}
	if len(env.Trials) > 0 {
		p.subheading("Clinical trials")
		for _, h := range env.Trials {
			p.bullet(strings.Join(nonEmpty(h.TrialID, h.Title, h.Status, h.Phase, h.URL), " | "))
		}
	}
	if len(env.Regulatory) > 0 {
		p.subheading("Regulatory approvals")
		for _, h := range env.Regulatory {
			p.bullet(strings.Join(nonEmpty(h.ApplicationNumber, h.SponsorName, h.URL), " | "))
		}
	}
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
