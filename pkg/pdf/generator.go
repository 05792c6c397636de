package pdf

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Color represents an RGB color
type Color struct {
	R, G, B int
}

// Options configures document generation
type Options struct {
	PageSize       string
	Title          string
	Subtitle       string
	DateFormat     string
	HeaderColor    Color
	AlternateColor Color
	FontFamily     string
	FontSize       float64
	TitleFontSize  float64
	Margin         float64
	Footer         string
}

// DefaultOptions returns default options
func DefaultOptions() Options {
	return Options{
		PageSize:       "A4",
		Title:          "Document",
		DateFormat:     "Jan 2, 2006",
		HeaderColor:    Color{R: 37, G: 99, B: 235},
		AlternateColor: Color{R: 243, G: 244, B: 246},
		FontFamily:     "Arial",
		FontSize:       10,
		TitleFontSize:  18,
		Margin:         15,
	}
}

// Field is a label/value pair in a details section.
type Field struct {
	Label string
	Value string
}

// LineItem is one row of an amounts table.
type LineItem struct {
	Description string
	Amount      float64
}

// Generator builds a single PDF document
type Generator struct {
	pdf     *gofpdf.Fpdf
	options Options
}

// NewGenerator creates a generator and starts the first page.
func NewGenerator(options Options) *Generator {
	p := gofpdf.New("P", "mm", options.PageSize, "")
	p.SetMargins(options.Margin, options.Margin+5, options.Margin)
	p.SetAutoPageBreak(true, options.Margin+5)

	g := &Generator{pdf: p, options: options}
	g.setFooter()
	p.AddPage()
	g.addTitle()
	return g
}

func (g *Generator) addTitle() {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.TitleFontSize)
	g.pdf.SetTextColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	g.pdf.CellFormat(0, 10, g.options.Title, "", 1, "L", false, 0, "")

	if g.options.Subtitle != "" {
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize+1)
		g.pdf.SetTextColor(100, 100, 100)
		g.pdf.CellFormat(0, 7, g.options.Subtitle, "", 1, "L", false, 0, "")
	}
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.Ln(4)
}

// AddSection adds a heading followed by label/value rows, in order.
func (g *Generator) AddSection(title string, fields []Field) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+2)
	g.pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
	g.pdf.Ln(2)

	for _, f := range fields {
		g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize)
		g.pdf.CellFormat(50, 6, f.Label, "", 0, "L", false, 0, "")
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
		g.pdf.CellFormat(0, 6, f.Value, "", 1, "L", false, 0, "")
	}
	g.pdf.Ln(4)
}

// AddAmounts renders line items and a bold total row.
func (g *Generator) AddAmounts(currency string, items []LineItem, totalLabel string, total float64) {
	pageWidth, _ := g.pdf.GetPageSize()
	amountWidth := 40.0
	descWidth := pageWidth - 2*g.options.Margin - amountWidth

	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize)
	g.pdf.SetFillColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	g.pdf.SetTextColor(255, 255, 255)
	g.pdf.CellFormat(descWidth, 8, "Description", "1", 0, "L", true, 0, "")
	g.pdf.CellFormat(amountWidth, 8, "Amount", "1", 1, "R", true, 0, "")

	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(0, 0, 0)
	for i, item := range items {
		if i%2 == 1 {
			g.pdf.SetFillColor(g.options.AlternateColor.R, g.options.AlternateColor.G, g.options.AlternateColor.B)
		} else {
			g.pdf.SetFillColor(255, 255, 255)
		}
		g.pdf.CellFormat(descWidth, 7, item.Description, "1", 0, "L", true, 0, "")
		g.pdf.CellFormat(amountWidth, 7, FormatMoney(currency, item.Amount), "1", 1, "R", true, 0, "")
	}

	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+1)
	g.pdf.CellFormat(descWidth, 8, totalLabel, "1", 0, "R", false, 0, "")
	g.pdf.CellFormat(amountWidth, 8, FormatMoney(currency, total), "1", 1, "R", false, 0, "")
	g.pdf.Ln(4)
}

// AddNote adds a wrapped paragraph in a muted color.
func (g *Generator) AddNote(text string) {
	g.pdf.SetFont(g.options.FontFamily, "I", g.options.FontSize-1)
	g.pdf.SetTextColor(110, 110, 110)
	g.pdf.MultiCell(0, 5, text, "", "L", false)
	g.pdf.SetTextColor(0, 0, 0)
}

// FormatDate formats t with the configured layout, empty for the zero time.
func (g *Generator) FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(g.options.DateFormat)
}

func (g *Generator) setFooter() {
	g.pdf.SetFooterFunc(func() {
		g.pdf.SetY(-15)
		g.pdf.SetFont(g.options.FontFamily, "", 8)
		g.pdf.SetTextColor(128, 128, 128)
		text := fmt.Sprintf("Page %d", g.pdf.PageNo())
		if g.options.Footer != "" {
			text = g.options.Footer + "  |  " + text
		}
		g.pdf.CellFormat(0, 10, text, "", 0, "C", false, 0, "")
	})
}

// WriteTo writes the PDF to w
func (g *Generator) WriteTo(w io.Writer) error {
	return g.pdf.Output(w)
}

// Bytes returns the rendered PDF
func (g *Generator) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := g.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatMoney renders an amount with two decimals and a currency prefix.
func FormatMoney(currency string, amount float64) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%s %.2f", currency, amount)
}
