package certdoc

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"energy-market/energy-ledger-backend/internal/ledger"
)

// Generator renders verified certificates as printable PDF documents
type Generator struct {
	options Options
}

// Options configures certificate document rendering
type Options struct {
	Title       string   `json:"title"`
	Issuer      string   `json:"issuer"`
	HeaderColor PDFColor `json:"header_color"`
	FontFamily  string   `json:"font_family"`
	DateFormat  string   `json:"date_format"`
}

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// DefaultOptions returns default rendering options
func DefaultOptions() Options {
	return Options{
		Title:       "Renewable Energy Certificate",
		Issuer:      "Energy Credit Ledger",
		HeaderColor: PDFColor{R: 34, G: 139, B: 34},
		FontFamily:  "Arial",
		DateFormat:  "2006-01-02 15:04 MST",
	}
}

// NewGenerator creates a certificate document generator
func NewGenerator(options Options) *Generator {
	return &Generator{options: options}
}

// Render produces the PDF for a verified certificate. Unverified
// certificates have no token amount to attest, so rendering them is an
// error.
func (g *Generator) Render(cert *ledger.Certificate, producer *ledger.Producer) ([]byte, error) {
	if !cert.Verified {
		return nil, fmt.Errorf("certificate %d: %w", cert.ID, ledger.ErrInvalidArgument)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFillColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(g.options.FontFamily, "B", 18)
	pdf.CellFormat(0, 16, g.options.Title, "", 1, "C", true, 0, "")

	pdf.Ln(6)
	pdf.SetTextColor(0, 0, 0)

	rows := [][2]string{
		{"Certificate ID", fmt.Sprintf("%d", cert.ID)},
		{"Producer", producer.Name},
		{"Producer Address", cert.Producer},
		{"Energy Source", string(cert.EnergySource)},
		{"Energy Produced", fmt.Sprintf("%d kWh", cert.KWHProduced)},
		{"Production Location", cert.Location},
		{"Tokens Minted", cert.TokenAmount.String()},
		{"Submitted", cert.Timestamp.Format(g.options.DateFormat)},
	}

	pdf.SetFont(g.options.FontFamily, "", 11)
	for _, row := range rows {
		pdf.SetFont(g.options.FontFamily, "B", 11)
		pdf.CellFormat(55, 9, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont(g.options.FontFamily, "", 11)
		pdf.CellFormat(0, 9, row[1], "1", 1, "L", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont(g.options.FontFamily, "I", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued by %s.", g.options.Issuer), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "This document attests a verified renewable energy production claim.", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
