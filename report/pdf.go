package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/warp/netpay-engine/generic"
	"github.com/warp/netpay-engine/payroll"
)

const (
	pdfFont       = "Helvetica"
	pdfLineHeight = 6.0
	pdfAmountW    = 40.0
)

// WritePDF renders r as a one-page A4 document and streams it to w.
// opts.Title and opts.GeneratedAt behave as in the text export.
func WritePDF(w io.Writer, r *payroll.Results, opts TextOptions) error {
	if opts.Title == "" {
		opts.Title = DefaultTitle(r.EffectiveYear)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(opts.Title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// Core fonts are cp1252; translate accents, "×" and "÷".
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(pdfFont, "B", 14)
	pdf.CellFormat(0, 10, tr(opts.Title), "", 1, "L", false, 0, "")

	pdf.SetFont(pdfFont, "", 10)
	pdf.CellFormat(0, pdfLineHeight, tr(summaryLine(r)), "", 1, "L", false, 0, "")
	if r.UsedFallback() {
		pdf.SetTextColor(160, 80, 0)
		pdf.CellFormat(0, pdfLineHeight,
			tr(fmt.Sprintf("Usando parámetros del año %d", r.EffectiveYear)), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	writePDFSection(pdf, tr, sectionMonthly, r.Breakdown.Monthly)
	writePDFSection(pdf, tr, sectionAnnual, r.Breakdown.Annual)
	if len(r.Breakdown.Brackets) > 0 {
		writePDFSection(pdf, tr, sectionBrackets, r.Breakdown.Brackets)
	}

	if !opts.GeneratedAt.IsZero() {
		pdf.SetFont(pdfFont, "I", 8)
		pdf.CellFormat(0, pdfLineHeight,
			tr("Generado: "+opts.GeneratedAt.Format(GeneratedLayout)), "", 1, "L", false, 0, "")
	}
	if opts.Footer != "" {
		pdf.SetFont(pdfFont, "I", 8)
		pdf.CellFormat(0, pdfLineHeight, tr(opts.Footer), "", 1, "L", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return pdf.Output(w)
}

func summaryLine(r *payroll.Results) string {
	in := r.Inputs
	return fmt.Sprintf("Régimen %s · %s · Año %d · Sueldo básico %s",
		in.Regime, in.HealthScheme, in.Year, generic.FormatCurrency(in.BasicSalary))
}

func writePDFSection(pdf *gofpdf.Fpdf, tr func(string) string, header string, items []generic.LineItem) {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	descW := pageW - left - right - pdfAmountW

	pdf.SetFont(pdfFont, "B", 11)
	pdf.SetFillColor(230, 236, 245)
	pdf.CellFormat(0, 8, tr(header), "", 1, "L", true, 0, "")

	for _, item := range items {
		style := ""
		if item.Kind == generic.LineSubtotal || item.Kind == generic.LineNet {
			style = "B"
		}
		pdf.SetFont(pdfFont, style, 10)
		pdf.CellFormat(descW, pdfLineHeight,
			tr(fmt.Sprintf("%d. %s", item.Step, item.Description)), "", 0, "L", false, 0, "")
		pdf.CellFormat(pdfAmountW, pdfLineHeight,
			tr(generic.FormatCurrency(item.Amount)), "", 1, "R", false, 0, "")

		if item.Formula != "" {
			pdf.SetFont(pdfFont, "I", 8)
			pdf.SetTextColor(90, 90, 90)
			pdf.CellFormat(descW, 4, tr("   Fórmula: "+item.Formula), "", 1, "L", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
		}
	}
	pdf.Ln(3)
}
