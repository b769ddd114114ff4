/*
Package report renders a calculation breakdown for people: a deterministic
plain-text export and a one-page PDF.

Both renderings read only payroll.Breakdown / payroll.Results; they never
compute amounts. Currency uses generic.FormatCurrency so the text, the PDF
and the breakdown formulas agree character for character.

SEE ALSO:
  - payroll/breakdown.go: Builds the line items
  - api/handlers.go: Serves both renderings over HTTP
*/
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/warp/netpay-engine/generic"
	"github.com/warp/netpay-engine/payroll"
)

const (
	sectionMonthly  = "CÁLCULO MENSUAL:"
	sectionAnnual   = "CÁLCULO ANUAL:"
	sectionBrackets = "DESGLOSE 5TA CATEGORÍA:"

	// GeneratedLayout formats the optional footer timestamp.
	GeneratedLayout = "02/01/2006 15:04"
)

// TextOptions controls the parts of the text export that are not part of
// the breakdown itself.
type TextOptions struct {
	Title       string    // first line; DefaultTitle when empty
	GeneratedAt time.Time // "Generado:" footer, omitted when zero
	Footer      string    // trailing line, omitted when empty
}

// DefaultTitle is the heading used when TextOptions.Title is empty.
func DefaultTitle(year int) string {
	return fmt.Sprintf("DESGLOSE DETALLADO - SUELDO NETO PERÚ %d", year)
}

// Text renders b as plain text. The output depends only on b and opts.
func Text(b payroll.Breakdown, opts TextOptions) string {
	var sb strings.Builder

	sb.WriteString(opts.Title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 50))
	sb.WriteString("\n\n")

	writeSection(&sb, sectionMonthly, 20, b.Monthly)
	writeSection(&sb, sectionAnnual, 20, b.Annual)
	if len(b.Brackets) > 0 {
		writeSection(&sb, sectionBrackets, 25, b.Brackets)
	}

	if !opts.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "Generado: %s\n", opts.GeneratedAt.Format(GeneratedLayout))
	}
	if opts.Footer != "" {
		sb.WriteString(opts.Footer)
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteText renders the breakdown of r to w, titled for its effective year
// unless opts sets a title.
func WriteText(w io.Writer, r *payroll.Results, opts TextOptions) error {
	if opts.Title == "" {
		opts.Title = DefaultTitle(r.EffectiveYear)
	}
	_, err := io.WriteString(w, Text(r.Breakdown, opts))
	return err
}

func writeSection(sb *strings.Builder, header string, rule int, items []generic.LineItem) {
	sb.WriteString(header)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", rule))
	sb.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(sb, "%d. %s: %s\n", item.Step, item.Description, generic.FormatCurrency(item.Amount))
		if item.Formula != "" {
			fmt.Fprintf(sb, "   Fórmula: %s\n", item.Formula)
		}
	}
	sb.WriteString("\n")
}
