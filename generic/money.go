/*
Package generic provides the domain-agnostic core of the net-pay engine.

PURPOSE:
  This package contains the building blocks that do not depend on any one
  country's payroll rules: decimal money helpers, progressive bracket
  taxation, year-versioned parameter tables and the line-item trace used to
  explain a calculation step by step.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money is a decimal.Decimal. Floats never carry currency values.
  - Cents(): every derived amount is rounded to 2 places where it is computed,
    and later steps consume the rounded value.
  - FormatCurrency(): the fixed-locale (es-PE) rendering shared by the
    breakdown formulas and the text/PDF reports.

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, conversion from float only at the
     edges (parameter documents, HTTP requests).
  2. One rounding rule: half away from zero, 2 places.
  3. Determinism: formatting does not depend on the host locale.

SEE ALSO:
  - bracket.go: Progressive tax over UIT-scaled brackets
  - table.go: Year-versioned parameter lookup with fallback
  - trace.go: Line items for breakdowns
*/
package generic

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// MonthsPerYear is used for every annual <-> monthly conversion.
	MonthsPerYear = 12

	// MoneyPlaces is the number of decimal places kept on derived amounts.
	MoneyPlaces = 2

	// CurrencySymbol prefixes every rendered amount.
	CurrencySymbol = "S/"
)

var (
	months  = decimal.NewFromInt(MonthsPerYear)
	hundred = decimal.NewFromInt(100)
)

// es-PE groups thousands with "," and uses "." for decimals, which is the
// same rendering as en-US.
var printer = message.NewPrinter(language.AmericanEnglish)

// =============================================================================
// CONSTRUCTION
// =============================================================================

// NewMoney converts a float coming from an outer layer into a decimal amount.
func NewMoney(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// MustParseDecimal parses s, returning zero on malformed input.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// ARITHMETIC HELPERS
// =============================================================================

// Cents rounds d to MoneyPlaces, half away from zero.
func Cents(d decimal.Decimal) decimal.Decimal { return d.Round(MoneyPlaces) }

// NonNegative clamps negative values to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Annualize multiplies a monthly amount by 12.
func Annualize(monthly decimal.Decimal) decimal.Decimal { return monthly.Mul(months) }

// Monthly spreads an annual amount evenly over 12 months, rounded to cents.
func Monthly(annual decimal.Decimal) decimal.Decimal { return Cents(annual.Div(months)) }

// =============================================================================
// FORMATTING
// =============================================================================

// FormatNumber renders d with thousands grouping and at most 2 decimals,
// dropping trailing zeros: 36050 -> "36,050", 397.5 -> "397.5".
func FormatNumber(d decimal.Decimal) string {
	return printer.Sprint(number.Decimal(Cents(d).InexactFloat64(),
		number.MinFractionDigits(0), number.MaxFractionDigits(MoneyPlaces)))
}

// FormatCurrency renders d as "S/ 1,234.5". Negative amounts carry a leading
// minus: "- S/ 397.5".
func FormatCurrency(d decimal.Decimal) string {
	if d.IsNegative() {
		return "- " + CurrencySymbol + " " + FormatNumber(d.Abs())
	}
	return CurrencySymbol + " " + FormatNumber(d)
}

// FormatRate renders a fractional rate as a percentage: 0.1325 -> "13.25%".
func FormatRate(rate decimal.Decimal) string {
	s := rate.Mul(hundred).String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s + "%"
}
