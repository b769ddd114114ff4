package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BRACKET - One marginal band, expressed in multiples of a reference unit
// =============================================================================

// Bracket is a marginal tax band. Bounds are multiples of the reference unit
// (the UIT in Peru); a nil ToUnits means the band is unbounded.
type Bracket struct {
	FromUnits decimal.Decimal
	ToUnits   *decimal.Decimal
	Rate      decimal.Decimal
}

// Unbounded reports whether the bracket has no upper bound.
func (b Bracket) Unbounded() bool { return b.ToUnits == nil }

// Lower returns the bracket's lower bound in currency.
func (b Bracket) Lower(unit decimal.Decimal) decimal.Decimal {
	return b.FromUnits.Mul(unit)
}

// Upper returns the bracket's upper bound in currency, or nil when unbounded.
func (b Bracket) Upper(unit decimal.Decimal) *decimal.Decimal {
	if b.ToUnits == nil {
		return nil
	}
	u := b.ToUnits.Mul(unit)
	return &u
}

// ValidateBrackets checks that brackets are ascending, contiguous and
// non-overlapping, that only the last one is unbounded and that every rate is
// in [0, 1). The first bracket must start at zero.
func ValidateBrackets(brackets []Bracket) error {
	if len(brackets) == 0 {
		return fmt.Errorf("no brackets defined")
	}
	one := decimal.NewFromInt(1)
	for i, b := range brackets {
		if b.Rate.IsNegative() || b.Rate.GreaterThanOrEqual(one) {
			return fmt.Errorf("bracket %d: rate %s outside [0, 1)", i, b.Rate)
		}
		if i == 0 && !b.FromUnits.IsZero() {
			return fmt.Errorf("bracket 0: must start at 0, starts at %s", b.FromUnits)
		}
		if b.ToUnits != nil && !b.ToUnits.GreaterThan(b.FromUnits) {
			return fmt.Errorf("bracket %d: upper bound %s not above lower bound %s", i, *b.ToUnits, b.FromUnits)
		}
		if i == len(brackets)-1 {
			continue
		}
		if b.ToUnits == nil {
			return fmt.Errorf("bracket %d: only the last bracket may be unbounded", i)
		}
		if next := brackets[i+1]; !next.FromUnits.Equal(*b.ToUnits) {
			return fmt.Errorf("bracket %d: starts at %s, previous ends at %s", i+1, next.FromUnits, *b.ToUnits)
		}
	}
	return nil
}

// =============================================================================
// PROGRESSIVE TAX - Marginal bracket walk
// =============================================================================

// BracketSlice is the part of a taxable base that fell into one bracket.
type BracketSlice struct {
	Bracket Bracket
	Lower   decimal.Decimal
	Upper   *decimal.Decimal // nil when unbounded
	Taxable decimal.Decimal
	Tax     decimal.Decimal
}

// TaxComputation is the result of walking a base through a bracket table.
type TaxComputation struct {
	Base   decimal.Decimal
	Tax    decimal.Decimal
	Slices []BracketSlice // only brackets with a positive taxable amount
}

// Taxed returns the total amount that was assigned to brackets.
func (c TaxComputation) Taxed() decimal.Decimal {
	total := decimal.Zero
	for _, s := range c.Slices {
		total = total.Add(s.Taxable)
	}
	return total
}

// ProgressiveTax applies brackets marginally to base. Each bracket taxes
// min(remaining, width) at its own rate; the walk stops once nothing remains
// or the brackets run out. Per-bracket tax is rounded to cents and the total
// is the sum of the rounded slices.
func ProgressiveTax(base, unit decimal.Decimal, brackets []Bracket) TaxComputation {
	result := TaxComputation{Base: base, Tax: decimal.Zero}
	remaining := base

	for _, b := range brackets {
		if !remaining.IsPositive() {
			break
		}

		lower := b.Lower(unit)
		upper := b.Upper(unit)

		taxable := remaining
		if upper != nil {
			taxable = decimal.Min(remaining, upper.Sub(lower))
		}

		if taxable.IsPositive() {
			tax := Cents(taxable.Mul(b.Rate))
			result.Tax = result.Tax.Add(tax)
			result.Slices = append(result.Slices, BracketSlice{
				Bracket: b,
				Lower:   lower,
				Upper:   upper,
				Taxable: taxable,
				Tax:     tax,
			})
		}

		remaining = remaining.Sub(taxable)
	}

	return result
}
