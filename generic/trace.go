package generic

import "github.com/shopspring/decimal"

// =============================================================================
// LINE ITEMS - Auditable trace of a calculation
// =============================================================================

// LineKind classifies a line so consumers can re-add a sequence.
type LineKind string

const (
	LineEarning   LineKind = "earning"   // adds to pay
	LineDeduction LineKind = "deduction" // subtracts from pay (amount is negative)
	LineSubtotal  LineKind = "subtotal"  // aggregate of earlier earnings
	LineTaxBase   LineKind = "tax_base"  // step of the taxable-base derivation
	LineInfo      LineKind = "info"      // informational, not part of any sum
	LineNet       LineKind = "net"       // the sequence result
	LineBracket   LineKind = "bracket"   // tax contributed by one bracket
)

// LineItem is one step of a breakdown. Negative amounts are deductions.
type LineItem struct {
	Step        int             `json:"step"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Formula     string          `json:"formula,omitempty"`
	Rate        string          `json:"rate,omitempty"`
	Kind        LineKind        `json:"kind"`
}

// Trace numbers line items sequentially from 1 as they are added.
type Trace struct {
	items []LineItem
}

// Add appends a line and returns the trace for chaining.
func (t *Trace) Add(kind LineKind, description string, amount decimal.Decimal, formula string) *Trace {
	t.items = append(t.items, LineItem{
		Step:        len(t.items) + 1,
		Description: description,
		Amount:      amount,
		Formula:     formula,
		Kind:        kind,
	})
	return t
}

// AddRated appends a line carrying a rate label.
func (t *Trace) AddRated(kind LineKind, description string, amount decimal.Decimal, formula, rate string) *Trace {
	t.Add(kind, description, amount, formula)
	t.items[len(t.items)-1].Rate = rate
	return t
}

// Items returns a copy of the lines added so far. Never nil.
func (t *Trace) Items() []LineItem {
	out := make([]LineItem, len(t.items))
	copy(out, t.items)
	return out
}
