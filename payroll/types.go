// Package payroll implements the Peruvian net-pay calculation on top of the
// generic engine: AFP pension, gratification bonuses, health bonus and
// 5th-category income tax, for the NORMAL and RIA regimes.
package payroll

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/netpay-engine/generic"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// Regime selects the computation variant and its parameter table.
type Regime string

const (
	RegimeNormal Regime = "NORMAL"
	RegimeRIA    Regime = "RIA"
)

// ParseRegime is case-insensitive. An empty string means NORMAL.
func ParseRegime(s string) (Regime, error) {
	switch Regime(strings.ToUpper(strings.TrimSpace(s))) {
	case "", RegimeNormal:
		return RegimeNormal, nil
	case RegimeRIA:
		return RegimeRIA, nil
	}
	return "", &generic.InvalidInputError{Field: "regime", Reason: "must be NORMAL or RIA"}
}

// HealthScheme selects which health bonus rate applies.
type HealthScheme string

const (
	HealthEsSalud HealthScheme = "ESSALUD"
	HealthEPS     HealthScheme = "EPS"
)

// ParseHealthScheme is case-insensitive. An empty string means ESSALUD.
func ParseHealthScheme(s string) (HealthScheme, error) {
	switch HealthScheme(strings.ToUpper(strings.TrimSpace(s))) {
	case "", HealthEsSalud:
		return HealthEsSalud, nil
	case HealthEPS:
		return HealthEPS, nil
	}
	return "", &generic.InvalidInputError{Field: "health_scheme", Reason: "must be ESSALUD or EPS"}
}

// =============================================================================
// PARAMETERS
// =============================================================================

// DefaultHealthBonusRate applies when a set has no rate for the scheme.
var DefaultHealthBonusRate = decimal.RequireFromString("0.09")

// ParameterSet holds the legal values for one regime and year.
// Sets are shared read-only between calculations.
type ParameterSet struct {
	UIT             decimal.Decimal
	FamilyAllowance decimal.Decimal

	HealthBonusRates map[HealthScheme]decimal.Decimal
	HealthBonusRate  *decimal.Decimal // flat rate used when the scheme has no entry; nil when unset

	PensionBaseRate  decimal.Decimal
	PensionExtraRate decimal.Decimal
	PensionExtraCap  decimal.Decimal

	Brackets     []generic.Bracket
	DeductionUIT decimal.Decimal

	// RIA only: whether the health bonus is prorated into the monthly pay.
	IncludeHealthBonusEquiv bool
}

// Empty reports whether the set carries no data (a placeholder year).
func (p ParameterSet) Empty() bool {
	return p.UIT.IsZero() && len(p.Brackets) == 0
}

// Clone returns a copy that shares no maps or slices with p.
func (p ParameterSet) Clone() ParameterSet {
	if p.HealthBonusRates != nil {
		rates := make(map[HealthScheme]decimal.Decimal, len(p.HealthBonusRates))
		for scheme, r := range p.HealthBonusRates {
			rates[scheme] = r
		}
		p.HealthBonusRates = rates
	}
	if p.HealthBonusRate != nil {
		rate := *p.HealthBonusRate
		p.HealthBonusRate = &rate
	}
	if p.Brackets != nil {
		brackets := make([]generic.Bracket, len(p.Brackets))
		for i, b := range p.Brackets {
			if b.ToUnits != nil {
				to := *b.ToUnits
				b.ToUnits = &to
			}
			brackets[i] = b
		}
		p.Brackets = brackets
	}
	return p
}

// HealthRate returns the health bonus rate for scheme: the scheme's own rate,
// else the flat rate, else 9%.
func (p ParameterSet) HealthRate(scheme HealthScheme) decimal.Decimal {
	if r, ok := p.HealthBonusRates[scheme]; ok {
		return r
	}
	if p.HealthBonusRate != nil {
		return *p.HealthBonusRate
	}
	return DefaultHealthBonusRate
}

// DeductionAmount is the annual tax-free allowance: DeductionUIT x UIT.
func (p ParameterSet) DeductionAmount() decimal.Decimal {
	return generic.Cents(p.DeductionUIT.Mul(p.UIT))
}

// hasPensionExtra reports whether an extra rate applies above a cap.
func (p ParameterSet) hasPensionExtra() bool {
	return p.PensionExtraRate.IsPositive() && p.PensionExtraCap.IsPositive()
}

// Table is the regime -> year parameter table used by Calculate.
type Table = generic.Table[ParameterSet]

// NewTable builds a Table keyed by regime.
func NewTable(entries map[Regime]map[int]ParameterSet) *Table {
	raw := make(map[string]map[int]ParameterSet, len(entries))
	for regime, years := range entries {
		raw[string(regime)] = years
	}
	return generic.NewTable(raw)
}

// =============================================================================
// INPUTS
// =============================================================================

// Inputs is one calculation request. Monetary fields are monthly.
type Inputs struct {
	BasicSalary        decimal.Decimal
	FoodAllowance      decimal.Decimal // non-taxable
	HasFamilyAllowance bool
	Year               int
	Regime             Regime
	HealthScheme       HealthScheme
}

// normalized clamps negative money to zero and fills enum defaults.
func (in Inputs) normalized() Inputs {
	in.BasicSalary = generic.NonNegative(in.BasicSalary)
	in.FoodAllowance = generic.NonNegative(in.FoodAllowance)
	if in.Regime == "" {
		in.Regime = RegimeNormal
	}
	if in.HealthScheme == "" {
		in.HealthScheme = HealthEsSalud
	}
	return in
}

// =============================================================================
// RESULTS
// =============================================================================

// RegimeDetail carries the fields that only exist for one regime.
// Switch on the concrete type: NormalDetail or RIADetail.
type RegimeDetail interface {
	Regime() Regime
	isRegimeDetail()
}

// NormalDetail holds the two statutory gratifications (July, December).
type NormalDetail struct {
	ChristmasBonus decimal.Decimal
	JulyBonus      decimal.Decimal
}

func (NormalDetail) Regime() Regime { return RegimeNormal }
func (NormalDetail) isRegimeDetail() {}

// RIADetail holds the monthly aliquots that replace lump-sum bonuses.
type RIADetail struct {
	BaseSF       decimal.Decimal // basic salary + family allowance
	GratiAliquot decimal.Decimal // BaseSF / 6
	BonoAliquot  decimal.Decimal // BaseSF x health rate / 12
	CTSAliquot   decimal.Decimal // (BaseSF + GratiAliquot) / 12
}

func (RIADetail) Regime() Regime { return RegimeRIA }
func (RIADetail) isRegimeDetail() {}

// Total returns the sum of all aliquots paid each month.
func (d RIADetail) Total() decimal.Decimal {
	return d.GratiAliquot.Add(d.BonoAliquot).Add(d.CTSAliquot)
}

// Breakdown is the step-by-step trace of a calculation.
type Breakdown struct {
	Monthly  []generic.LineItem `json:"monthly_calculation"`
	Annual   []generic.LineItem `json:"annual_calculation"`
	Brackets []generic.LineItem `json:"fifth_category_details"`
}

// Results is an immutable snapshot of one calculation.
type Results struct {
	Inputs        Inputs // after clamping
	EffectiveYear int
	Params        ParameterSet

	FamilyAllowance decimal.Decimal
	HealthRate      decimal.Decimal

	// Monthly
	GrossMonthlySalary    decimal.Decimal
	MonthlyTaxableIncome  decimal.Decimal
	PensionDeduction      decimal.Decimal
	MonthlyTaxWithholding decimal.Decimal
	NetMonthlySalary      decimal.Decimal

	// Annual
	AnnualGrossIncome        decimal.Decimal // gross monthly x 12
	TotalBonuses             decimal.Decimal
	HealthBonus              decimal.Decimal
	AnnualFoodAllowance      decimal.Decimal
	TotalAnnualIncome        decimal.Decimal
	AnnualTaxableSalary      decimal.Decimal // taxable monthly x 12
	TotalAnnualTaxableIncome decimal.Decimal
	DeductionAmount          decimal.Decimal
	TaxableBase              decimal.Decimal
	AnnualPensionDeduction   decimal.Decimal
	AnnualIncomeTax          decimal.Decimal
	NetAnnualSalary          decimal.Decimal

	Tax       generic.TaxComputation
	Detail    RegimeDetail
	Breakdown Breakdown
}

// UsedFallback reports whether parameters came from a year other than the
// one requested.
func (r *Results) UsedFallback() bool {
	return r.EffectiveYear != r.Inputs.Year
}
