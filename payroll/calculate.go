package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/netpay-engine/generic"
)

// bonusesPerYear is the number of statutory gratifications (July, December).
var bonusesPerYear = decimal.NewFromInt(2)

// =============================================================================
// CALCULATE - Entry point
// =============================================================================

// Calculate computes net pay for in using parameters resolved from table.
//
// Negative monetary inputs are clamped to zero; a basic salary of zero is
// rejected with an InvalidInputError. When the regime has no parameter data
// at all a ConfigurationError is returned. Results are fully populated on
// success and never shared between calls.
func Calculate(in Inputs, table *Table) (*Results, error) {
	in = in.normalized()
	if !in.BasicSalary.IsPositive() {
		return nil, &generic.InvalidInputError{Field: "basic_salary", Reason: "must be greater than zero"}
	}
	if table == nil {
		return nil, &generic.ConfigurationError{Regime: string(in.Regime), Year: in.Year, Reason: "no parameter table loaded"}
	}

	params, effectiveYear, err := table.Resolve(string(in.Regime), in.Year)
	if err != nil {
		return nil, err
	}

	r := &Results{
		Inputs:        in,
		EffectiveYear: effectiveYear,
		Params:        params,
		HealthRate:    params.HealthRate(in.HealthScheme),
	}

	computeMonthly(r)
	switch in.Regime {
	case RegimeRIA:
		applyRIA(r)
	default:
		applyNormal(r)
	}
	computeTax(r)
	computeNet(r)

	r.Breakdown = assembleBreakdown(r)
	return r, nil
}

// =============================================================================
// STEPS - Each step reads earlier fields and fills its own
// =============================================================================

// computeMonthly fills the regime-independent monthly amounts.
func computeMonthly(r *Results) {
	in := r.Inputs
	p := r.Params

	r.FamilyAllowance = decimal.Zero
	if in.HasFamilyAllowance {
		r.FamilyAllowance = p.FamilyAllowance
	}

	r.GrossMonthlySalary = in.BasicSalary.Add(in.FoodAllowance).Add(r.FamilyAllowance)
	r.MonthlyTaxableIncome = in.BasicSalary.Add(r.FamilyAllowance)
	r.PensionDeduction = pension(in.BasicSalary, p)
	r.AnnualFoodAllowance = generic.Annualize(in.FoodAllowance)
}

// pension is the AFP deduction. The extra rate applies only to the part of
// the salary above the cap.
func pension(basic decimal.Decimal, p ParameterSet) decimal.Decimal {
	amount := basic.Mul(p.PensionBaseRate)
	if p.hasPensionExtra() {
		excess := generic.NonNegative(basic.Sub(p.PensionExtraCap))
		amount = amount.Add(excess.Mul(p.PensionExtraRate))
	}
	return generic.Cents(amount)
}

// applyNormal computes the two gratifications and the health bonus.
func applyNormal(r *Results) {
	bonus := r.MonthlyTaxableIncome
	r.TotalBonuses = bonus.Mul(bonusesPerYear)
	r.HealthBonus = generic.Cents(r.TotalBonuses.Mul(r.HealthRate))
	r.TotalAnnualTaxableIncome = generic.Annualize(r.MonthlyTaxableIncome).Add(r.TotalBonuses)
	r.Detail = NormalDetail{ChristmasBonus: bonus, JulyBonus: bonus}
}

// computeTax derives the taxable base and walks it through the brackets.
func computeTax(r *Results) {
	p := r.Params

	r.AnnualTaxableSalary = generic.Annualize(r.MonthlyTaxableIncome)
	r.DeductionAmount = p.DeductionAmount()
	r.TaxableBase = generic.NonNegative(r.TotalAnnualTaxableIncome.Sub(r.DeductionAmount))

	r.Tax = generic.ProgressiveTax(r.TaxableBase, p.UIT, p.Brackets)
	r.AnnualIncomeTax = r.Tax.Tax
	r.MonthlyTaxWithholding = generic.Monthly(r.AnnualIncomeTax)
}

// computeNet fills net pay. Results are not clamped: a negative net is
// reported as is.
func computeNet(r *Results) {
	r.NetMonthlySalary = r.GrossMonthlySalary.Sub(r.PensionDeduction).Sub(r.MonthlyTaxWithholding)

	r.AnnualGrossIncome = generic.Annualize(r.GrossMonthlySalary)
	r.TotalAnnualIncome = r.AnnualGrossIncome.Add(r.TotalBonuses).Add(r.HealthBonus)
	r.AnnualPensionDeduction = generic.Annualize(r.PensionDeduction)
	r.NetAnnualSalary = r.TotalAnnualIncome.Sub(r.AnnualPensionDeduction).Sub(r.AnnualIncomeTax)
}
