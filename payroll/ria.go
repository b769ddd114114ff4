package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/netpay-engine/generic"
)

// =============================================================================
// RIA - Integral remuneration regime
// =============================================================================
//
// Under RIA the gratifications, the health bonus and the CTS severance
// deposit are not paid as lump sums. Their monthly equivalents ("aliquots")
// are added to every paycheck instead:
//
//   baseSF = basic + family allowance
//   grati  = baseSF / 6
//   bono   = baseSF x healthRate / 12   (zero unless IncludeHealthBonusEquiv)
//   cts    = (baseSF + grati) / 12
//
// The gratification aliquot is taxable; the bono and CTS aliquots are not.

var (
	gratiDivisor = decimal.NewFromInt(6)
	months       = decimal.NewFromInt(generic.MonthsPerYear)
)

// riaAliquots computes the monthly aliquots for a base salary.
func riaAliquots(baseSF, healthRate decimal.Decimal, includeBono bool) RIADetail {
	d := RIADetail{BaseSF: baseSF}
	d.GratiAliquot = generic.Cents(baseSF.Div(gratiDivisor))
	if includeBono {
		d.BonoAliquot = generic.Cents(baseSF.Mul(healthRate).Div(months))
	}
	d.CTSAliquot = generic.Cents(baseSF.Add(d.GratiAliquot).Div(months))
	return d
}

// applyRIA folds the aliquots into the monthly amounts. Discrete bonuses and
// the annual health bonus are zero under this regime.
func applyRIA(r *Results) {
	detail := riaAliquots(r.MonthlyTaxableIncome, r.HealthRate, r.Params.IncludeHealthBonusEquiv)

	r.GrossMonthlySalary = r.GrossMonthlySalary.Add(detail.Total())
	r.MonthlyTaxableIncome = detail.BaseSF.Add(detail.GratiAliquot)

	r.TotalBonuses = decimal.Zero
	r.HealthBonus = decimal.Zero
	r.TotalAnnualTaxableIncome = generic.Annualize(r.MonthlyTaxableIncome)
	r.Detail = detail
}
