package payroll

import (
	"fmt"

	"github.com/warp/netpay-engine/generic"
)

// =============================================================================
// BREAKDOWN - Step-by-step view of a finished calculation
// =============================================================================

// assembleBreakdown renders r as three line-item sequences. It only reads
// values Calculate already stored; it never recomputes an amount.
//
// In the monthly and annual sequences the earning and deduction lines add up
// to the net line.
func assembleBreakdown(r *Results) Breakdown {
	return Breakdown{
		Monthly:  monthlyLines(r),
		Annual:   annualLines(r),
		Brackets: bracketLines(r),
	}
}

func monthlyLines(r *Results) []generic.LineItem {
	in := r.Inputs
	t := &generic.Trace{}

	t.Add(generic.LineEarning, "Sueldo básico", in.BasicSalary, "")
	t.Add(generic.LineEarning, "Vales de alimentación", in.FoodAllowance, "No afecto a impuestos")
	if in.HasFamilyAllowance {
		t.Add(generic.LineEarning, "Asignación familiar", r.FamilyAllowance,
			fmt.Sprintf("Monto fijo %d", r.EffectiveYear))
	}

	if d, ok := r.Detail.(RIADetail); ok {
		base := cur(d.BaseSF)
		t.Add(generic.LineEarning, "Alícuota de gratificación", d.GratiAliquot,
			fmt.Sprintf("%s ÷ 6", base))
		if r.Params.IncludeHealthBonusEquiv {
			t.Add(generic.LineEarning, "Alícuota bono salud", d.BonoAliquot,
				fmt.Sprintf("%s × %s ÷ 12", base, generic.FormatRate(r.HealthRate)))
		}
		t.Add(generic.LineEarning, "Alícuota CTS", d.CTSAliquot,
			fmt.Sprintf("(%s + %s) ÷ 12", base, cur(d.GratiAliquot)))
	}

	t.Add(generic.LineSubtotal, "Sueldo bruto mensual", r.GrossMonthlySalary, grossFormula(r))
	t.Add(generic.LineDeduction,
		fmt.Sprintf("Descuento AFP (%s)", generic.FormatRate(r.Params.PensionBaseRate)),
		r.PensionDeduction.Neg(), pensionFormula(r))
	t.Add(generic.LineDeduction, "Impuesto 5ta categoría (mensual)",
		r.MonthlyTaxWithholding.Neg(), "Impuesto anual ÷ 12 meses")
	t.Add(generic.LineNet, "Sueldo neto mensual", r.NetMonthlySalary,
		"Sueldo bruto - AFP - Impuesto 5ta categoría")

	return t.Items()
}

func annualLines(r *Results) []generic.LineItem {
	t := &generic.Trace{}

	t.Add(generic.LineEarning, "Sueldo bruto anual (12 meses)", r.AnnualGrossIncome,
		fmt.Sprintf("%s × 12", cur(r.GrossMonthlySalary)))

	normal, isNormal := r.Detail.(NormalDetail)
	if isNormal {
		t.Add(generic.LineEarning, "Gratificación diciembre", normal.ChristmasBonus, bonusFormula(r))
		t.Add(generic.LineEarning, "Gratificación julio", normal.JulyBonus, bonusFormula(r))
		t.Add(generic.LineEarning, "Bono salud", r.HealthBonus,
			fmt.Sprintf("%s × %s", cur(r.TotalBonuses), generic.FormatRate(r.HealthRate)))
	}

	t.Add(generic.LineSubtotal, "Total ingresos anuales", r.TotalAnnualIncome,
		"Sueldo bruto anual + gratificaciones + bono salud")
	t.Add(generic.LineInfo, "Vales de alimentación anuales", r.AnnualFoodAllowance,
		fmt.Sprintf("%s × 12 (no afecto)", cur(r.Inputs.FoodAllowance)))
	t.Add(generic.LineTaxBase, "Ingresos gravables anuales", r.AnnualTaxableSalary,
		fmt.Sprintf("%s × 12", cur(r.MonthlyTaxableIncome)))
	if isNormal {
		t.Add(generic.LineTaxBase, "Gratificaciones gravables", r.TotalBonuses,
			"Gratificación julio + diciembre")
	}
	taxableFormula := "Ingresos gravables anuales"
	if isNormal {
		taxableFormula += " + gratificaciones"
	}
	t.Add(generic.LineTaxBase, "Total ingresos gravables anuales", r.TotalAnnualTaxableIncome, taxableFormula)
	t.Add(generic.LineTaxBase,
		fmt.Sprintf("Deducción %s UIT", generic.FormatNumber(r.Params.DeductionUIT)),
		r.DeductionAmount.Neg(),
		fmt.Sprintf("%s × %s", generic.FormatNumber(r.Params.DeductionUIT), cur(r.Params.UIT)))
	t.Add(generic.LineTaxBase, "Base imponible 5ta categoría", r.TaxableBase,
		"Total gravable - deducción (mínimo 0)")
	t.Add(generic.LineDeduction, "Descuento AFP anual", r.AnnualPensionDeduction.Neg(),
		fmt.Sprintf("%s × 12", cur(r.PensionDeduction)))
	t.Add(generic.LineDeduction, "Impuesto 5ta categoría anual", r.AnnualIncomeTax.Neg(),
		"Calculado por tramos progresivos")
	t.Add(generic.LineNet, "Sueldo neto anual", r.NetAnnualSalary,
		"Total ingresos anuales - AFP anual - Impuesto anual")

	return t.Items()
}

func bracketLines(r *Results) []generic.LineItem {
	t := &generic.Trace{}
	for _, s := range r.Tax.Slices {
		rate := generic.FormatRate(s.Bracket.Rate)
		t.AddRated(generic.LineBracket,
			fmt.Sprintf("Tramo %s (%s)", rate, bracketRange(s)),
			s.Tax,
			fmt.Sprintf("%s × %s", cur(s.Taxable), rate),
			rate)
	}
	return t.Items()
}

// =============================================================================
// FORMULA HELPERS
// =============================================================================

var cur = generic.FormatCurrency

func bracketRange(s generic.BracketSlice) string {
	if s.Upper == nil {
		return "más de " + cur(s.Lower)
	}
	return cur(s.Lower) + " - " + cur(*s.Upper)
}

func grossFormula(r *Results) string {
	f := "Sueldo básico + vales"
	if r.Inputs.HasFamilyAllowance {
		f += " + asignación familiar"
	}
	if _, ok := r.Detail.(RIADetail); ok {
		f += " + alícuotas"
	}
	return f
}

func bonusFormula(r *Results) string {
	if r.Inputs.HasFamilyAllowance {
		return "Sueldo básico + asignación familiar"
	}
	return "Sueldo básico"
}

func pensionFormula(r *Results) string {
	p := r.Params
	f := fmt.Sprintf("%s × %s", cur(r.Inputs.BasicSalary), generic.FormatRate(p.PensionBaseRate))
	if p.hasPensionExtra() && r.Inputs.BasicSalary.GreaterThan(p.PensionExtraCap) {
		f += fmt.Sprintf(" + exceso sobre %s × %s", cur(p.PensionExtraCap), generic.FormatRate(p.PensionExtraRate))
	}
	return f
}
