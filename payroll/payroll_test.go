package payroll_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/netpay-engine/generic"
	"github.com/warp/netpay-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func brackets() []generic.Bracket {
	return []generic.Bracket{
		{FromUnits: dec("0"), ToUnits: ptr("7"), Rate: dec("0.08")},
		{FromUnits: dec("7"), ToUnits: ptr("21"), Rate: dec("0.14")},
		{FromUnits: dec("21"), ToUnits: ptr("42"), Rate: dec("0.17")},
		{FromUnits: dec("42"), ToUnits: ptr("70"), Rate: dec("0.20")},
		{FromUnits: dec("70"), Rate: dec("0.30")},
	}
}

func normal2025() payroll.ParameterSet {
	return payroll.ParameterSet{
		UIT:             dec("5150"),
		FamilyAllowance: dec("102.5"),
		HealthBonusRates: map[payroll.HealthScheme]decimal.Decimal{
			payroll.HealthEsSalud: dec("0.09"),
			payroll.HealthEPS:     dec("0.0675"),
		},
		PensionBaseRate: dec("0.1325"),
		Brackets:        brackets(),
		DeductionUIT:    dec("7"),
	}
}

func ria2025() payroll.ParameterSet {
	p := normal2025()
	p.IncludeHealthBonusEquiv = true
	return p
}

func newTestTable() *payroll.Table {
	return payroll.NewTable(map[payroll.Regime]map[int]payroll.ParameterSet{
		payroll.RegimeNormal: {2025: normal2025()},
		payroll.RegimeRIA:    {2025: ria2025()},
	})
}

func inputs(basic, food string) payroll.Inputs {
	return payroll.Inputs{
		BasicSalary:   dec(basic),
		FoodAllowance: dec(food),
		Year:          2025,
		Regime:        payroll.RegimeNormal,
		HealthScheme:  payroll.HealthEsSalud,
	}
}

func calculate(t *testing.T, in payroll.Inputs) *payroll.Results {
	t.Helper()
	r, err := payroll.Calculate(in, newTestTable())
	require.NoError(t, err)
	return r
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "%s: want %s, got %s", field, want, got)
}

// =============================================================================
// NORMAL REGIME
// =============================================================================

func TestCalculate_Normal_Scenario2025(t *testing.T) {
	// GIVEN: 2025 NORMAL, ESSALUD, no family allowance, 3000 basic + 300 food
	// WHEN: Calculating
	// THEN: Tax falls entirely in the first bracket

	r := calculate(t, inputs("3000", "300"))

	assertMoney(t, "3300", r.GrossMonthlySalary, "gross")
	assertMoney(t, "3000", r.MonthlyTaxableIncome, "taxable monthly")
	assertMoney(t, "397.5", r.PensionDeduction, "pension")
	assertMoney(t, "6000", r.TotalBonuses, "bonuses")
	assertMoney(t, "540", r.HealthBonus, "health bonus")
	assertMoney(t, "42000", r.TotalAnnualTaxableIncome, "total taxable")
	assertMoney(t, "36050", r.DeductionAmount, "deduction")
	assertMoney(t, "5950", r.TaxableBase, "taxable base")
	assertMoney(t, "476", r.AnnualIncomeTax, "annual tax")
	assertMoney(t, "39.67", r.MonthlyTaxWithholding, "monthly tax")
	assertMoney(t, "2862.83", r.NetMonthlySalary, "net monthly")

	assertMoney(t, "39600", r.AnnualGrossIncome, "annual gross")
	assertMoney(t, "46140", r.TotalAnnualIncome, "total annual income")
	assertMoney(t, "3600", r.AnnualFoodAllowance, "annual food")
	assertMoney(t, "4770", r.AnnualPensionDeduction, "annual pension")
	assertMoney(t, "40894", r.NetAnnualSalary, "net annual")

	assert.Equal(t, 2025, r.EffectiveYear)
	assert.False(t, r.UsedFallback())

	detail, ok := r.Detail.(payroll.NormalDetail)
	require.True(t, ok)
	assertMoney(t, "3000", detail.ChristmasBonus, "christmas")
	assertMoney(t, "3000", detail.JulyBonus, "july")
	require.Len(t, r.Tax.Slices, 1)
}

func TestCalculate_Normal_WithFamilyAllowance(t *testing.T) {
	in := inputs("3000", "300")
	in.HasFamilyAllowance = true

	r := calculate(t, in)

	assertMoney(t, "102.5", r.FamilyAllowance, "family")
	assertMoney(t, "3402.5", r.GrossMonthlySalary, "gross")
	assertMoney(t, "3102.5", r.MonthlyTaxableIncome, "taxable monthly")
	assertMoney(t, "6205", r.TotalBonuses, "bonuses")
	assertMoney(t, "558.45", r.HealthBonus, "health bonus")
	assertMoney(t, "43435", r.TotalAnnualTaxableIncome, "total taxable")
	assertMoney(t, "7385", r.TaxableBase, "taxable base")
	assertMoney(t, "590.8", r.AnnualIncomeTax, "annual tax")
	assertMoney(t, "49.23", r.MonthlyTaxWithholding, "monthly tax")
	assertMoney(t, "2955.77", r.NetMonthlySalary, "net monthly")
}

func TestCalculate_Normal_HighSalarySpansBrackets(t *testing.T) {
	r := calculate(t, inputs("20000", "0"))

	assertMoney(t, "280000", r.TotalAnnualTaxableIncome, "total taxable")
	assertMoney(t, "243950", r.TaxableBase, "taxable base")
	require.Len(t, r.Tax.Slices, 4)
	assertMoney(t, "2884", r.Tax.Slices[0].Tax, "bracket 1")
	assertMoney(t, "10094", r.Tax.Slices[1].Tax, "bracket 2")
	assertMoney(t, "18385.5", r.Tax.Slices[2].Tax, "bracket 3")
	assertMoney(t, "5530", r.Tax.Slices[3].Tax, "bracket 4")
	assertMoney(t, "36893.5", r.AnnualIncomeTax, "annual tax")
	assertMoney(t, "3074.46", r.MonthlyTaxWithholding, "monthly tax")
	assertMoney(t, "2650", r.PensionDeduction, "pension")
	assertMoney(t, "14275.54", r.NetMonthlySalary, "net monthly")
}

func TestCalculate_LowSalaryPaysNoTax(t *testing.T) {
	// 1130 x 14 = 15,820 is below the 7 UIT deduction.
	r := calculate(t, inputs("1130", "0"))

	assert.True(t, r.TaxableBase.IsZero())
	assert.True(t, r.AnnualIncomeTax.IsZero())
	assert.Empty(t, r.Tax.Slices)
	assert.Empty(t, r.Breakdown.Brackets)
}

func TestCalculate_EPSHealthRate(t *testing.T) {
	in := inputs("3000", "0")
	in.HealthScheme = payroll.HealthEPS

	r := calculate(t, in)

	assertMoney(t, "0.0675", r.HealthRate, "health rate")
	assertMoney(t, "405", r.HealthBonus, "health bonus")
}

func TestCalculate_HealthRateDefaultsToNinePercent(t *testing.T) {
	p := normal2025()
	p.HealthBonusRates = nil
	table := payroll.NewTable(map[payroll.Regime]map[int]payroll.ParameterSet{
		payroll.RegimeNormal: {2025: p},
	})

	in := inputs("3000", "0")
	in.HealthScheme = payroll.HealthEPS
	r, err := payroll.Calculate(in, table)
	require.NoError(t, err)

	assertMoney(t, "0.09", r.HealthRate, "health rate")
	assertMoney(t, "540", r.HealthBonus, "health bonus")
}

func TestCalculate_ExplicitZeroHealthRateIsKept(t *testing.T) {
	// GIVEN: A set with no per-scheme rates and a flat rate of 0
	// WHEN: Calculating
	// THEN: No health bonus is paid; the 9% default does not apply

	p := normal2025()
	p.HealthBonusRates = nil
	zero := decimal.Zero
	p.HealthBonusRate = &zero
	table := payroll.NewTable(map[payroll.Regime]map[int]payroll.ParameterSet{
		payroll.RegimeNormal: {2025: p},
	})

	r, err := payroll.Calculate(inputs("3000", "0"), table)
	require.NoError(t, err)

	assertMoney(t, "0", r.HealthRate, "health rate")
	assertMoney(t, "0", r.HealthBonus, "health bonus")
}

func TestCalculate_ResultsDoNotShareTableState(t *testing.T) {
	// GIVEN: A calculation result
	// WHEN: Its parameter set is modified
	// THEN: The next calculation sees the table unchanged

	table := newTestTable()
	first, err := payroll.Calculate(inputs("3000", "300"), table)
	require.NoError(t, err)

	first.Params.Brackets[0].Rate = dec("0.5")
	first.Params.HealthBonusRates[payroll.HealthEsSalud] = dec("0")

	second, err := payroll.Calculate(inputs("3000", "300"), table)
	require.NoError(t, err)
	assertMoney(t, "476", second.AnnualIncomeTax, "annual tax")
	assertMoney(t, "540", second.HealthBonus, "health bonus")
}

func TestCalculate_PensionExtraAppliesOnlyAboveCap(t *testing.T) {
	p := normal2025()
	p.PensionExtraRate = dec("0.01")
	p.PensionExtraCap = dec("10000")
	table := payroll.NewTable(map[payroll.Regime]map[int]payroll.ParameterSet{
		payroll.RegimeNormal: {2025: p},
	})

	below, err := payroll.Calculate(inputs("9000", "0"), table)
	require.NoError(t, err)
	assertMoney(t, "1192.5", below.PensionDeduction, "pension below cap")

	above, err := payroll.Calculate(inputs("12000", "0"), table)
	require.NoError(t, err)
	// 12000 x 13.25% + 2000 x 1%
	assertMoney(t, "1610", above.PensionDeduction, "pension above cap")
	assert.Contains(t, above.Breakdown.Monthly[3].Formula, "exceso sobre S/ 10,000")
}

// =============================================================================
// RIA REGIME
// =============================================================================

func TestCalculate_RIA(t *testing.T) {
	in := inputs("10000", "0")
	in.Regime = payroll.RegimeRIA

	r := calculate(t, in)

	detail, ok := r.Detail.(payroll.RIADetail)
	require.True(t, ok)
	assertMoney(t, "10000", detail.BaseSF, "baseSF")
	assertMoney(t, "1666.67", detail.GratiAliquot, "grati aliquot")
	assertMoney(t, "75", detail.BonoAliquot, "bono aliquot")
	assertMoney(t, "972.22", detail.CTSAliquot, "cts aliquot")

	assertMoney(t, "12713.89", r.GrossMonthlySalary, "gross")
	assertMoney(t, "11666.67", r.MonthlyTaxableIncome, "taxable monthly")
	assert.True(t, r.TotalBonuses.IsZero())
	assert.True(t, r.HealthBonus.IsZero())
	assertMoney(t, "140000.04", r.TotalAnnualTaxableIncome, "total taxable")
	assertMoney(t, "103950.04", r.TaxableBase, "taxable base")
	assertMoney(t, "12390.01", r.AnnualIncomeTax, "annual tax")
	assertMoney(t, "1032.5", r.MonthlyTaxWithholding, "monthly tax")
	assertMoney(t, "1325", r.PensionDeduction, "pension")
	assertMoney(t, "10356.39", r.NetMonthlySalary, "net monthly")
}

func TestCalculate_RIA_WithoutHealthBonusEquivalent(t *testing.T) {
	p := ria2025()
	p.IncludeHealthBonusEquiv = false
	table := payroll.NewTable(map[payroll.Regime]map[int]payroll.ParameterSet{
		payroll.RegimeRIA: {2025: p},
	})

	in := inputs("10000", "0")
	in.Regime = payroll.RegimeRIA
	r, err := payroll.Calculate(in, table)
	require.NoError(t, err)

	detail := r.Detail.(payroll.RIADetail)
	assert.True(t, detail.BonoAliquot.IsZero())
	assertMoney(t, "12638.89", r.GrossMonthlySalary, "gross")
	for _, item := range r.Breakdown.Monthly {
		assert.NotEqual(t, "Alícuota bono salud", item.Description)
	}
}

// =============================================================================
// FALLBACK & ERRORS
// =============================================================================

func TestCalculate_YearFallback(t *testing.T) {
	// GIVEN: Parameters only for 2025
	// WHEN: Asking for 2027
	// THEN: 2025 is used and reported

	in := inputs("3000", "300")
	in.Year = 2027

	r := calculate(t, in)

	assert.Equal(t, 2025, r.EffectiveYear)
	assert.Equal(t, 2027, r.Inputs.Year)
	assert.True(t, r.UsedFallback())
	assertMoney(t, "2862.83", r.NetMonthlySalary, "net monthly")
}

func TestCalculate_NoParametersForRegime(t *testing.T) {
	table := payroll.NewTable(map[payroll.Regime]map[int]payroll.ParameterSet{
		payroll.RegimeNormal: {2025: normal2025()},
	})

	in := inputs("3000", "0")
	in.Regime = payroll.RegimeRIA
	_, err := payroll.Calculate(in, table)

	require.Error(t, err)
	assert.True(t, generic.IsConfigurationError(err))
}

func TestCalculate_NilTable(t *testing.T) {
	_, err := payroll.Calculate(inputs("3000", "0"), nil)
	assert.True(t, generic.IsConfigurationError(err))
}

func TestCalculate_RejectsNonPositiveSalary(t *testing.T) {
	for _, basic := range []string{"0", "-100"} {
		_, err := payroll.Calculate(inputs(basic, "300"), newTestTable())
		require.Error(t, err, basic)
		assert.True(t, generic.IsClientError(err), basic)

		var inputErr *generic.InvalidInputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, "basic_salary", inputErr.Field)
	}
}

func TestCalculate_ClampsNegativeFood(t *testing.T) {
	r := calculate(t, inputs("3000", "-50"))

	assert.True(t, r.Inputs.FoodAllowance.IsZero())
	assertMoney(t, "3000", r.GrossMonthlySalary, "gross")
}

func TestCalculate_EmptyEnumsDefault(t *testing.T) {
	in := inputs("3000", "300")
	in.Regime = ""
	in.HealthScheme = ""

	r := calculate(t, in)

	assert.Equal(t, payroll.RegimeNormal, r.Inputs.Regime)
	assert.Equal(t, payroll.HealthEsSalud, r.Inputs.HealthScheme)
	assertMoney(t, "2862.83", r.NetMonthlySalary, "net monthly")
}

func TestParseRegimeAndHealthScheme(t *testing.T) {
	regime, err := payroll.ParseRegime(" ria ")
	require.NoError(t, err)
	assert.Equal(t, payroll.RegimeRIA, regime)

	_, err = payroll.ParseRegime("MYPE")
	assert.True(t, generic.IsClientError(err))

	scheme, err := payroll.ParseHealthScheme("eps")
	require.NoError(t, err)
	assert.Equal(t, payroll.HealthEPS, scheme)

	scheme, err = payroll.ParseHealthScheme("")
	require.NoError(t, err)
	assert.Equal(t, payroll.HealthEsSalud, scheme)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestCalculate_FoodAllowanceIsNotTaxed(t *testing.T) {
	for _, basic := range []string{"1500", "3000", "12000", "40000"} {
		without := calculate(t, inputs(basic, "0"))
		with := calculate(t, inputs(basic, "450.75"))

		delta := dec("450.75")
		assert.True(t, with.GrossMonthlySalary.Sub(without.GrossMonthlySalary).Equal(delta), basic)
		assert.True(t, with.NetMonthlySalary.Sub(without.NetMonthlySalary).Equal(delta), basic)
		assert.True(t, with.MonthlyTaxableIncome.Equal(without.MonthlyTaxableIncome), basic)
		assert.True(t, with.PensionDeduction.Equal(without.PensionDeduction), basic)
		assert.True(t, with.AnnualIncomeTax.Equal(without.AnnualIncomeTax), basic)
		assert.True(t, with.MonthlyTaxWithholding.Equal(without.MonthlyTaxWithholding), basic)
	}
}

func TestCalculate_Monotonicity(t *testing.T) {
	// Raising the salary never lowers net pay, and the pension grows by at
	// most the combined pension rate.
	step := dec("250")
	maxPensionRate := dec("0.1325")

	for _, regime := range []payroll.Regime{payroll.RegimeNormal, payroll.RegimeRIA} {
		prev := calculate(t, payroll.Inputs{BasicSalary: dec("1000"), Year: 2025, Regime: regime})
		for basic := dec("1250"); basic.LessThanOrEqual(dec("60000")); basic = basic.Add(step) {
			cur := calculate(t, payroll.Inputs{BasicSalary: basic, Year: 2025, Regime: regime})

			assert.True(t, cur.NetMonthlySalary.GreaterThanOrEqual(prev.NetMonthlySalary),
				"%s: net fell from %s to %s at %s", regime, prev.NetMonthlySalary, cur.NetMonthlySalary, basic)
			pensionDelta := cur.PensionDeduction.Sub(prev.PensionDeduction)
			assert.True(t, pensionDelta.LessThanOrEqual(generic.Cents(step.Mul(maxPensionRate)).Add(dec("0.01"))),
				"%s: pension grew by %s at %s", regime, pensionDelta, basic)

			prev = cur
		}
	}
}

// =============================================================================
// BREAKDOWN
// =============================================================================

// netOf re-adds a sequence: earnings plus (negative) deductions.
func netOf(items []generic.LineItem) (sum, net decimal.Decimal) {
	sum = decimal.Zero
	for _, item := range items {
		switch item.Kind {
		case generic.LineEarning, generic.LineDeduction:
			sum = sum.Add(item.Amount)
		case generic.LineNet:
			net = item.Amount
		}
	}
	return sum, net
}

func assertSequential(t *testing.T, items []generic.LineItem) {
	t.Helper()
	for i, item := range items {
		assert.Equal(t, i+1, item.Step, item.Description)
	}
}

func TestBreakdown_ConsistentWithResults(t *testing.T) {
	cases := map[string]payroll.Inputs{
		"normal":        inputs("3000", "300"),
		"normal family": {BasicSalary: dec("4321.09"), FoodAllowance: dec("123.45"), HasFamilyAllowance: true, Year: 2025, Regime: payroll.RegimeNormal},
		"high":          inputs("55000", "800"),
		"ria":           {BasicSalary: dec("10000"), Year: 2025, Regime: payroll.RegimeRIA},
		"ria family":    {BasicSalary: dec("13777.77"), FoodAllowance: dec("200"), HasFamilyAllowance: true, Year: 2025, Regime: payroll.RegimeRIA, HealthScheme: payroll.HealthEPS},
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			r := calculate(t, in)
			b := r.Breakdown

			assertSequential(t, b.Monthly)
			assertSequential(t, b.Annual)
			assertSequential(t, b.Brackets)

			// Only the basic salary is a raw input; every other amount is derived.
			for _, item := range append(append([]generic.LineItem{}, b.Monthly...), b.Annual...) {
				if item.Description == "Sueldo básico" {
					continue
				}
				assert.NotEmpty(t, item.Formula, "%d. %s has no formula", item.Step, item.Description)
			}

			sum, net := netOf(b.Monthly)
			assert.True(t, net.Equal(r.NetMonthlySalary), "monthly net line %s vs %s", net, r.NetMonthlySalary)
			assert.True(t, sum.Equal(r.NetMonthlySalary), "monthly lines add to %s, net %s", sum, r.NetMonthlySalary)

			sum, net = netOf(b.Annual)
			assert.True(t, net.Equal(r.NetAnnualSalary), "annual net line %s vs %s", net, r.NetAnnualSalary)
			assert.True(t, sum.Equal(r.NetAnnualSalary), "annual lines add to %s, net %s", sum, r.NetAnnualSalary)

			bracketTax := decimal.Zero
			for _, item := range b.Brackets {
				assert.Equal(t, generic.LineBracket, item.Kind)
				assert.NotEmpty(t, item.Rate)
				bracketTax = bracketTax.Add(item.Amount)
			}
			assert.True(t, bracketTax.Equal(r.AnnualIncomeTax))
			assert.Len(t, b.Brackets, len(r.Tax.Slices))
		})
	}
}

func TestBreakdown_FamilyAllowanceLineOnlyWhenFlagged(t *testing.T) {
	hasLine := func(r *payroll.Results) bool {
		for _, item := range r.Breakdown.Monthly {
			if item.Description == "Asignación familiar" {
				return true
			}
		}
		return false
	}

	without := calculate(t, inputs("3000", "300"))
	assert.False(t, hasLine(without))

	in := inputs("3000", "300")
	in.HasFamilyAllowance = true
	assert.True(t, hasLine(calculate(t, in)))
}

func TestBreakdown_NormalScenarioLines(t *testing.T) {
	r := calculate(t, inputs("3000", "300"))
	m := r.Breakdown.Monthly

	require.Len(t, m, 6)
	assert.Equal(t, "Sueldo básico", m[0].Description)
	assert.Equal(t, "Vales de alimentación", m[1].Description)
	assert.Equal(t, "Sueldo bruto mensual", m[2].Description)
	assert.Equal(t, "Descuento AFP (13.25%)", m[3].Description)
	assertMoney(t, "-397.5", m[3].Amount, "AFP line")
	assert.Equal(t, "S/ 3,000 × 13.25%", m[3].Formula)
	assert.Equal(t, "Impuesto anual ÷ 12 meses", m[4].Formula)
	assert.Equal(t, generic.LineNet, m[5].Kind)

	var deduction generic.LineItem
	for _, item := range r.Breakdown.Annual {
		if item.Description == "Deducción 7 UIT" {
			deduction = item
		}
	}
	assertMoney(t, "-36050", deduction.Amount, "deduction line")
	assert.Equal(t, "7 × S/ 5,150", deduction.Formula)

	require.Len(t, r.Breakdown.Brackets, 1)
	br := r.Breakdown.Brackets[0]
	assert.Equal(t, "Tramo 8% (S/ 0 - S/ 36,050)", br.Description)
	assert.Equal(t, "S/ 5,950 × 8%", br.Formula)
	assert.Equal(t, "8%", br.Rate)
	assertMoney(t, "476", br.Amount, "bracket tax")
}

func TestBreakdown_UnboundedBracketDescription(t *testing.T) {
	r := calculate(t, inputs("40000", "0"))

	last := r.Breakdown.Brackets[len(r.Breakdown.Brackets)-1]
	assert.Equal(t, "Tramo 30% (más de S/ 360,500)", last.Description)
}
