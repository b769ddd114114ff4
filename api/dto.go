/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's result struct from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts in responses are decimal strings ("2862.83") so clients never see
  binary floating point. Requests accept plain JSON numbers.

VALIDATION:
  Request types carry go-playground/validator tags; handlers run them
  before calling the engine. The engine still checks its own invariants.

SEE ALSO:
  - handlers.go: Uses these types
  - payroll/types.go: Results, the source of every response field
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/netpay-engine/factory"
	"github.com/warp/netpay-engine/generic"
	"github.com/warp/netpay-engine/payroll"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CalculateRequest is the body of every POST /api/calculations* endpoint.
// Year 0 means the current year; empty enums mean NORMAL / ESSALUD.
type CalculateRequest struct {
	BasicSalary        float64 `json:"basic_salary" validate:"gt=0"`
	FoodAllowance      float64 `json:"food_allowance" validate:"gte=0"`
	HasFamilyAllowance bool    `json:"has_family_allowance"`
	Year               int     `json:"year" validate:"omitempty,gte=1000,lte=9999"`
	Regime             string  `json:"regime" validate:"omitempty,oneof=NORMAL RIA normal ria"`
	HealthScheme       string  `json:"health_scheme" validate:"omitempty,oneof=ESSALUD EPS essalud eps"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// CalculationDTO is the full result of one calculation.
type CalculationDTO struct {
	CalculationID string    `json:"calculation_id"`
	Inputs        InputsDTO `json:"inputs"`
	EffectiveYear int       `json:"effective_year"`
	Fallback      bool      `json:"fallback"`
	Warning       string    `json:"warning,omitempty"`

	Monthly MonthlyDTO `json:"monthly"`
	Annual  AnnualDTO  `json:"annual"`

	// Exactly one of these is set, matching Inputs.Regime.
	Normal *NormalDTO `json:"normal,omitempty"`
	RIA    *RIADTO    `json:"ria,omitempty"`

	Breakdown payroll.Breakdown `json:"breakdown"`
}

// InputsDTO echoes the inputs after clamping and defaulting.
type InputsDTO struct {
	BasicSalary        decimal.Decimal `json:"basic_salary"`
	FoodAllowance      decimal.Decimal `json:"food_allowance"`
	HasFamilyAllowance bool            `json:"has_family_allowance"`
	Year               int             `json:"year"`
	Regime             string          `json:"regime"`
	HealthScheme       string          `json:"health_scheme"`
}

// MonthlyDTO holds the monthly figures.
type MonthlyDTO struct {
	FamilyAllowance decimal.Decimal `json:"family_allowance"`
	Gross           decimal.Decimal `json:"gross"`
	TaxableIncome   decimal.Decimal `json:"taxable_income"`
	Pension         decimal.Decimal `json:"pension_deduction"`
	IncomeTax       decimal.Decimal `json:"income_tax"`
	Net             decimal.Decimal `json:"net"`
}

// AnnualDTO holds the annual figures.
type AnnualDTO struct {
	GrossIncome        decimal.Decimal `json:"gross_income"`
	TotalBonuses       decimal.Decimal `json:"total_bonuses"`
	HealthBonus        decimal.Decimal `json:"health_bonus"`
	HealthRate         decimal.Decimal `json:"health_rate"`
	FoodAllowance      decimal.Decimal `json:"food_allowance"`
	TotalIncome        decimal.Decimal `json:"total_income"`
	TaxableSalary      decimal.Decimal `json:"taxable_salary"`
	TotalTaxableIncome decimal.Decimal `json:"total_taxable_income"`
	Deduction          decimal.Decimal `json:"deduction"`
	TaxableBase        decimal.Decimal `json:"taxable_base"`
	Pension            decimal.Decimal `json:"pension_deduction"`
	IncomeTax          decimal.Decimal `json:"income_tax"`
	Net                decimal.Decimal `json:"net"`
}

// NormalDTO holds the NORMAL-only gratifications.
type NormalDTO struct {
	ChristmasBonus decimal.Decimal `json:"christmas_bonus"`
	JulyBonus      decimal.Decimal `json:"july_bonus"`
}

// RIADTO holds the RIA monthly aliquots.
type RIADTO struct {
	BaseSF       decimal.Decimal `json:"base_sf"`
	GratiAliquot decimal.Decimal `json:"grati_aliquot"`
	BonoAliquot  decimal.Decimal `json:"bono_aliquot"`
	CTSAliquot   decimal.Decimal `json:"cts_aliquot"`
}

// ParameterIndexDTO lists the data available per regime.
type ParameterIndexDTO struct {
	Regimes []RegimeYearsDTO `json:"regimes"`
}

// RegimeYearsDTO lists the years with data for one regime.
type RegimeYearsDTO struct {
	Regime string `json:"regime"`
	Years  []int  `json:"years"`
	Latest int    `json:"latest"`
}

// ParameterSetDTO is a resolved parameter set.
type ParameterSetDTO struct {
	Regime        string          `json:"regime"`
	RequestedYear int             `json:"requested_year"`
	EffectiveYear int             `json:"effective_year"`
	Fallback      bool            `json:"fallback"`
	Parameters    factory.SetJSON `json:"parameters"`
}

// HealthDTO is the liveness response.
type HealthDTO struct {
	Status  string   `json:"status"`
	Regimes []string `json:"regimes"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toInputs(req CalculateRequest, defaultYear int) (payroll.Inputs, error) {
	regime, err := payroll.ParseRegime(req.Regime)
	if err != nil {
		return payroll.Inputs{}, err
	}
	scheme, err := payroll.ParseHealthScheme(req.HealthScheme)
	if err != nil {
		return payroll.Inputs{}, err
	}
	year := req.Year
	if year == 0 {
		year = defaultYear
	}
	return payroll.Inputs{
		BasicSalary:        generic.NewMoney(req.BasicSalary),
		FoodAllowance:      generic.NewMoney(req.FoodAllowance),
		HasFamilyAllowance: req.HasFamilyAllowance,
		Year:               year,
		Regime:             regime,
		HealthScheme:       scheme,
	}, nil
}

// NewCalculationDTO converts an engine result to its API form.
func NewCalculationDTO(id string, r *payroll.Results) CalculationDTO {
	in := r.Inputs
	dto := CalculationDTO{
		CalculationID: id,
		Inputs: InputsDTO{
			BasicSalary:        in.BasicSalary,
			FoodAllowance:      in.FoodAllowance,
			HasFamilyAllowance: in.HasFamilyAllowance,
			Year:               in.Year,
			Regime:             string(in.Regime),
			HealthScheme:       string(in.HealthScheme),
		},
		EffectiveYear: r.EffectiveYear,
		Fallback:      r.UsedFallback(),
		Monthly: MonthlyDTO{
			FamilyAllowance: r.FamilyAllowance,
			Gross:           r.GrossMonthlySalary,
			TaxableIncome:   r.MonthlyTaxableIncome,
			Pension:         r.PensionDeduction,
			IncomeTax:       r.MonthlyTaxWithholding,
			Net:             r.NetMonthlySalary,
		},
		Annual: AnnualDTO{
			GrossIncome:        r.AnnualGrossIncome,
			TotalBonuses:       r.TotalBonuses,
			HealthBonus:        r.HealthBonus,
			HealthRate:         r.HealthRate,
			FoodAllowance:      r.AnnualFoodAllowance,
			TotalIncome:        r.TotalAnnualIncome,
			TaxableSalary:      r.AnnualTaxableSalary,
			TotalTaxableIncome: r.TotalAnnualTaxableIncome,
			Deduction:          r.DeductionAmount,
			TaxableBase:        r.TaxableBase,
			Pension:            r.AnnualPensionDeduction,
			IncomeTax:          r.AnnualIncomeTax,
			Net:                r.NetAnnualSalary,
		},
		Breakdown: r.Breakdown,
	}
	if dto.Fallback {
		dto.Warning = fallbackWarning(r.EffectiveYear)
	}

	switch d := r.Detail.(type) {
	case payroll.NormalDetail:
		dto.Normal = &NormalDTO{ChristmasBonus: d.ChristmasBonus, JulyBonus: d.JulyBonus}
	case payroll.RIADetail:
		dto.RIA = &RIADTO{
			BaseSF:       d.BaseSF,
			GratiAliquot: d.GratiAliquot,
			BonoAliquot:  d.BonoAliquot,
			CTSAliquot:   d.CTSAliquot,
		}
	}
	return dto
}
