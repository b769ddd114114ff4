/*
scenarios.go - Example calculations for demos and smoke tests

PURPOSE:

	Provides pre-built inputs that exercise each branch of the engine:
	food allowance, family allowance, EPS, the upper tax brackets and the
	RIA regime. Clients can list them and run any one without composing a
	request body.

AVAILABLE SCENARIOS:

	normal-basic:     NORMAL, S/ 3,000 with S/ 300 food vouchers
	normal-family:    Same, with family allowance
	normal-eps:       Same, health bonus at the EPS rate
	high-earner:      NORMAL, S/ 20,000 reaching the upper brackets
	ria:              RIA, S/ 10,000 with monthly aliquots

USAGE VIA API:

	GET  /api/scenarios
	POST /api/scenarios/{id}/calculate?year=2025

	The year defaults to the current one, so the result may use fallback
	parameters like any other calculation.

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description and request
 2. Nothing else; RunScenario looks it up by ID

SEE ALSO:
  - handlers.go: Calculate, which RunScenario shares its pipeline with
*/
package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO is one example calculation.
type ScenarioDTO struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Request     CalculateRequest `json:"request"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "normal-basic",
		Name:        "Régimen general",
		Description: "Sueldo de S/ 3,000 con S/ 300 en vales de alimentación",
		Category:    "NORMAL",
		Request:     CalculateRequest{BasicSalary: 3000, FoodAllowance: 300},
	},
	{
		ID:          "normal-family",
		Name:        "Régimen general con asignación familiar",
		Description: "Sueldo de S/ 3,000, vales de S/ 300 y asignación familiar",
		Category:    "NORMAL",
		Request:     CalculateRequest{BasicSalary: 3000, FoodAllowance: 300, HasFamilyAllowance: true},
	},
	{
		ID:          "normal-eps",
		Name:        "Régimen general con EPS",
		Description: "Sueldo de S/ 3,000 con bonificación extraordinaria a la tasa EPS",
		Category:    "NORMAL",
		Request:     CalculateRequest{BasicSalary: 3000, FoodAllowance: 300, HealthScheme: "EPS"},
	},
	{
		ID:          "high-earner",
		Name:        "Sueldo alto",
		Description: "Sueldo de S/ 20,000 que alcanza los tramos superiores del impuesto",
		Category:    "NORMAL",
		Request:     CalculateRequest{BasicSalary: 20000},
	},
	{
		ID:          "ria",
		Name:        "Remuneración integral anual",
		Description: "Sueldo de S/ 10,000 con gratificación, bonificación y CTS prorrateadas",
		Category:    "RIA",
		Request:     CalculateRequest{BasicSalary: 10000, Regime: "RIA"},
	},
}

func findScenario(id string) (ScenarioDTO, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return ScenarioDTO{}, false
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// RunScenario calculates one scenario. The optional year query parameter
// overrides the scenario's year.
func (h *Handler) RunScenario(w http.ResponseWriter, r *http.Request) {
	scenario, ok := findScenario(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Scenario not found", nil)
		return
	}

	req := scenario.Request
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Year must be a number", err)
			return
		}
		req.Year = year
	}

	res, ok := h.run(w, r, req)
	if !ok {
		return
	}
	id := uuid.NewString()
	w.Header().Set("X-Calculation-ID", id)
	writeJSON(w, http.StatusOK, NewCalculationDTO(id, res))
}
