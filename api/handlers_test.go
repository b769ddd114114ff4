/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Calculation endpoints (JSON, text, PDF)
- Validation and error status mapping
- Parameter inspection endpoints
- Middleware (body limit, security headers, metrics)
*/
package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/netpay-engine/factory"
	"github.com/warp/netpay-engine/metrics"
	"github.com/warp/netpay-engine/payroll"
)

func newTestServer(t *testing.T, m *metrics.Metrics) (*Handler, http.Handler) {
	t.Helper()
	table, err := factory.NewParameterFactory().Default()
	require.NoError(t, err)

	h := NewHandler(table, m, nil)
	h.now = func() time.Time { return time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC) }
	return h, NewRouter(h, RouterOptions{MaxBodyBytes: 4096})
}

func post(t *testing.T, srv http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, srv http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// =============================================================================
// CALCULATIONS
// =============================================================================

func TestCalculate_NormalScenario(t *testing.T) {
	// GIVEN: The embedded parameters
	// WHEN: A NORMAL employee earning 3000 with 300 food allowance is calculated
	// THEN: The monthly net is 2862.83 with a full breakdown

	_, srv := newTestServer(t, nil)

	rec := post(t, srv, "/api/calculations",
		`{"basic_salary":3000,"food_allowance":300,"year":2025,"regime":"NORMAL","health_scheme":"ESSALUD"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	dto := decode[CalculationDTO](t, rec)
	assert.NotEmpty(t, dto.CalculationID)
	assert.Equal(t, dto.CalculationID, rec.Header().Get("X-Calculation-ID"))
	assert.Equal(t, 2025, dto.EffectiveYear)
	assert.False(t, dto.Fallback)
	assert.Empty(t, dto.Warning)

	assert.Equal(t, "3300", dto.Monthly.Gross.String())
	assert.Equal(t, "397.5", dto.Monthly.Pension.String())
	assert.Equal(t, "39.67", dto.Monthly.IncomeTax.String())
	assert.Equal(t, "2862.83", dto.Monthly.Net.String())
	assert.Equal(t, "476", dto.Annual.IncomeTax.String())
	assert.Equal(t, "40894", dto.Annual.Net.String())

	require.NotNil(t, dto.Normal)
	assert.Nil(t, dto.RIA)
	assert.Equal(t, "3000", dto.Normal.ChristmasBonus.String())
	assert.NotEmpty(t, dto.Breakdown.Monthly)
	assert.NotEmpty(t, dto.Breakdown.Annual)
	assert.NotEmpty(t, dto.Breakdown.Brackets)
}

func TestCalculate_MoneyIsSerializedAsDecimalStrings(t *testing.T) {
	_, srv := newTestServer(t, nil)

	rec := post(t, srv, "/api/calculations", `{"basic_salary":3000,"food_allowance":300,"year":2025}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, rec.Body.String(), `"net":"2862.83"`)
}

func TestCalculate_DefaultsRegimeSchemeAndYear(t *testing.T) {
	// GIVEN: A body with only the salary
	// WHEN: Calculated on 2025-06-01
	// THEN: NORMAL, ESSALUD and the current year are used

	_, srv := newTestServer(t, nil)

	rec := post(t, srv, "/api/calculations", `{"basic_salary":3000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	dto := decode[CalculationDTO](t, rec)
	assert.Equal(t, "NORMAL", dto.Inputs.Regime)
	assert.Equal(t, "ESSALUD", dto.Inputs.HealthScheme)
	assert.Equal(t, 2025, dto.Inputs.Year)
	assert.Equal(t, "0.09", dto.Annual.HealthRate.String())
}

func TestCalculate_RIA(t *testing.T) {
	_, srv := newTestServer(t, nil)

	rec := post(t, srv, "/api/calculations", `{"basic_salary":10000,"year":2025,"regime":"ria"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	dto := decode[CalculationDTO](t, rec)
	assert.Nil(t, dto.Normal)
	require.NotNil(t, dto.RIA)
	assert.Equal(t, "12713.89", dto.Monthly.Gross.String())
	assert.Equal(t, "10356.39", dto.Monthly.Net.String())
	assert.True(t, dto.Annual.TotalBonuses.IsZero())
}

func TestCalculate_FallbackYear(t *testing.T) {
	// GIVEN: No data for 2030
	// WHEN: 2030 is requested
	// THEN: 2025 data is used and flagged

	_, srv := newTestServer(t, nil)

	rec := post(t, srv, "/api/calculations", `{"basic_salary":3000,"food_allowance":300,"year":2030}`)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[CalculationDTO](t, rec)
	assert.Equal(t, 2030, dto.Inputs.Year)
	assert.Equal(t, 2025, dto.EffectiveYear)
	assert.True(t, dto.Fallback)
	assert.Equal(t, "Usando parámetros del año 2025", dto.Warning)
	assert.Equal(t, "2862.83", dto.Monthly.Net.String())
}

func TestCalculate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "zero salary", body: `{"basic_salary":0}`, field: "basic_salary"},
		{name: "negative salary", body: `{"basic_salary":-100}`, field: "basic_salary"},
		{name: "negative food", body: `{"basic_salary":3000,"food_allowance":-1}`, field: "food_allowance"},
		{name: "two-digit year", body: `{"basic_salary":3000,"year":25}`, field: "year"},
		{name: "unknown regime", body: `{"basic_salary":3000,"regime":"MYPE"}`, field: "regime"},
		{name: "unknown scheme", body: `{"basic_salary":3000,"health_scheme":"SIS"}`, field: "health_scheme"},
	}

	_, srv := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, srv, "/api/calculations", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var resp struct {
				Error   string            `json:"error"`
				Code    string            `json:"code"`
				Details map[string]string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "invalid_input", resp.Code)
			assert.Contains(t, resp.Details, tt.field)
		})
	}
}

func TestCalculate_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `basic_salary=3000`},
		{name: "unknown field", body: `{"basic_salary":3000,"bonus":10}`},
		{name: "wrong type", body: `{"basic_salary":"lots"}`},
	}

	_, srv := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, srv, "/api/calculations", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid request body", decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestCalculate_ConfigurationErrorIs422(t *testing.T) {
	// GIVEN: A table with no RIA data
	// WHEN: A RIA calculation is requested
	// THEN: 422 with the configuration_error code, never a silent default

	table := payroll.NewTable(map[payroll.Regime]map[int]payroll.ParameterSet{
		payroll.RegimeNormal: {},
	})
	h := NewHandler(table, nil, nil)
	srv := NewRouter(h, RouterOptions{})

	rec := post(t, srv, "/api/calculations", `{"basic_salary":3000,"year":2025,"regime":"RIA"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "configuration_error", resp.Code)
	assert.Contains(t, resp.Details, "RIA")
}

func TestCalculate_BodyLimit(t *testing.T) {
	_, srv := newTestServer(t, nil)

	body := `{"basic_salary":3000,"regime":"` + strings.Repeat("N", 8192) + `"}`
	rec := post(t, srv, "/api/calculations", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

// =============================================================================
// EXPORTS
// =============================================================================

func TestCalculateText(t *testing.T) {
	_, srv := newTestServer(t, nil)

	rec := post(t, srv, "/api/calculations/text", `{"basic_salary":3000,"food_allowance":300,"year":2025}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2025", rec.Header().Get("X-Effective-Year"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "desglose-normal-2025.txt")

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "DESGLOSE DETALLADO - SUELDO NETO PERÚ 2025\n"))
	assert.Contains(t, body, "CÁLCULO MENSUAL:")
	assert.Contains(t, body, "S/ 2,862.83")
	assert.Contains(t, body, "Generado: 01/06/2025 10:30")
	assert.True(t, strings.HasSuffix(body, ExportFooter+"\n"))
}

func TestCalculateText_FallbackWarningHeader(t *testing.T) {
	_, srv := newTestServer(t, nil)

	rec := post(t, srv, "/api/calculations/text", `{"basic_salary":3000,"year":2031}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "2025", rec.Header().Get("X-Effective-Year"))
	assert.Contains(t, rec.Header().Get("Warning"), "2025")
}

func TestCalculatePDF(t *testing.T) {
	_, srv := newTestServer(t, nil)

	rec := post(t, srv, "/api/calculations/pdf", `{"basic_salary":3000,"food_allowance":300,"year":2025}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestCalculatePDF_ErrorsAreJSON(t *testing.T) {
	_, srv := newTestServer(t, nil)

	rec := post(t, srv, "/api/calculations/pdf", `{"basic_salary":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

// =============================================================================
// PARAMETERS
// =============================================================================

func TestListParameters(t *testing.T) {
	_, srv := newTestServer(t, nil)

	rec := get(t, srv, "/api/parameters")
	require.Equal(t, http.StatusOK, rec.Code)

	idx := decode[ParameterIndexDTO](t, rec)
	require.Len(t, idx.Regimes, 2)
	assert.Equal(t, "NORMAL", idx.Regimes[0].Regime)
	assert.Equal(t, []int{2023, 2024, 2025}, idx.Regimes[0].Years) // 2026 placeholder is empty
	assert.Equal(t, 2025, idx.Regimes[0].Latest)
	assert.Equal(t, "RIA", idx.Regimes[1].Regime)
}

func TestGetParameters(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		effective int
		fallback  bool
	}{
		{name: "exact year", path: "/api/parameters/NORMAL/2024", status: http.StatusOK, effective: 2024},
		{name: "empty placeholder falls back", path: "/api/parameters/normal/2026", status: http.StatusOK, effective: 2025, fallback: true},
		{name: "before first year uses latest", path: "/api/parameters/NORMAL/2019", status: http.StatusOK, effective: 2025, fallback: true},
		{name: "unknown regime", path: "/api/parameters/MYPE/2025", status: http.StatusNotFound},
		{name: "bad year", path: "/api/parameters/NORMAL/abc", status: http.StatusBadRequest},
	}

	_, srv := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, tt.path)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			dto := decode[ParameterSetDTO](t, rec)
			assert.Equal(t, "NORMAL", dto.Regime)
			assert.Equal(t, tt.effective, dto.EffectiveYear)
			assert.Equal(t, tt.fallback, dto.Fallback)
			assert.NotEmpty(t, dto.Parameters.Brackets)
		})
	}
}

// =============================================================================
// OPERATIONS AND MIDDLEWARE
// =============================================================================

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t, nil)

	rec := get(t, srv, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	health := decode[HealthDTO](t, rec)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, []string{"NORMAL", "RIA"}, health.Regimes)
}

func TestSecurityHeaders(t *testing.T) {
	_, srv := newTestServer(t, nil)

	rec := get(t, srv, "/healthz")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestMetricsEndpoint(t *testing.T) {
	// GIVEN: A server with metrics
	// WHEN: One good and one rejected calculation are made
	// THEN: Both outcomes appear on /metrics

	_, srv := newTestServer(t, metrics.New())

	post(t, srv, "/api/calculations", `{"basic_salary":3000,"year":2030}`)
	post(t, srv, "/api/calculations", `{"basic_salary":0,"regime":"bogus"}`)

	rec := get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `netpay_calculations_total{outcome="ok",regime="NORMAL"} 1`)
	assert.Contains(t, text, `netpay_calculations_total{outcome="invalid_input",regime="UNKNOWN"} 1`)
	assert.Contains(t, text, `netpay_parameter_fallbacks_total{regime="NORMAL"} 1`)
}

func TestMetricsEndpoint_DisabledIs404(t *testing.T) {
	_, srv := newTestServer(t, nil)

	rec := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
