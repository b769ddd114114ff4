/*
handlers.go - HTTP API handlers for the net-pay calculator

PURPOSE:
  Exposes the calculation engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the payroll and report packages.

ENDPOINTS:
  Calculations:
    POST   /api/calculations            JSON result with breakdown
    POST   /api/calculations/text       Plain-text breakdown export
    POST   /api/calculations/pdf        PDF breakdown export

  Parameters:
    GET    /api/parameters                  Regimes and years with data
    GET    /api/parameters/{regime}/{year}  Resolved set and effective year

  Scenarios (scenarios.go):
    GET    /api/scenarios               Example inputs
    POST   /api/scenarios/{id}/calculate  Run one example

  Operations:
    GET    /healthz                     Liveness
    GET    /metrics                     Prometheus exposition

ARCHITECTURE:
  Handler struct holds all dependencies:
  - table: read-only parameter table, shared by every request and
    replaced atomically by the ParameterReloader
  - Factory: converts parameter sets back to their document form
  - Metrics and Logger: nil-safe / no-op when not configured

REQUEST FLOW:
  1. Decode body (unknown fields rejected)
  2. Validate tags
  3. Call payroll.Calculate
  4. Serialize JSON, text or PDF
  5. Map errors to status codes

ERROR HANDLING:
  - 400: Malformed body, validation errors, InvalidInputError
  - 404: Unknown regime or no data for it
  - 413: Body larger than the configured limit
  - 422: ConfigurationError (no usable parameter data)
  - 500: Anything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Background parameter reloader
*/
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/netpay-engine/factory"
	"github.com/warp/netpay-engine/generic"
	"github.com/warp/netpay-engine/metrics"
	"github.com/warp/netpay-engine/payroll"
	"github.com/warp/netpay-engine/report"
)

// ExportFooter closes every text and PDF export.
const ExportFooter = "Calculadora Sueldo Neto Perú"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Factory *factory.ParameterFactory
	Metrics *metrics.Metrics
	Logger  *zap.Logger

	// Swapped whole by the reloader; readers never see a partial table.
	table atomic.Pointer[payroll.Table]

	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a handler serving calculations against table.
// m and logger may be nil.
func NewHandler(table *payroll.Table, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		Factory:  factory.NewParameterFactory(),
		Metrics:  m,
		Logger:   logger,
		validate: newValidator(),
		now:      time.Now,
	}
	h.SetTable(table)
	return h
}

// Table returns the parameter table currently served.
func (h *Handler) Table() *payroll.Table {
	return h.table.Load()
}

// SetTable replaces the parameter table for subsequent requests.
func (h *Handler) SetTable(table *payroll.Table) {
	h.table.Store(table)
}

// newValidator reports json field names instead of Go field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// Calculate returns the full result as JSON.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	res, ok := h.calculate(w, r)
	if !ok {
		return
	}
	id := uuid.NewString()
	w.Header().Set("X-Calculation-ID", id)
	writeJSON(w, http.StatusOK, NewCalculationDTO(id, res))
}

// CalculateText returns the plain-text breakdown export.
func (h *Handler) CalculateText(w http.ResponseWriter, r *http.Request) {
	res, ok := h.calculate(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteText(&buf, res, h.exportOptions()); err != nil {
		h.internalError(w, r, "Failed to render text export", err)
		return
	}

	h.exportHeaders(w, res)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", exportFilename(res, "txt"))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// CalculatePDF returns the breakdown as a one-page PDF.
func (h *Handler) CalculatePDF(w http.ResponseWriter, r *http.Request) {
	res, ok := h.calculate(w, r)
	if !ok {
		return
	}

	// Rendered to memory first so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := report.WritePDF(&buf, res, h.exportOptions()); err != nil {
		h.internalError(w, r, "Failed to render PDF export", err)
		return
	}

	h.exportHeaders(w, res)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", exportFilename(res, "pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// calculate decodes, validates and runs one calculation. On failure it has
// already written the error response.
func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) (*payroll.Results, bool) {
	var req CalculateRequest
	if err := decodeJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", err)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}
	return h.run(w, r, req)
}

// run validates req and calls the engine. On failure it has already written
// the error response.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, req CalculateRequest) (*payroll.Results, bool) {
	if err := h.validate.Struct(req); err != nil {
		h.observe(req.Regime, metrics.OutcomeInvalidInput, nil, 0)
		writeErrorCode(w, http.StatusBadRequest, "Validation failed", "invalid_input", validationDetails(err))
		return nil, false
	}

	in, err := toInputs(req, h.now().Year())
	if err != nil {
		h.observe(req.Regime, metrics.OutcomeInvalidInput, nil, 0)
		writeErrorCode(w, http.StatusBadRequest, "Invalid input", "invalid_input", err.Error())
		return nil, false
	}

	start := time.Now()
	res, err := payroll.Calculate(in, h.Table())
	elapsed := time.Since(start)

	switch {
	case err == nil:
		h.observe(string(in.Regime), metrics.OutcomeOK, res, elapsed)
		h.Logger.Debug("calculation",
			zap.String("regime", string(in.Regime)),
			zap.Int("year", in.Year),
			zap.Int("effective_year", res.EffectiveYear),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", elapsed),
		)
		return res, true
	case generic.IsClientError(err):
		h.observe(string(in.Regime), metrics.OutcomeInvalidInput, nil, elapsed)
		writeErrorCode(w, http.StatusBadRequest, "Invalid input", "invalid_input", err.Error())
	case generic.IsConfigurationError(err):
		h.observe(string(in.Regime), metrics.OutcomeConfiguration, nil, elapsed)
		h.Logger.Warn("no usable parameter data",
			zap.String("regime", string(in.Regime)),
			zap.Int("year", in.Year),
			zap.Error(err),
		)
		writeErrorCode(w, http.StatusUnprocessableEntity, "Parameter data unavailable", "configuration_error", err.Error())
	default:
		h.observe(string(in.Regime), metrics.OutcomeError, nil, elapsed)
		h.internalError(w, r, "Calculation failed", err)
	}
	return nil, false
}

func (h *Handler) observe(regime, outcome string, res *payroll.Results, elapsed time.Duration) {
	// Label values are limited to known regimes.
	label := "UNKNOWN"
	if parsed, err := payroll.ParseRegime(regime); err == nil {
		label = string(parsed)
	}
	fallback := res != nil && res.UsedFallback()
	h.Metrics.ObserveCalculation(label, outcome, fallback, elapsed)
}

func (h *Handler) exportOptions() report.TextOptions {
	return report.TextOptions{
		GeneratedAt: h.now(),
		Footer:      ExportFooter,
	}
}

func (h *Handler) exportHeaders(w http.ResponseWriter, res *payroll.Results) {
	w.Header().Set("X-Effective-Year", strconv.Itoa(res.EffectiveYear))
	if res.UsedFallback() {
		w.Header().Set("Warning", fmt.Sprintf("199 - %q", fallbackWarning(res.EffectiveYear)))
	}
}

func exportFilename(res *payroll.Results, ext string) string {
	return fmt.Sprintf("attachment; filename=\"desglose-%s-%d.%s\"",
		strings.ToLower(string(res.Inputs.Regime)), res.EffectiveYear, ext)
}

func fallbackWarning(effectiveYear int) string {
	return fmt.Sprintf("Usando parámetros del año %d", effectiveYear)
}

// =============================================================================
// PARAMETER HANDLERS
// =============================================================================

// ListParameters returns the regimes and years with parameter data.
func (h *Handler) ListParameters(w http.ResponseWriter, r *http.Request) {
	resp := ParameterIndexDTO{Regimes: []RegimeYearsDTO{}}
	if table := h.Table(); table != nil {
		for _, regime := range table.Regimes() {
			years := table.Years(regime)
			if years == nil {
				years = []int{}
			}
			resp.Regimes = append(resp.Regimes, RegimeYearsDTO{
				Regime: regime,
				Years:  years,
				Latest: table.LatestYear(regime),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetParameters returns the set a calculation for regime/year would use.
func (h *Handler) GetParameters(w http.ResponseWriter, r *http.Request) {
	regime, err := payroll.ParseRegime(chi.URLParam(r, "regime"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown regime", err)
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1000 || year > 9999 {
		writeError(w, http.StatusBadRequest, "Year must be a four-digit number", err)
		return
	}
	table := h.Table()
	if table == nil {
		writeError(w, http.StatusNotFound, "No parameter data", nil)
		return
	}

	set, effective, err := table.Resolve(string(regime), year)
	if err != nil {
		writeError(w, http.StatusNotFound, "No parameter data", err)
		return
	}

	writeJSON(w, http.StatusOK, ParameterSetDTO{
		Regime:        string(regime),
		RequestedYear: year,
		EffectiveYear: effective,
		Fallback:      effective != year,
		Parameters:    h.Factory.ToJSON(set),
	})
}

// =============================================================================
// OPERATIONAL HANDLERS
// =============================================================================

// Health reports liveness and the regimes that can be served.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	regimes := []string{}
	if table := h.Table(); table != nil {
		for _, regime := range table.Regimes() {
			if table.LatestYear(regime) != 0 {
				regimes = append(regimes, regime)
			}
		}
	}
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok", Regimes: regimes})
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeJSON(r *http.Request, dst any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// validationDetails maps validator errors to field -> message.
func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = validationMessage(fe)
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.Join(uniqueUpper(strings.Fields(fe.Param())), ", ")
	}
	return "is invalid"
}

func uniqueUpper(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToUpper(v)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.Logger.Error(message,
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, message, nil)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeErrorCode(w http.ResponseWriter, status int, message, code string, details any) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}
