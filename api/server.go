/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RealIP:        Client address from proxy headers
  3. RequestLogger: zap access log
  4. Recoverer:     Panic recovery (500 instead of crash)
  5. SecureHeaders: Browser hardening headers
  6. CORS:          Cross-origin requests for browser clients
  7. BodyLimit:     Caps POST bodies
  8. Metrics:       Prometheus request counters and latency

ROUTE GROUPS:
  /api/calculations/*   Net-pay calculations and exports
  /api/parameters/*     Parameter data inspection
  /api/scenarios/*      Example calculations
  /healthz, /metrics    Operations
  /                     Endpoint index

SECURITY NOTE:
  No authentication middleware. The service holds no personal data; every
  request is self-contained.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions carries the settings that shape the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
	Production     bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(SecureHeaders(opts.Production))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Calculation-ID", "X-Effective-Year", "Content-Disposition", "Warning"},
		MaxAge:         300,
	}))
	r.Use(BodyLimit(opts.MaxBodyBytes))
	r.Use(h.Metrics.Middleware)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Calculation routes
		r.Route("/calculations", func(r chi.Router) {
			r.Post("/", h.Calculate)
			r.Post("/text", h.CalculateText)
			r.Post("/pdf", h.CalculatePDF)
		})

		// Parameter routes
		r.Route("/parameters", func(r chi.Router) {
			r.Get("/", h.ListParameters)
			r.Get("/{regime}/{year}", h.GetParameters)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/{id}/calculate", h.RunScenario)
		})
	})

	r.Get("/healthz", h.Health)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "netpay-engine",
			"endpoints": []string{
				"POST /api/calculations",
				"POST /api/calculations/text",
				"POST /api/calculations/pdf",
				"GET /api/parameters",
				"GET /api/parameters/{regime}/{year}",
				"GET /api/scenarios",
				"POST /api/scenarios/{id}/calculate",
				"GET /healthz",
				"GET /metrics",
			},
		})
	})

	return r
}
