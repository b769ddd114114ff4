/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the net-pay calculator HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env, then config (defaults, YAML file, NETPAY_* env)
  2. Build the zap logger for the environment
  3. Open the optional SQLite parameter store
  4. Load the parameter table (store, file, or embedded defaults)
  5. Create API handler and router
  6. Start the parameter reloader when a store and interval are set
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (optional)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (shutdown_timeout)
  3. Stop the reloader, close database connection
  4. Exit

EXAMPLES:
  # Embedded parameters, defaults everywhere
  ./server

  # Parameters from a YAML document, kept in SQLite after the first run
  NETPAY_PARAMS_FILE=params.yaml NETPAY_PARAMS_DB=./data/netpay.db ./server

SEE ALSO:
  - config/config.go: Settings and environment variables
  - api/server.go: Router configuration
  - factory/load.go: Parameter loading priority
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/warp/netpay-engine/api"
	"github.com/warp/netpay-engine/config"
	"github.com/warp/netpay-engine/factory"
	"github.com/warp/netpay-engine/generic"
	"github.com/warp/netpay-engine/metrics"
	"github.com/warp/netpay-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// No logger yet; the config decides which one to build.
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	// Optional parameter store
	var (
		src   generic.ParameterSource
		store *sqlite.Store
	)
	if cfg.ParamsDB != "" {
		var err error
		store, err = sqlite.New(cfg.ParamsDB)
		if err != nil {
			return err
		}
		defer store.Close()
		src = store
	}

	table, origin, err := factory.NewParameterFactory().Load(ctx, cfg.ParamsFile, src)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}
	for _, regime := range table.Regimes() {
		years := table.Years(regime)
		m.SetParameterYears(regime, len(years))
		logger.Info("parameters loaded",
			zap.String("origin", string(origin)),
			zap.String("regime", regime),
			zap.Ints("years", years),
		)
	}

	handler := api.NewHandler(table, m, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Production:     cfg.IsProduction(),
	})

	if store != nil && cfg.ReloadInterval > 0 {
		reloader := api.NewParameterReloader(store, handler, cfg.ReloadInterval)
		reloader.Start()
		defer reloader.Stop()
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Addr),
			zap.String("environment", cfg.Environment),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
