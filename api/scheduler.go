/*
scheduler.go - Background parameter reloader

PURPOSE:
  Periodically re-reads the parameter store and, when its contents changed,
  rebuilds the table and swaps it into the Handler. Lets an operator run
  `netpay params seed` against a live server's database without a restart.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Compares a fingerprint of (regime, year, version, payload) per record
  - A store that became empty or holds a broken document is logged and
    ignored; the server keeps serving the last good table
  - Requests in flight keep the table they started with

CONFIGURATION:
  - Interval: How often to check (config params_reload_interval; 0 disables)

USAGE:
  reloader := NewParameterReloader(store, handler, time.Minute)
  reloader.Start()
  // ... later
  reloader.Stop()

SEE ALSO:
  - handlers.go: Handler.SetTable
  - factory/load.go: Startup loading priority
*/
package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/netpay-engine/generic"
	"github.com/warp/netpay-engine/metrics"
)

// ParameterReloader keeps a Handler's table in sync with a store.
type ParameterReloader struct {
	Source   generic.ParameterSource
	Handler  *Handler
	Interval time.Duration

	fingerprint string
	ticker      *time.Ticker
	stop        chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
}

// NewParameterReloader creates a reloader. Call Start to begin polling.
func NewParameterReloader(src generic.ParameterSource, h *Handler, interval time.Duration) *ParameterReloader {
	return &ParameterReloader{
		Source:   src,
		Handler:  h,
		Interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins polling. A non-positive interval leaves the reloader idle.
func (pr *ParameterReloader) Start() {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.Interval <= 0 || pr.ticker != nil {
		return
	}

	pr.ticker = time.NewTicker(pr.Interval)
	pr.stop = make(chan struct{})
	pr.wg.Add(1)
	go pr.run()

	pr.Handler.Logger.Info("parameter reloader started", zap.Duration("interval", pr.Interval))
}

// Stop halts polling and waits for an in-progress check to finish.
func (pr *ParameterReloader) Stop() {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.ticker == nil {
		return
	}
	pr.ticker.Stop()
	close(pr.stop)
	pr.wg.Wait()
	pr.ticker = nil
	pr.Handler.Logger.Info("parameter reloader stopped")
}

func (pr *ParameterReloader) run() {
	defer pr.wg.Done()

	// Baseline before the first tick.
	pr.check()

	for {
		select {
		case <-pr.ticker.C:
			pr.check()
		case <-pr.stop:
			return
		}
	}
}

func (pr *ParameterReloader) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reloaded, err := pr.Reload(ctx)
	switch {
	case err != nil:
		pr.Handler.Metrics.ObserveReload(metrics.ReloadFailed)
		pr.Handler.Logger.Error("parameter reload failed", zap.Error(err))
	case reloaded:
		pr.Handler.Metrics.ObserveReload(metrics.ReloadApplied)
	}
}

// Reload reads the source once and swaps in a new table when the records
// changed since the last call. The first call only records the baseline,
// since the Handler was built from the same store at startup. It reports
// whether a swap happened.
func (pr *ParameterReloader) Reload(ctx context.Context) (bool, error) {
	records, err := pr.Source.ListParameterSets(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list parameter sets: %w", err)
	}
	if len(records) == 0 {
		return false, nil
	}

	fp := fingerprint(records)
	if pr.fingerprint == "" || fp == pr.fingerprint {
		pr.fingerprint = fp
		return false, nil
	}

	h := pr.Handler
	doc, err := h.Factory.FromRecords(records)
	if err != nil {
		return false, err
	}
	table, err := h.Factory.Build(doc)
	if err != nil {
		return false, err
	}

	pr.fingerprint = fp
	h.SetTable(table)

	for _, regime := range table.Regimes() {
		h.Metrics.SetParameterYears(regime, len(table.Years(regime)))
	}
	h.Logger.Info("parameters reloaded",
		zap.Int("records", len(records)),
		zap.Strings("regimes", table.Regimes()),
	)
	return true, nil
}

// fingerprint identifies the content of an ordered record list.
func fingerprint(records []generic.ParameterRecord) string {
	sum := sha256.New()
	for _, rec := range records {
		fmt.Fprintf(sum, "%s|%d|%d|%s\n", rec.Regime, rec.Year, rec.Version, rec.Payload)
	}
	return hex.EncodeToString(sum.Sum(nil))
}
