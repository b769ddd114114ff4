/*
store.go - Persistence interface for parameter documents

PURPOSE:
  Defines the interface between parameter loading and storage. A store
  holds one record per (regime, year) whose payload is the JSON encoding
  of a single parameter set. The engine never reads a store directly: the
  factory drains a source into an immutable Table, at startup and again
  whenever the API's reloader sees the records change.

KEY INTERFACES:
  ParameterSource: Read side (list every record)
  ParameterStore:  Read + write, used for seeding and admin tooling

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite-backed
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - factory/params.go: Turns records into a Table
*/
package generic

import (
	"context"
	"strings"
	"time"
)

// =============================================================================
// RECORD
// =============================================================================

// ParameterRecord is a stored parameter set for one regime and year.
type ParameterRecord struct {
	Regime    string
	Year      int
	Payload   string // JSON-encoded parameter set
	Version   int
	UpdatedAt time.Time
}

// RegimeKey is the form stores key records by: trimmed and upper-case.
func RegimeKey(regime string) string {
	return strings.ToUpper(strings.TrimSpace(regime))
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// ParameterSource lists parameter records, ordered by regime then year.
type ParameterSource interface {
	ListParameterSets(ctx context.Context) ([]ParameterRecord, error)
}

// ParameterStore extends ParameterSource with writes.
// Saving an existing (regime, year) replaces it and bumps Version. Regimes
// are keyed by RegimeKey, so "ria" and "RIA" name the same record.
type ParameterStore interface {
	ParameterSource

	SaveParameterSet(ctx context.Context, rec ParameterRecord) error
}
