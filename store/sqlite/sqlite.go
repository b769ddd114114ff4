/*
Package sqlite provides a SQLite-backed implementation of the parameter store.

PURPOSE:
  Holds the year-versioned tax parameters in a database so they can be
  updated by admin tooling without rebuilding the binary. The engine never
  queries this store per calculation: the factory drains it once at startup
  into an immutable table.

INTERFACES IMPLEMENTED:
  generic.ParameterSource: List every record
  generic.ParameterStore:  List + upsert

KEY TABLES:
  parameter_sets: One row per (regime, year); payload_json holds the
                  serialized set exactly as in a parameter document.
                  An empty object ("{}") marks a placeholder year.

VERSIONING:
  Saving an existing (regime, year) replaces the payload and increments
  version; created_at is kept from the first insert.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, plus a single open connection so
  that ":memory:" databases are shared by every query.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/netpay.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  table, origin, err := factory.NewParameterFactory().Load(ctx, "", store)

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
  - factory/load.go: Seeds an empty store from a document
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/netpay-engine/generic"
)

// Store implements generic.ParameterStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS parameter_sets (
		regime TEXT NOT NULL,
		year INTEGER NOT NULL,
		payload_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (regime, year)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PARAMETER STORE
// =============================================================================

// SaveParameterSet inserts or replaces the set for rec's regime and year.
func (s *Store) SaveParameterSet(ctx context.Context, rec generic.ParameterRecord) error {
	regime := generic.RegimeKey(rec.Regime)
	if regime == "" {
		return &generic.InvalidInputError{Field: "regime", Reason: "is required"}
	}
	if !json.Valid([]byte(rec.Payload)) {
		return &generic.InvalidInputError{Field: "payload", Reason: "is not valid JSON"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO parameter_sets (regime, year, payload_json, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(regime, year) DO UPDATE SET
			payload_json = excluded.payload_json,
			version = parameter_sets.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query, regime, rec.Year, rec.Payload, now, now)
	return err
}

// GetParameterSet returns the record for regime and year, or nil if none.
func (s *Store) GetParameterSet(ctx context.Context, regime string, year int) (*generic.ParameterRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT regime, year, payload_json, version, updated_at FROM parameter_sets WHERE regime = ? AND year = ?",
		generic.RegimeKey(regime), year,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListParameterSets returns every record ordered by regime then year.
func (s *Store) ListParameterSets(ctx context.Context) ([]generic.ParameterRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT regime, year, payload_json, version, updated_at FROM parameter_sets ORDER BY regime, year",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []generic.ParameterRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteParameterSet removes the record for regime and year.
func (s *Store) DeleteParameterSet(ctx context.Context, regime string, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM parameter_sets WHERE regime = ? AND year = ?",
		generic.RegimeKey(regime), year,
	)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset deletes every parameter set. Used before reseeding.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM parameter_sets")
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (generic.ParameterRecord, error) {
	var rec generic.ParameterRecord
	var updatedAt string
	if err := row.Scan(&rec.Regime, &rec.Year, &rec.Payload, &rec.Version, &updatedAt); err != nil {
		return rec, err
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

var _ generic.ParameterStore = (*Store)(nil)
