// Package store provides ParameterStore implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/netpay-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[key]generic.ParameterRecord
}

type key struct {
	Regime string
	Year   int
}

func NewMemory() *Memory {
	return &Memory{records: make(map[key]generic.ParameterRecord)}
}

// SaveParameterSet inserts or replaces the record for rec's regime and year.
func (m *Memory) SaveParameterSet(_ context.Context, rec generic.ParameterRecord) error {
	rec.Regime = generic.RegimeKey(rec.Regime)
	if rec.Regime == "" {
		return &generic.InvalidInputError{Field: "regime", Reason: "is required"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{Regime: rec.Regime, Year: rec.Year}
	rec.Version = m.records[k].Version + 1
	rec.UpdatedAt = time.Now().UTC()
	m.records[k] = rec
	return nil
}

func (m *Memory) ListParameterSets(_ context.Context) ([]generic.ParameterRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.ParameterRecord, 0, len(m.records))
	for _, rec := range m.records {
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Regime != result[j].Regime {
			return result[i].Regime < result[j].Regime
		}
		return result[i].Year < result[j].Year
	})
	return result, nil
}

var _ generic.ParameterStore = (*Memory)(nil)
