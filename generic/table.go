/*
table.go - Year-versioned parameter tables

PURPOSE:
  Parameters that change by law every year (reference units, rates, bracket
  boundaries) live in a flat regime -> year -> set table. The table is built
  once at startup and never mutated afterwards; every lookup returns a
  private copy of the set.

FALLBACK POLICY:
  Resolve(regime, year):
  1. The exact year, when it has a non-empty set
  2. Otherwise the greatest earlier year with data
  3. Otherwise the latest year with data (requested year predates the table)
  4. Otherwise a ConfigurationError - never a silent default

  The year actually used is returned so callers can warn
  "using parameters from year X".

USAGE:
  table := generic.NewTable(map[string]map[int]MySet{
      "NORMAL": {2024: set2024, 2025: set2025},
  })
  set, effectiveYear, err := table.Resolve("NORMAL", 2026) // -> set2025, 2025

SEE ALSO:
  - payroll/types.go: ParameterSet, the concrete entry type
  - factory/params.go: Builds tables from JSON/YAML documents
*/
package generic

import "sort"

// Versioned is implemented by table entries. An empty entry is treated as if
// the year were absent. Clone must return a deep copy; the table hands out
// clones so callers cannot reach its internal state.
type Versioned[P any] interface {
	Empty() bool
	Clone() P
}

// =============================================================================
// TABLE
// =============================================================================

// Table maps regime -> year -> parameter set. Safe for concurrent reads.
type Table[P Versioned[P]] struct {
	byRegime map[string]map[int]P
}

// NewTable copies entries into a new immutable table.
func NewTable[P Versioned[P]](entries map[string]map[int]P) *Table[P] {
	t := &Table[P]{byRegime: make(map[string]map[int]P, len(entries))}
	for regime, years := range entries {
		copied := make(map[int]P, len(years))
		for year, set := range years {
			copied[year] = set.Clone()
		}
		t.byRegime[regime] = copied
	}
	return t
}

// Resolve returns the parameter set for regime and year, applying the
// fallback policy, plus the year whose data was actually used.
func (t *Table[P]) Resolve(regime string, year int) (P, int, error) {
	var zero P

	years := t.byRegime[regime]
	if set, ok := years[year]; ok && !set.Empty() {
		return set.Clone(), year, nil
	}

	available := t.Years(regime)
	if len(available) == 0 {
		return zero, 0, &ConfigurationError{
			Regime: regime,
			Year:   year,
			Reason: "no parameter data for any year",
		}
	}

	// Greatest year <= requested; if none, the latest available.
	effective := available[len(available)-1]
	i := sort.SearchInts(available, year+1)
	if i > 0 {
		effective = available[i-1]
	}
	return years[effective].Clone(), effective, nil
}

// Years returns the years that hold non-empty data for regime, ascending.
func (t *Table[P]) Years(regime string) []int {
	var out []int
	for year, set := range t.byRegime[regime] {
		if !set.Empty() {
			out = append(out, year)
		}
	}
	sort.Ints(out)
	return out
}

// LatestYear returns the most recent year with data, or 0.
func (t *Table[P]) LatestYear(regime string) int {
	years := t.Years(regime)
	if len(years) == 0 {
		return 0
	}
	return years[len(years)-1]
}

// Regimes returns the regimes present in the table, sorted.
func (t *Table[P]) Regimes() []string {
	out := make([]string, 0, len(t.byRegime))
	for regime := range t.byRegime {
		out = append(out, regime)
	}
	sort.Strings(out)
	return out
}
