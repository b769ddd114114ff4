/*
Package factory provides document to Go conversion for tax parameters.

PURPOSE:
  Converts parameter documents (JSON or YAML) into an immutable
  payroll.Table. Legal values change every year; keeping them in a document
  lets them be updated without code changes, stored in a database, or
  shipped with the binary as an embedded default.

DOCUMENT SCHEMA:
  {
    "NORMAL": {
      "2025": {
        "UIT": 5150,
        "FAMILY_ALLOWANCE": 102.5,
        "HEALTH_BONUS": {"ESSALUD": 0.09, "EPS": 0.0675},
        "AFP_BASE_RATE": 0.1325,
        "AFP_EXTRA_RATE": 0,
        "AFP_EXTRA_CAP": 0,
        "FIFTH_CATEGORY_BRACKETS_UIT": [
          {"fromUIT": 0, "toUIT": 7, "rate": 0.08},
          {"fromUIT": 70, "toUIT": null, "rate": 0.30}
        ],
        "DEDUCTION_UIT": 7
      },
      "2026": {}
    },
    "RIA": { "2025": { ..., "INCLUDE_HEALTH_BONUS_EQUIV": true } }
  }

  An empty object marks a year that has no data yet; lookups for it fall
  back to the nearest earlier year. Any other set must carry UIT,
  AFP_BASE_RATE, DEDUCTION_UIT and FIFTH_CATEGORY_BRACKETS_UIT.

KEY FEATURES:
  - Validates every non-empty set (required keys, bracket contiguity, rate
    ranges, UIT > 0)
  - Rejects unknown regimes and malformed years with a ConfigurationError
  - Converts floats to decimals once, at load time
  - Round-trips sets to records for seeding a ParameterStore

USAGE:
  f := factory.NewParameterFactory()

  table, err := f.LoadFile("params.yaml")
  table, err := f.FromSource(ctx, sqliteStore)
  table, err := f.Default()

SEE ALSO:
  - payroll/types.go: ParameterSet, the target type
  - generic/table.go: Year fallback policy
  - store/sqlite/sqlite.go: Stores one record per regime and year
*/
package factory

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/netpay-engine/generic"
	"github.com/warp/netpay-engine/payroll"
)

//go:embed defaults.json
var defaultDocument []byte

// =============================================================================
// DOCUMENT SCHEMA TYPES
// =============================================================================

// Document is regime -> year -> parameter set, as stored on disk.
type Document map[string]map[string]SetJSON

// SetJSON is the serialized form of one parameter set. Scalars are pointers
// so that an absent key and an explicit zero stay distinguishable.
type SetJSON struct {
	UIT             *float64           `json:"UIT,omitempty" yaml:"UIT,omitempty"`
	FamilyAllowance *float64           `json:"FAMILY_ALLOWANCE,omitempty" yaml:"FAMILY_ALLOWANCE,omitempty"`
	HealthBonus     map[string]float64 `json:"HEALTH_BONUS,omitempty" yaml:"HEALTH_BONUS,omitempty"`
	HealthBonusRate *float64           `json:"HEALTH_BONUS_RATE,omitempty" yaml:"HEALTH_BONUS_RATE,omitempty"`

	AFPBaseRate  *float64 `json:"AFP_BASE_RATE,omitempty" yaml:"AFP_BASE_RATE,omitempty"`
	AFPExtraRate *float64 `json:"AFP_EXTRA_RATE,omitempty" yaml:"AFP_EXTRA_RATE,omitempty"`
	AFPExtraCap  *float64 `json:"AFP_EXTRA_CAP,omitempty" yaml:"AFP_EXTRA_CAP,omitempty"`

	Brackets     []BracketJSON `json:"FIFTH_CATEGORY_BRACKETS_UIT,omitempty" yaml:"FIFTH_CATEGORY_BRACKETS_UIT,omitempty"`
	DeductionUIT *float64      `json:"DEDUCTION_UIT,omitempty" yaml:"DEDUCTION_UIT,omitempty"`

	IncludeHealthBonusEquiv *bool `json:"INCLUDE_HEALTH_BONUS_EQUIV,omitempty" yaml:"INCLUDE_HEALTH_BONUS_EQUIV,omitempty"`
}

// BracketJSON is one bracket in UIT multiples. A nil ToUIT is unbounded.
type BracketJSON struct {
	FromUIT float64  `json:"fromUIT" yaml:"fromUIT"`
	ToUIT   *float64 `json:"toUIT" yaml:"toUIT"`
	Rate    float64  `json:"rate" yaml:"rate"`
}

// empty reports whether the set is a placeholder: an object with no keys.
func (s SetJSON) empty() bool {
	return s.UIT == nil && s.FamilyAllowance == nil &&
		s.HealthBonus == nil && s.HealthBonusRate == nil &&
		s.AFPBaseRate == nil && s.AFPExtraRate == nil && s.AFPExtraCap == nil &&
		s.Brackets == nil && s.DeductionUIT == nil &&
		s.IncludeHealthBonusEquiv == nil
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func ptr(v float64) *float64 { return &v }

// =============================================================================
// PARAMETER FACTORY
// =============================================================================

// ParameterFactory converts parameter documents to tables.
type ParameterFactory struct{}

// NewParameterFactory creates a new parameter factory.
func NewParameterFactory() *ParameterFactory {
	return &ParameterFactory{}
}

// ParseJSON decodes a JSON document.
func (f *ParameterFactory) ParseJSON(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse parameter JSON: %w", err)
	}
	return doc, nil
}

// ParseYAML decodes a YAML document.
func (f *ParameterFactory) ParseYAML(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse parameter YAML: %w", err)
	}
	return doc, nil
}

// ReadFile decodes the document at path; .yaml and .yml are read as YAML,
// anything else as JSON.
func (f *ParameterFactory) ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return f.ParseYAML(data)
	default:
		return f.ParseJSON(data)
	}
}

// LoadFile reads and builds the table at path.
func (f *ParameterFactory) LoadFile(path string) (*payroll.Table, error) {
	doc, err := f.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return f.Build(doc)
}

// DefaultDocument returns the document embedded in the binary.
func (f *ParameterFactory) DefaultDocument() (Document, error) {
	return f.ParseJSON(defaultDocument)
}

// Default builds the table from the embedded document.
func (f *ParameterFactory) Default() (*payroll.Table, error) {
	doc, err := f.DefaultDocument()
	if err != nil {
		return nil, err
	}
	return f.Build(doc)
}

// Build validates doc and converts it into a table.
func (f *ParameterFactory) Build(doc Document) (*payroll.Table, error) {
	entries := make(map[payroll.Regime]map[int]payroll.ParameterSet, len(doc))
	for regimeKey, years := range doc {
		regime, err := parseRegimeKey(regimeKey)
		if err != nil {
			return nil, err
		}
		sets := make(map[int]payroll.ParameterSet, len(years))
		for yearKey, sj := range years {
			year, err := parseYearKey(regime, yearKey)
			if err != nil {
				return nil, err
			}
			set, err := f.FromJSON(regime, year, sj)
			if err != nil {
				return nil, err
			}
			sets[year] = set
		}
		entries[regime] = sets
	}
	return payroll.NewTable(entries), nil
}

// FromJSON converts and validates one set. Empty sets are returned as the
// zero ParameterSet.
func (f *ParameterFactory) FromJSON(regime payroll.Regime, year int, sj SetJSON) (payroll.ParameterSet, error) {
	if sj.empty() {
		return payroll.ParameterSet{}, nil
	}

	invalid := func(format string, args ...any) error {
		return &generic.ConfigurationError{Regime: string(regime), Year: year, Reason: fmt.Sprintf(format, args...)}
	}

	required := []struct {
		name    string
		missing bool
	}{
		{"UIT", sj.UIT == nil},
		{"AFP_BASE_RATE", sj.AFPBaseRate == nil},
		{"DEDUCTION_UIT", sj.DeductionUIT == nil},
		{"FIFTH_CATEGORY_BRACKETS_UIT", len(sj.Brackets) == 0},
	}
	for _, field := range required {
		if field.missing {
			return payroll.ParameterSet{}, invalid("%s is required", field.name)
		}
	}

	if *sj.UIT <= 0 {
		return payroll.ParameterSet{}, invalid("UIT must be positive, got %v", *sj.UIT)
	}
	for name, v := range map[string]float64{
		"FAMILY_ALLOWANCE": value(sj.FamilyAllowance),
		"AFP_EXTRA_CAP":    value(sj.AFPExtraCap),
		"DEDUCTION_UIT":    *sj.DeductionUIT,
	} {
		if v < 0 {
			return payroll.ParameterSet{}, invalid("%s must not be negative, got %v", name, v)
		}
	}
	rates := map[string]float64{
		"AFP_BASE_RATE":     *sj.AFPBaseRate,
		"AFP_EXTRA_RATE":    value(sj.AFPExtraRate),
		"HEALTH_BONUS_RATE": value(sj.HealthBonusRate),
	}
	for scheme, v := range sj.HealthBonus {
		rates["HEALTH_BONUS."+scheme] = v
	}
	for name, v := range rates {
		if v < 0 || v >= 1 {
			return payroll.ParameterSet{}, invalid("%s must be in [0, 1), got %v", name, v)
		}
	}

	set := payroll.ParameterSet{
		UIT:                     decimal.NewFromFloat(*sj.UIT),
		FamilyAllowance:         decimal.NewFromFloat(value(sj.FamilyAllowance)),
		PensionBaseRate:         decimal.NewFromFloat(*sj.AFPBaseRate),
		PensionExtraRate:        decimal.NewFromFloat(value(sj.AFPExtraRate)),
		PensionExtraCap:         decimal.NewFromFloat(value(sj.AFPExtraCap)),
		DeductionUIT:            decimal.NewFromFloat(*sj.DeductionUIT),
		IncludeHealthBonusEquiv: sj.IncludeHealthBonusEquiv != nil && *sj.IncludeHealthBonusEquiv,
	}
	if sj.HealthBonusRate != nil {
		rate := decimal.NewFromFloat(*sj.HealthBonusRate)
		set.HealthBonusRate = &rate
	}

	if len(sj.HealthBonus) > 0 {
		set.HealthBonusRates = make(map[payroll.HealthScheme]decimal.Decimal, len(sj.HealthBonus))
		for key, v := range sj.HealthBonus {
			scheme, err := payroll.ParseHealthScheme(key)
			if err != nil || key == "" {
				return payroll.ParameterSet{}, invalid("unknown health scheme %q", key)
			}
			set.HealthBonusRates[scheme] = decimal.NewFromFloat(v)
		}
	}

	for _, bj := range sj.Brackets {
		b := generic.Bracket{
			FromUnits: decimal.NewFromFloat(bj.FromUIT),
			Rate:      decimal.NewFromFloat(bj.Rate),
		}
		if bj.ToUIT != nil {
			to := decimal.NewFromFloat(*bj.ToUIT)
			b.ToUnits = &to
		}
		set.Brackets = append(set.Brackets, b)
	}
	if err := generic.ValidateBrackets(set.Brackets); err != nil {
		return payroll.ParameterSet{}, invalid("%v", err)
	}

	return set, nil
}

// ToJSON converts a ParameterSet back to its serialized form.
func (f *ParameterFactory) ToJSON(set payroll.ParameterSet) SetJSON {
	if set.Empty() {
		return SetJSON{}
	}
	sj := SetJSON{
		UIT:             ptr(set.UIT.InexactFloat64()),
		FamilyAllowance: ptr(set.FamilyAllowance.InexactFloat64()),
		AFPBaseRate:     ptr(set.PensionBaseRate.InexactFloat64()),
		AFPExtraRate:    ptr(set.PensionExtraRate.InexactFloat64()),
		AFPExtraCap:     ptr(set.PensionExtraCap.InexactFloat64()),
		DeductionUIT:    ptr(set.DeductionUIT.InexactFloat64()),
	}
	if set.HealthBonusRate != nil {
		sj.HealthBonusRate = ptr(set.HealthBonusRate.InexactFloat64())
	}
	if set.IncludeHealthBonusEquiv {
		include := true
		sj.IncludeHealthBonusEquiv = &include
	}
	if len(set.HealthBonusRates) > 0 {
		sj.HealthBonus = make(map[string]float64, len(set.HealthBonusRates))
		for scheme, rate := range set.HealthBonusRates {
			sj.HealthBonus[string(scheme)] = rate.InexactFloat64()
		}
	}
	for _, b := range set.Brackets {
		bj := BracketJSON{
			FromUIT: b.FromUnits.InexactFloat64(),
			Rate:    b.Rate.InexactFloat64(),
		}
		if b.ToUnits != nil {
			to := b.ToUnits.InexactFloat64()
			bj.ToUIT = &to
		}
		sj.Brackets = append(sj.Brackets, bj)
	}
	return sj
}

// =============================================================================
// RECORDS - Store round-trip
// =============================================================================

// Records flattens doc into one record per regime and year, ordered by
// regime then year. Payloads are the JSON encoding of each set.
func (f *ParameterFactory) Records(doc Document) ([]generic.ParameterRecord, error) {
	var records []generic.ParameterRecord
	for regimeKey, years := range doc {
		regime, err := parseRegimeKey(regimeKey)
		if err != nil {
			return nil, err
		}
		for yearKey, sj := range years {
			year, err := parseYearKey(regime, yearKey)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(sj)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s %d: %w", regime, year, err)
			}
			records = append(records, generic.ParameterRecord{
				Regime:  string(regime),
				Year:    year,
				Payload: string(payload),
			})
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Regime != records[j].Regime {
			return records[i].Regime < records[j].Regime
		}
		return records[i].Year < records[j].Year
	})
	return records, nil
}

// FromRecords rebuilds a document from stored records.
func (f *ParameterFactory) FromRecords(records []generic.ParameterRecord) (Document, error) {
	doc := make(Document)
	for _, rec := range records {
		var sj SetJSON
		if err := json.Unmarshal([]byte(rec.Payload), &sj); err != nil {
			return nil, &generic.ConfigurationError{
				Regime: rec.Regime,
				Year:   rec.Year,
				Reason: fmt.Sprintf("malformed payload: %v", err),
			}
		}
		if doc[rec.Regime] == nil {
			doc[rec.Regime] = make(map[string]SetJSON)
		}
		doc[rec.Regime][strconv.Itoa(rec.Year)] = sj
	}
	return doc, nil
}

// FromSource reads every record from src and builds the table.
func (f *ParameterFactory) FromSource(ctx context.Context, src generic.ParameterSource) (*payroll.Table, error) {
	records, err := src.ListParameterSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list parameter sets: %w", err)
	}
	doc, err := f.FromRecords(records)
	if err != nil {
		return nil, err
	}
	return f.Build(doc)
}

// Seed writes every set of doc to st.
func (f *ParameterFactory) Seed(ctx context.Context, st generic.ParameterStore, doc Document) error {
	records, err := f.Records(doc)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := st.SaveParameterSet(ctx, rec); err != nil {
			return fmt.Errorf("failed to save %s %d: %w", rec.Regime, rec.Year, err)
		}
	}
	return nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseRegimeKey(key string) (payroll.Regime, error) {
	regime, err := payroll.ParseRegime(key)
	if err != nil || strings.TrimSpace(key) == "" {
		return "", &generic.ConfigurationError{Regime: key, Reason: "unknown regime"}
	}
	return regime, nil
}

func parseYearKey(regime payroll.Regime, key string) (int, error) {
	year, err := strconv.Atoi(key)
	if err != nil || year < 1000 || year > 9999 {
		return 0, &generic.ConfigurationError{Regime: string(regime), Reason: fmt.Sprintf("invalid year %q", key)}
	}
	return year, nil
}
