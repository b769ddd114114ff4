package factory

import (
	"context"
	"fmt"

	"github.com/warp/netpay-engine/generic"
	"github.com/warp/netpay-engine/payroll"
)

// Origin names where a loaded table came from, for startup logs.
type Origin string

const (
	OriginStore    Origin = "store"
	OriginFile     Origin = "file"
	OriginEmbedded Origin = "embedded"
)

// Load builds the parameter table used by a process, in priority order:
//
//  1. src, when it holds records
//  2. the document at file, when set
//  3. the embedded defaults
//
// When src is an empty ParameterStore it is seeded from the document chosen
// by steps 2-3 first, so later runs read from the store.
func (f *ParameterFactory) Load(ctx context.Context, file string, src generic.ParameterSource) (*payroll.Table, Origin, error) {
	if src != nil {
		records, err := src.ListParameterSets(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("failed to list parameter sets: %w", err)
		}
		if len(records) > 0 {
			doc, err := f.FromRecords(records)
			if err != nil {
				return nil, "", err
			}
			table, err := f.Build(doc)
			return table, OriginStore, err
		}
	}

	doc, origin, err := f.document(file)
	if err != nil {
		return nil, "", err
	}
	table, err := f.Build(doc)
	if err != nil {
		return nil, "", err
	}

	if st, ok := src.(generic.ParameterStore); ok {
		if err := f.Seed(ctx, st, doc); err != nil {
			return nil, "", err
		}
	}
	return table, origin, nil
}

func (f *ParameterFactory) document(file string) (Document, Origin, error) {
	if file != "" {
		doc, err := f.ReadFile(file)
		return doc, OriginFile, err
	}
	doc, err := f.DefaultDocument()
	return doc, OriginEmbedded, err
}
