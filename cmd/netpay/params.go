package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/warp/netpay-engine/factory"
	"github.com/warp/netpay-engine/payroll"
)

func (a *app) paramsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Inspect and seed parameter data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listParams(cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the years with data for each regime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listParams(cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show REGIME YEAR",
		Short: "Print the parameter set a calculation for REGIME and YEAR would use",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showParams(cmd, args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Write the parameter document into the SQLite store",
		Long: `seed replaces the rows of the SQLite store (--params-db) with the
parameter document (--params-file, or the embedded defaults).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.seedParams(cmd)
		},
	})

	return cmd
}

func (a *app) listParams(cmd *cobra.Command) error {
	table, err := a.loadTable(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGIME\tYEARS\tLATEST")
	for _, regime := range table.Regimes() {
		fmt.Fprintf(tw, "%s\t%v\t%d\n", regime, table.Years(regime), table.LatestYear(regime))
	}
	return tw.Flush()
}

func (a *app) showParams(cmd *cobra.Command, regimeArg, yearArg string) error {
	regime, err := payroll.ParseRegime(regimeArg)
	if err != nil {
		return err
	}
	year, err := strconv.Atoi(yearArg)
	if err != nil {
		return fmt.Errorf("invalid year %q", yearArg)
	}

	table, err := a.loadTable(cmd.Context())
	if err != nil {
		return err
	}
	set, effective, err := table.Resolve(string(regime), year)
	if err != nil {
		return err
	}
	if effective != year {
		fmt.Fprintf(cmd.ErrOrStderr(), "Aviso: usando parámetros del año %d\n", effective)
	}

	doc := factory.Document{string(regime): {strconv.Itoa(effective): a.factory.ToJSON(set)}}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func (a *app) seedParams(cmd *cobra.Command) error {
	if a.paramsDB == "" {
		return fmt.Errorf("--params-db is required")
	}

	var (
		doc factory.Document
		err error
	)
	if a.paramsFile != "" {
		doc, err = a.factory.ReadFile(a.paramsFile)
	} else {
		doc, err = a.factory.DefaultDocument()
	}
	if err != nil {
		return err
	}
	// Build first so a broken document never reaches the store.
	if _, err := a.factory.Build(doc); err != nil {
		return err
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if err := store.Reset(ctx); err != nil {
		return err
	}
	if err := a.factory.Seed(ctx, store, doc); err != nil {
		return err
	}

	records, err := store.ListParameterSets(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d parameter sets into %s\n", len(records), a.paramsDB)
	return nil
}
