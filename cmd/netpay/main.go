// Package main is the netpay command-line calculator. It computes the same
// results as the HTTP server from flags, using the same parameter sources.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/netpay-engine/config"
	"github.com/warp/netpay-engine/factory"
	"github.com/warp/netpay-engine/generic"
	"github.com/warp/netpay-engine/payroll"
	"github.com/warp/netpay-engine/store/sqlite"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "netpay"
)

func main() {
	if err := rootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the persistent flags and the resources built from them.
type app struct {
	configPath string
	paramsFile string
	paramsDB   string
	debug      bool

	logger  *zap.Logger
	factory *factory.ParameterFactory
	out     io.Writer
	errOut  io.Writer
}

func rootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{
		factory: factory.NewParameterFactory(),
		out:     out,
		errOut:  errOut,
	}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Peru net-pay calculator",
		Long: `netpay computes monthly and annual net pay for Peruvian employees under
the NORMAL and RIA regimes, including pension and fifth-category income tax,
with a step-by-step breakdown.

Parameters come from, in order: the SQLite store (--params-db) when it holds
data, the parameter document (--params-file), or the embedded defaults.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.paramsFile, "params-file", "", "Parameter document (JSON or YAML)")
	cmd.PersistentFlags().StringVar(&a.paramsDB, "params-db", "", "SQLite parameter store path")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable development logging")

	cmd.AddCommand(a.calcCmd())
	cmd.AddCommand(a.paramsCmd())

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// setup merges config and flags and builds the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.paramsFile == "" {
		a.paramsFile = cfg.ParamsFile
	}
	if a.paramsDB == "" {
		a.paramsDB = cfg.ParamsDB
	}

	if a.debug {
		a.logger, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
	} else {
		a.logger = zap.NewNop()
	}
	return nil
}

// openStore returns the configured store, or nil when none is configured.
func (a *app) openStore() (*sqlite.Store, error) {
	if a.paramsDB == "" {
		return nil, nil
	}
	store, err := sqlite.New(a.paramsDB)
	if err != nil {
		return nil, fmt.Errorf("open parameter store: %w", err)
	}
	return store, nil
}

// loadTable builds the parameter table the same way the server does.
func (a *app) loadTable(ctx context.Context) (*payroll.Table, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}

	var src generic.ParameterSource
	if store != nil {
		defer store.Close()
		src = store
	}

	table, origin, err := a.factory.Load(ctx, a.paramsFile, src)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("parameters loaded",
		zap.String("origin", string(origin)),
		zap.Strings("regimes", table.Regimes()),
	)
	return table, nil
}
