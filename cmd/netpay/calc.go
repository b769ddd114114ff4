package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/netpay-engine/api"
	"github.com/warp/netpay-engine/generic"
	"github.com/warp/netpay-engine/payroll"
	"github.com/warp/netpay-engine/report"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatPDF  = "pdf"
)

type calcOptions struct {
	salary       string
	food         string
	family       bool
	year         int
	regime       string
	healthScheme string
	format       string
	output       string
}

func (a *app) calcCmd() *cobra.Command {
	opts := calcOptions{}

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate net pay and print the breakdown",
		Example: `  netpay calc --salary 3000 --food 300
  netpay calc --salary 10000 --regime RIA --format json
  netpay calc --salary 3000 --format pdf --output desglose.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCalc(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.salary, "salary", "s", "", "Monthly basic salary in soles (required)")
	cmd.Flags().StringVarP(&opts.food, "food", "f", "0", "Monthly food allowance in soles")
	cmd.Flags().BoolVar(&opts.family, "family", false, "Receives the family allowance")
	cmd.Flags().IntVarP(&opts.year, "year", "y", time.Now().Year(), "Tax year")
	cmd.Flags().StringVarP(&opts.regime, "regime", "r", string(payroll.RegimeNormal), "Regime: NORMAL or RIA")
	cmd.Flags().StringVar(&opts.healthScheme, "health", string(payroll.HealthEsSalud), "Health scheme: ESSALUD or EPS")
	cmd.Flags().StringVar(&opts.format, "format", formatText, "Output format: text, json or pdf")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write to this file instead of stdout (required for pdf)")
	_ = cmd.MarkFlagRequired("salary")

	return cmd
}

func (a *app) runCalc(cmd *cobra.Command, opts calcOptions) error {
	in, err := opts.inputs()
	if err != nil {
		return err
	}
	format := strings.ToLower(opts.format)
	switch format {
	case formatText, formatJSON:
	case formatPDF:
		if opts.output == "" {
			return fmt.Errorf("--output is required for pdf")
		}
	default:
		return fmt.Errorf("unknown format %q (want text, json or pdf)", opts.format)
	}

	table, err := a.loadTable(cmd.Context())
	if err != nil {
		return err
	}

	res, err := payroll.Calculate(in, table)
	if err != nil {
		return err
	}
	a.logger.Debug("calculation",
		zap.String("regime", string(in.Regime)),
		zap.Int("year", in.Year),
		zap.Int("effective_year", res.EffectiveYear),
	)
	if res.UsedFallback() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Aviso: no hay parámetros para %d, usando parámetros del año %d\n",
			in.Year, res.EffectiveYear)
	}

	textOpts := report.TextOptions{Footer: api.ExportFooter}
	write := func(out io.Writer) error {
		switch format {
		case formatJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(api.NewCalculationDTO(uuid.NewString(), res))
		case formatPDF:
			return report.WritePDF(out, res, textOpts)
		default:
			return report.WriteText(out, res, textOpts)
		}
	}

	if opts.output == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	return writeAndClose(f, write)
}

// writeAndClose runs write against wc and closes it. A close error is
// returned when the write succeeded.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) error {
	if err := write(wc); err != nil {
		wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

// inputs parses the flags into engine inputs. Amounts are parsed as
// decimals so "3000.10" is exact.
func (o calcOptions) inputs() (payroll.Inputs, error) {
	salary, err := parseAmount("salary", o.salary)
	if err != nil {
		return payroll.Inputs{}, err
	}
	food, err := parseAmount("food", o.food)
	if err != nil {
		return payroll.Inputs{}, err
	}
	regime, err := payroll.ParseRegime(o.regime)
	if err != nil {
		return payroll.Inputs{}, err
	}
	scheme, err := payroll.ParseHealthScheme(o.healthScheme)
	if err != nil {
		return payroll.Inputs{}, err
	}
	return payroll.Inputs{
		BasicSalary:        salary,
		FoodAllowance:      food,
		HasFamilyAllowance: o.family,
		Year:               o.year,
		Regime:             regime,
		HealthScheme:       scheme,
	}, nil
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, &generic.InvalidInputError{Field: field, Reason: "must be a number"}
	}
	return d, nil
}
