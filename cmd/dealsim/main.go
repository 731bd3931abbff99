/*
dealsim - run a securitization deal from a YAML definition

PURPOSE:
  Command-line front end for the cashflow engine. Loads a deal definition,
  runs every period to termination, and prints (or records to SQLite) the
  per-period waterfall results.

USAGE:
  dealsim run --deal deal.yaml
  dealsim run --deal deal.yaml --db run.db --verbose
  dealsim schedule --deal deal.yaml
*/
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/cashflow-engine/engine"
	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/recorder"
)

var (
	dealPath string
	dbPath   string
	verbose  bool
)

func main() {
	root := &cobra.Command{
		Use:   "dealsim",
		Short: "Run securitization deal waterfalls from YAML definitions",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dealPath, "deal", "deal.yaml", "path to the deal definition")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "per-step debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run every period to termination",
		RunE:  runDeal,
	}
	runCmd.Flags().StringVar(&dbPath, "db", "", "record the run into a SQLite database at this path")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the generated payment schedule without running",
		RunE:  printSchedule,
	}

	root.AddCommand(runCmd, scheduleCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

func runDeal(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	def, err := factory.Load(dealPath)
	if err != nil {
		return err
	}

	params, err := factory.Build(def)
	if err != nil {
		return err
	}
	params.Pool = factory.BuildPool(def)
	params.Logger = logger

	deal, err := engine.NewDeal(params)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := deal.Run(ctx); err != nil {
		return err
	}

	var rec recorder.Recorder = recorder.Noop{}
	if dbPath != "" {
		sqlite, err := recorder.NewSQLite(dbPath)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		rec = sqlite
	}

	for _, r := range deal.Records() {
		if err := rec.Record(ctx, def.Name, r); err != nil {
			return err
		}
		printRecord(cmd, r)
	}

	logger.Info("run complete",
		zap.Int("periods", len(deal.Records())),
		zap.String("status", string(deal.Status())),
	)
	return nil
}

func printRecord(cmd *cobra.Command, r engine.ExecutionRecord) {
	tag := ""
	if r.Liquidating {
		tag = "  [liquidation]"
	}
	cmd.Printf("period %d  %s%s\n", r.Period, r.PaymentDate, tag)
	cmd.Printf("  collected  interest=%s principal=%s\n",
		r.InterestCollected, r.PrincipalCollected)
	for _, s := range r.Steps {
		switch {
		case s.Gated:
			cmd.Printf("  %-34s gated\n", s.Step)
		case s.PaidInKind:
			cmd.Printf("  %-34s due=%s capitalized=%s\n", s.Step, s.AmountDue, s.AmountPaid)
		default:
			cmd.Printf("  %-34s due=%s paid=%s left=%s\n",
				s.Step, s.AmountDue, s.AmountPaid, s.RemainingAfter)
		}
	}
	for _, t := range r.Triggers {
		ratio := "undefined"
		if t.RatioDefined {
			ratio = t.Ratio.String()
		}
		cmd.Printf("  %s  ratio=%s pass=%t cure_needed=%s cure_paid=%s\n",
			t.ID, ratio, t.Pass, t.CureNeeded, t.CurePaid)
	}
	cmd.Printf("  remaining  interest=%s principal=%s reinvested=%s\n\n",
		r.InterestRemaining, r.PrincipalRemaining, r.Reinvested)
}

func printSchedule(cmd *cobra.Command, args []string) error {
	def, err := factory.Load(dealPath)
	if err != nil {
		return err
	}
	params, err := factory.Build(def)
	if err != nil {
		return err
	}

	cmd.Printf("%-6s %-12s %-12s %-12s %-12s\n",
		"period", "start", "end", "payment", "determination")
	for _, p := range params.Schedule {
		cmd.Printf("%-6d %-12s %-12s %-12s %-12s\n",
			p.Index, p.CollectionStart, p.CollectionEnd, p.PaymentDate, p.DeterminationDate)
	}
	return nil
}
