package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/newthinker/quantsim/internal/backtest"
	"github.com/newthinker/quantsim/internal/runner"
)

var (
	batchSymbols    []string
	batchStrategies []string
	batchFormat     string
	batchQuiet      bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run many backtests in parallel",
	Long: `Run the jobs listed in the config file, or every combination of
--symbols and --strategies, in parallel. Candles are loaded once per symbol.`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringSliceVar(&batchSymbols, "symbols", nil, "Symbols to backtest (overrides config jobs)")
	batchCmd.Flags().StringSliceVar(&batchStrategies, "strategies", nil, "Strategies to run for each symbol (default all)")
	batchCmd.Flags().StringVarP(&batchFormat, "output", "o", "text", "Output format: text or json")
	batchCmd.Flags().BoolVarP(&batchQuiet, "quiet", "q", false, "Hide the progress bar")

	rootCmd.AddCommand(batchCmd)
}

type batchRow struct {
	Name     string           `json:"name"`
	Symbol   string           `json:"symbol"`
	Strategy string           `json:"strategy"`
	Error    string           `json:"error,omitempty"`
	Result   *backtest.Result `json:"result,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.finish()
	ctx := cmd.Context()

	jobs, err := batchJobs(a)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return errors.New("no jobs: add a jobs section to the config or pass --symbols")
	}

	base, err := a.cfg.Backtest.Engine()
	if err != nil {
		return err
	}
	provider, release, err := openProvider(ctx, a.cfg.Data, a.log)
	if err != nil {
		return err
	}
	defer release()

	opts := []runner.Option{
		runner.WithConcurrency(a.cfg.Runner.Concurrency),
		runner.WithLogger(a.log),
		runner.WithGauge(a.metrics),
		runner.WithBaseConfig(base),
		runner.WithTimeframe(a.cfg.Data.Timeframe),
	}
	if !batchQuiet {
		bar := progressbar.NewOptions(len(jobs),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("Backtesting"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
		defer bar.Finish()
		opts = append(opts, runner.WithProgress(func(runner.Outcome) { bar.Add(1) }))
	}

	outcomes, err := runner.New(provider, a.strategies, a.engine, opts...).Run(ctx, jobs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if batchFormat == "json" {
		rows := make([]batchRow, len(outcomes))
		for i, o := range outcomes {
			rows[i] = batchRow{Name: o.Job.Name, Symbol: o.Job.Symbol, Strategy: o.Job.Strategy, Result: o.Result}
			if o.Err != nil {
				rows[i].Error = o.Err.Error()
			}
		}
		return writeJSON(out, rows)
	}
	printBatch(out, outcomes)
	return nil
}

func batchJobs(a *app) ([]runner.Job, error) {
	if len(batchSymbols) == 0 {
		return runner.Jobs(a.cfg)
	}
	names := batchStrategies
	if len(names) == 0 {
		names = a.strategies.Names()
	}
	var jobs []runner.Job
	for _, sym := range batchSymbols {
		for _, name := range names {
			jobs = append(jobs, runner.Job{
				Name:     sym + " " + name,
				Symbol:   sym,
				Strategy: name,
				Params:   runner.Overrides(a.cfg, name, nil),
			})
		}
	}
	return jobs, nil
}

func printBatch(w io.Writer, outcomes []runner.Outcome) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tRETURN\tSHARPE\tMAX DD\tTRADES\tWIN RATE\tSTATUS")
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t%v\n", o.Job.Name, o.Err)
			continue
		}
		m := o.Result.Metrics
		fmt.Fprintf(tw, "%s\t%.2f%%\t%.2f\t%.2f%%\t%d\t%.1f%%\tok\n",
			o.Job.Name, m.TotalReturn, m.SharpeRatio, m.MaxDrawdown, m.TotalTrades, m.WinRate)
	}
	tw.Flush()
}
