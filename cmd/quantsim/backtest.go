package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/quantsim/internal/backtest"
	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/marketdata"
	"github.com/newthinker/quantsim/internal/runner"
)

var (
	backtestSymbol string
	backtestFrom   string
	backtestTo     string
	backtestParams map[string]string
	backtestFormat string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run backtest on a strategy",
	Long:  "Run a strategy against historical data and show performance statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "Symbol to backtest (required)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD (defaults to backtest.start_date)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD (defaults to backtest.end_date)")
	backtestCmd.Flags().StringToStringVar(&backtestParams, "set", nil, "Strategy parameter override, e.g. --set emaFastPeriod=12")
	backtestCmd.Flags().StringVarP(&backtestFormat, "output", "o", "text", "Output format: text or json")

	backtestCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.finish()
	ctx := cmd.Context()

	strat, err := a.strategies.Get(args[0])
	if err != nil {
		return err
	}

	cfg, err := a.cfg.Backtest.Engine()
	if err != nil {
		return err
	}
	if cfg.StartDate, err = dateFlag(backtestFrom, cfg.StartDate); err != nil {
		return err
	}
	if cfg.EndDate, err = dateFlag(backtestTo, cfg.EndDate); err != nil {
		return err
	}

	extra := make(map[string]any, len(backtestParams))
	for k, v := range backtestParams {
		extra[k] = v
	}
	overrides := runner.Overrides(a.cfg, strat.Name(), extra)

	provider, release, err := openProvider(ctx, a.cfg.Data, a.log)
	if err != nil {
		return err
	}
	defer release()

	candles, err := provider.FetchCandles(ctx, marketdata.Request{
		Symbol:    backtestSymbol,
		Timeframe: a.cfg.Data.Timeframe,
		Start:     cfg.StartDate,
		End:       cfg.EndDate,
	})
	if err != nil {
		return err
	}

	res, err := a.engine.Run(ctx, candles, cfg, strat, overrides)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if backtestFormat == "json" {
		return writeJSON(out, res)
	}
	printResult(out, res)
	return nil
}

func dateFlag(flag string, fallback time.Time) (time.Time, error) {
	if flag == "" {
		return fallback, nil
	}
	return config.ParseDate(flag)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, res *backtest.Result) {
	m := res.Metrics
	fmt.Fprintf(w, "=== %s ===\n", res.Name)
	fmt.Fprintf(w, "Strategy: %s\n", res.Strategy)
	if n := len(res.EquityCurve); n > 0 {
		fmt.Fprintf(w, "Period:   %s to %s (%d bars)\n",
			res.EquityCurve[0].Date.Format(time.DateOnly),
			res.EquityCurve[n-1].Date.Format(time.DateOnly), n)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total return\t%.2f%%\n", m.TotalReturn)
	fmt.Fprintf(tw, "Annualized return\t%.2f%%\n", m.AnnualizedReturn)
	fmt.Fprintf(tw, "Max drawdown\t%.2f%%\n", m.MaxDrawdown)
	fmt.Fprintf(tw, "Sharpe\t%.2f\n", m.SharpeRatio)
	fmt.Fprintf(tw, "Sortino\t%.2f\n", m.SortinoRatio)
	fmt.Fprintf(tw, "Trades\t%d (%d won, %d lost)\n", m.TotalTrades, m.WinningTrades, m.LosingTrades)
	fmt.Fprintf(tw, "Win rate\t%.2f%%\n", m.WinRate)
	fmt.Fprintf(tw, "Profit factor\t%.2f\n", m.ProfitFactor)
	fmt.Fprintf(tw, "Avg win / loss\t%.2f%% / %.2f%%\n", m.AvgWin, m.AvgLoss)
	fmt.Fprintf(tw, "Avg holding days\t%.1f\n", m.AvgHoldingDays)
	fmt.Fprintf(tw, "Commission\t%.2f\n", m.TotalCommission)
	fmt.Fprintf(tw, "Final equity\t%.2f\n", m.FinalEquity)
	if res.StrategyFaults > 0 {
		fmt.Fprintf(tw, "Strategy faults\t%d\n", res.StrategyFaults)
	}
	tw.Flush()

	if len(res.MonthlyReturns) > 0 {
		months := make([]string, 0, len(res.MonthlyReturns))
		for k := range res.MonthlyReturns {
			months = append(months, k)
		}
		sort.Strings(months)
		fmt.Fprintln(w, "\nMonthly returns")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		for _, k := range months {
			fmt.Fprintf(tw, "%s\t%.2f%%\t\n", k, res.MonthlyReturns[k])
		}
		tw.Flush()
	}

	if p := res.OpenPosition; p != nil {
		fmt.Fprintf(w, "\nOpen position: %.0f @ %.2f since %s (stop %.2f, target %.2f)\n",
			p.Quantity, p.EntryPrice, p.EntryDate.Format(time.DateOnly), p.StopPrice, p.TargetPrice)
	}
}
