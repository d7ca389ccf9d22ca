package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/newthinker/quantsim/internal/marketdata"
	"github.com/newthinker/quantsim/internal/regime"
	"github.com/newthinker/quantsim/internal/runner"
	"github.com/newthinker/quantsim/internal/score"
	"github.com/newthinker/quantsim/internal/strategy"
	"github.com/newthinker/quantsim/internal/strategy/builtin"
)

// analyzeBars is enough history for EMA200 and the regime classifier.
const analyzeBars = 400

var (
	analyzeSymbol     string
	analyzeBenchmark  string
	analyzeStrategies []string
	analyzeFormat     string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Show indicators, regime, score and signals at the latest bar",
	Args:  cobra.NoArgs,
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeSymbol, "symbol", "", "Symbol to analyze (required)")
	analyzeCmd.Flags().StringVar(&analyzeBenchmark, "benchmark", "", "Benchmark symbol for relative strength, e.g. SPY")
	analyzeCmd.Flags().StringSliceVar(&analyzeStrategies, "strategies", nil, "Strategies to evaluate (default all)")
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "output", "o", "text", "Output format: text or json")

	analyzeCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(analyzeCmd)
}

type analysis struct {
	Symbol   string                 `json:"symbol"`
	Time     time.Time              `json:"time"`
	Close    float64                `json:"close"`
	Snapshot indicator.Snapshot     `json:"snapshot"`
	Regime   *regime.Result         `json:"regime,omitempty"`
	Score    *score.Result          `json:"score,omitempty"`
	Signals  []strategy.NamedSignal `json:"signals"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.finish()
	ctx := cmd.Context()

	provider, release, err := openProvider(ctx, a.cfg.Data, a.log)
	if err != nil {
		return err
	}
	defer release()

	fetch := func(symbol string) ([]core.Candle, error) {
		return provider.FetchCandles(ctx, marketdata.Request{
			Symbol:     symbol,
			Timeframe:  a.cfg.Data.Timeframe,
			OutputSize: analyzeBars,
		})
	}
	candles, err := fetch(analyzeSymbol)
	if err != nil {
		return err
	}

	var scoreOpts []score.Option
	if analyzeBenchmark != "" {
		bench, err := fetch(analyzeBenchmark)
		if err != nil {
			return fmt.Errorf("benchmark %s: %w", analyzeBenchmark, err)
		}
		scoreOpts = append(scoreOpts, score.WithBenchmark(bench))
	}
	// The composite strategy shares the benchmark with the scorer.
	strategies := builtin.NewRegistry(a.log, scoreOpts...)

	f := indicator.NewFrame(candles)
	i := f.Len() - 1
	rep := analysis{
		Symbol:   strings.ToUpper(analyzeSymbol),
		Time:     f.Candle(i).Time,
		Close:    f.Candle(i).Close,
		Snapshot: f.Snapshot(i),
	}
	if r, ok := regime.Classify(f, i); ok {
		rep.Regime = &r
	}
	switch s, err := score.New(scoreOpts...).Score(f, i); {
	case err == nil:
		rep.Score = &s
	case !errors.Is(err, core.ErrInsufficientData):
		return err
	}

	names := analyzeStrategies
	if len(names) == 0 {
		names = strategies.Names()
	}
	overrides := make(map[string]strategy.Params, len(names))
	for _, n := range names {
		overrides[n] = runner.Overrides(a.cfg, n, nil)
	}
	if rep.Signals, err = strategies.SignalsAt(ctx, f, i, names, overrides); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeFormat == "json" {
		return writeJSON(out, rep)
	}
	printAnalysis(out, rep)
	return nil
}

func printAnalysis(w io.Writer, rep analysis) {
	s := rep.Snapshot
	fmt.Fprintf(w, "=== %s %s close %.2f ===\n\n", rep.Symbol, rep.Time.Format(time.DateOnly), rep.Close)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(name string, v indicator.Value) {
		if v.Valid {
			fmt.Fprintf(tw, "%s\t%.2f\n", name, v.V)
		} else {
			fmt.Fprintf(tw, "%s\t-\n", name)
		}
	}
	row("EMA 9", s.EMA9)
	row("EMA 21", s.EMA21)
	row("EMA 50", s.EMA50)
	row("EMA 200", s.EMA200)
	row("RSI 14", s.RSI14)
	row("MACD", s.MACD.MACD)
	row("MACD signal", s.MACD.Signal)
	row("StochRSI K", s.StochRSI.K)
	row("Williams %R", s.WilliamsR)
	row("MFI", s.MFI)
	row("ATR 14", s.ATR14)
	row("Bollinger upper", s.Bollinger.Upper)
	row("Bollinger lower", s.Bollinger.Lower)
	row("VWAP", s.VWAP)
	fmt.Fprintf(tw, "Support\t%v\n", s.Support)
	fmt.Fprintf(tw, "Resistance\t%v\n", s.Resistance)
	tw.Flush()

	if r := rep.Regime; r != nil {
		fmt.Fprintf(w, "\nRegime: %s (strength %.0f, volatility %s), favour %s, size x%.2f\n",
			r.Regime, r.Strength, r.Volatility, r.Recommendation.Family, r.Recommendation.SizeMultiplier)
	} else {
		fmt.Fprintf(w, "\nRegime: needs %d bars\n", regime.MinBars)
	}
	if sc := rep.Score; sc != nil {
		fmt.Fprintf(w, "Score:  %.1f %s (%s confidence)\n", sc.Total, sc.Recommendation, sc.Confidence)
		for _, reason := range sc.Reasons {
			fmt.Fprintf(w, "  + %s\n", reason)
		}
		for _, flag := range sc.RiskFlags {
			fmt.Fprintf(w, "  ! %s\n", flag)
		}
	}

	fmt.Fprintln(w, "\nSignals")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, ns := range rep.Signals {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", ns.Strategy, ns.Signal.Type, ns.Signal.Strength, ns.Signal.Reason)
	}
	tw.Flush()
}
