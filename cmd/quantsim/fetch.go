package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/marketdata"
)

var (
	fetchFrom   string
	fetchTo     string
	fetchForce  bool
	fetchSource string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [symbol...]",
	Short: "Download candles into the archive",
	Long: `Download history for each symbol from Yahoo Finance or Binance and store
it as CSV in the configured archive (local directory or S3). Symbols already
archived are skipped unless --force is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "Start date YYYY-MM-DD (default full history)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "End date YYYY-MM-DD")
	fetchCmd.Flags().BoolVarP(&fetchForce, "force", "f", false, "Replace symbols already archived")
	fetchCmd.Flags().StringVar(&fetchSource, "source", "yahoo", "Where to download from: yahoo or binance")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.finish()
	ctx := cmd.Context()

	start, err := dateFlag(fetchFrom, time.Time{})
	if err != nil {
		return err
	}
	end, err := dateFlag(fetchTo, time.Time{})
	if err != nil {
		return err
	}

	store, err := openArchive(a.cfg.Data.Archive, a.log)
	if err != nil {
		return err
	}
	source, err := remoteSource(fetchSource, a.cfg.Data, a.log)
	if err != nil {
		return err
	}
	tf := a.cfg.Data.Timeframe

	var failed int
	for _, sym := range args {
		sym = strings.ToUpper(sym)
		if !fetchForce {
			have, err := store.Has(ctx, sym, tf)
			if err != nil {
				return err
			}
			if have {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: already archived\n", sym)
				continue
			}
		}

		candles, err := source.FetchCandles(ctx, marketdata.Request{Symbol: sym, Timeframe: tf, Start: start, End: end})
		if err == nil {
			err = store.Store(ctx, sym, tf, candles)
		}
		if err != nil {
			failed++
			a.log.Error("fetch failed", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bars\n", sym, len(candles))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d symbols failed", failed, len(args))
	}
	return nil
}
