package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/backtest"
	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/logger"
	"github.com/newthinker/quantsim/internal/metrics"
	"github.com/newthinker/quantsim/internal/strategy"
	"github.com/newthinker/quantsim/internal/strategy/builtin"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "quantsim",
	Short: "quantsim - strategy backtesting over historical candles",
	Long: `quantsim evaluates trading strategies against historical price series
and reports trades, equity curves and risk-adjusted performance.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// app is the wiring shared by the subcommands.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	metrics    *metrics.Registry
	strategies *strategy.Registry
	engine     *backtest.Engine
}

func setup() (*app, error) {
	var cfg *config.Config
	if cfgFile != "" {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return nil, err
		}
	} else {
		cfg = config.Defaults()
	}
	if debug {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
	}

	a := &app{
		cfg:        cfg,
		log:        log,
		metrics:    metrics.NewRegistry(),
		strategies: builtin.NewRegistry(log),
	}
	a.engine = backtest.New(
		backtest.WithLogger(log),
		backtest.WithRecorder(a.metrics),
	)
	return a, nil
}

// finish flushes the metrics textfile when enabled.
func (a *app) finish() {
	if a.cfg.Metrics.Enabled {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			a.log.Error("writing metrics textfile", zap.String("path", a.cfg.Metrics.Textfile), zap.Error(err))
		} else {
			a.log.Debug("metrics written", zap.String("path", a.cfg.Metrics.Textfile))
		}
	}
	_ = a.log.Sync()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
