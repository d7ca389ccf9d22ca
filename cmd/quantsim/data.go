package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/marketdata"
	"github.com/newthinker/quantsim/internal/marketdata/archive"
	"github.com/newthinker/quantsim/internal/marketdata/binance"
	"github.com/newthinker/quantsim/internal/marketdata/clickhouse"
	"github.com/newthinker/quantsim/internal/marketdata/postgres"
	"github.com/newthinker/quantsim/internal/marketdata/yahoo"
)

// openProvider builds the configured candle source. The returned func
// releases any connections it holds.
func openProvider(ctx context.Context, cfg config.DataConfig, log *zap.Logger) (marketdata.Provider, func(), error) {
	noop := func() {}
	switch cfg.Provider {
	case "archive":
		p, err := openArchive(cfg.Archive, log)
		return p, noop, err
	case "yahoo":
		return newYahoo(cfg.Yahoo, log), noop, nil
	case "binance":
		return newBinance(cfg.Binance, log), noop, nil
	case "postgres":
		p, err := postgres.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.Table, log.Named("postgres"))
		if err != nil {
			return nil, noop, err
		}
		return p, p.Close, nil
	case "clickhouse":
		p, err := clickhouse.Open(ctx, clickhouse.Config{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
			Table:    cfg.ClickHouse.Table,
		}, log.Named("clickhouse"))
		if err != nil {
			return nil, noop, err
		}
		return p, func() {
			if err := p.Close(); err != nil {
				log.Warn("closing clickhouse", zap.Error(err))
			}
		}, nil
	default:
		return nil, noop, fmt.Errorf("unknown data provider %q", cfg.Provider)
	}
}

func openArchive(cfg config.ArchiveConfig, log *zap.Logger) (*archive.Provider, error) {
	var (
		store archive.Storage
		err   error
	)
	switch cfg.Type {
	case "s3":
		store, err = archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	default:
		store, err = archive.NewLocalFS(cfg.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	return archive.NewProvider(store, log.Named("archive")), nil
}

func newYahoo(cfg config.YahooConfig, log *zap.Logger) *yahoo.Yahoo {
	return yahoo.New(
		yahoo.WithBaseURL(cfg.BaseURL),
		yahoo.WithTimeout(cfg.Timeout),
		yahoo.WithLogger(log.Named("yahoo")),
	)
}

func newBinance(cfg config.BinanceConfig, log *zap.Logger) *binance.Binance {
	return binance.New(
		binance.WithBaseURL(cfg.BaseURL),
		binance.WithQuote(cfg.Quote),
		binance.WithTimeout(cfg.Timeout),
		binance.WithLogger(log.Named("binance")),
	)
}

// remoteSource returns an HTTP provider by name for the fetch command.
func remoteSource(name string, cfg config.DataConfig, log *zap.Logger) (marketdata.Provider, error) {
	switch name {
	case "yahoo":
		return newYahoo(cfg.Yahoo, log), nil
	case "binance":
		return newBinance(cfg.Binance, log), nil
	default:
		return nil, fmt.Errorf("unknown fetch source %q, want yahoo or binance", name)
	}
}
