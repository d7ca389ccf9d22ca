// internal/marketdata/postgres/postgres.go

// Package postgres loads candles from a Postgres table.
//
// Expected layout:
//
//	CREATE TABLE candles (
//	    symbol    text        NOT NULL,
//	    timeframe text        NOT NULL,
//	    ts        timestamptz NOT NULL,
//	    open      numeric     NOT NULL,
//	    high      numeric     NOT NULL,
//	    low       numeric     NOT NULL,
//	    close     numeric     NOT NULL,
//	    volume    numeric     NOT NULL,
//	    PRIMARY KEY (symbol, timeframe, ts)
//	);
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/marketdata"
)

// DefaultTable is used when no table is configured.
const DefaultTable = "candles"

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Provider implements marketdata.Provider over a pgx pool.
type Provider struct {
	db     querier
	pool   *pgxpool.Pool
	table  string
	logger *zap.Logger
}

// Open connects to dsn and verifies connectivity. Numeric columns scan
// into shopspring decimals.
func Open(ctx context.Context, dsn, table string, logger *zap.Logger) (*Provider, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, core.Errorf(core.ErrConfigInvalid, "parse postgres dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, core.Errorf(core.ErrProviderFailed, "postgres ping: %w", err)
	}

	p := newProvider(pool, table, logger)
	p.pool = pool
	return p, nil
}

func newProvider(db querier, table string, logger *zap.Logger) *Provider {
	if table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{db: db, table: table, logger: logger}
}

func (p *Provider) Name() string { return "postgres" }

// Close releases the pool.
func (p *Provider) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *Provider) query(req marketdata.Request) (string, []any) {
	table := pgx.Identifier(strings.Split(p.table, ".")).Sanitize()

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT ts, open, high, low, close, volume FROM %s WHERE symbol = $1 AND timeframe = $2", table)
	args := []any{req.Symbol, req.Timeframe}
	if !req.Start.IsZero() {
		args = append(args, req.Start)
		fmt.Fprintf(&b, " AND ts >= $%d", len(args))
	}
	if !req.End.IsZero() {
		args = append(args, req.End)
		fmt.Fprintf(&b, " AND ts <= $%d", len(args))
	}
	if req.OutputSize > 0 {
		args = append(args, req.OutputSize)
		fmt.Fprintf(&b, " ORDER BY ts DESC LIMIT $%d", len(args))
	} else {
		b.WriteString(" ORDER BY ts")
	}
	return b.String(), args
}

func (p *Provider) FetchCandles(ctx context.Context, req marketdata.Request) ([]core.Candle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sql, args := p.query(req)

	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, core.Errorf(core.ErrProviderFailed, "query candles: %w", err)
	}
	defer rows.Close()

	var candles []core.Candle
	for rows.Next() {
		var (
			ts                             time.Time
			open, high, low, close, volume decimal.Decimal
		)
		if err := rows.Scan(&ts, &open, &high, &low, &close, &volume); err != nil {
			return nil, core.Errorf(core.ErrProviderFailed, "scan candle: %w", err)
		}
		candles = append(candles, core.Candle{
			Symbol:   req.Symbol,
			Interval: req.Timeframe,
			Time:     ts.UTC(),
			Open:     open.InexactFloat64(),
			High:     high.InexactFloat64(),
			Low:      low.InexactFloat64(),
			Close:    close.InexactFloat64(),
			Volume:   volume.InexactFloat64(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, core.Errorf(core.ErrProviderFailed, "read candles: %w", err)
	}

	p.logger.Debug("postgres fetched",
		zap.String("symbol", req.Symbol),
		zap.String("timeframe", req.Timeframe),
		zap.Int("rows", len(candles)),
	)
	return marketdata.Finish(candles, req)
}
