// internal/marketdata/clickhouse/clickhouse.go

// Package clickhouse loads candles from a ClickHouse table shaped like
//
//	CREATE TABLE candles (
//	    symbol       String,
//	    interval     LowCardinality(String),
//	    open_time_ms UInt64,
//	    open Float64, high Float64, low Float64, close Float64, volume Float64,
//	    version      UInt64
//	) ENGINE = ReplacingMergeTree(version)
//	ORDER BY (symbol, interval, open_time_ms)
package clickhouse

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/marketdata"
)

// DefaultTable is used when no table is configured.
const DefaultTable = "candles"

var validIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds connection settings.
type Config struct {
	Addr     []string
	Database string
	Username string
	Password string
	Table    string
}

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type querier interface {
	Query(ctx context.Context, query string, args ...any) (rows, error)
}

type connQuerier struct {
	conn driver.Conn
}

func (c connQuerier) Query(ctx context.Context, query string, args ...any) (rows, error) {
	return c.conn.Query(ctx, query, args...)
}

// Provider implements marketdata.Provider over a native ClickHouse connection.
type Provider struct {
	db     querier
	conn   driver.Conn
	table  string
	logger *zap.Logger
}

// Open connects and pings the server.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Provider, error) {
	if len(cfg.Addr) == 0 {
		return nil, core.Errorf(core.ErrConfigMissing, "clickhouse addr is required")
	}
	table, err := qualify(cfg.Database, cfg.Table)
	if err != nil {
		return nil, err
	}

	conn, err := ch.Open(&ch.Options{
		Addr: cfg.Addr,
		Auth: ch.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 10 * time.Second,
		Settings: ch.Settings{
			"max_execution_time": 60,
		},
	})
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, core.Errorf(core.ErrProviderFailed, "clickhouse ping: %w", err)
	}

	p := newProvider(connQuerier{conn: conn}, table, logger)
	p.conn = conn
	return p, nil
}

func newProvider(db querier, table string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{db: db, table: table, logger: logger}
}

// qualify validates and joins database and table names.
func qualify(database, table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	parts := []string{table}
	if database != "" {
		parts = []string{database, table}
	}
	for _, p := range parts {
		if !validIdent.MatchString(p) {
			return "", core.Errorf(core.ErrConfigInvalid, "invalid clickhouse identifier %q", p)
		}
	}
	return strings.Join(parts, "."), nil
}

func (p *Provider) Name() string { return "clickhouse" }

// Close closes the connection.
func (p *Provider) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

func (p *Provider) query(req marketdata.Request) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT open_time_ms, open, high, low, close, volume FROM %s FINAL WHERE symbol = ? AND interval = ?", p.table)
	args := []any{req.Symbol, req.Timeframe}
	if !req.Start.IsZero() {
		b.WriteString(" AND open_time_ms >= ?")
		args = append(args, uint64(req.Start.UnixMilli()))
	}
	if !req.End.IsZero() {
		b.WriteString(" AND open_time_ms <= ?")
		args = append(args, uint64(req.End.UnixMilli()))
	}
	if req.OutputSize > 0 {
		fmt.Fprintf(&b, " ORDER BY open_time_ms DESC LIMIT %d", req.OutputSize)
	} else {
		b.WriteString(" ORDER BY open_time_ms")
	}
	return b.String(), args
}

func (p *Provider) FetchCandles(ctx context.Context, req marketdata.Request) ([]core.Candle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	query, args := p.query(req)

	rs, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, core.Errorf(core.ErrProviderFailed, "query candles: %w", err)
	}
	defer rs.Close()

	var candles []core.Candle
	for rs.Next() {
		var (
			openMs uint64
			c      core.Candle
		)
		if err := rs.Scan(&openMs, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, core.Errorf(core.ErrProviderFailed, "scan candle: %w", err)
		}
		c.Symbol = req.Symbol
		c.Interval = req.Timeframe
		c.Time = time.UnixMilli(int64(openMs)).UTC()
		candles = append(candles, c)
	}
	if err := rs.Err(); err != nil {
		return nil, core.Errorf(core.ErrProviderFailed, "read candles: %w", err)
	}

	p.logger.Debug("clickhouse fetched",
		zap.String("symbol", req.Symbol),
		zap.String("timeframe", req.Timeframe),
		zap.Int("rows", len(candles)),
	)
	return marketdata.Finish(candles, req)
}
