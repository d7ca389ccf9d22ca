// internal/marketdata/archive/provider.go
package archive

import (
	"bytes"
	"context"
	"errors"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/marketdata"
)

const ext = ".csv"

// Provider reads candles stored as <timeframe>/<SYMBOL>.csv.
type Provider struct {
	store  Storage
	logger *zap.Logger
}

// NewProvider wraps a storage backend.
func NewProvider(store Storage, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{store: store, logger: logger}
}

func (p *Provider) Name() string { return "archive" }

// Path returns the object key for a symbol and timeframe.
func Path(symbol, timeframe string) string {
	return path.Join(strings.ToLower(timeframe), strings.ToUpper(symbol)+ext)
}

func (p *Provider) FetchCandles(ctx context.Context, req marketdata.Request) ([]core.Candle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := Path(req.Symbol, req.Timeframe)
	data, err := p.store.Read(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, core.Errorf(core.ErrNoData, "archive has no %s", key)
	}
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}

	candles, err := marketdata.ReadCSV(bytes.NewReader(data), strings.ToUpper(req.Symbol), req.Timeframe)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("archive read",
		zap.String("path", key),
		zap.Int("rows", len(candles)),
	)
	return marketdata.Finish(candles, req)
}

// Store writes candles for a symbol, replacing any previous file.
func (p *Provider) Store(ctx context.Context, symbol, timeframe string, candles []core.Candle) error {
	var buf bytes.Buffer
	if err := marketdata.WriteCSV(&buf, candles); err != nil {
		return err
	}
	key := Path(symbol, timeframe)
	if err := p.store.Write(ctx, key, buf.Bytes()); err != nil {
		return core.WrapError(core.ErrProviderFailed, err)
	}
	p.logger.Info("archive stored",
		zap.String("path", key),
		zap.Int("rows", len(candles)),
	)
	return nil
}

// Symbols lists the symbols archived for a timeframe.
func (p *Provider) Symbols(ctx context.Context, timeframe string) ([]string, error) {
	paths, err := p.store.List(ctx, strings.ToLower(timeframe)+"/")
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	var symbols []string
	for _, p := range paths {
		name := path.Base(p)
		if strings.HasSuffix(name, ext) {
			symbols = append(symbols, strings.TrimSuffix(name, ext))
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// Has reports whether a file exists for symbol and timeframe.
func (p *Provider) Has(ctx context.Context, symbol, timeframe string) (bool, error) {
	ok, err := p.store.Exists(ctx, Path(symbol, timeframe))
	if err != nil {
		return false, core.WrapError(core.ErrProviderFailed, err)
	}
	return ok, nil
}
