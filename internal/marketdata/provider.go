// internal/marketdata/provider.go

// Package marketdata defines how candle series are loaded for a run.
package marketdata

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/quantsim/internal/core"
)

// Provider loads an ascending candle series for one symbol and timeframe.
type Provider interface {
	Name() string
	FetchCandles(ctx context.Context, req Request) ([]core.Candle, error)
}

// Request selects the candles to load. Zero Start or End leaves that side
// open. OutputSize > 0 keeps only the most recent bars.
type Request struct {
	Symbol     string
	Timeframe  string
	Start      time.Time
	End        time.Time
	OutputSize int
}

// Validate rejects requests no provider can serve.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return core.Errorf(core.ErrConfigInvalid, "symbol is required")
	}
	if r.Timeframe == "" {
		return core.Errorf(core.ErrConfigInvalid, "timeframe is required")
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return core.Errorf(core.ErrConfigInvalid, "end %s before start %s",
			r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
	}
	if r.OutputSize < 0 {
		return core.Errorf(core.ErrConfigInvalid, "output size %d is negative", r.OutputSize)
	}
	return nil
}

// Key identifies the request for deduplication.
func (r Request) Key() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(r.Symbol))
	b.WriteByte('|')
	b.WriteString(r.Timeframe)
	b.WriteByte('|')
	if !r.Start.IsZero() {
		b.WriteString(r.Start.UTC().Format(time.RFC3339))
	}
	b.WriteByte('|')
	if !r.End.IsZero() {
		b.WriteString(r.End.UTC().Format(time.RFC3339))
	}
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(r.OutputSize))
	return b.String()
}

// Finish applies the request window to raw provider rows: sorts by time,
// drops duplicate timestamps and invalid bars, filters the range and trims
// to OutputSize. The input slice is reused. An empty result is ErrNoData.
func Finish(candles []core.Candle, req Request) ([]core.Candle, error) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})

	out := candles[:0]
	for _, c := range candles {
		if !c.IsValid() {
			continue
		}
		if n := len(out); n > 0 && !c.Time.After(out[n-1].Time) {
			continue
		}
		if c.Symbol == "" {
			c.Symbol = req.Symbol
		}
		if c.Interval == "" {
			c.Interval = req.Timeframe
		}
		out = append(out, c)
	}

	out = core.FilterRange(out, req.Start, req.End)
	if req.OutputSize > 0 && len(out) > req.OutputSize {
		out = out[len(out)-req.OutputSize:]
	}
	if len(out) == 0 {
		return nil, core.Errorf(core.ErrNoData, "%s %s", req.Symbol, req.Timeframe)
	}
	return out, nil
}
