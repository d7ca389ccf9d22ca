// internal/marketdata/archive/provider_test.go
package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/marketdata"
)

func newProvider(t *testing.T) *Provider {
	t.Helper()
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	return NewProvider(fs, nil)
}

func series(n int) []core.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]core.Candle, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = core.Candle{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return out
}

func TestPath(t *testing.T) {
	assert.Equal(t, "1d/AAPL.csv", Path("aapl", "1D"))
}

func TestProvider_StoreFetch(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()
	require.NoError(t, p.Store(ctx, "aapl", "1d", series(10)))

	got, err := p.FetchCandles(ctx, marketdata.Request{
		Symbol:    "AAPL",
		Timeframe: "1d",
		Start:     time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, 102.0, got[0].Close)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, "1d", got[0].Interval)
}

func TestProvider_Missing(t *testing.T) {
	p := newProvider(t)
	_, err := p.FetchCandles(context.Background(), marketdata.Request{Symbol: "AAPL", Timeframe: "1d"})
	assert.True(t, errors.Is(err, core.ErrNoData), "got %v", err)
}

func TestProvider_InvalidRequest(t *testing.T) {
	p := newProvider(t)
	_, err := p.FetchCandles(context.Background(), marketdata.Request{Timeframe: "1d"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestProvider_Symbols(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()
	require.NoError(t, p.Store(ctx, "msft", "1d", series(3)))
	require.NoError(t, p.Store(ctx, "aapl", "1d", series(3)))
	require.NoError(t, p.Store(ctx, "tsla", "1h", series(3)))

	got, err := p.Symbols(ctx, "1d")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestProvider_Has(t *testing.T) {
	p := newProvider(t)
	ctx := context.Background()

	ok, err := p.Has(ctx, "AAPL", "1d")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.Store(ctx, "AAPL", "1d", series(3)))
	ok, err = p.Has(ctx, "aapl", "1d")
	require.NoError(t, err)
	assert.True(t, ok)
}
