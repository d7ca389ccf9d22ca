package macd_momentum

import (
	"testing"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/strategy"
	"github.com/newthinker/quantsim/internal/strategy/strategytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMACDMomentum_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*MACDMomentum)(nil)
}

func TestMACDMomentum_Signals(t *testing.T) {
	candles := strategytest.Sine(300, 8, 5)
	signals, f := strategytest.Scan(t, New(), candles, strategy.Params{strategy.ParamEntryRSI: 100, strategy.ParamExitRSI: 0})
	macd := f.MACD(12, 26, 9)

	buys := strategytest.Indexes(signals, core.SignalBuy)
	require.NotEmpty(t, buys)
	for _, i := range buys {
		cross, _ := strategy.Crossover(macd.MACD, macd.Signal, i)
		assert.Equal(t, strategy.CrossUp, cross, "bar %d", i)
		h, _ := macd.Histogram.At(i)
		prev, _ := macd.Histogram.At(i - 1)
		assert.Greater(t, h, prev)
	}

	sells := strategytest.Indexes(signals, core.SignalSell)
	require.NotEmpty(t, sells)
	for _, i := range sells {
		cross, _ := strategy.Crossover(macd.MACD, macd.Signal, i)
		assert.Equal(t, strategy.CrossDown, cross, "bar %d", i)
	}
}

func TestMACDMomentum_RSIBounds(t *testing.T) {
	candles := strategytest.Sine(300, 8, 5)

	signals, _ := strategytest.Scan(t, New(), candles, strategy.Params{strategy.ParamEntryRSI: 0, strategy.ParamExitRSI: 0})
	assert.Empty(t, strategytest.Indexes(signals, core.SignalBuy), "RSI ceiling of 0 blocks entries")

	signals, f := strategytest.Scan(t, New(), candles, strategy.Params{strategy.ParamExitRSI: 100})
	for i := 50; i < len(candles); i++ {
		if _, ok := f.RSI(14).At(i); ok && signals[i].Type != core.SignalBuy {
			assert.Equal(t, core.SignalSell, signals[i].Type, "RSI floor of 100 sells every bar")
		}
	}
}

func TestMACDMomentum_WarmupUsesSlowPeriod(t *testing.T) {
	p, _ := strategy.Resolve(New(), nil)
	assert.Equal(t, 50, strategy.WarmupIndex(p))

	p, _ = strategy.Resolve(New(), strategy.Params{strategy.ParamEMASlow: 80})
	assert.Equal(t, 80, strategy.WarmupIndex(p))
}
