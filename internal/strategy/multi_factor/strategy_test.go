package multi_factor

import (
	"strings"
	"testing"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/newthinker/quantsim/internal/strategy"
	"github.com/newthinker/quantsim/internal/strategy/strategytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiFactor_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*MultiFactor)(nil)
}

func signalAt(t *testing.T, candles []core.Candle, index int) core.Signal {
	t.Helper()
	s := New()
	p, _ := strategy.Resolve(s, nil)
	sig, err := strategy.Compute(s, indicator.NewFrame(candles), index, p)
	require.NoError(t, err)
	return sig
}

func TestMultiFactor_ShortHistoryHolds(t *testing.T) {
	sig := signalAt(t, strategytest.Geometric(150, 100, 1.01), 149)
	assert.Equal(t, core.SignalHold, sig.Type)
	assert.True(t, strings.Contains(sig.Reason, "200 bars"), sig.Reason)
}

func TestMultiFactor_Uptrend(t *testing.T) {
	sig := signalAt(t, strategytest.Geometric(260, 100, 1.01), 259)
	assert.Equal(t, core.SignalBuy, sig.Type)
	assert.GreaterOrEqual(t, sig.Strength, 0.7)
	assert.True(t, strings.Contains(sig.Reason, "higher highs and higher lows"), sig.Reason)
}

func TestMultiFactor_Downtrend(t *testing.T) {
	sig := signalAt(t, strategytest.Geometric(260, 1000, 0.99), 259)
	assert.Equal(t, core.SignalSell, sig.Type)
	assert.GreaterOrEqual(t, sig.Strength, 0.7)
	assert.True(t, strings.Contains(sig.Reason, "lower highs and lower lows"), sig.Reason)
}

func TestMultiFactor_Scan(t *testing.T) {
	strategytest.Scan(t, New(), strategytest.Sine(320, 8, 6), nil)
}

func TestPattern(t *testing.T) {
	up := indicator.NewFrame(strategytest.Geometric(30, 100, 1.01))
	assert.Equal(t, 10.0, pattern(up, 29))

	down := indicator.NewFrame(strategytest.Geometric(30, 100, 0.99))
	assert.Equal(t, -10.0, pattern(down, 29))

	flat := indicator.NewFrame(strategytest.Geometric(30, 100, 1))
	assert.Equal(t, 0.0, pattern(flat, 29))
}

func TestRSIFactor(t *testing.T) {
	assert.Equal(t, -8.0, rsiFactor(80))
	assert.Equal(t, -5.0, rsiFactor(20))
	assert.Equal(t, 5.0, rsiFactor(55))
	assert.Equal(t, 0.0, rsiFactor(40))
}
