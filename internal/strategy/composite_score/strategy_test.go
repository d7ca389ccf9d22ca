package composite_score

import (
	"strings"
	"testing"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/newthinker/quantsim/internal/score"
	"github.com/newthinker/quantsim/internal/strategy"
	"github.com/newthinker/quantsim/internal/strategy/strategytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeScore_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*CompositeScore)(nil)
}

func TestCompositeScore_FallbackUnder200Bars(t *testing.T) {
	candles := strategytest.Sine(150, 8, 4)
	signals, f := strategytest.Scan(t, New(), candles, nil)

	buys := strategytest.Indexes(signals, core.SignalBuy)
	require.NotEmpty(t, buys)
	for _, i := range buys {
		cross, _ := strategy.Crossover(f.EMA(9), f.EMA(21), i)
		assert.Equal(t, strategy.CrossUp, cross)
		assert.True(t, strings.Contains(signals[i].Reason, "short history"))
	}
	assert.NotEmpty(t, strategytest.Indexes(signals, core.SignalSell))
}

func TestCompositeScore_FollowsScorer(t *testing.T) {
	candles := strategytest.Sine(320, 8, 6)
	signals, f := strategytest.Scan(t, New(), candles, nil)
	scorer := score.New()

	for i := score.MinBars - 1; i < len(candles); i++ {
		res, err := scorer.Score(f, i)
		require.NoError(t, err)

		want := core.SignalHold
		switch {
		case res.Total >= 65 && res.Direction == score.Long:
			want = core.SignalBuy
		case res.Total <= 35 || res.Direction == score.Short:
			want = core.SignalSell
		}
		assert.Equal(t, want, signals[i].Type, "bar %d score %.1f", i, res.Total)
	}
}

func TestCompositeScore_Trends(t *testing.T) {
	s := New()

	up := indicator.NewFrame(strategytest.Geometric(260, 100, 1.01))
	p, _ := strategy.Resolve(s, strategy.Params{strategy.ParamBuyScore: 60})
	sig, err := strategy.Compute(s, up, 259, p)
	require.NoError(t, err)
	assert.Equal(t, core.SignalBuy, sig.Type)
	assert.GreaterOrEqual(t, sig.Strength, 0.6)

	down := indicator.NewFrame(strategytest.Geometric(260, 1000, 0.99))
	p, _ = strategy.Resolve(s, nil)
	sig, err = strategy.Compute(s, down, 259, p)
	require.NoError(t, err)
	assert.Equal(t, core.SignalSell, sig.Type)
}
