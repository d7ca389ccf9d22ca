// internal/regime/regime_test.go
package regime

import (
	"math"
	"testing"
	"time"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geometric(n int, start, growth float64) []core.Candle {
	out := make([]core.Candle, n)
	t0 := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	for i := range out {
		c := start * math.Pow(growth, float64(i))
		out[i] = core.Candle{
			Time:   t0.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.005,
			Low:    c * 0.995,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return out
}

func TestClassify_InsufficientHistory(t *testing.T) {
	f := indicator.NewFrame(geometric(150, 100, 1.01))
	_, ok := Classify(f, 149)
	assert.False(t, ok)
}

func TestClassify_StrongUptrend(t *testing.T) {
	f := indicator.NewFrame(geometric(260, 100, 1.01))

	r, ok := Classify(f, 259)
	require.True(t, ok)

	assert.Equal(t, DirectionUp, r.Direction)
	assert.Equal(t, TrendStrong, r.TrendStrength)
	assert.True(t, r.Trending)
	assert.Equal(t, RegimeStrongBull, r.Regime)
	assert.Equal(t, FamilyMomentum, r.Recommendation.Family)
	assert.Equal(t, BiasLong, r.Recommendation.Bias)
	assert.Equal(t, 1.0, r.Recommendation.SizeMultiplier)
	assert.LessOrEqual(t, r.Strength, 100.0)
	assert.InDelta(t, (math.Pow(1.01, 20)-1)*100, r.Change20, 1e-6)
}

func TestClassify_StrongDowntrend(t *testing.T) {
	f := indicator.NewFrame(geometric(260, 1000, 0.99))

	r, ok := Classify(f, 259)
	require.True(t, ok)

	assert.Equal(t, DirectionDown, r.Direction)
	assert.Equal(t, RegimeStrongBear, r.Regime)
	assert.True(t, r.IsBearish())
	assert.Equal(t, FamilyAvoid, r.Recommendation.Family)
	assert.Equal(t, BiasShort, r.Recommendation.Bias)
	assert.Equal(t, 0.5, r.Recommendation.SizeMultiplier)
}

func TestClassify_RangeBound(t *testing.T) {
	candles := make([]core.Candle, 240)
	t0 := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		candles[i] = core.Candle{Time: t0.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000}
	}
	f := indicator.NewFrame(candles)

	r, ok := Classify(f, 239)
	require.True(t, ok)

	assert.Equal(t, DirectionSideways, r.Direction)
	assert.Equal(t, TrendNone, r.TrendStrength)
	assert.False(t, r.Trending)
	assert.Equal(t, VolatilityNormal, r.Volatility)
	assert.Equal(t, RegimeNeutral, r.Regime)
	assert.Equal(t, FamilyMeanReversion, r.Recommendation.Family)
	assert.Equal(t, BiasNeutral, r.Recommendation.Bias)
	assert.Equal(t, 0.75, r.Recommendation.SizeMultiplier)
	assert.Equal(t, 0.0, r.Strength)
}

func TestBuckets(t *testing.T) {
	assert.Equal(t, TrendStrong, trendStrength(40))
	assert.Equal(t, TrendModerate, trendStrength(25))
	assert.Equal(t, TrendWeak, trendStrength(15))
	assert.Equal(t, TrendNone, trendStrength(14.9))

	assert.Equal(t, VolatilityHigh, volatility(3))
	assert.Equal(t, VolatilityNormal, volatility(1.5))
	assert.Equal(t, VolatilityLow, volatility(1.49))

	assert.Equal(t, RegimeBull, label(DirectionUp, false, 12))
	assert.Equal(t, RegimeBull, label(DirectionUp, true, 4))
	assert.Equal(t, RegimeBear, label(DirectionDown, true, -3))
	assert.Equal(t, RegimeNeutral, label(DirectionSideways, true, 20))
}

func TestRecommend_HighVolatilityHalvesSize(t *testing.T) {
	rec := recommend(Result{Regime: RegimeBull, Trending: true, Volatility: VolatilityHigh})
	assert.Equal(t, FamilyMomentum, rec.Family)
	assert.Equal(t, 0.5, rec.SizeMultiplier)
	assert.Equal(t, BiasLong, rec.Bias)
}
