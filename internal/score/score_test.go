// internal/score/score_test.go
package score

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

func geometric(n int, start, growth float64) []core.Candle {
	out := make([]core.Candle, n)
	for i := range out {
		c := start * math.Pow(growth, float64(i))
		out[i] = core.Candle{Time: t0.AddDate(0, 0, i), Open: c, High: c * 1.005, Low: c * 0.995, Close: c, Volume: 1_000_000}
	}
	return out
}

func choppy(n int) []core.Candle {
	out := make([]core.Candle, n)
	for i := range out {
		c := 100 + 10*math.Sin(float64(i)/6) + 3*math.Cos(float64(i)/2.3)
		v := 1_000_000 * (1 + 0.5*math.Sin(float64(i)/4))
		out[i] = core.Candle{Time: t0.AddDate(0, 0, i), Open: c, High: c + 1.5, Low: c - 1.5, Close: c, Volume: v}
	}
	return out
}

func TestScore_InsufficientData(t *testing.T) {
	f := indicator.NewFrame(geometric(120, 100, 1.01))
	_, err := New().Score(f, 119)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInsufficientData))
}

func TestScore_Uptrend(t *testing.T) {
	f := indicator.NewFrame(geometric(260, 100, 1.01))

	res, err := New().Score(f, 259)
	require.NoError(t, err)

	assert.Equal(t, float64(maxTrend), res.Components.Trend)
	assert.GreaterOrEqual(t, res.Total, 60.0)
	assert.Contains(t, []Recommendation{Buy, StrongBuy}, res.Recommendation)
	assert.Equal(t, Long, res.Direction)
	assert.Equal(t, 5.0, res.Components.Relative, "no benchmark is neutral")
	assert.Contains(t, res.RiskFlags, "RSI overbought")
	require.NotNil(t, res.Regime)
	assert.LessOrEqual(t, len(res.Reasons), maxReasons)
}

func TestScore_Downtrend(t *testing.T) {
	f := indicator.NewFrame(geometric(260, 1000, 0.99))

	res, err := New().Score(f, 259)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Components.Trend)
	assert.Less(t, res.Total, 40.0)
	assert.Contains(t, []Recommendation{Sell, StrongSell}, res.Recommendation)
	assert.Equal(t, Short, res.Direction)
	assert.Equal(t, ConfidenceLow, res.Confidence)
	assert.LessOrEqual(t, len(res.RiskFlags), maxRiskFlags)
	assert.Equal(t, "bearish market regime", res.RiskFlags[0])
}

func TestScore_ComponentsStayInBands(t *testing.T) {
	f := indicator.NewFrame(choppy(400))
	s := New()

	for i := MinBars - 1; i < f.Len(); i++ {
		res, err := s.Score(f, i)
		require.NoError(t, err)

		c := res.Components
		assert.True(t, c.Trend >= 0 && c.Trend <= maxTrend, "trend %f", c.Trend)
		assert.True(t, c.Momentum >= 0 && c.Momentum <= maxMomentum, "momentum %f", c.Momentum)
		assert.True(t, c.Volume >= 0 && c.Volume <= maxVolume, "volume %f", c.Volume)
		assert.True(t, c.Structure >= 0 && c.Structure <= maxStructure, "structure %f", c.Structure)
		assert.True(t, c.Context >= 0 && c.Context <= maxContext, "context %f", c.Context)
		assert.True(t, c.Relative >= 0 && c.Relative <= maxRelative, "relative %f", c.Relative)
		assert.InDelta(t, c.Sum(), res.Total, 1e-9)
	}
}

func TestScore_Benchmark(t *testing.T) {
	stock := geometric(260, 100, 1.01)

	flat := make([]core.Candle, len(stock))
	for i := range flat {
		flat[i] = core.Candle{Time: stock[i].Time, Open: 50, High: 50, Low: 50, Close: 50}
	}
	res, err := New(WithBenchmark(flat)).Score(indicator.NewFrame(stock), 259)
	require.NoError(t, err)
	assert.Equal(t, 10.0, res.Components.Relative)
	assert.Contains(t, res.Reasons, "outperforming benchmark")

	rocket := geometric(260, 100, 1.03)
	res, err = New(WithBenchmark(rocket)).Score(indicator.NewFrame(stock), 259)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Components.Relative)
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		total float64
		rec   Recommendation
		dir   Direction
	}{
		{90, StrongBuy, Long},
		{75, StrongBuy, Long},
		{60, Buy, Long},
		{59.9, Hold, Neutral},
		{40, Hold, Neutral},
		{25, Sell, Short},
		{24.9, StrongSell, Short},
	}
	for _, tt := range tests {
		rec, dir := recommend(tt.total)
		assert.Equal(t, tt.rec, rec, "total %v", tt.total)
		assert.Equal(t, tt.dir, dir, "total %v", tt.total)
	}
}

func TestTop(t *testing.T) {
	notes := []note{{1, "a"}, {5, "b"}, {3, "c"}, {5, "d"}}
	assert.Equal(t, []string{"b", "d", "c"}, top(notes, 3))
	assert.Empty(t, top(nil, 3))
}
