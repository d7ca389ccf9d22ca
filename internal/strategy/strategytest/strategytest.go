// Package strategytest provides synthetic series and signal checks shared
// by strategy tests.
package strategytest

import (
	"math"
	"testing"
	"time"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/newthinker/quantsim/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Start is the timestamp of the first synthetic bar
var Start = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

// Volume is the constant volume of generated bars
const Volume = 1000.0

// Geometric returns n daily bars whose close grows by growth each bar
func Geometric(n int, start, growth float64) []core.Candle {
	out := make([]core.Candle, n)
	for i := range out {
		c := start * math.Pow(growth, float64(i))
		out[i] = core.Candle{
			Symbol: "TEST",
			Time:   Start.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.005,
			Low:    c * 0.995,
			Close:  c,
			Volume: Volume,
		}
	}
	return out
}

// Sine returns n daily bars oscillating around 100 with the given amplitude
// and a cycle of 2*pi*stretch bars
func Sine(n int, amplitude, stretch float64) []core.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + amplitude*math.Sin(float64(i)/stretch)
	}
	return FromCloses(closes)
}

// FromCloses builds bars with a half-point range around each close
func FromCloses(closes []float64) []core.Candle {
	out := make([]core.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = core.Candle{
			Symbol: "TEST",
			Time:   Start.AddDate(0, 0, i),
			Open:   open,
			High:   math.Max(open, c) + 0.5,
			Low:    math.Min(open, c) - 0.5,
			Close:  c,
			Volume: Volume,
		}
	}
	return out
}

// Scan runs s over every bar of candles through strategy.Compute with its
// defaults plus overrides, checks the invariants every strategy must hold,
// and returns the signal per bar.
func Scan(t *testing.T, s strategy.Strategy, candles []core.Candle, overrides strategy.Params) ([]core.Signal, *indicator.Frame) {
	t.Helper()

	p, ignored := strategy.Resolve(s, overrides)
	require.Empty(t, ignored, "unexpected unknown params")

	f := indicator.NewFrame(candles)
	warmup := strategy.WarmupIndex(p)
	signals := make([]core.Signal, len(candles))
	for i := range candles {
		sig, err := strategy.Compute(s, f, i, p)
		require.NoError(t, err, "bar %d", i)
		assert.GreaterOrEqual(t, sig.Strength, 0.0)
		assert.LessOrEqual(t, sig.Strength, 1.0)
		assert.NotEmpty(t, sig.Reason, "bar %d", i)
		if i < warmup {
			assert.Equal(t, core.SignalHold, sig.Type, "bar %d is before warm-up", i)
		}
		signals[i] = sig
	}
	return signals, f
}

// Indexes returns the bars whose signal has type typ
func Indexes(signals []core.Signal, typ core.SignalType) []int {
	var out []int
	for i, s := range signals {
		if s.Type == typ {
			out = append(out, i)
		}
	}
	return out
}
