package indicator

import (
	"math"

	"github.com/newthinker/quantsim/internal/core"
)

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|); the first
// bar of a series has no previous close and uses high-low.
func trueRange(high, low, prevClose float64, hasPrev bool) float64 {
	tr := high - low
	if !hasPrev {
		return tr
	}
	return math.Max(tr, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

// ATRState streams the Average True Range. The first value is the mean true
// range of the first period bars, then atr = (atr*(period-1) + tr) / period.
type ATRState struct {
	period    int
	n         int
	prevClose float64
	trSum     float64
	atr       float64
}

// NewATR creates an ATR updater
func NewATR(period int) *ATRState {
	if period < 1 {
		period = 1
	}
	return &ATRState{period: period}
}

// Update adds a bar and returns the ATR
func (a *ATRState) Update(high, low, close float64) Value {
	tr := trueRange(high, low, a.prevClose, a.n > 0)
	a.prevClose = close
	a.n++

	p := float64(a.period)
	switch {
	case a.n < a.period:
		a.trSum += tr
		return Value{}
	case a.n == a.period:
		a.atr = (a.trSum + tr) / p
	default:
		a.atr = (a.atr*(p-1) + tr) / p
	}
	return Some(a.atr)
}

// ATR calculates the Average True Range of candles.
func ATR(candles []core.Candle, period int) Series {
	st := NewATR(period)
	out := make(Series, len(candles))
	for i, c := range candles {
		out[i] = st.Update(c.High, c.Low, c.Close)
	}
	return out
}
