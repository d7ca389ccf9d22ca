package indicator

import "github.com/newthinker/quantsim/internal/core"

// RollingExtreme tracks the max (or min) of a trailing window with a
// monotonic deque, O(1) amortized per update.
type RollingExtreme struct {
	period int
	isMax  bool
	n      int
	idx    []int
	vals   []float64
}

// NewRollingMax creates a trailing-window maximum
func NewRollingMax(period int) *RollingExtreme {
	return &RollingExtreme{period: max(period, 1), isMax: true}
}

// NewRollingMin creates a trailing-window minimum
func NewRollingMin(period int) *RollingExtreme {
	return &RollingExtreme{period: max(period, 1)}
}

// Update adds x and returns the extreme of the last period samples
func (r *RollingExtreme) Update(x float64) Value {
	i := r.n
	r.n++

	for k := len(r.vals) - 1; k >= 0; k-- {
		if (r.isMax && r.vals[k] > x) || (!r.isMax && r.vals[k] < x) {
			break
		}
		r.vals = r.vals[:k]
		r.idx = r.idx[:k]
	}
	r.vals = append(r.vals, x)
	r.idx = append(r.idx, i)

	for r.idx[0] <= i-r.period {
		r.idx = r.idx[1:]
		r.vals = r.vals[1:]
	}

	if r.n < r.period {
		return Value{}
	}
	return Some(r.vals[0])
}

// WilliamsR calculates Williams %R: (highestHigh-close)/(highestHigh-lowestLow) * -100.
// A flat window reports -50.
func WilliamsR(candles []core.Candle, period int) Series {
	hi := NewRollingMax(period)
	lo := NewRollingMin(period)
	out := make(Series, len(candles))
	for i, c := range candles {
		hh := hi.Update(c.High)
		ll := lo.Update(c.Low)
		if !hh.Valid || !ll.Valid {
			continue
		}
		rng := hh.V - ll.V
		if rng == 0 {
			out[i] = Some(-50)
			continue
		}
		out[i] = Some((hh.V - c.Close) / rng * -100)
	}
	return out
}

// StochRSIResult holds the smoothed %K and %D lines
type StochRSIResult struct {
	K Series
	D Series
}

// StochRSI applies the stochastic oscillator to RSI(rsiPeriod) over
// stochPeriod RSI samples, then smooths with SMA(kPeriod) and SMA(dPeriod).
// A flat RSI window reports a raw value of 50.
func StochRSI(values []float64, rsiPeriod, stochPeriod, kPeriod, dPeriod int) StochRSIResult {
	rsi := NewRSI(rsiPeriod)
	hi := NewRollingMax(stochPeriod)
	lo := NewRollingMin(stochPeriod)
	kSMA := NewSMA(kPeriod)
	dSMA := NewSMA(dPeriod)

	res := StochRSIResult{
		K: make(Series, len(values)),
		D: make(Series, len(values)),
	}
	for i, v := range values {
		r := rsi.Update(v)
		if !r.Valid {
			continue
		}
		h, l := hi.Update(r.V), lo.Update(r.V)
		if !h.Valid || !l.Valid {
			continue
		}
		raw := 50.0
		if h.V > l.V {
			raw = (r.V - l.V) / (h.V - l.V) * 100
		}
		k := kSMA.Update(raw)
		if !k.Valid {
			continue
		}
		res.K[i] = k
		res.D[i] = dSMA.Update(k.V)
	}
	return res
}
