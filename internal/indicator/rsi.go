package indicator

// RSIState computes RSI with Wilder's smoothing. The first value appears
// once period price changes have been seen; after that the averages are
// updated recursively as avg = (avg*(period-1) + x) / period.
type RSIState struct {
	period  int
	n       int
	prev    float64
	gainSum float64
	lossSum float64
	avgGain float64
	avgLoss float64
}

// NewRSI creates a Wilder RSI
func NewRSI(period int) *RSIState {
	if period < 1 {
		period = 1
	}
	return &RSIState{period: period}
}

// Update adds a close and returns the RSI
func (r *RSIState) Update(x float64) Value {
	r.n++
	if r.n == 1 {
		r.prev = x
		return Value{}
	}

	change := x - r.prev
	r.prev = x
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	changes := r.n - 1
	p := float64(r.period)
	switch {
	case changes < r.period:
		r.gainSum += gain
		r.lossSum += loss
		return Value{}
	case changes == r.period:
		r.avgGain = (r.gainSum + gain) / p
		r.avgLoss = (r.lossSum + loss) / p
	default:
		r.avgGain = (r.avgGain*(p-1) + gain) / p
		r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	}
	return Some(ratioIndex(r.avgGain, r.avgLoss))
}

// ratioIndex maps an up/down ratio onto 0..100. A zero denominator is
// reported as 100.
func ratioIndex(up, down float64) float64 {
	if down == 0 {
		return 100
	}
	return 100 - 100/(1+up/down)
}

// RSI calculates the Relative Strength Index of values.
func RSI(values []float64, period int) Series {
	return feed(values, NewRSI(period).Update)
}
