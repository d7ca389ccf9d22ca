package indicator

import "math"

// BollingerResult holds aligned band series
type BollingerResult struct {
	Upper  Series
	Middle Series
	Lower  Series
	Width  Series // (upper-lower)/middle
}

// BollingerState streams Bollinger Bands using the population standard
// deviation of the trailing window.
type BollingerState struct {
	k   float64
	sma *SMAState
}

// NewBollinger creates a band updater with k standard deviations
func NewBollinger(period int, k float64) *BollingerState {
	return &BollingerState{k: k, sma: NewSMA(period)}
}

// Update adds a close and returns upper, middle, lower and width
func (b *BollingerState) Update(x float64) (upper, middle, lower, width Value) {
	middle = b.sma.Update(x)
	if !middle.Valid {
		return
	}

	sd := math.Sqrt(b.sma.variance())

	upper = Some(middle.V + b.k*sd)
	lower = Some(middle.V - b.k*sd)
	if middle.V != 0 {
		width = Some((upper.V - lower.V) / middle.V)
	}
	return
}

// Bollinger calculates Bollinger Bands of values.
func Bollinger(values []float64, period int, k float64) BollingerResult {
	st := NewBollinger(period, k)
	res := BollingerResult{
		Upper:  make(Series, len(values)),
		Middle: make(Series, len(values)),
		Lower:  make(Series, len(values)),
		Width:  make(Series, len(values)),
	}
	for i, v := range values {
		res.Upper[i], res.Middle[i], res.Lower[i], res.Width[i] = st.Update(v)
	}
	return res
}
