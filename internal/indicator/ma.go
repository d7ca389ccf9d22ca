package indicator

// SMAState is a rolling simple moving average.
type SMAState struct {
	period int
	buf    []float64
	pos    int
	count  int
	sum    float64
	sumSq  float64
}

// NewSMA creates a rolling SMA over period samples
func NewSMA(period int) *SMAState {
	if period < 1 {
		period = 1
	}
	return &SMAState{period: period, buf: make([]float64, period)}
}

// Update adds x and returns the mean of the trailing window
func (s *SMAState) Update(x float64) Value {
	old := s.buf[s.pos]
	s.buf[s.pos] = x
	s.pos = (s.pos + 1) % s.period
	if s.count < s.period {
		s.count++
	} else {
		s.sum -= old
		s.sumSq -= old * old
	}
	s.sum += x
	s.sumSq += x * x

	if s.count < s.period {
		return Value{}
	}
	return Some(s.sum / float64(s.period))
}

// variance returns the population variance of a full window
func (s *SMAState) variance() float64 {
	n := float64(s.period)
	mean := s.sum / n
	return max(0, s.sumSq/n-mean*mean)
}

// EMAState is an exponential moving average seeded with the SMA of the
// first period samples.
type EMAState struct {
	period     int
	multiplier float64
	n          int
	sum        float64
	ema        float64
}

// NewEMA creates an EMA with smoothing 2/(period+1)
func NewEMA(period int) *EMAState {
	if period < 1 {
		period = 1
	}
	return &EMAState{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

// Update adds x and returns the current EMA
func (e *EMAState) Update(x float64) Value {
	e.n++
	switch {
	case e.n < e.period:
		e.sum += x
		return Value{}
	case e.n == e.period:
		e.sum += x
		e.ema = e.sum / float64(e.period)
	default:
		e.ema = (x-e.ema)*e.multiplier + e.ema
	}
	return Some(e.ema)
}

// SMA calculates the simple moving average of values.
func SMA(values []float64, period int) Series {
	return feed(values, NewSMA(period).Update)
}

// EMA calculates the exponential moving average of values.
func EMA(values []float64, period int) Series {
	return feed(values, NewEMA(period).Update)
}

// emaOf smooths a series that may contain unavailable samples; the EMA
// starts at the first available sample.
func emaOf(s Series, period int) Series {
	st := NewEMA(period)
	out := make(Series, len(s))
	for i, v := range s {
		if v.Valid {
			out[i] = st.Update(v.V)
		}
	}
	return out
}
