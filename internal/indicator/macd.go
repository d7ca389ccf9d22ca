package indicator

// MACDResult holds the three aligned MACD series
type MACDResult struct {
	MACD      Series
	Signal    Series
	Histogram Series
}

// MACDState streams MACD(fast, slow, signal)
type MACDState struct {
	fast   *EMAState
	slow   *EMAState
	signal *EMAState
}

// NewMACD creates a MACD updater
func NewMACD(fast, slow, signal int) *MACDState {
	return &MACDState{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
	}
}

// Update adds a close and returns macd, signal and histogram
func (m *MACDState) Update(x float64) (macd, signal, hist Value) {
	f := m.fast.Update(x)
	s := m.slow.Update(x)
	if !f.Valid || !s.Valid {
		return
	}
	macd = Some(f.V - s.V)
	signal = m.signal.Update(macd.V)
	if signal.Valid {
		hist = Some(macd.V - signal.V)
	}
	return
}

// MACD calculates the MACD line, its signal EMA and the histogram.
func MACD(values []float64, fast, slow, signal int) MACDResult {
	st := NewMACD(fast, slow, signal)
	res := MACDResult{
		MACD:      make(Series, len(values)),
		Signal:    make(Series, len(values)),
		Histogram: make(Series, len(values)),
	}
	for i, v := range values {
		res.MACD[i], res.Signal[i], res.Histogram[i] = st.Update(v)
	}
	return res
}
