package indicator

import "github.com/newthinker/quantsim/internal/core"

// OBVState accumulates On-Balance Volume starting from zero
type OBVState struct {
	started bool
	prev    float64
	obv     float64
}

// Update adds a bar's close and volume
func (o *OBVState) Update(close, volume float64) Value {
	if o.started {
		switch {
		case close > o.prev:
			o.obv += volume
		case close < o.prev:
			o.obv -= volume
		}
	}
	o.started = true
	o.prev = close
	return Some(o.obv)
}

// OBV calculates On-Balance Volume of candles.
func OBV(candles []core.Candle) Series {
	var st OBVState
	out := make(Series, len(candles))
	for i, c := range candles {
		out[i] = st.Update(c.Close, c.Volume)
	}
	return out
}

// VWAPState is a continuous (never session-reset) volume weighted price
type VWAPState struct {
	pv  float64
	vol float64
}

// Update adds a bar and returns cumulative(tp*vol)/cumulative(vol)
func (v *VWAPState) Update(c core.Candle) Value {
	v.pv += c.TypicalPrice() * c.Volume
	v.vol += c.Volume
	if v.vol == 0 {
		return Value{}
	}
	return Some(v.pv / v.vol)
}

// VWAP calculates the running VWAP of candles.
func VWAP(candles []core.Candle) Series {
	var st VWAPState
	out := make(Series, len(candles))
	for i, c := range candles {
		out[i] = st.Update(c)
	}
	return out
}

// MFIState streams the Money Flow Index over a trailing window of period
// typical-price changes.
type MFIState struct {
	period  int
	n       int
	prevTP  float64
	pos     []float64
	neg     []float64
	idx     int
	filled  int
	posSum  float64
	negSum  float64
	negLive int // non-zero negative flows inside the window
}

// NewMFI creates an MFI updater
func NewMFI(period int) *MFIState {
	if period < 1 {
		period = 1
	}
	return &MFIState{
		period: period,
		pos:    make([]float64, period),
		neg:    make([]float64, period),
	}
}

// Update adds a bar and returns the MFI
func (m *MFIState) Update(c core.Candle) Value {
	tp := c.TypicalPrice()
	m.n++
	if m.n == 1 {
		m.prevTP = tp
		return Value{}
	}

	flow := tp * c.Volume
	var p, q float64
	switch {
	case tp > m.prevTP:
		p = flow
	case tp < m.prevTP:
		q = flow
	}
	m.prevTP = tp

	if m.filled == m.period {
		m.posSum -= m.pos[m.idx]
		m.negSum -= m.neg[m.idx]
		if m.neg[m.idx] != 0 {
			m.negLive--
		}
	} else {
		m.filled++
	}
	m.pos[m.idx], m.neg[m.idx] = p, q
	m.posSum += p
	m.negSum += q
	if q != 0 {
		m.negLive++
	}
	m.idx = (m.idx + 1) % m.period

	if m.filled < m.period {
		return Value{}
	}
	if m.negLive == 0 {
		return Some(100)
	}
	return Some(ratioIndex(m.posSum, m.negSum))
}

// MFI calculates the Money Flow Index of candles.
func MFI(candles []core.Candle, period int) Series {
	st := NewMFI(period)
	out := make(Series, len(candles))
	for i, c := range candles {
		out[i] = st.Update(c)
	}
	return out
}
