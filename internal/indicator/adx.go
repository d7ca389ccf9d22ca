package indicator

import (
	"math"

	"github.com/newthinker/quantsim/internal/core"
)

// ADXResult holds the ADX line and the two directional indicators
type ADXResult struct {
	ADX     Series
	PlusDI  Series
	MinusDI Series
}

// ADXState streams the Average Directional Index. TR, +DM and -DM are
// smoothed with EMA(period); ADX is EMA(period) of DX.
type ADXState struct {
	n         int
	prevHigh  float64
	prevLow   float64
	prevClose float64
	tr        *EMAState
	plusDM    *EMAState
	minusDM   *EMAState
	dx        *EMAState
}

// NewADX creates an ADX updater
func NewADX(period int) *ADXState {
	return &ADXState{
		tr:      NewEMA(period),
		plusDM:  NewEMA(period),
		minusDM: NewEMA(period),
		dx:      NewEMA(period),
	}
}

// Update adds a bar and returns ADX, +DI and -DI
func (a *ADXState) Update(high, low, close float64) (adx, plusDI, minusDI Value) {
	a.n++
	if a.n == 1 {
		a.prevHigh, a.prevLow, a.prevClose = high, low, close
		return
	}

	up := high - a.prevHigh
	down := a.prevLow - low
	var pdm, mdm float64
	if up > down && up > 0 {
		pdm = up
	}
	if down > up && down > 0 {
		mdm = down
	}
	tr := trueRange(high, low, a.prevClose, true)
	a.prevHigh, a.prevLow, a.prevClose = high, low, close

	str := a.tr.Update(tr)
	sp := a.plusDM.Update(pdm)
	sm := a.minusDM.Update(mdm)
	if !str.Valid {
		return
	}

	var pdi, mdi float64
	if str.V > 0 {
		pdi = sp.V / str.V * 100
		mdi = sm.V / str.V * 100
	}
	var dx float64
	if sum := pdi + mdi; sum > 0 {
		dx = math.Abs(pdi-mdi) / sum * 100
	}
	return a.dx.Update(dx), Some(pdi), Some(mdi)
}

// ADX calculates the Average Directional Index of candles.
func ADX(candles []core.Candle, period int) ADXResult {
	st := NewADX(period)
	res := ADXResult{
		ADX:     make(Series, len(candles)),
		PlusDI:  make(Series, len(candles)),
		MinusDI: make(Series, len(candles)),
	}
	for i, c := range candles {
		res.ADX[i], res.PlusDI[i], res.MinusDI[i] = st.Update(c.High, c.Low, c.Close)
	}
	return res
}
