package macd_momentum

import (
	"fmt"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/newthinker/quantsim/internal/strategy"
)

const Name = "macd_momentum"

const rsiPeriod = 14

// MACDMomentum trades MACD/signal-line crossovers
type MACDMomentum struct{}

func New() *MACDMomentum {
	return &MACDMomentum{}
}

func (m *MACDMomentum) Name() string {
	return Name
}

func (m *MACDMomentum) Description() string {
	return "MACD Momentum: buy when MACD crosses above its signal line on a rising histogram"
}

func (m *MACDMomentum) Defaults() strategy.Params {
	return strategy.Params{
		strategy.ParamMACDFast:   12,
		strategy.ParamMACDSlow:   26,
		strategy.ParamMACDSignal: 9,
		strategy.ParamEMASlow:    26,
		strategy.ParamEntryRSI:   70.0,
		strategy.ParamExitRSI:    30.0,
	}
}

func (m *MACDMomentum) ComputeSignal(f *indicator.Frame, index int, p strategy.Params) (core.Signal, error) {
	macd := f.MACD(p.Int(strategy.ParamMACDFast), p.Int(strategy.ParamMACDSlow), p.Int(strategy.ParamMACDSignal))

	cross, ok := strategy.Crossover(macd.MACD, macd.Signal, index)
	hist, histOK := macd.Histogram.At(index)
	prevHist, prevOK := macd.Histogram.At(index - 1)
	rsi, rsiOK := f.RSI(rsiPeriod).At(index)
	if !ok || !histOK || !prevOK || !rsiOK {
		return core.Hold("indicators warming up"), nil
	}

	ceiling := p.Float(strategy.ParamEntryRSI)
	floor := p.Float(strategy.ParamExitRSI)

	switch {
	case cross == strategy.CrossUp && hist > prevHist && rsi < ceiling:
		strength := 0.5
		if ceiling > 0 {
			strength += (ceiling - rsi) / ceiling * 0.5
		}
		return core.Buy(strength, fmt.Sprintf("MACD crossed above signal, histogram %.3f rising, RSI %.1f", hist, rsi)), nil
	case cross == strategy.CrossDown:
		return core.Sell(0.7, fmt.Sprintf("MACD crossed below signal, histogram %.3f", hist)), nil
	case rsi < floor:
		return core.Sell(0.6, fmt.Sprintf("RSI %.1f below floor %.0f", rsi, floor)), nil
	}
	return core.Hold("no MACD crossover"), nil
}
