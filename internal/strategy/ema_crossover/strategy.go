package ema_crossover

import (
	"fmt"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/newthinker/quantsim/internal/strategy"
)

// Name identifies the strategy in the registry
const Name = "ema_crossover"

const (
	rsiPeriod    = 14
	volumePeriod = 20
)

// EMACrossover trades fast/slow EMA crossovers confirmed by RSI and volume
type EMACrossover struct{}

// New creates a new EMA Crossover strategy
func New() *EMACrossover {
	return &EMACrossover{}
}

func (e *EMACrossover) Name() string {
	return Name
}

func (e *EMACrossover) Description() string {
	return "EMA Crossover: buy when the fast EMA crosses above the slow EMA with RSI and volume confirmation"
}

func (e *EMACrossover) Defaults() strategy.Params {
	return strategy.Params{
		strategy.ParamEMAFast:         9,
		strategy.ParamEMASlow:         21,
		strategy.ParamEntryRSI:        65.0,
		strategy.ParamExitRSI:         75.0,
		strategy.ParamVolumeThreshold: 1.0,
	}
}

func (e *EMACrossover) ComputeSignal(f *indicator.Frame, index int, p strategy.Params) (core.Signal, error) {
	fastPeriod, slowPeriod := p.Int(strategy.ParamEMAFast), p.Int(strategy.ParamEMASlow)
	fast, slow := f.EMA(fastPeriod), f.EMA(slowPeriod)

	cross, ok := strategy.Crossover(fast, slow, index)
	rsi, rsiOK := f.RSI(rsiPeriod).At(index)
	if !ok || !rsiOK {
		return core.Hold("indicators warming up"), nil
	}

	currFast, _ := fast.At(index)
	currSlow, _ := slow.At(index)

	switch {
	case cross == strategy.CrossUp:
		if rsi >= p.Float(strategy.ParamEntryRSI) {
			return core.Hold(fmt.Sprintf("crossover rejected: RSI %.1f too high", rsi)), nil
		}
		if !volumeConfirmed(f, index, p.Float(strategy.ParamVolumeThreshold)) {
			return core.Hold("crossover rejected: volume below average"), nil
		}
		return core.Buy(confidence(currFast, currSlow),
			fmt.Sprintf("EMA%d (%.2f) crossed above EMA%d (%.2f)", fastPeriod, currFast, slowPeriod, currSlow)), nil

	case cross == strategy.CrossDown:
		return core.Sell(confidence(currFast, currSlow),
			fmt.Sprintf("EMA%d (%.2f) crossed below EMA%d (%.2f)", fastPeriod, currFast, slowPeriod, currSlow)), nil

	case rsi > p.Float(strategy.ParamExitRSI):
		exit := p.Float(strategy.ParamExitRSI)
		return core.Sell(0.5+(rsi-exit)/(100-exit)*0.5, fmt.Sprintf("RSI %.1f above exit threshold", rsi)), nil
	}

	return core.Hold("no crossover"), nil
}

func volumeConfirmed(f *indicator.Frame, index int, threshold float64) bool {
	avg, ok := f.VolumeSMA(volumePeriod).At(index)
	if !ok || avg <= 0 {
		return false
	}
	return f.Candle(index).Volume >= avg*threshold
}

// confidence returns higher confidence for larger divergence, in 0.5-0.9
func confidence(fast, slow float64) float64 {
	if slow == 0 {
		return 0.5
	}
	diff := (fast - slow) / slow
	if diff < 0 {
		diff = -diff
	}
	return min(0.5+diff*10, 0.9)
}
