package bollinger_breakout

import (
	"fmt"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/newthinker/quantsim/internal/strategy"
)

const Name = "bollinger_breakout"

const volumePeriod = 20

// BollingerBreakout buys volume-confirmed closes through the upper band
type BollingerBreakout struct{}

func New() *BollingerBreakout {
	return &BollingerBreakout{}
}

func (b *BollingerBreakout) Name() string {
	return Name
}

func (b *BollingerBreakout) Description() string {
	return "Bollinger Breakout: buy a close above the upper band on heavy volume, sell back below the middle band"
}

func (b *BollingerBreakout) Defaults() strategy.Params {
	return strategy.Params{
		strategy.ParamBollingerPeriod: 20,
		strategy.ParamBollingerStdDev: 2.0,
		strategy.ParamVolumeThreshold: 1.5,
	}
}

func (b *BollingerBreakout) ComputeSignal(f *indicator.Frame, index int, p strategy.Params) (core.Signal, error) {
	bb := f.Bollinger(p.Int(strategy.ParamBollingerPeriod), p.Float(strategy.ParamBollingerStdDev))

	upper, okU := bb.Upper.At(index)
	middle, okM := bb.Middle.At(index)
	lower, okL := bb.Lower.At(index)
	prevUpper, okP := bb.Upper.At(index - 1)
	if !okU || !okM || !okL || !okP {
		return core.Hold("bands warming up"), nil
	}

	price := f.Candle(index).Close
	prevPrice := f.Candle(index - 1).Close

	switch {
	case price < lower:
		return core.Sell(0.8, fmt.Sprintf("close %.2f below lower band %.2f", price, lower)), nil
	case price < middle:
		return core.Sell(0.6, fmt.Sprintf("close %.2f back below middle band %.2f", price, middle)), nil
	case price > upper && prevPrice <= prevUpper:
		avg, ok := f.VolumeSMA(volumePeriod).At(index)
		if !ok || avg <= 0 {
			return core.Hold("volume average warming up"), nil
		}
		threshold := p.Float(strategy.ParamVolumeThreshold)
		ratio := f.Candle(index).Volume / avg
		if ratio < threshold {
			return core.Hold(fmt.Sprintf("breakout rejected: volume %.1fx average", ratio)), nil
		}
		return core.Buy(0.5+min((ratio-threshold)/4, 0.4),
			fmt.Sprintf("close %.2f broke above upper band %.2f on %.1fx volume", price, upper, ratio)), nil
	}
	return core.Hold("inside bands"), nil
}
