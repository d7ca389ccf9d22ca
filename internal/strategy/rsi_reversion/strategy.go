package rsi_reversion

import (
	"fmt"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/newthinker/quantsim/internal/strategy"
)

const Name = "rsi_reversion"

const rsiPeriod = 14

// RSIReversion buys oversold dips that have not broken the long-term trend
type RSIReversion struct{}

func New() *RSIReversion {
	return &RSIReversion{}
}

func (r *RSIReversion) Name() string {
	return Name
}

func (r *RSIReversion) Description() string {
	return "RSI Mean Reversion: buy oversold RSI above a trend EMA floor, sell overbought RSI"
}

func (r *RSIReversion) Defaults() strategy.Params {
	return strategy.Params{
		strategy.ParamRSIOversold:    30.0,
		strategy.ParamRSIOverbought:  70.0,
		strategy.ParamTrendEMAPeriod: 50,
		strategy.ParamTrendTolerance: 0.05,
	}
}

func (r *RSIReversion) ComputeSignal(f *indicator.Frame, index int, p strategy.Params) (core.Signal, error) {
	rsi, ok := f.RSI(rsiPeriod).At(index)
	if !ok {
		return core.Hold("RSI warming up"), nil
	}

	oversold := p.Float(strategy.ParamRSIOversold)
	overbought := p.Float(strategy.ParamRSIOverbought)

	if rsi > overbought {
		return core.Sell(0.5+(rsi-overbought)/(100-overbought)*0.5,
			fmt.Sprintf("RSI %.1f overbought", rsi)), nil
	}
	if rsi >= oversold {
		return core.Hold(fmt.Sprintf("RSI %.1f neutral", rsi)), nil
	}

	period := p.Int(strategy.ParamTrendEMAPeriod)
	trend, ok := f.EMA(period).At(index)
	if !ok {
		return core.Hold("trend EMA warming up"), nil
	}
	price := f.Candle(index).Close
	floor := trend * (1 - p.Float(strategy.ParamTrendTolerance))
	if price < floor {
		return core.Hold(fmt.Sprintf("RSI %.1f oversold but price %.2f broke below EMA%d floor %.2f", rsi, price, period, floor)), nil
	}

	strength := 0.5
	if oversold > 0 {
		strength += (oversold - rsi) / oversold * 0.5
	}
	return core.Buy(strength, fmt.Sprintf("RSI %.1f oversold within EMA%d trend", rsi, period)), nil
}
