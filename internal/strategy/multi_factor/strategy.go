package multi_factor

import (
	"fmt"
	"strings"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/newthinker/quantsim/internal/regime"
	"github.com/newthinker/quantsim/internal/strategy"
)

const Name = "multi_factor"

const (
	base          = 50.0
	patternWindow = 10
	// bars out of 2*patternWindow that must make higher highs/lows
	patternQuorum = 12
	strongADX     = 25.0
	adxBoost      = 1.5
	volumeSurge   = 1.2
)

// MultiFactor accumulates a 0-100 heuristic score from trend, momentum,
// volume, regime and price-pattern factors.
type MultiFactor struct{}

func New() *MultiFactor {
	return &MultiFactor{}
}

func (m *MultiFactor) Name() string {
	return Name
}

func (m *MultiFactor) Description() string {
	return "Multi-factor: heuristic 0-100 score from trend, momentum, volume, regime and price pattern"
}

func (m *MultiFactor) Defaults() strategy.Params {
	return strategy.Params{
		strategy.ParamBuyScore:  70.0,
		strategy.ParamSellScore: 30.0,
	}
}

func (m *MultiFactor) ComputeSignal(f *indicator.Frame, index int, p strategy.Params) (core.Signal, error) {
	if index+1 < regime.MinBars {
		return core.Hold(fmt.Sprintf("needs %d bars of history", regime.MinBars)), nil
	}

	s := f.Snapshot(index)
	if !s.EMA200.Valid || !s.RSI14.Valid || !s.MACD.Histogram.Valid {
		return core.Hold("indicators warming up"), nil
	}

	var reasons []string
	total := base

	t := trend(s, f.Candle(index).Close)
	if adx, ok := f.ADX(14).ADX.At(index); ok && adx > strongADX {
		t *= adxBoost
		reasons = append(reasons, fmt.Sprintf("ADX %.0f amplifies trend", adx))
	}
	total += t

	total += rsiFactor(s.RSI14.V)
	total += macdFactor(f, index)
	total += volumeFactor(f, index)

	if r, ok := regime.Classify(f, index); ok {
		switch r.Recommendation.Bias {
		case regime.BiasLong:
			total += 5
		case regime.BiasShort:
			total -= 10
		}
		reasons = append(reasons, "regime "+string(r.Regime))
	}

	if pt := pattern(f, index); pt != 0 {
		total += pt
		if pt > 0 {
			reasons = append(reasons, "higher highs and higher lows")
		} else {
			reasons = append(reasons, "lower highs and lower lows")
		}
	}

	total = max(0, min(100, total))
	why := fmt.Sprintf("multi-factor score %.0f", total)
	if len(reasons) > 0 {
		why += ": " + strings.Join(reasons, ", ")
	}

	switch {
	case total >= p.Float(strategy.ParamBuyScore):
		return core.Buy(total/100, why), nil
	case total <= p.Float(strategy.ParamSellScore):
		return core.Sell((100-total)/100, why), nil
	}
	return core.Hold(why), nil
}

// trend scores price and EMA alignment in [-15, 15]
func trend(s indicator.Snapshot, price float64) float64 {
	var pts float64
	for _, up := range []bool{
		price > s.EMA50.V,
		s.EMA50.V > s.EMA200.V,
		s.EMA9.V > s.EMA21.V,
	} {
		if up {
			pts += 5
		} else {
			pts -= 5
		}
	}
	return pts
}

func rsiFactor(rsi float64) float64 {
	switch {
	case rsi > 75:
		return -8
	case rsi < 30:
		return -5
	case rsi >= 45 && rsi <= 70:
		return 5
	}
	return 0
}

func macdFactor(f *indicator.Frame, index int) float64 {
	hist := f.MACD(12, 26, 9).Histogram
	h, ok := hist.At(index)
	if !ok {
		return 0
	}
	pts := -5.0
	if h > 0 {
		pts = 5
	}
	if prev, ok := hist.At(index - 1); ok && h > prev {
		pts += 3
	}
	return pts
}

func volumeFactor(f *indicator.Frame, index int) float64 {
	avg, ok := f.VolumeSMA(20).At(index)
	if !ok || avg <= 0 {
		return 0
	}
	c := f.Candle(index)
	if c.Volume < avg*volumeSurge {
		return 0
	}
	if c.Close >= f.Candle(index-1).Close {
		return 5
	}
	return -5
}

// pattern counts higher highs/lows against lower highs/lows over the last
// patternWindow bars
func pattern(f *indicator.Frame, index int) float64 {
	var up, down int
	for j := index - patternWindow + 1; j <= index; j++ {
		curr, prev := f.Candle(j), f.Candle(j-1)
		if curr.High > prev.High {
			up++
		} else if curr.High < prev.High {
			down++
		}
		if curr.Low > prev.Low {
			up++
		} else if curr.Low < prev.Low {
			down++
		}
	}
	switch {
	case up >= patternQuorum:
		return 10
	case down >= patternQuorum:
		return -10
	}
	return 0
}
