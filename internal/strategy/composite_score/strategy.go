package composite_score

import (
	"fmt"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/newthinker/quantsim/internal/score"
	"github.com/newthinker/quantsim/internal/strategy"
)

const Name = "composite_score"

// CompositeScore thresholds the composite signal score. With fewer than
// score.MinBars bars of history it falls back to a plain EMA crossover.
type CompositeScore struct {
	scorer *score.Scorer
}

// New creates the strategy; options configure the underlying scorer
func New(opts ...score.Option) *CompositeScore {
	return &CompositeScore{scorer: score.New(opts...)}
}

func (c *CompositeScore) Name() string {
	return Name
}

func (c *CompositeScore) Description() string {
	return "Composite Score: trade on the weighted 0-100 trend/momentum/volume/structure score"
}

func (c *CompositeScore) Defaults() strategy.Params {
	return strategy.Params{
		strategy.ParamBuyScore:  65.0,
		strategy.ParamSellScore: 35.0,
	}
}

func (c *CompositeScore) ComputeSignal(f *indicator.Frame, index int, p strategy.Params) (core.Signal, error) {
	if index+1 < score.MinBars {
		return fallback(f, index, p), nil
	}

	res, err := c.scorer.Score(f, index)
	if err != nil {
		return core.Signal{}, err
	}

	switch {
	case res.Total >= p.Float(strategy.ParamBuyScore) && res.Direction == score.Long:
		return core.Buy(res.Total/100, fmt.Sprintf("score %.0f (%s)", res.Total, res.Recommendation)), nil
	case res.Total <= p.Float(strategy.ParamSellScore) || res.Direction == score.Short:
		return core.Sell((100-res.Total)/100, fmt.Sprintf("score %.0f (%s)", res.Total, res.Recommendation)), nil
	}
	return core.Hold(fmt.Sprintf("score %.0f", res.Total)), nil
}

func fallback(f *indicator.Frame, index int, p strategy.Params) core.Signal {
	fast := f.EMA(p.Int(strategy.ParamEMAFast))
	slow := f.EMA(p.Int(strategy.ParamEMASlow))
	cross, ok := strategy.Crossover(fast, slow, index)
	switch {
	case !ok:
		return core.Hold("indicators warming up")
	case cross == strategy.CrossUp:
		return core.Buy(0.5, "fast EMA crossed above slow EMA (short history)")
	case cross == strategy.CrossDown:
		return core.Sell(0.5, "fast EMA crossed below slow EMA (short history)")
	}
	return core.Hold("short history, no crossover")
}
