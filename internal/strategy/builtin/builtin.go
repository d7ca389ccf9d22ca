// Package builtin wires every bundled strategy into a registry.
package builtin

import (
	"github.com/newthinker/quantsim/internal/score"
	"github.com/newthinker/quantsim/internal/strategy"
	"github.com/newthinker/quantsim/internal/strategy/bollinger_breakout"
	"github.com/newthinker/quantsim/internal/strategy/composite_score"
	"github.com/newthinker/quantsim/internal/strategy/ema_crossover"
	"github.com/newthinker/quantsim/internal/strategy/macd_momentum"
	"github.com/newthinker/quantsim/internal/strategy/multi_factor"
	"github.com/newthinker/quantsim/internal/strategy/rsi_reversion"
	"go.uber.org/zap"
)

// NewRegistry returns a registry holding all bundled strategies. Scorer
// options are passed to the composite score strategy.
func NewRegistry(logger *zap.Logger, scoreOpts ...score.Option) *strategy.Registry {
	r := strategy.NewRegistry(logger)
	r.Register(ema_crossover.Name, func() strategy.Strategy { return ema_crossover.New() })
	r.Register(rsi_reversion.Name, func() strategy.Strategy { return rsi_reversion.New() })
	r.Register(composite_score.Name, func() strategy.Strategy { return composite_score.New(scoreOpts...) })
	r.Register(macd_momentum.Name, func() strategy.Strategy { return macd_momentum.New() })
	r.Register(bollinger_breakout.Name, func() strategy.Strategy { return bollinger_breakout.New() })
	r.Register(multi_factor.Name, func() strategy.Strategy { return multi_factor.New() })
	return r
}
