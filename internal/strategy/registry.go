package strategy

import (
	"context"
	"sort"
	"sync"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"go.uber.org/zap"
)

// MinIndex is the earliest bar any strategy may signal on
const MinIndex = 50

// Registry maps strategy identifiers to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	logger    *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger ...*zap.Logger) *Registry {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Registry{
		factories: make(map[string]Factory),
		logger:    l,
	}
}

// Register adds a strategy factory under name
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Get builds the strategy registered under name
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, core.Errorf(core.ErrUnknownStrategy, "%q", name)
	}
	return f(), nil
}

// Names returns registered identifiers in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WarmupIndex is the first bar a strategy may signal on with params p
func WarmupIndex(p Params) int {
	return max(MinIndex, p.Int(ParamEMASlow))
}

// Compute evaluates s at bar index with resolved params. Bars before the
// warm-up index yield hold. An error or panic inside the strategy also
// yields hold, together with an ErrStrategyFailed describing the fault, so
// one bad bar never aborts a run.
func Compute(s Strategy, f *indicator.Frame, index int, p Params) (sig core.Signal, err error) {
	if index < WarmupIndex(p) || index >= f.Len() {
		return core.Hold("warming up"), nil
	}

	defer func() {
		if r := recover(); r != nil {
			sig = core.Hold("strategy fault")
			err = core.Errorf(core.ErrStrategyFailed, "%s panicked at bar %d: %v", s.Name(), index, r)
		}
	}()

	sig, err = s.ComputeSignal(f, index, p)
	if err != nil {
		return core.Hold("strategy fault"), core.WrapError(core.ErrStrategyFailed, err)
	}
	return sig, nil
}

// NamedSignal pairs a signal with the strategy that produced it
type NamedSignal struct {
	Strategy string
	Signal   core.Signal
}

// SignalsAt runs every named strategy (all when names is empty) at bar
// index with its defaults plus overrides[name]. Failing strategies are
// logged and skipped.
func (r *Registry) SignalsAt(ctx context.Context, f *indicator.Frame, index int, names []string, overrides map[string]Params) ([]NamedSignal, error) {
	if len(names) == 0 {
		names = r.Names()
	}

	var out []NamedSignal
	for _, name := range names {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		s, err := r.Get(name)
		if err != nil {
			r.logger.Warn("unknown strategy", zap.String("strategy", name))
			continue
		}

		p, ignored := Resolve(s, overrides[name])
		if len(ignored) > 0 {
			r.logger.Warn("ignoring strategy params",
				zap.String("strategy", name),
				zap.Strings("params", ignored),
			)
		}

		if err := p.Validate(); err != nil {
			r.logger.Warn("invalid strategy params",
				zap.String("strategy", name),
				zap.Error(err),
			)
			continue
		}

		sig, err := Compute(s, f, index, p)
		if err != nil {
			r.logger.Warn("strategy signal failed",
				zap.String("strategy", name),
				zap.Error(err),
			)
			continue
		}
		out = append(out, NamedSignal{Strategy: name, Signal: sig})
	}
	return out, nil
}
