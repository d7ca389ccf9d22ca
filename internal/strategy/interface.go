package strategy

import (
	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
)

// Strategy turns the history up to a bar into a buy/sell/hold signal.
//
// ComputeSignal must only read bars 0..index of the frame. Implementations
// are stateless; everything they need arrives through the frame and the
// resolved params, so one instance may serve concurrent runs as long as
// each run has its own frame.
type Strategy interface {
	Name() string
	Description() string
	Defaults() Params
	ComputeSignal(f *indicator.Frame, index int, p Params) (core.Signal, error)
}

// Factory builds a strategy instance
type Factory func() Strategy

// Cross describes how one series crossed another at a bar
type Cross int

const (
	NoCross Cross = iota
	CrossUp
	CrossDown
)

// Crossover reports whether a crossed b between bars index-1 and index.
// ok is false when either series is unavailable at those bars.
func Crossover(a, b indicator.Series, index int) (cross Cross, ok bool) {
	a0, okA0 := a.At(index - 1)
	a1, okA1 := a.At(index)
	b0, okB0 := b.At(index - 1)
	b1, okB1 := b.At(index)
	if !okA0 || !okA1 || !okB0 || !okB1 {
		return NoCross, false
	}
	switch {
	case a0 <= b0 && a1 > b1:
		return CrossUp, true
	case a0 >= b0 && a1 < b1:
		return CrossDown, true
	default:
		return NoCross, true
	}
}
