package indicator

import (
	"math"
	"sort"

	"github.com/newthinker/quantsim/internal/core"
)

const (
	// pivotWing is the number of bars on each side of a 5-bar pivot
	pivotWing = 2
	maxLevels = 3

	// DefaultLevelLookback is the window scanned for pivots
	DefaultLevelLookback = 50
)

// Levels holds pivot-based support and resistance prices, each ordered by
// distance from the last close.
type Levels struct {
	Support    []float64
	Resistance []float64
}

// NearestSupport returns the closest support level
func (l Levels) NearestSupport() (float64, bool) {
	if len(l.Support) == 0 {
		return 0, false
	}
	return l.Support[0], true
}

// NearestResistance returns the closest resistance level
func (l Levels) NearestResistance() (float64, bool) {
	if len(l.Resistance) == 0 {
		return 0, false
	}
	return l.Resistance[0], true
}

// FindSupportResistance scans the last lookback candles for strict 5-bar
// pivots. It keeps the three lowest pivot lows as support and the three
// highest pivot highs as resistance.
func FindSupportResistance(candles []core.Candle, lookback int) Levels {
	if lookback <= 0 || lookback > len(candles) {
		lookback = len(candles)
	}
	window := candles[len(candles)-lookback:]
	if len(window) < 2*pivotWing+1 {
		return Levels{}
	}
	last := window[len(window)-1].Close

	var lows, highs []float64
	for i := pivotWing; i < len(window)-pivotWing; i++ {
		isLow, isHigh := true, true
		for j := i - pivotWing; j <= i+pivotWing; j++ {
			if j == i {
				continue
			}
			if window[j].Low <= window[i].Low {
				isLow = false
			}
			if window[j].High >= window[i].High {
				isHigh = false
			}
		}
		if isLow {
			lows = append(lows, window[i].Low)
		}
		if isHigh {
			highs = append(highs, window[i].High)
		}
	}

	sort.Float64s(lows)
	sort.Sort(sort.Reverse(sort.Float64Slice(highs)))

	return Levels{
		Support:    byProximity(pickDistinct(lows), last),
		Resistance: byProximity(pickDistinct(highs), last),
	}
}

// pickDistinct takes up to maxLevels distinct prices from a sorted slice
func pickDistinct(sorted []float64) []float64 {
	var out []float64
	for _, p := range sorted {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
		if len(out) == maxLevels {
			break
		}
	}
	return out
}

func byProximity(levels []float64, price float64) []float64 {
	sort.SliceStable(levels, func(a, b int) bool {
		return math.Abs(levels[a]-price) < math.Abs(levels[b]-price)
	})
	if levels == nil {
		return []float64{}
	}
	return levels
}
