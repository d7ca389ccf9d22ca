// internal/core/types.go
package core

import (
	"math"
	"time"
)

// Candle represents one OHLCV bar of a single symbol/timeframe series.
type Candle struct {
	Symbol   string
	Interval string // "1m", "1h", "1d"
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// IsValid checks the bar is internally consistent
func (c Candle) IsValid() bool {
	if c.Time.IsZero() || c.Close <= 0 || c.Volume < 0 {
		return false
	}
	return c.High >= c.Low && c.High >= c.Close && c.Low <= c.Close
}

// TypicalPrice returns (high+low+close)/3
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// SignalType is the action a strategy recommends for a bar
type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
	SignalHold SignalType = "hold"
)

// Signal is produced per bar by a strategy. It is never persisted.
type Signal struct {
	Type     SignalType
	Strength float64 // 0..1
	Reason   string
}

// Hold returns a hold signal with zero strength
func Hold(reason string) Signal {
	return Signal{Type: SignalHold, Reason: reason}
}

// Buy returns a buy signal with strength clamped to [0,1]
func Buy(strength float64, reason string) Signal {
	return Signal{Type: SignalBuy, Strength: clampUnit(strength), Reason: reason}
}

// Sell returns a sell signal with strength clamped to [0,1]
func Sell(strength float64, reason string) Signal {
	return Signal{Type: SignalSell, Strength: clampUnit(strength), Reason: reason}
}

func clampUnit(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ValidateSeries checks every bar is valid and candles are strictly
// ascending by time.
func ValidateSeries(candles []Candle) error {
	for i := range candles {
		if !candles[i].IsValid() {
			return Errorf(ErrInvalidSeries, "bar %d at %s is malformed", i, candles[i].Time.Format(time.RFC3339))
		}
		if i > 0 && !candles[i].Time.After(candles[i-1].Time) {
			return Errorf(ErrInvalidSeries, "bar %d at %s is not after bar %d at %s",
				i, candles[i].Time.Format(time.RFC3339), i-1, candles[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// FilterRange returns the sub-slice of candles within [start, end].
// A zero start or end leaves that side open. The input must be sorted.
func FilterRange(candles []Candle, start, end time.Time) []Candle {
	lo, hi := 0, len(candles)
	if !start.IsZero() {
		for lo < hi && candles[lo].Time.Before(start) {
			lo++
		}
	}
	if !end.IsZero() {
		for hi > lo && candles[hi-1].Time.After(end) {
			hi--
		}
	}
	return candles[lo:hi]
}
