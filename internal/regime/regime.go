// internal/regime/regime.go

// Package regime labels the market regime of a series from its long EMAs,
// ADX and ATR, and recommends a strategy bias for it.
package regime

import (
	"math"

	"github.com/newthinker/quantsim/internal/indicator"
)

// MinBars is the history needed for EMA200
const MinBars = 200

const (
	changeLookback  = 20
	changeThreshold = 5.0 // percent
)

// Direction of the long-term trend
type Direction string

const (
	DirectionUp       Direction = "up"
	DirectionDown     Direction = "down"
	DirectionSideways Direction = "sideways"
)

// TrendStrength buckets ADX
type TrendStrength string

const (
	TrendStrong   TrendStrength = "strong"
	TrendModerate TrendStrength = "moderate"
	TrendWeak     TrendStrength = "weak"
	TrendNone     TrendStrength = "none"
)

// Volatility buckets ATR as a percent of price
type Volatility string

const (
	VolatilityHigh   Volatility = "high"
	VolatilityNormal Volatility = "normal"
	VolatilityLow    Volatility = "low"
)

// Regime is the overall market label
type Regime string

const (
	RegimeStrongBull Regime = "strong_bull"
	RegimeBull       Regime = "bull"
	RegimeNeutral    Regime = "neutral"
	RegimeBear       Regime = "bear"
	RegimeStrongBear Regime = "strong_bear"
)

// Family is the strategy family suited to a regime
type Family string

const (
	FamilyMomentum      Family = "momentum"
	FamilyMeanReversion Family = "mean_reversion"
	FamilyAvoid         Family = "avoid"
)

// Bias is the recommended trade direction
type Bias string

const (
	BiasLong    Bias = "long"
	BiasShort   Bias = "short"
	BiasNeutral Bias = "neutral"
)

// Recommendation is what to do in the regime
type Recommendation struct {
	Family         Family
	SizeMultiplier float64
	Bias           Bias
}

// Result is the classification at one bar
type Result struct {
	Regime         Regime
	Direction      Direction
	TrendStrength  TrendStrength
	Trending       bool
	Volatility     Volatility
	Strength       float64 // 0..100
	ADX            float64
	ATRPercent     float64
	Change20       float64 // percent
	Recommendation Recommendation
}

// IsBearish reports whether the regime is bear or strong bear
func (r Result) IsBearish() bool {
	return r.Regime == RegimeBear || r.Regime == RegimeStrongBear
}

// Classify labels the regime at bar index. It returns false when fewer than
// MinBars bars are available or any input indicator is still warming up.
func Classify(f *indicator.Frame, index int) (Result, bool) {
	if index < MinBars-1 || index >= f.Len() {
		return Result{}, false
	}

	price := f.Candle(index).Close
	ema50, ok50 := f.EMA(50).At(index)
	ema200, ok200 := f.EMA(200).At(index)
	adx, okADX := f.ADX(14).ADX.At(index)
	atr, okATR := f.ATR(14).At(index)
	if !ok50 || !ok200 || !okADX || !okATR || price <= 0 {
		return Result{}, false
	}

	prev := f.Candle(index - changeLookback).Close
	var change float64
	if prev > 0 {
		change = (price/prev - 1) * 100
	}

	r := Result{
		Direction:     direction(price, ema50, ema200),
		TrendStrength: trendStrength(adx),
		Trending:      adx > 25,
		ADX:           adx,
		ATRPercent:    atr / price * 100,
		Change20:      change,
	}
	r.Volatility = volatility(r.ATRPercent)
	r.Regime = label(r.Direction, r.Trending, change)

	r.Strength = adx + 3*math.Abs(change)
	if r.Direction != DirectionSideways {
		r.Strength += 10
	}
	r.Strength = math.Max(0, math.Min(100, r.Strength))

	r.Recommendation = recommend(r)
	return r, true
}

func direction(price, ema50, ema200 float64) Direction {
	switch {
	case price > ema50 && price > ema200 && ema50 > ema200:
		return DirectionUp
	case price < ema50 && price < ema200 && ema50 < ema200:
		return DirectionDown
	default:
		return DirectionSideways
	}
}

func trendStrength(adx float64) TrendStrength {
	switch {
	case adx >= 40:
		return TrendStrong
	case adx >= 25:
		return TrendModerate
	case adx >= 15:
		return TrendWeak
	default:
		return TrendNone
	}
}

func volatility(atrPct float64) Volatility {
	switch {
	case atrPct >= 3:
		return VolatilityHigh
	case atrPct >= 1.5:
		return VolatilityNormal
	default:
		return VolatilityLow
	}
}

func label(dir Direction, trending bool, change float64) Regime {
	switch dir {
	case DirectionUp:
		if trending && change > changeThreshold {
			return RegimeStrongBull
		}
		return RegimeBull
	case DirectionDown:
		if trending && change < -changeThreshold {
			return RegimeStrongBear
		}
		return RegimeBear
	default:
		return RegimeNeutral
	}
}

func recommend(r Result) Recommendation {
	rec := Recommendation{Family: FamilyMeanReversion, Bias: BiasNeutral, SizeMultiplier: 1.0}

	switch {
	case r.IsBearish():
		rec.Family = FamilyAvoid
	case r.Trending:
		rec.Family = FamilyMomentum
	}

	switch r.Regime {
	case RegimeStrongBull, RegimeBull:
		rec.Bias = BiasLong
	case RegimeStrongBear, RegimeBear:
		rec.Bias = BiasShort
	}

	switch {
	case r.IsBearish() || r.Volatility == VolatilityHigh:
		rec.SizeMultiplier = 0.5
	case r.Regime == RegimeNeutral:
		rec.SizeMultiplier = 0.75
	}
	return rec
}
