package indicator

import (
	"fmt"
	"time"

	"github.com/newthinker/quantsim/internal/core"
)

// Frame wraps the candle series of one run and memoizes every indicator
// series computed over it, so strategies can look values up by bar index
// instead of recomputing over a growing prefix.
//
// A Frame is not safe for concurrent use. The candle slice is never
// modified and may be shared by several frames.
type Frame struct {
	candles []core.Candle
	closes  []float64
	volumes []float64
	cache   map[string]any
}

// NewFrame creates a frame over candles ordered by ascending time
func NewFrame(candles []core.Candle) *Frame {
	f := &Frame{
		candles: candles,
		closes:  make([]float64, len(candles)),
		volumes: make([]float64, len(candles)),
		cache:   make(map[string]any),
	}
	for i, c := range candles {
		f.closes[i] = c.Close
		f.volumes[i] = c.Volume
	}
	return f
}

// Len returns the number of bars
func (f *Frame) Len() int { return len(f.candles) }

// Candles returns the underlying series
func (f *Frame) Candles() []core.Candle { return f.candles }

// Candle returns bar i
func (f *Frame) Candle(i int) core.Candle { return f.candles[i] }

// Closes returns close prices
func (f *Frame) Closes() []float64 { return f.closes }

// Volumes returns bar volumes
func (f *Frame) Volumes() []float64 { return f.volumes }

func memo[T any](f *Frame, key string, build func() T) T {
	if v, ok := f.cache[key]; ok {
		return v.(T)
	}
	v := build()
	f.cache[key] = v
	return v
}

// SMA of closes
func (f *Frame) SMA(period int) Series {
	return memo(f, fmt.Sprintf("sma/%d", period), func() Series { return SMA(f.closes, period) })
}

// VolumeSMA is the simple average of volume
func (f *Frame) VolumeSMA(period int) Series {
	return memo(f, fmt.Sprintf("vsma/%d", period), func() Series { return SMA(f.volumes, period) })
}

// EMA of closes
func (f *Frame) EMA(period int) Series {
	return memo(f, fmt.Sprintf("ema/%d", period), func() Series { return EMA(f.closes, period) })
}

// RSI of closes
func (f *Frame) RSI(period int) Series {
	return memo(f, fmt.Sprintf("rsi/%d", period), func() Series { return RSI(f.closes, period) })
}

// MACD of closes
func (f *Frame) MACD(fast, slow, signal int) MACDResult {
	return memo(f, fmt.Sprintf("macd/%d/%d/%d", fast, slow, signal), func() MACDResult {
		return MACD(f.closes, fast, slow, signal)
	})
}

// Bollinger bands of closes
func (f *Frame) Bollinger(period int, k float64) BollingerResult {
	return memo(f, fmt.Sprintf("bb/%d/%g", period, k), func() BollingerResult {
		return Bollinger(f.closes, period, k)
	})
}

// ATR of the series
func (f *Frame) ATR(period int) Series {
	return memo(f, fmt.Sprintf("atr/%d", period), func() Series { return ATR(f.candles, period) })
}

// ADX of the series
func (f *Frame) ADX(period int) ADXResult {
	return memo(f, fmt.Sprintf("adx/%d", period), func() ADXResult { return ADX(f.candles, period) })
}

// OBV of the series
func (f *Frame) OBV() Series {
	return memo(f, "obv", func() Series { return OBV(f.candles) })
}

// VWAP of the series
func (f *Frame) VWAP() Series {
	return memo(f, "vwap", func() Series { return VWAP(f.candles) })
}

// StochRSI of closes
func (f *Frame) StochRSI(rsiPeriod, stochPeriod, kPeriod, dPeriod int) StochRSIResult {
	key := fmt.Sprintf("stochrsi/%d/%d/%d/%d", rsiPeriod, stochPeriod, kPeriod, dPeriod)
	return memo(f, key, func() StochRSIResult {
		return StochRSI(f.closes, rsiPeriod, stochPeriod, kPeriod, dPeriod)
	})
}

// WilliamsR of the series
func (f *Frame) WilliamsR(period int) Series {
	return memo(f, fmt.Sprintf("willr/%d", period), func() Series { return WilliamsR(f.candles, period) })
}

// MFI of the series
func (f *Frame) MFI(period int) Series {
	return memo(f, fmt.Sprintf("mfi/%d", period), func() Series { return MFI(f.candles, period) })
}

// Levels returns support/resistance as seen at bar index. Only bars up to
// and including index are considered.
func (f *Frame) Levels(index, lookback int) Levels {
	return FindSupportResistance(f.candles[:index+1], lookback)
}

// MACDValue is one bar of MACD output
type MACDValue struct {
	MACD      Value
	Signal    Value
	Histogram Value
}

// StochRSIValue is one bar of StochRSI output
type StochRSIValue struct {
	K Value
	D Value
}

// BollingerValue is one bar of band output
type BollingerValue struct {
	Upper  Value
	Middle Value
	Lower  Value
	Width  Value
}

// Snapshot gathers the standard indicator set for one bar
type Snapshot struct {
	Time       time.Time
	EMA9       Value
	EMA21      Value
	EMA50      Value
	EMA200     Value
	MACD       MACDValue
	RSI14      Value
	StochRSI   StochRSIValue
	WilliamsR  Value
	MFI        Value
	ATR14      Value
	Bollinger  BollingerValue
	OBV        Value
	VWAP       Value
	Support    []float64
	Resistance []float64
}

// Snapshot returns the standard indicator set at bar index
func (f *Frame) Snapshot(index int) Snapshot {
	macd := f.MACD(12, 26, 9)
	stoch := f.StochRSI(14, 14, 3, 3)
	bb := f.Bollinger(20, 2)
	levels := f.Levels(index, DefaultLevelLookback)

	return Snapshot{
		Time:   f.candles[index].Time,
		EMA9:   f.EMA(9)[index],
		EMA21:  f.EMA(21)[index],
		EMA50:  f.EMA(50)[index],
		EMA200: f.EMA(200)[index],
		MACD: MACDValue{
			MACD:      macd.MACD[index],
			Signal:    macd.Signal[index],
			Histogram: macd.Histogram[index],
		},
		RSI14:     f.RSI(14)[index],
		StochRSI:  StochRSIValue{K: stoch.K[index], D: stoch.D[index]},
		WilliamsR: f.WilliamsR(14)[index],
		MFI:       f.MFI(14)[index],
		ATR14:     f.ATR(14)[index],
		Bollinger: BollingerValue{
			Upper:  bb.Upper[index],
			Middle: bb.Middle[index],
			Lower:  bb.Lower[index],
			Width:  bb.Width[index],
		},
		OBV:        f.OBV()[index],
		VWAP:       f.VWAP()[index],
		Support:    levels.Support,
		Resistance: levels.Resistance,
	}
}
