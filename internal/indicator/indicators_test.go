package indicator

import (
	"math"
	"testing"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignedLengthAndWarmup(t *testing.T) {
	closes := wave(120)
	candles := candlesFrom(closes)
	const period = 14

	macd := MACD(closes, 12, 26, 9)
	bb := Bollinger(closes, 20, 2)
	adx := ADX(candles, period)
	stoch := StochRSI(closes, 14, 14, 3, 3)

	tests := []struct {
		name   string
		series Series
		warmup int
	}{
		{"SMA", SMA(closes, period), period},
		{"EMA", EMA(closes, period), period},
		{"RSI", RSI(closes, period), period},
		{"ATR", ATR(candles, period), period},
		{"ADX", adx.ADX, period},
		{"MFI", MFI(candles, period), period},
		{"WilliamsR", WilliamsR(candles, period), period},
		{"MACD", macd.MACD, 26},
		{"MACD signal", macd.Signal, 26},
		{"Bollinger middle", bb.Middle, 20},
		{"StochRSI K", stoch.K, 14},
		{"OBV", OBV(candles), 1},
		{"VWAP", VWAP(candles), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, tt.series, len(closes))
			for i := 0; i < tt.warmup-1; i++ {
				assert.False(t, tt.series[i].Valid, "index %d should be unavailable", i)
			}
			_, ok := tt.series.Last()
			assert.True(t, ok, "last sample should be available")
		})
	}
}

func TestRSI_Bounds(t *testing.T) {
	rsi := RSI(wave(300), 14)

	assert.Equal(t, 14, rsi.FirstValid())
	for i, v := range rsi {
		if !v.Valid {
			continue
		}
		assert.GreaterOrEqual(t, v.V, 0.0, "rsi[%d]", i)
		assert.LessOrEqual(t, v.V, 100.0, "rsi[%d]", i)
	}
}

func TestRSI_NoLossesIs100(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = float64(100 + i)
	}
	v, ok := RSI(prices, 14).Last()
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestRSI_WilderSmoothing(t *testing.T) {
	prices := []float64{10, 11, 10, 12, 11}
	rsi := RSI(prices, 2)

	// changes: +1, -1, +2, -1
	// seed at index 2: avgGain = 0.5, avgLoss = 0.5 -> 50
	assert.InDelta(t, 50.0, rsi[2].V, 1e-9)
	// index 3: avgGain = (0.5+2)/2 = 1.25, avgLoss = 0.25 -> 100 - 100/6
	assert.InDelta(t, 100-100/6.0, rsi[3].V, 1e-9)
	// index 4: avgGain = 0.625, avgLoss = 0.625 -> 50
	assert.InDelta(t, 50.0, rsi[4].V, 1e-9)
}

func TestBollinger_BandOrderAndWidth(t *testing.T) {
	bb := Bollinger(wave(100), 20, 2)

	for i := range bb.Middle {
		if !bb.Middle[i].Valid {
			continue
		}
		u, m, l := bb.Upper[i].V, bb.Middle[i].V, bb.Lower[i].V
		assert.Greater(t, u, m, "upper > middle at %d", i)
		assert.Greater(t, m, l, "middle > lower at %d", i)
		assert.Equal(t, (u-l)/m, bb.Width[i].V, "width at %d", i)
	}
}

func TestBollinger_MatchesTwoPassDeviation(t *testing.T) {
	closes := wave(500)
	bb := Bollinger(closes, 20, 2)

	for i := 19; i < len(closes); i++ {
		win := closes[i-19 : i+1]
		var mean, ss float64
		for _, v := range win {
			mean += v
		}
		mean /= 20
		for _, v := range win {
			ss += (v - mean) * (v - mean)
		}
		sd := math.Sqrt(ss / 20)
		assert.InDelta(t, mean+2*sd, bb.Upper[i].V, 1e-6, "upper at %d", i)
		assert.InDelta(t, mean-2*sd, bb.Lower[i].V, 1e-6, "lower at %d", i)
	}
}

func TestBollinger_FlatSeriesCollapses(t *testing.T) {
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 50
	}
	bb := Bollinger(flat, 20, 2)
	assert.Equal(t, 50.0, bb.Upper[29].V)
	assert.Equal(t, 50.0, bb.Lower[29].V)
	assert.Equal(t, 0.0, bb.Width[29].V)
}

func TestATR(t *testing.T) {
	t.Run("constant range", func(t *testing.T) {
		candles := make([]core.Candle, 30)
		for i := range candles {
			candles[i] = core.Candle{Time: epoch.AddDate(0, 0, i), High: 101, Low: 99, Close: 100}
		}
		atr := ATR(candles, 14)
		assert.Equal(t, 13, atr.FirstValid())
		for _, v := range atr[13:] {
			assert.InDelta(t, 2.0, v.V, 1e-12)
		}
	})

	t.Run("flat bars are zero", func(t *testing.T) {
		candles := make([]core.Candle, 30)
		for i := range candles {
			candles[i] = core.Candle{Time: epoch.AddDate(0, 0, i), Open: 100, High: 100, Low: 100, Close: 100}
		}
		v, ok := ATR(candles, 14).Last()
		require.True(t, ok)
		assert.Equal(t, 0.0, v)
	})

	t.Run("wilder recursion", func(t *testing.T) {
		candles := candlesFrom(wave(40))
		atr := ATR(candles, 5)
		for i := 5; i < len(candles); i++ {
			tr := trueRange(candles[i].High, candles[i].Low, candles[i-1].Close, true)
			want := (atr[i-1].V*4 + tr) / 5
			assert.InDelta(t, want, atr[i].V, 1e-9)
		}
	})
}

func TestADX_StrongUptrend(t *testing.T) {
	candles := make([]core.Candle, 60)
	for i := range candles {
		base := 100 + float64(i)
		candles[i] = core.Candle{Time: epoch.AddDate(0, 0, i), High: base + 1, Low: base - 1, Close: base + 0.5}
	}
	res := ADX(candles, 14)

	assert.Equal(t, 27, res.ADX.FirstValid())
	adx, ok := res.ADX.Last()
	require.True(t, ok)
	assert.InDelta(t, 100.0, adx, 1e-9)

	pdi, _ := res.PlusDI.Last()
	mdi, _ := res.MinusDI.Last()
	assert.Greater(t, pdi, mdi)
}

func TestOBV(t *testing.T) {
	candles := []core.Candle{
		{Close: 10, Volume: 100},
		{Close: 11, Volume: 100},
		{Close: 11, Volume: 100},
		{Close: 10, Volume: 250},
	}
	obv := OBV(candles)
	want := []float64{0, 100, 100, -150}
	for i, w := range want {
		assert.Equal(t, w, obv[i].V, "obv[%d]", i)
	}
}

func TestVWAP(t *testing.T) {
	candles := []core.Candle{
		{High: 0, Low: 0, Close: 0, Volume: 0},
		{High: 10, Low: 10, Close: 10, Volume: 100},
		{High: 20, Low: 20, Close: 20, Volume: 300},
	}
	vwap := VWAP(candles)
	assert.False(t, vwap[0].Valid, "no volume yet")
	assert.Equal(t, 10.0, vwap[1].V)
	assert.Equal(t, 17.5, vwap[2].V)
}

func TestMFI(t *testing.T) {
	t.Run("no negative flow is 100", func(t *testing.T) {
		closes := make([]float64, 20)
		for i := range closes {
			closes[i] = float64(10 + i)
		}
		v, ok := MFI(candlesFrom(closes), 14).Last()
		require.True(t, ok)
		assert.Equal(t, 100.0, v)
	})

	t.Run("bounded", func(t *testing.T) {
		for _, v := range MFI(candlesFrom(wave(200)), 14) {
			if v.Valid {
				assert.GreaterOrEqual(t, v.V, 0.0)
				assert.LessOrEqual(t, v.V, 100.0)
			}
		}
	})
}

func TestWilliamsR(t *testing.T) {
	flat := make([]core.Candle, 5)
	for i := range flat {
		flat[i] = core.Candle{High: 10, Low: 10, Close: 10}
	}
	v, ok := WilliamsR(flat, 3).Last()
	require.True(t, ok)
	assert.Equal(t, -50.0, v)

	bars := []core.Candle{
		{High: 12, Low: 8, Close: 10},
		{High: 11, Low: 9, Close: 10},
		{High: 11, Low: 9, Close: 11},
	}
	v, _ = WilliamsR(bars, 3).Last()
	assert.InDelta(t, -25.0, v, 1e-12)
}

func TestStochRSI_Bounded(t *testing.T) {
	res := StochRSI(wave(200), 14, 14, 3, 3)
	require.Len(t, res.K, 200)
	for i := range res.K {
		if res.K[i].Valid {
			assert.GreaterOrEqual(t, res.K[i].V, 0.0)
			assert.LessOrEqual(t, res.K[i].V, 100.0)
		}
	}
	assert.Less(t, res.K.FirstValid(), res.D.FirstValid())
}

func TestRollingExtreme_MatchesBruteForce(t *testing.T) {
	values := wave(80)
	hi := NewRollingMax(7)
	lo := NewRollingMin(7)
	for i, v := range values {
		h := hi.Update(v)
		l := lo.Update(v)
		if i < 6 {
			assert.False(t, h.Valid)
			continue
		}
		wantHi, wantLo := values[i], values[i]
		for j := i - 6; j <= i; j++ {
			wantHi = max(wantHi, values[j])
			wantLo = min(wantLo, values[j])
		}
		assert.Equal(t, wantHi, h.V, "max at %d", i)
		assert.Equal(t, wantLo, l.V, "min at %d", i)
	}
}
