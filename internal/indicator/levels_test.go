package indicator

import (
	"testing"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestFindSupportResistance_MonotonicHasNoPivots(t *testing.T) {
	candles := make([]core.Candle, 40)
	for i := range candles {
		p := 100 + float64(i)
		candles[i] = core.Candle{Time: epoch.AddDate(0, 0, i), Open: p, High: p, Low: p, Close: p}
	}

	levels := FindSupportResistance(candles, 40)
	assert.Empty(t, levels.Support)
	assert.Empty(t, levels.Resistance)
	assert.NotNil(t, levels.Support)
}

func TestFindSupportResistance_Pivots(t *testing.T) {
	lows := []float64{10, 9, 8, 9, 10, 11, 12, 11, 10, 11, 12, 13, 14, 13, 12, 13, 14, 15}
	candles := make([]core.Candle, len(lows))
	for i, l := range lows {
		candles[i] = core.Candle{Time: epoch.AddDate(0, 0, i), Low: l, High: l + 2, Close: l + 1}
	}

	levels := FindSupportResistance(candles, 0)

	// pivot lows at 8, 10 and 12; last close is 16 so 12 is nearest
	assert.Equal(t, []float64{12, 10, 8}, levels.Support)
	// pivot highs at 14 (i=6) and 16 (i=12)
	assert.Equal(t, []float64{16, 14}, levels.Resistance)

	s, ok := levels.NearestSupport()
	assert.True(t, ok)
	assert.Equal(t, 12.0, s)
}

func TestFindSupportResistance_LimitsToThree(t *testing.T) {
	var candles []core.Candle
	for i := 0; i < 60; i++ {
		l := 100.0
		if i%5 == 2 {
			l = 90 - float64(i)
		}
		candles = append(candles, core.Candle{Time: epoch.AddDate(0, 0, i), Low: l, High: 110, Close: 105})
	}
	levels := FindSupportResistance(candles, 60)
	assert.Len(t, levels.Support, 3)
	// three lowest pivots, nearest to the close first
	assert.Equal(t, []float64{43, 38, 33}, levels.Support)
}

func TestFindSupportResistance_ShortInput(t *testing.T) {
	levels := FindSupportResistance(candlesFrom([]float64{1, 2, 3}), 10)
	assert.Empty(t, levels.Support)
	assert.Empty(t, levels.Resistance)
}
