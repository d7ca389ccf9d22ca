package indicator

import (
	"math"
	"time"

	"github.com/newthinker/quantsim/internal/core"
)

var epoch = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

// wave returns a deterministic trending, oscillating close series
func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 0.2*float64(i) + 5*math.Sin(float64(i)/3)
	}
	return out
}

// candlesFrom builds bars with a +/-1 range around each close
func candlesFrom(closes []float64) []core.Candle {
	out := make([]core.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = core.Candle{
			Symbol: "TEST",
			Time:   epoch.AddDate(0, 0, i),
			Open:   open,
			High:   math.Max(open, c) + 1,
			Low:    math.Min(open, c) - 1,
			Close:  c,
			Volume: 1000 + float64(i%7)*100,
		}
	}
	return out
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}
