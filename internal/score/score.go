// internal/score/score.go

// Package score combines indicators and the market regime into a weighted
// 0-100 composite signal score.
package score

import (
	"math"
	"sort"
	"time"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/newthinker/quantsim/internal/regime"
)

// MinBars is the history needed for a full score
const MinBars = regime.MinBars

// Component bands
const (
	maxTrend     = 25
	maxMomentum  = 20
	maxVolume    = 15
	maxStructure = 15
	maxContext   = 15
	maxRelative  = 10

	maxReasons   = 5
	maxRiskFlags = 3
)

// Recommendation derived from the total score
type Recommendation string

const (
	StrongBuy  Recommendation = "strong_buy"
	Buy        Recommendation = "buy"
	Hold       Recommendation = "hold"
	Sell       Recommendation = "sell"
	StrongSell Recommendation = "strong_sell"
)

// Direction derived from the recommendation
type Direction string

const (
	Long    Direction = "long"
	Neutral Direction = "neutral"
	Short   Direction = "short"
)

// Confidence in the score
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Components holds each clamped band
type Components struct {
	Trend     float64 // 0-25
	Momentum  float64 // 0-20
	Volume    float64 // 0-15
	Structure float64 // 0-15
	Context   float64 // 0-15
	Relative  float64 // 0-10
}

// Sum adds all components
func (c Components) Sum() float64 {
	return c.Trend + c.Momentum + c.Volume + c.Structure + c.Context + c.Relative
}

// Result is the composite score at one bar
type Result struct {
	Total          float64
	Components     Components
	Recommendation Recommendation
	Direction      Direction
	Confidence     Confidence
	Reasons        []string // top contributors, strongest first
	RiskFlags      []string // most severe first
	Regime         *regime.Result
}

// Scorer computes composite scores. The zero value scores without a
// benchmark.
type Scorer struct {
	benchmark []core.Candle
}

// Option configures a Scorer
type Option func(*Scorer)

// WithBenchmark compares performance against a benchmark series aligned by
// timestamp. The series must be sorted ascending.
func WithBenchmark(candles []core.Candle) Option {
	return func(s *Scorer) {
		s.benchmark = candles
	}
}

// New creates a Scorer
func New(opts ...Option) *Scorer {
	s := &Scorer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type note struct {
	weight float64
	text   string
}

// tally collects points, reasons and risk flags for one band
type tally struct {
	points  float64
	reasons *[]note
	risks   *[]note
}

func (t *tally) add(points float64, reason string) {
	t.points += points
	if points > 0 && reason != "" {
		*t.reasons = append(*t.reasons, note{points, reason})
	}
}

func (t *tally) risk(severity float64, flag string) {
	*t.risks = append(*t.risks, note{severity, flag})
}

// Score computes the composite score at bar index. Fewer than MinBars bars
// yields core.ErrInsufficientData.
func (s *Scorer) Score(f *indicator.Frame, index int) (Result, error) {
	if index < MinBars-1 || index >= f.Len() {
		return Result{}, core.Errorf(core.ErrInsufficientData,
			"composite score needs %d bars, have %d", MinBars, index+1)
	}

	var reasons, risks []note
	newTally := func() *tally { return &tally{reasons: &reasons, risks: &risks} }

	snap := f.Snapshot(index)
	price := f.Candle(index).Close

	var res Result
	if r, ok := regime.Classify(f, index); ok {
		res.Regime = &r
	}

	res.Components = Components{
		Trend:     clamp(trend(newTally(), snap, price), 0, maxTrend),
		Momentum:  clamp(momentum(newTally(), f, snap, index), 0, maxMomentum),
		Volume:    clamp(volume(newTally(), f, index), 0, maxVolume),
		Structure: clamp(structure(newTally(), snap, price), 0, maxStructure),
		Context:   clamp(marketContext(newTally(), res.Regime), 0, maxContext),
		Relative:  clamp(s.relative(newTally(), f, index), 0, maxRelative),
	}
	res.Total = clamp(res.Components.Sum(), 0, 100)

	res.Recommendation, res.Direction = recommend(res.Total)
	switch {
	case res.Total >= 70 && len(risks) <= 2:
		res.Confidence = ConfidenceHigh
	case res.Total >= 50:
		res.Confidence = ConfidenceMedium
	default:
		res.Confidence = ConfidenceLow
	}

	res.Reasons = top(reasons, maxReasons)
	res.RiskFlags = top(risks, maxRiskFlags)
	return res, nil
}

func recommend(total float64) (Recommendation, Direction) {
	switch {
	case total >= 75:
		return StrongBuy, Long
	case total >= 60:
		return Buy, Long
	case total >= 40:
		return Hold, Neutral
	case total >= 25:
		return Sell, Short
	default:
		return StrongSell, Short
	}
}

func trend(t *tally, s indicator.Snapshot, price float64) float64 {
	above := func(v indicator.Value) bool { return v.Valid && price > v.V }

	if above(s.EMA9) {
		t.add(3, "price above EMA9")
	}
	if above(s.EMA21) {
		t.add(4, "price above EMA21")
	}
	if above(s.EMA50) {
		t.add(5, "price above EMA50")
	}
	if above(s.EMA200) {
		t.add(5, "price above EMA200")
	} else if s.EMA200.Valid {
		t.risk(2, "price below EMA200")
	}
	if s.EMA9.Valid && s.EMA21.Valid && s.EMA50.Valid &&
		s.EMA9.V > s.EMA21.V && s.EMA21.V > s.EMA50.V {
		t.add(4, "short-term EMA stack aligned")
	}
	if s.EMA50.Valid && s.EMA200.Valid && s.EMA50.V > s.EMA200.V {
		t.add(4, "EMA50 above EMA200")
	}
	return t.points
}

func momentum(t *tally, f *indicator.Frame, s indicator.Snapshot, index int) float64 {
	if s.RSI14.Valid {
		rsi := s.RSI14.V
		switch {
		case rsi >= 70:
			t.add(2, "")
			t.risk(2, "RSI overbought")
		case rsi >= 50:
			t.add(6, "RSI in bullish zone")
		case rsi >= 40:
			t.add(4, "RSI neutral")
		case rsi >= 30:
			t.add(3, "RSI near oversold")
		default:
			t.add(2, "")
			t.risk(1, "RSI oversold")
		}
	}

	hist := f.MACD(12, 26, 9).Histogram
	if h, ok := hist.At(index); ok {
		if h > 0 {
			t.add(4, "MACD histogram positive")
		}
		if prev, ok := hist.At(index - 1); ok && h > prev {
			t.add(2, "MACD histogram rising")
		}
	}

	adx := f.ADX(14)
	if a, ok := adx.ADX.At(index); ok {
		pdi, _ := adx.PlusDI.At(index)
		mdi, _ := adx.MinusDI.At(index)
		switch {
		case a >= 25 && pdi > mdi:
			t.add(4, "strong uptrend (ADX)")
		case a >= 20:
			t.add(2, "developing trend (ADX)")
		}
	}

	if index >= 5 {
		prev := f.Candle(index - 5).Close
		roc := (f.Candle(index).Close/prev - 1) * 100
		switch {
		case roc > 2:
			t.add(4, "strong 5-day rate of change")
		case roc > 0:
			t.add(2, "positive 5-day rate of change")
		case roc < -5:
			t.risk(2, "sharp 5-day decline")
		}
	}
	return t.points
}

func volume(t *tally, f *indicator.Frame, index int) float64 {
	avg := f.VolumeSMA(20)
	vol := f.Candle(index).Volume

	if a, ok := avg.At(index); ok && a > 0 {
		ratio := vol / a
		switch {
		case ratio >= 1.5:
			t.add(6, "volume surge")
		case ratio >= 1.0:
			t.add(4, "volume above average")
		case ratio >= 0.7:
			t.add(2, "")
		default:
			t.risk(1, "thin volume")
		}
	}

	obv := f.OBV()
	if now, ok := obv.At(index); ok {
		if then, ok := obv.At(index - 20); ok && now > then {
			t.add(5, "OBV rising")
		}
	}

	var upDays float64
	for i := max(1, index-4); i <= index; i++ {
		a, ok := avg.At(i)
		c := f.Candle(i)
		if ok && c.Close > f.Candle(i-1).Close && c.Volume > a {
			upDays++
		}
	}
	if upDays > 0 {
		t.add(math.Min(upDays, 4), "up days on heavy volume")
	}
	return t.points
}

func structure(t *tally, s indicator.Snapshot, price float64) float64 {
	levels := indicator.Levels{Support: s.Support, Resistance: s.Resistance}

	supportPts := 3.0
	if sup, ok := levels.NearestSupport(); ok && sup < price {
		dist := (price - sup) / price * 100
		switch {
		case dist <= 3:
			supportPts = 8
		case dist <= 6:
			supportPts = 5
		default:
			supportPts = 2
		}
	}
	if res, ok := levels.NearestResistance(); ok && res > price && (res-price)/price*100 <= 2 {
		supportPts = math.Max(0, supportPts-3)
		t.risk(2, "near resistance")
	}
	if supportPts >= 5 {
		t.add(supportPts, "trading close to support")
	} else {
		t.add(supportPts, "")
	}

	bb := s.Bollinger
	if !bb.Upper.Valid || !bb.Lower.Valid || bb.Upper.V == bb.Lower.V {
		t.add(3, "")
		return t.points
	}
	pos := (price - bb.Lower.V) / (bb.Upper.V - bb.Lower.V)
	switch {
	case pos < 0.2:
		t.add(7, "near lower Bollinger band")
	case pos < 0.5:
		t.add(5, "below Bollinger midline")
	case pos < 0.8:
		t.add(3, "")
	case pos <= 1:
		t.add(1, "")
	default:
		t.risk(2, "extended above upper Bollinger band")
	}
	return t.points
}

func marketContext(t *tally, r *regime.Result) float64 {
	if r == nil {
		t.add(7, "")
		return t.points
	}

	switch r.Recommendation.Bias {
	case regime.BiasLong:
		t.add(10, "bullish market regime")
	case regime.BiasNeutral:
		t.add(5, "")
	default:
		t.risk(3, "bearish market regime")
	}

	switch r.Volatility {
	case regime.VolatilityLow:
		t.add(5, "low volatility")
	case regime.VolatilityNormal:
		t.add(4, "")
	default:
		t.add(1, "")
		t.risk(2, "high volatility")
	}
	return t.points
}

const relativeLookback = 20

func (s *Scorer) relative(t *tally, f *indicator.Frame, index int) float64 {
	if len(s.benchmark) == 0 || index < relativeLookback {
		t.add(5, "")
		return t.points
	}

	now := s.benchmarkClose(f.Candle(index).Time)
	then := s.benchmarkClose(f.Candle(index - relativeLookback).Time)
	if now <= 0 || then <= 0 {
		t.add(5, "")
		return t.points
	}

	stock := (f.Candle(index).Close/f.Candle(index-relativeLookback).Close - 1) * 100
	bench := (now/then - 1) * 100
	diff := stock - bench

	pts := clamp(5+diff/2, 0, maxRelative)
	if diff > 0 {
		t.add(pts, "outperforming benchmark")
	} else {
		t.add(pts, "")
		if diff < -5 {
			t.risk(1, "lagging benchmark")
		}
	}
	return t.points
}

// benchmarkClose returns the benchmark close at or before ts
func (s *Scorer) benchmarkClose(ts time.Time) float64 {
	i := sort.Search(len(s.benchmark), func(i int) bool {
		return s.benchmark[i].Time.After(ts)
	})
	if i == 0 {
		return 0
	}
	return s.benchmark[i-1].Close
}

func top(notes []note, n int) []string {
	sort.SliceStable(notes, func(a, b int) bool { return notes[a].weight > notes[b].weight })
	out := make([]string, 0, n)
	for _, nt := range notes {
		if len(out) == n {
			break
		}
		out = append(out, nt.text)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
