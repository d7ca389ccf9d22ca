package strategy

import (
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/newthinker/quantsim/internal/core"
)

// Recognized parameter names
const (
	ParamEntryRSI        = "entryRsiThreshold"
	ParamExitRSI         = "exitRsiThreshold"
	ParamEMAFast         = "emaFastPeriod"
	ParamEMASlow         = "emaSlowPeriod"
	ParamATRMultiplier   = "atrMultiplier"
	ParamVolumeThreshold = "volumeThreshold"
	ParamMinHoldingDays  = "minHoldingDays"
	ParamMaxHoldingDays  = "maxHoldingDays"
	ParamRSIOversold     = "rsiOversold"
	ParamRSIOverbought   = "rsiOverbought"
	ParamBuyScore        = "buyScoreThreshold"
	ParamSellScore       = "sellScoreThreshold"
	ParamMACDFast        = "macdFast"
	ParamMACDSlow        = "macdSlow"
	ParamMACDSignal      = "macdSignal"
	ParamBollingerPeriod = "bollingerPeriod"
	ParamBollingerStdDev = "bollingerStdDev"
	ParamTrendEMAPeriod  = "trendEmaPeriod"
	ParamTrendTolerance  = "trendTolerance"
)

// MaxPeriod bounds every lookback and holding-day parameter
const MaxPeriod = 5000

// lower bound per bounded parameter
var bounded = map[string]float64{
	ParamEMAFast:         1,
	ParamEMASlow:         1,
	ParamMACDFast:        1,
	ParamMACDSlow:        1,
	ParamMACDSignal:      1,
	ParamBollingerPeriod: 1,
	ParamTrendEMAPeriod:  1,
	ParamMinHoldingDays:  0,
	ParamMaxHoldingDays:  1,
}

// Params holds strategy parameters. Lookups ignore key case, since config
// loaders lowercase map keys.
type Params map[string]any

// CommonDefaults are shared by every strategy and consumed by the engine
func CommonDefaults() Params {
	return Params{
		ParamEMAFast:        9,
		ParamEMASlow:        21,
		ParamATRMultiplier:  2.0,
		ParamMinHoldingDays: 1,
		ParamMaxHoldingDays: 30,
	}
}

func (p Params) get(key string) (any, bool) {
	if v, ok := p[key]; ok {
		return v, true
	}
	for k, v := range p {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether key is set
func (p Params) Has(key string) bool {
	_, ok := p.get(key)
	return ok
}

// Float returns key as float64, or 0 when missing or not numeric
func (p Params) Float(key string) float64 {
	v, ok := p.get(key)
	if !ok {
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return f
}

// Int returns key as int, or 0 when missing or not numeric
func (p Params) Int(key string) int {
	return int(p.Float(key))
}

// Keys returns the parameter names in sorted order
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve layers the common defaults, the strategy's own defaults and the
// caller overrides. Overrides for unknown names, or with values that are not
// numeric, are dropped and reported so the default stays in effect.
func Resolve(s Strategy, overrides Params) (Params, []string) {
	out := Params{}
	for _, layer := range []Params{CommonDefaults(), s.Defaults()} {
		for k, v := range layer {
			out[k] = v
		}
	}

	canonical := make(map[string]string, len(out))
	for k := range out {
		canonical[strings.ToLower(k)] = k
	}

	var ignored []string
	for _, k := range overrides.Keys() {
		name, known := canonical[strings.ToLower(k)]
		if !known {
			ignored = append(ignored, k)
			continue
		}
		v, err := cast.ToFloat64E(overrides[k])
		if err != nil {
			ignored = append(ignored, k)
			continue
		}
		out[name] = v
	}
	return out, ignored
}

// Validate rejects lookback periods and holding days outside
// [lower bound, MaxPeriod].
func (p Params) Validate() error {
	for _, key := range sortedKeys(bounded) {
		if !p.Has(key) {
			continue
		}
		v, _ := p.get(key)
		f, err := cast.ToFloat64E(v)
		if err != nil || math.IsNaN(f) || f < bounded[key] || f > MaxPeriod {
			return core.Errorf(core.ErrConfigInvalid, "%s must be between %g and %d, got %v",
				key, bounded[key], MaxPeriod, v)
		}
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
