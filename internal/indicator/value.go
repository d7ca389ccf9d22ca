// Package indicator computes technical indicators over OHLCV series.
//
// Every batch function returns a Series aligned with its input: len(out) ==
// len(in), with warm-up samples marked unavailable instead of carrying NaN.
// Batch functions are thin loops over streaming updaters, so a full series
// costs O(n).
package indicator

import (
	"math"
	"strconv"
)

// Value is one indicator sample. Valid is false while the indicator is
// still warming up.
type Value struct {
	V     float64
	Valid bool
}

// Some wraps an available sample
func Some(v float64) Value {
	return Value{V: v, Valid: true}
}

// MarshalJSON writes the sample as a number, or null while unavailable
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid || math.IsNaN(v.V) || math.IsInf(v.V, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.V, 'f', -1, 64), nil
}

// Series is an indicator output aligned index-for-index with its input.
type Series []Value

// At returns the sample at i and whether it is available. Out-of-range
// indexes are reported as unavailable.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) {
		return 0, false
	}
	return s[i].V, s[i].Valid
}

// Last returns the final sample
func (s Series) Last() (float64, bool) {
	return s.At(len(s) - 1)
}

// FirstValid returns the index of the first available sample, or -1.
func (s Series) FirstValid() int {
	for i, v := range s {
		if v.Valid {
			return i
		}
	}
	return -1
}

// feed runs update over values and collects an aligned series.
func feed(values []float64, update func(float64) Value) Series {
	out := make(Series, len(values))
	for i, v := range values {
		out[i] = update(v)
	}
	return out
}
