// internal/marketdata/csv.go
package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/newthinker/quantsim/internal/core"
)

var csvHeader = []string{"date", "open", "high", "low", "close", "volume"}

var timeLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
	"2006/01/02",
}

// ReadCSV parses candles with a header row naming at least date, open, high,
// low, close and volume in any order. Extra columns are ignored. Dates may
// be ISO dates, RFC 3339 timestamps or unix seconds / milliseconds.
// Input is UTF-8 unless a byte order mark says otherwise.
func ReadCSV(r io.Reader, symbol, timeframe string) ([]core.Candle, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.Errorf(core.ErrNoData, "empty csv")
	}
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidSeries, err)
	}

	cols, err := columns(header)
	if err != nil {
		return nil, err
	}

	var candles []core.Candle
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidSeries, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		c, err := parseRow(rec, cols)
		if err != nil {
			return nil, core.Errorf(core.ErrInvalidSeries, "line %d: %v", line, err)
		}
		c.Symbol = symbol
		c.Interval = timeframe
		candles = append(candles, c)
	}
	return candles, nil
}

// WriteCSV writes candles in the layout ReadCSV expects.
func WriteCSV(w io.Writer, candles []core.Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range candles {
		rec := []string{
			c.Time.UTC().Format(time.RFC3339),
			formatFloat(c.Open),
			formatFloat(c.High),
			formatFloat(c.Low),
			formatFloat(c.Close),
			formatFloat(c.Volume),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func columns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch name {
		case "time", "timestamp", "datetime":
			name = "date"
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, want := range csvHeader {
		if _, ok := cols[want]; !ok {
			return nil, core.Errorf(core.ErrInvalidSeries, "csv header missing %q", want)
		}
	}
	return cols, nil
}

func parseRow(rec []string, cols map[string]int) (core.Candle, error) {
	field := func(name string) (string, error) {
		i := cols[name]
		if i >= len(rec) {
			return "", fmt.Errorf("missing %s", name)
		}
		return strings.TrimSpace(rec[i]), nil
	}

	var c core.Candle
	raw, err := field("date")
	if err != nil {
		return c, err
	}
	if c.Time, err = parseTime(raw); err != nil {
		return c, err
	}

	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &c.Open},
		{"high", &c.High},
		{"low", &c.Low},
		{"close", &c.Close},
		{"volume", &c.Volume},
	} {
		raw, err := field(f.name)
		if err != nil {
			return c, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c, fmt.Errorf("%s %q: %w", f.name, raw, err)
		}
		*f.dst = v
	}
	return c, nil
}

func parseTime(raw string) (time.Time, error) {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		// Anything above 1e11 is a millisecond epoch.
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
