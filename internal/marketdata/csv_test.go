// internal/marketdata/csv_test.go
package marketdata

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/quantsim/internal/core"
)

func TestReadCSV(t *testing.T) {
	in := `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-02,10,12,9,11,11,1000
2024-01-03,11,13,10,12.5,12.5,1500

`
	got, err := ReadCSV(strings.NewReader(in), "AAPL", "1d")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got[0].Time)
	assert.Equal(t, 12.5, got[1].Close)
	assert.Equal(t, 1500.0, got[1].Volume)
	assert.Equal(t, "AAPL", got[1].Symbol)
	assert.Equal(t, "1d", got[1].Interval)
}

func TestReadCSV_TimeFormats(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{
		"2024-03-01",
		"2024-03-01T00:00:00Z",
		"2024-03-01 00:00:00",
		"1709251200",
		"1709251200000",
	} {
		t.Run(raw, func(t *testing.T) {
			in := "timestamp,open,high,low,close,volume\n" + raw + ",1,1,1,1,1\n"
			got, err := ReadCSV(strings.NewReader(in), "X", "1d")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.True(t, want.Equal(got[0].Time), "got %s", got[0].Time)
		})
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *core.Error
	}{
		{"empty", "", core.ErrNoData},
		{"missing column", "date,open,high,low,close\n2024-01-01,1,1,1,1\n", core.ErrInvalidSeries},
		{"bad number", "date,open,high,low,close,volume\n2024-01-01,x,1,1,1,1\n", core.ErrInvalidSeries},
		{"bad date", "date,open,high,low,close,volume\nyesterday,1,1,1,1,1\n", core.ErrInvalidSeries},
		{"short row", "date,open,high,low,close,volume\n2024-01-01,1,1\n", core.ErrInvalidSeries},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in), "X", "1d")
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestWriteCSV_ReadBack(t *testing.T) {
	candles := []core.Candle{bar(0, 100.25), bar(1, 101.5)}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, candles))
	assert.True(t, strings.HasPrefix(buf.String(), "date,open,high,low,close,volume\n"))

	got, err := ReadCSV(&buf, "X", "1d")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, candles[1].Time.Equal(got[1].Time))
	assert.Equal(t, 101.5, got[1].Close)
	assert.Equal(t, 102.5, got[1].High)
}

func TestReadCSV_ByteOrderMark(t *testing.T) {
	in := "date,open,high,low,close,volume\n2024-01-02,10,12,9,11,1000\n"

	utf8BOM := append([]byte("\xef\xbb\xbf"), in...)

	utf16LE := []byte{0xff, 0xfe}
	for _, u := range utf16.Encode([]rune(in)) {
		utf16LE = append(utf16LE, byte(u), byte(u>>8))
	}

	for name, raw := range map[string][]byte{"utf-8": utf8BOM, "utf-16le": utf16LE} {
		t.Run(name, func(t *testing.T) {
			got, err := ReadCSV(bytes.NewReader(raw), "X", "1d")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, 11.0, got[0].Close)
		})
	}
}
