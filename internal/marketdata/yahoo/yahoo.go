// internal/marketdata/yahoo/yahoo.go

// Package yahoo loads candles from the Yahoo Finance chart endpoint.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/marketdata"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultTimeout = 30 * time.Second

	userAgent = "Mozilla/5.0 (compatible; quantsim)"
)

// validSymbol matches stock symbols like AAPL, BRK-B, 600519.SH, 0700.HK, ^GSPC
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9-]{1,10}(\.[A-Za-z]{1,4})?$`)

func validateSymbol(symbol string) error {
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements marketdata.Provider
type Yahoo struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

// Option configures a Yahoo provider.
type Option func(*Yahoo)

// WithBaseURL points the provider at another chart endpoint.
func WithBaseURL(u string) Option {
	return func(y *Yahoo) {
		if u != "" {
			y.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(y *Yahoo) {
		if d > 0 {
			y.client.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(y *Yahoo) {
		if l != nil {
			y.logger = l
		}
	}
}

// New creates a new Yahoo provider
func New(opts ...Option) *Yahoo {
	y := &Yahoo{
		client:  &http.Client{Timeout: DefaultTimeout},
		baseURL: DefaultBaseURL,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// toYahooSymbol converts internal symbol format to Yahoo format
func toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

func toYahooInterval(timeframe string) (string, error) {
	switch timeframe {
	case "1m", "5m", "15m", "30m", "1h", "1d":
		return timeframe, nil
	case "1w":
		return "1wk", nil
	case "1M":
		return "1mo", nil
	default:
		return "", fmt.Errorf("unsupported timeframe %q", timeframe)
	}
}

func (y *Yahoo) chartURL(req marketdata.Request, interval string) string {
	q := url.Values{}
	q.Set("interval", interval)
	q.Set("events", "history")
	if req.Start.IsZero() && req.End.IsZero() {
		q.Set("range", "max")
	} else {
		end := req.End
		if end.IsZero() {
			end = time.Now()
		}
		q.Set("period1", fmt.Sprint(req.Start.Unix()))
		// period2 is exclusive, include the whole end day.
		q.Set("period2", fmt.Sprint(end.Add(24*time.Hour).Unix()))
	}
	return fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(toYahooSymbol(req.Symbol)), q.Encode())
}

// FetchCandles fetches historical OHLCV bars.
func (y *Yahoo) FetchCandles(ctx context.Context, req marketdata.Request) ([]core.Candle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := validateSymbol(req.Symbol); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	interval, err := toYahooInterval(req.Timeframe)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}

	u := y.chartURL(req, interval)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := y.client.Do(httpReq)
	if err != nil {
		return nil, core.Errorf(core.ErrProviderFailed, "fetching history: %w", err)
	}
	defer resp.Body.Close()

	var result chartResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if result.Chart.Error != nil {
		if resp.StatusCode == http.StatusNotFound || result.Chart.Error.Code == "Not Found" {
			return nil, core.Errorf(core.ErrNoData, "yahoo: %s", result.Chart.Error.Description)
		}
		return nil, core.Errorf(core.ErrProviderFailed, "yahoo error: %s", result.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, core.Errorf(core.ErrProviderFailed, "unexpected status: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, core.Errorf(core.ErrProviderFailed, "decoding response: %w", decodeErr)
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.Errorf(core.ErrNoData, "no data for symbol: %s", req.Symbol)
	}

	candles := result.Chart.Result[0].candles(req.Symbol, req.Timeframe)
	y.logger.Debug("yahoo fetched",
		zap.String("symbol", req.Symbol),
		zap.String("interval", interval),
		zap.Int("bars", len(candles)),
		zap.Duration("took", time.Since(start)),
	)
	return marketdata.Finish(candles, req)
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol   string `json:"symbol"`
	Timezone string `json:"exchangeTimezoneName"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

// candles converts the column arrays, skipping bars with any missing field.
func (r chartResult) candles(symbol, timeframe string) []core.Candle {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	at := func(col []*float64, i int) (float64, bool) {
		if i >= len(col) || col[i] == nil {
			return 0, false
		}
		return *col[i], true
	}

	loc := time.UTC
	if r.Meta.Timezone != "" {
		if l, err := time.LoadLocation(r.Meta.Timezone); err == nil {
			loc = l
		}
	}
	daily := timeframe == "1d" || timeframe == "1w" || timeframe == "1M"

	out := make([]core.Candle, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		o, ok1 := at(q.Open, i)
		h, ok2 := at(q.High, i)
		l, ok3 := at(q.Low, i)
		c, ok4 := at(q.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		v, _ := at(q.Volume, i)
		t := time.Unix(ts, 0).UTC()
		if daily {
			// Session bars are stamped at the exchange open; key them by
			// the exchange-local trading date.
			y, m, d := t.In(loc).Date()
			t = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
		out = append(out, core.Candle{
			Symbol:   symbol,
			Interval: timeframe,
			Time:     t,
			Open:     o,
			High:     h,
			Low:      l,
			Close:    c,
			Volume:   v,
		})
	}
	return out
}
