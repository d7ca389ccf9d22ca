// internal/marketdata/binance/binance.go

// Package binance loads spot klines from the Binance REST API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/marketdata"
)

const (
	DefaultBaseURL = "https://api.binance.com"
	DefaultTimeout = 10 * time.Second

	// pageLimit is the largest page the klines endpoint returns
	pageLimit = 1000
	maxPages  = 100
)

// Common quote currencies in order of priority for detection
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "FDUSD", "BTC", "ETH", "BNB"}

var validSymbol = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// NormalizeSymbol converts "btc", "BTC-USDT", "BTC/USDT" or "btcusdt" to
// BTCUSDT. A bare base asset gets defaultQuote appended.
func NormalizeSymbol(input, defaultQuote string) string {
	if input == "" {
		return ""
	}
	s := strings.ToUpper(input)
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)

	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s
		}
	}
	return s + strings.ToUpper(defaultQuote)
}

// Binance implements marketdata.Provider
type Binance struct {
	client  *http.Client
	baseURL string
	quote   string
	logger  *zap.Logger
}

// Option configures a Binance provider.
type Option func(*Binance)

// WithBaseURL points the provider at another REST endpoint.
func WithBaseURL(u string) Option {
	return func(b *Binance) {
		if u != "" {
			b.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Binance) {
		if d > 0 {
			b.client.Timeout = d
		}
	}
}

// WithQuote sets the quote currency appended to bare symbols.
func WithQuote(q string) Option {
	return func(b *Binance) {
		if q != "" {
			b.quote = strings.ToUpper(q)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Binance) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a new Binance provider
func New(opts ...Option) *Binance {
	b := &Binance{
		client:  &http.Client{Timeout: DefaultTimeout},
		baseURL: DefaultBaseURL,
		quote:   "USDT",
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

func toInterval(timeframe string) (string, error) {
	switch timeframe {
	case "1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "12h", "1d", "1w", "1M":
		return timeframe, nil
	default:
		return "", fmt.Errorf("unsupported timeframe %q", timeframe)
	}
}

// FetchCandles pages forward through klines from Start. Without a Start it
// returns the most recent page ending at End.
func (b *Binance) FetchCandles(ctx context.Context, req marketdata.Request) ([]core.Candle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	symbol := NormalizeSymbol(req.Symbol, b.quote)
	if !validSymbol.MatchString(symbol) {
		return nil, core.Errorf(core.ErrConfigInvalid, "invalid symbol format: %s", req.Symbol)
	}
	interval, err := toInterval(req.Timeframe)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}

	var out []core.Candle
	from := req.Start
	for page := 0; page < maxPages; page++ {
		klines, err := b.klines(ctx, symbol, interval, from, req.End)
		if err != nil {
			return nil, err
		}
		for _, k := range klines {
			c, ok := k.candle()
			if !ok {
				continue
			}
			c.Symbol = req.Symbol
			c.Interval = req.Timeframe
			out = append(out, c)
		}
		if req.Start.IsZero() || len(klines) < pageLimit || len(out) == 0 {
			break
		}
		from = out[len(out)-1].Time.Add(time.Millisecond)
	}

	b.logger.Debug("binance fetched",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("bars", len(out)),
	)
	return marketdata.Finish(out, req)
}

func (b *Binance) klines(ctx context.Context, symbol, interval string, start, end time.Time) ([]kline, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(pageLimit))
	if !start.IsZero() {
		q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	}
	if !end.IsZero() {
		q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, core.Errorf(core.ErrProviderFailed, "fetching klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		// -1121 is Binance's "Invalid symbol."
		if apiErr.Code == -1121 {
			return nil, core.Errorf(core.ErrNoData, "binance: %s", apiErr.Msg)
		}
		return nil, core.Errorf(core.ErrProviderFailed, "unexpected status %d: %s", resp.StatusCode, apiErr.Msg)
	}

	var klines []kline
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return nil, core.Errorf(core.ErrProviderFailed, "decoding response: %w", err)
	}
	return klines, nil
}

// kline is one row of [openTime, open, high, low, close, volume, ...] with
// prices as decimal strings.
type kline []any

func (k kline) candle() (core.Candle, bool) {
	if len(k) < 6 {
		return core.Candle{}, false
	}
	openTime, ok := k[0].(float64)
	if !ok {
		return core.Candle{}, false
	}
	var vals [5]float64
	for i := range vals {
		s, ok := k[i+1].(string)
		if !ok {
			return core.Candle{}, false
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return core.Candle{}, false
		}
		vals[i] = v
	}
	return core.Candle{
		Time:   time.UnixMilli(int64(openTime)).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, true
}
