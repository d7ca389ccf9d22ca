package backtest

import (
	"encoding/json"
	"math"
	"time"

	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/strategy"
)

// StopPolicy selects how protective stop and target prices are derived
type StopPolicy string

const (
	// StopATR places the stop ATR(14) x atrMultiplier below entry and the
	// target at twice that distance above it
	StopATR StopPolicy = "atr"
	// StopPercent uses Config.StopLossPct and Config.TakeProfitPct of entry
	StopPercent StopPolicy = "percent"
)

// Config controls one backtest run
type Config struct {
	Name            string     `json:"name"`
	StartDate       time.Time  `json:"startDate"` // zero means from the first bar
	EndDate         time.Time  `json:"endDate"`   // zero means to the last bar
	InitialCapital  float64    `json:"initialCapital"`
	PositionSizePct float64    `json:"positionSizePct"` // fraction of equity committed per trade, (0,1]
	Commission      float64    `json:"commission"`      // fraction of traded value, charged per side
	SlippageBps     float64    `json:"slippageBps"`
	StopPolicy      StopPolicy `json:"stopPolicy"`
	StopLossPct     float64    `json:"stopLossPct"`   // fraction of entry, percent policy only
	TakeProfitPct   float64    `json:"takeProfitPct"` // fraction of entry, percent policy only
}

// DefaultConfig returns the standard run settings
func DefaultConfig() Config {
	return Config{
		InitialCapital:  100_000,
		PositionSizePct: 0.1,
		Commission:      0.001,
		SlippageBps:     5,
		StopPolicy:      StopATR,
		StopLossPct:     0.05,
		TakeProfitPct:   0.1,
	}
}

// Validate checks the config before a run
func (c Config) Validate() error {
	switch {
	case c.InitialCapital < MinInitialCapital:
		return core.Errorf(core.ErrConfigInvalid, "initial capital %.2f is below %.0f", c.InitialCapital, float64(MinInitialCapital))
	case c.PositionSizePct <= 0 || c.PositionSizePct > 1:
		return core.Errorf(core.ErrConfigInvalid, "position size %.4f must be in (0,1]", c.PositionSizePct)
	case c.Commission < 0 || c.Commission >= 1:
		return core.Errorf(core.ErrConfigInvalid, "commission %.4f must be in [0,1)", c.Commission)
	case c.SlippageBps < 0 || c.SlippageBps >= 10_000:
		return core.Errorf(core.ErrConfigInvalid, "slippage %.1f bps out of range", c.SlippageBps)
	case !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.EndDate.Before(c.StartDate):
		return core.Errorf(core.ErrConfigInvalid, "end date %s is before start date %s",
			c.EndDate.Format(time.DateOnly), c.StartDate.Format(time.DateOnly))
	}

	switch c.StopPolicy {
	case StopATR, "":
	case StopPercent:
		if c.StopLossPct <= 0 || c.StopLossPct >= 1 || c.TakeProfitPct <= 0 {
			return core.Errorf(core.ErrConfigInvalid, "percent stop policy needs stop loss in (0,1) and a positive take profit")
		}
	default:
		return core.Errorf(core.ErrConfigInvalid, "unknown stop policy %q", c.StopPolicy)
	}
	return nil
}

// Position is the single open long position of a run
type Position struct {
	EntryPrice      float64   `json:"entryPrice"`
	EntryDate       time.Time `json:"entryDate"`
	Quantity        float64   `json:"quantity"`
	StopPrice       float64   `json:"stopPrice"`
	TargetPrice     float64   `json:"targetPrice"`
	Side            string    `json:"side"`
	EntryCommission float64   `json:"entryCommission"`
}

// ExitReason records why a position was closed
type ExitReason string

const (
	ExitTarget ExitReason = "target"
	ExitStop   ExitReason = "stop"
	ExitSignal ExitReason = "signal"
	ExitTime   ExitReason = "time"
)

// Trade is a closed position
type Trade struct {
	EntryDate   time.Time  `json:"entryDate"`
	ExitDate    time.Time  `json:"exitDate"`
	EntryPrice  float64    `json:"entryPrice"`
	ExitPrice   float64    `json:"exitPrice"`
	Quantity    float64    `json:"quantity"`
	Commission  float64    `json:"commission"` // both legs
	PnL         float64    `json:"pnl"`        // net of commission
	PnLPercent  float64    `json:"pnlPercent"` // of entry value
	HoldingDays int        `json:"holdingDays"`
	ExitReason  ExitReason `json:"exitReason"`
}

// IsWin returns true if the trade was profitable after costs
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// IsLoss returns true if the trade lost money after costs
func (t Trade) IsLoss() bool {
	return t.PnL < 0
}

// EquityPoint is the marked-to-market account value at a bar
type EquityPoint struct {
	Date            time.Time `json:"date"`
	Equity          float64   `json:"equity"`
	DrawdownPercent float64   `json:"drawdownPercent"`
}

// Metrics holds run performance. Percentages are in percent units.
type Metrics struct {
	TotalReturn      float64 `json:"totalReturn"`
	AnnualizedReturn float64 `json:"annualizedReturn"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	SortinoRatio     float64 `json:"sortinoRatio"`
	MaxDrawdown      float64 `json:"maxDrawdown"`
	WinRate          float64 `json:"winRate"`
	AvgWin           float64 `json:"avgWin"`
	AvgLoss          float64 `json:"avgLoss"`
	ProfitFactor     float64 `json:"profitFactor"` // +Inf when there are wins and no losses
	TotalTrades      int     `json:"totalTrades"`
	WinningTrades    int     `json:"winningTrades"`
	LosingTrades     int     `json:"losingTrades"`
	AvgHoldingDays   float64 `json:"avgHoldingDays"`
	FinalEquity      float64 `json:"finalEquity"`
	TotalCommission  float64 `json:"totalCommission"`
}

// MarshalJSON writes an infinite profit factor as "Infinity"
func (m Metrics) MarshalJSON() ([]byte, error) {
	type plain Metrics
	if !math.IsInf(m.ProfitFactor, 1) {
		return json.Marshal(plain(m))
	}
	aux := struct {
		plain
		ProfitFactor string `json:"profitFactor"`
	}{plain: plain(m), ProfitFactor: "Infinity"}
	return json.Marshal(aux)
}

// Result is the complete output of one run. The engine keeps no reference
// to it after returning.
type Result struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	Symbol         string                  `json:"symbol"`
	Strategy       string                  `json:"strategy"`
	Params         strategy.Params         `json:"params"`
	Config         Config                  `json:"config"`
	Metrics        Metrics                 `json:"metrics"`
	EquityCurve    []EquityPoint           `json:"equityCurve"`
	Trades         []Trade                 `json:"trades"`
	MonthlyReturns map[string]float64      `json:"monthlyReturns"`
	OpenPosition   *Position               `json:"openPosition,omitempty"`
	SignalCounts   map[core.SignalType]int `json:"signalCounts"`
	StrategyFaults int                     `json:"strategyFaults"`
	CreatedAt      time.Time               `json:"createdAt"`
}
