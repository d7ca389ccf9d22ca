package backtest

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/indicator"
	"github.com/newthinker/quantsim/internal/strategy"
	"go.uber.org/zap"
)

const (
	// MinBars is the shortest date-filtered series a run accepts
	MinBars = 50
	// MinInitialCapital is the smallest starting balance a run accepts
	MinInitialCapital = 1_000

	atrPeriod = 14
	// startOffset bars past emaSlowPeriod before the first evaluated bar
	startOffset = 5
	rewardRisk  = 2.0
)

// Recorder receives run telemetry
type Recorder interface {
	RecordBacktest(strategy, status string, seconds float64)
	RecordTrade(strategy, reason string)
	RecordSignal(strategy, signal string)
	RecordStrategyFault(strategy string)
}

type nopRecorder struct{}

func (nopRecorder) RecordBacktest(string, string, float64) {}
func (nopRecorder) RecordTrade(string, string)             {}
func (nopRecorder) RecordSignal(string, string)            {}
func (nopRecorder) RecordStrategyFault(string)             {}

// Engine runs single-position backtests. An Engine holds no run state and
// may be shared by concurrent runs.
type Engine struct {
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets the telemetry sink
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithClock sets the source of Result.CreatedAt
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates a new Engine
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run backtests strat over candles. Candles must be strictly ascending; they
// are filtered to the config date range and never modified. Params are
// layered over the strategy defaults.
func (e *Engine) Run(ctx context.Context, candles []core.Candle, cfg Config, strat strategy.Strategy, overrides strategy.Params) (*Result, error) {
	started := time.Now()
	res, err := e.run(ctx, candles, cfg, strat, overrides)

	status := "success"
	if err != nil {
		status = "failed"
		e.logger.Warn("backtest failed", zap.String("strategy", strat.Name()), zap.Error(err))
	}
	e.recorder.RecordBacktest(strat.Name(), status, time.Since(started).Seconds())
	return res, err
}

func (e *Engine) run(ctx context.Context, candles []core.Candle, cfg Config, strat strategy.Strategy, overrides strategy.Params) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.StopPolicy == "" {
		cfg.StopPolicy = StopATR
	}
	if err := core.ValidateSeries(candles); err != nil {
		return nil, err
	}

	series := core.FilterRange(candles, cfg.StartDate, cfg.EndDate)
	if len(series) < MinBars {
		return nil, core.Errorf(core.ErrInsufficientData, "%d bars in range, need %d", len(series), MinBars)
	}

	params, ignored := strategy.Resolve(strat, overrides)
	if len(ignored) > 0 {
		e.logger.Warn("ignoring strategy params", zap.String("strategy", strat.Name()), zap.Strings("params", ignored))
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	first := max(0, params.Int(strategy.ParamEMASlow)+startOffset)
	if first >= len(series) {
		return nil, core.Errorf(core.ErrInsufficientData, "%d bars in range, warm-up needs more than %d", len(series), first)
	}

	frame := indicator.NewFrame(series)
	sim := &simulation{
		engine:   e,
		cfg:      cfg,
		params:   params,
		strat:    strat,
		frame:    frame,
		atr:      frame.ATR(atrPeriod),
		acct:     newAccount(cfg.InitialCapital),
		peak:     cfg.InitialCapital,
		slippage: cfg.SlippageBps / 10_000,
		minHold:  params.Int(strategy.ParamMinHoldingDays),
		maxHold:  params.Int(strategy.ParamMaxHoldingDays),
		signals:  make(map[core.SignalType]int),
	}

	for i := first; i < len(series); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sim.step(i)
	}

	res := &Result{
		ID:             uuid.NewString(),
		Name:           cfg.Name,
		Symbol:         series[0].Symbol,
		Strategy:       strat.Name(),
		Params:         params,
		Config:         cfg,
		Metrics:        computeMetrics(cfg.InitialCapital, sim.curve, sim.trades, sim.acct.fees()),
		EquityCurve:    sim.curve,
		Trades:         sim.trades,
		MonthlyReturns: monthlyReturns(cfg.InitialCapital, sim.curve),
		OpenPosition:   sim.pos,
		SignalCounts:   sim.signals,
		StrategyFaults: sim.faults,
		CreatedAt:      e.now(),
	}
	if res.Name == "" {
		res.Name = res.Symbol + " " + res.Strategy
	}

	e.logger.Info("backtest complete",
		zap.String("symbol", res.Symbol),
		zap.String("strategy", res.Strategy),
		zap.Int("bars", len(sim.curve)),
		zap.Int("trades", res.Metrics.TotalTrades),
		zap.Float64("total_return", res.Metrics.TotalReturn),
		zap.Int("strategy_faults", sim.faults),
	)
	return res, nil
}

// simulation is the mutable state of one run
type simulation struct {
	engine   *Engine
	cfg      Config
	params   strategy.Params
	strat    strategy.Strategy
	frame    *indicator.Frame
	atr      indicator.Series
	acct     *account
	pos      *Position
	trades   []Trade
	curve    []EquityPoint
	peak     float64
	slippage float64
	minHold  int
	maxHold  int
	signals  map[core.SignalType]int
	faults   int
}

func (s *simulation) step(i int) {
	bar := s.frame.Candle(i)

	if s.pos != nil {
		s.evaluateExit(i, bar)
	} else {
		s.evaluateEntry(i, bar)
	}

	var qty float64
	if s.pos != nil {
		qty = s.pos.Quantity
	}
	equity := s.acct.equity(qty, bar.Close)
	s.peak = math.Max(s.peak, equity)
	var dd float64
	if s.peak > 0 {
		dd = (s.peak - equity) / s.peak * 100
	}
	s.curve = append(s.curve, EquityPoint{Date: bar.Time, Equity: equity, DrawdownPercent: dd})
}

// evaluateExit applies exits in fixed priority: stop, target, time, signal.
// A stop and target crossed in the same bar resolve as a stop, the
// pessimistic reading of a bar whose intrabar path is unknown.
func (s *simulation) evaluateExit(i int, bar core.Candle) {
	held := calendarDays(s.pos.EntryDate, bar.Time)

	switch {
	case bar.Low <= s.pos.StopPrice:
		s.close(bar, s.pos.StopPrice, ExitStop, held)
	case bar.High >= s.pos.TargetPrice:
		s.close(bar, s.pos.TargetPrice, ExitTarget, held)
	case held >= s.maxHold:
		s.close(bar, bar.Close, ExitTime, held)
	default:
		if sig := s.signal(i); sig.Type == core.SignalSell && held >= s.minHold {
			s.close(bar, bar.Close, ExitSignal, held)
		}
	}
}

func (s *simulation) close(bar core.Candle, price float64, reason ExitReason, held int) {
	p := s.pos
	fill := price * (1 - s.slippage)
	fee := s.acct.sell(p.Quantity, fill, s.cfg.Commission)

	commission := p.EntryCommission + fee
	pnl := (fill-p.EntryPrice)*p.Quantity - commission
	s.trades = append(s.trades, Trade{
		EntryDate:   p.EntryDate,
		ExitDate:    bar.Time,
		EntryPrice:  p.EntryPrice,
		ExitPrice:   fill,
		Quantity:    p.Quantity,
		Commission:  commission,
		PnL:         pnl,
		PnLPercent:  pnl / (p.EntryPrice * p.Quantity) * 100,
		HoldingDays: held,
		ExitReason:  reason,
	})
	s.pos = nil
	s.engine.recorder.RecordTrade(s.strat.Name(), string(reason))
}

func (s *simulation) evaluateEntry(i int, bar core.Candle) {
	if sig := s.signal(i); sig.Type != core.SignalBuy {
		return
	}

	entry := bar.Close * (1 + s.slippage)
	stop, target, ok := s.protect(i, entry)
	if !ok {
		s.engine.logger.Debug("entry skipped: no stop distance",
			zap.String("strategy", s.strat.Name()),
			zap.Time("bar", bar.Time),
		)
		return
	}

	equity := s.acct.balance()
	qty := math.Floor(equity * s.cfg.PositionSizePct / entry)
	if qty <= 0 {
		return
	}
	fee, ok := s.acct.buy(qty, entry, s.cfg.Commission)
	if !ok {
		s.engine.logger.Debug("entry skipped: insufficient cash",
			zap.String("strategy", s.strat.Name()),
			zap.Time("bar", bar.Time),
		)
		return
	}

	s.pos = &Position{
		EntryPrice:      entry,
		EntryDate:       bar.Time,
		Quantity:        qty,
		StopPrice:       stop,
		TargetPrice:     target,
		Side:            "long",
		EntryCommission: fee,
	}
}

// protect derives stop and target prices for an entry. ok is false when
// the stop distance is unavailable or not positive.
func (s *simulation) protect(i int, entry float64) (stop, target float64, ok bool) {
	if s.cfg.StopPolicy == StopPercent {
		return entry * (1 - s.cfg.StopLossPct), entry * (1 + s.cfg.TakeProfitPct), true
	}

	atr, valid := s.atr.At(i)
	dist := atr * s.params.Float(strategy.ParamATRMultiplier)
	if !valid || !(dist > 0) || dist >= entry {
		return 0, 0, false
	}
	return entry - dist, entry + rewardRisk*dist, true
}

// signal evaluates the strategy at bar i, containing any fault
func (s *simulation) signal(i int) core.Signal {
	sig, err := strategy.Compute(s.strat, s.frame, i, s.params)
	if err != nil {
		s.faults++
		s.engine.recorder.RecordStrategyFault(s.strat.Name())
		s.engine.logger.Warn("strategy fault, holding",
			zap.String("strategy", s.strat.Name()),
			zap.Int("bar", i),
			zap.Error(err),
		)
	}
	s.signals[sig.Type]++
	s.engine.recorder.RecordSignal(s.strat.Name(), string(sig.Type))
	return sig
}

// calendarDays counts whole calendar days between the dates of from and to
func calendarDays(from, to time.Time) int {
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
