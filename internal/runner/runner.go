// internal/runner/runner.go

// Package runner executes batches of backtests in parallel.
package runner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/newthinker/quantsim/internal/backtest"
	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/marketdata"
	"github.com/newthinker/quantsim/internal/strategy"
)

// DefaultConcurrency bounds parallel runs when none is configured.
const DefaultConcurrency = 4

// Job is one backtest of a batch. Zero Start or End falls back to the
// runner's base config.
type Job struct {
	Name     string
	Symbol   string
	Strategy string
	Start    time.Time
	End      time.Time
	Params   strategy.Params
}

// Outcome is the result of one job. Exactly one of Result and Err is set.
type Outcome struct {
	Job      Job
	Result   *backtest.Result
	Err      error
	Duration time.Duration
}

// Gauge tracks in-flight jobs.
type Gauge interface {
	JobStarted()
	JobFinished()
}

type nopGauge struct{}

func (nopGauge) JobStarted()  {}
func (nopGauge) JobFinished() {}

// Runner fans jobs out over a bounded worker group. Candle series are
// fetched once per batch and shared read-only between runs.
type Runner struct {
	provider    marketdata.Provider
	strategies  *strategy.Registry
	engine      *backtest.Engine
	base        backtest.Config
	timeframe   string
	concurrency int
	logger      *zap.Logger
	gauge       Gauge
	progress    func(Outcome)
}

// Option configures a Runner.
type Option func(*Runner)

func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithGauge(g Gauge) Option {
	return func(r *Runner) {
		if g != nil {
			r.gauge = g
		}
	}
}

// WithBaseConfig sets the engine config every job starts from.
func WithBaseConfig(cfg backtest.Config) Option {
	return func(r *Runner) { r.base = cfg }
}

func WithTimeframe(tf string) Option {
	return func(r *Runner) {
		if tf != "" {
			r.timeframe = tf
		}
	}
}

// WithProgress registers a callback invoked after every job. Calls are
// serialized.
func WithProgress(fn func(Outcome)) Option {
	return func(r *Runner) { r.progress = fn }
}

// New creates a Runner.
func New(provider marketdata.Provider, strategies *strategy.Registry, engine *backtest.Engine, opts ...Option) *Runner {
	r := &Runner{
		provider:    provider,
		strategies:  strategies,
		engine:      engine,
		base:        backtest.DefaultConfig(),
		timeframe:   "1d",
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
		gauge:       nopGauge{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// batch holds the candle cache of one Run call.
type batch struct {
	group singleflight.Group
	mu    sync.Mutex
	cache map[string]fetched
}

type fetched struct {
	candles []core.Candle
	err     error
}

// Run executes jobs and returns one outcome per job in input order. Job
// failures are reported in their Outcome; only cancellation aborts the
// batch.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Outcome, error) {
	b := &batch{cache: make(map[string]fetched)}
	outcomes := make([]Outcome, len(jobs))

	var progressMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	r.logger.Info("batch started",
		zap.Int("jobs", len(jobs)),
		zap.Int("concurrency", r.concurrency),
	)
	started := time.Now()

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := r.runJob(gctx, b, job)
			outcomes[i] = out
			if r.progress != nil {
				progressMu.Lock()
				r.progress(out)
				progressMu.Unlock()
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	r.logger.Info("batch complete",
		zap.Int("jobs", len(jobs)),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(started)),
	)
	return outcomes, nil
}

func (r *Runner) runJob(ctx context.Context, b *batch, job Job) Outcome {
	r.gauge.JobStarted()
	defer r.gauge.JobFinished()

	start := time.Now()
	out := Outcome{Job: job}
	out.Result, out.Err = r.execute(ctx, b, job)
	out.Duration = time.Since(start)

	if out.Err != nil {
		r.logger.Warn("job failed",
			zap.String("job", job.Name),
			zap.String("symbol", job.Symbol),
			zap.String("strategy", job.Strategy),
			zap.Error(out.Err),
		)
	}
	return out
}

func (r *Runner) execute(ctx context.Context, b *batch, job Job) (*backtest.Result, error) {
	strat, err := r.strategies.Get(job.Strategy)
	if err != nil {
		return nil, err
	}

	cfg := r.base
	cfg.Name = job.Name
	if !job.Start.IsZero() {
		cfg.StartDate = job.Start
	}
	if !job.End.IsZero() {
		cfg.EndDate = job.End
	}

	candles, err := r.candles(ctx, b, marketdata.Request{
		Symbol:    job.Symbol,
		Timeframe: r.timeframe,
		Start:     cfg.StartDate,
		End:       cfg.EndDate,
	})
	if err != nil {
		return nil, err
	}
	return r.engine.Run(ctx, candles, cfg, strat, job.Params)
}

// candles returns the series for req, fetching it at most once per batch.
// Failures are cached too. Concurrent callers for the same key share one
// in-flight fetch.
func (r *Runner) candles(ctx context.Context, b *batch, req marketdata.Request) ([]core.Candle, error) {
	key := req.Key()
	if f, ok := b.lookup(key); ok {
		return f.candles, f.err
	}

	ch := b.group.DoChan(key, func() (any, error) {
		if f, ok := b.lookup(key); ok {
			return f, nil
		}

		// The fetch outlives the caller that started it; waiters only
		// stop on their own cancellation.
		c, err := r.provider.FetchCandles(context.WithoutCancel(ctx), req)
		f := fetched{candles: c, err: err}
		b.mu.Lock()
		b.cache[key] = f
		b.mu.Unlock()

		r.logger.Debug("candles loaded",
			zap.String("provider", r.provider.Name()),
			zap.String("key", key),
			zap.Int("bars", len(c)),
			zap.Error(err),
		)
		return f, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		f := res.Val.(fetched)
		return f.candles, f.err
	}
}

func (b *batch) lookup(key string) (fetched, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.cache[key]
	return f, ok
}
