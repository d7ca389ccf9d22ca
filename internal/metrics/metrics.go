package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all Prometheus metrics. It satisfies backtest.Recorder and
// is safe for concurrent runs.
type Registry struct {
	*prometheus.Registry

	backtestsTotal   *prometheus.CounterVec
	backtestDuration *prometheus.HistogramVec
	tradesTotal      *prometheus.CounterVec
	signalsTotal     *prometheus.CounterVec
	strategyFaults   *prometheus.CounterVec
	jobsActive       prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
// Runtime collectors are left out since the registry is written to a
// textfile once per command rather than scraped.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		Registry: reg,

		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantsim_backtests_total",
				Help: "Total number of backtest runs",
			},
			[]string{"strategy", "status"},
		),

		backtestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quantsim_backtest_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"strategy"},
		),

		tradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantsim_trades_total",
				Help: "Total number of closed trades by exit reason",
			},
			[]string{"strategy", "reason"},
		),

		signalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantsim_signals_total",
				Help: "Total number of strategy signals evaluated",
			},
			[]string{"strategy", "signal"},
		),

		strategyFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quantsim_strategy_faults_total",
				Help: "Bars where a strategy failed and was held",
			},
			[]string{"strategy"},
		),

		jobsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "quantsim_batch_jobs_active",
				Help: "Number of batch jobs currently running",
			},
		),
	}

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.signalsTotal)
	reg.MustRegister(r.strategyFaults)
	reg.MustRegister(r.jobsActive)

	return r
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(strategy, status string, seconds float64) {
	r.backtestsTotal.WithLabelValues(strategy, status).Inc()
	r.backtestDuration.WithLabelValues(strategy).Observe(seconds)
}

// RecordTrade records a closed trade.
func (r *Registry) RecordTrade(strategy, reason string) {
	r.tradesTotal.WithLabelValues(strategy, reason).Inc()
}

// RecordSignal records an evaluated signal.
func (r *Registry) RecordSignal(strategy, signal string) {
	r.signalsTotal.WithLabelValues(strategy, signal).Inc()
}

// RecordStrategyFault records a contained strategy failure.
func (r *Registry) RecordStrategyFault(strategy string) {
	r.strategyFaults.WithLabelValues(strategy).Inc()
}

// JobStarted increments active batch jobs.
func (r *Registry) JobStarted() {
	r.jobsActive.Inc()
}

// JobFinished decrements active batch jobs.
func (r *Registry) JobFinished() {
	r.jobsActive.Dec()
}

// WriteTextfile writes all metrics in the node exporter textfile format.
// The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}
