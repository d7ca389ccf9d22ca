package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newthinker/quantsim/internal/backtest"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

var _ backtest.Recorder = (*Registry)(nil)

func find(t *testing.T, reg *Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labels(m *dto.Metric) map[string]string {
	out := make(map[string]string)
	for _, l := range m.GetLabel() {
		out[l.GetName()] = l.GetValue()
	}
	return out
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}
}

func TestRegistry_RecordBacktest(t *testing.T) {
	reg := NewRegistry()

	reg.RecordBacktest("ema_crossover", "success", 0.02)
	reg.RecordBacktest("ema_crossover", "success", 0.03)
	reg.RecordBacktest("ema_crossover", "failed", 0.01)

	mf := find(t, reg, "quantsim_backtests_total")
	if mf == nil {
		t.Fatal("expected quantsim_backtests_total metric")
	}
	for _, m := range mf.GetMetric() {
		want := 2.0
		if labels(m)["status"] == "failed" {
			want = 1
		}
		if m.GetCounter().GetValue() != want {
			t.Errorf("status %s: expected %v, got %v", labels(m)["status"], want, m.GetCounter().GetValue())
		}
	}

	hist := find(t, reg, "quantsim_backtest_duration_seconds")
	if hist == nil {
		t.Fatal("expected quantsim_backtest_duration_seconds metric")
	}
	if got := hist.GetMetric()[0].GetHistogram().GetSampleCount(); got != 3 {
		t.Errorf("expected 3 samples, got %d", got)
	}
}

func TestRegistry_TradesSignalsFaults(t *testing.T) {
	reg := NewRegistry()

	reg.RecordTrade("rsi_reversion", "stop")
	reg.RecordSignal("rsi_reversion", "buy")
	reg.RecordStrategyFault("rsi_reversion")
	reg.RecordStrategyFault("rsi_reversion")

	tests := []struct {
		name  string
		label string
		value string
		want  float64
	}{
		{"quantsim_trades_total", "reason", "stop", 1},
		{"quantsim_signals_total", "signal", "buy", 1},
		{"quantsim_strategy_faults_total", "strategy", "rsi_reversion", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mf := find(t, reg, tt.name)
			if mf == nil {
				t.Fatalf("expected %s metric", tt.name)
			}
			m := mf.GetMetric()[0]
			if labels(m)[tt.label] != tt.value {
				t.Errorf("expected %s=%s, got %v", tt.label, tt.value, labels(m))
			}
			if m.GetCounter().GetValue() != tt.want {
				t.Errorf("expected %v, got %v", tt.want, m.GetCounter().GetValue())
			}
		})
	}
}

func TestRegistry_JobsActive(t *testing.T) {
	reg := NewRegistry()

	reg.JobStarted()
	reg.JobStarted()
	reg.JobFinished()

	mf := find(t, reg, "quantsim_batch_jobs_active")
	if mf == nil {
		t.Fatal("expected quantsim_batch_jobs_active metric")
	}
	if v := mf.GetMetric()[0].GetGauge().GetValue(); v != 1 {
		t.Errorf("expected 1 active job, got %v", v)
	}
}

func TestRegistry_WriteTextfile(t *testing.T) {
	reg := NewRegistry()
	reg.RecordTrade("macd_momentum", "target")

	path := filepath.Join(t.TempDir(), "quantsim.prom")
	if err := reg.WriteTextfile(path); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `quantsim_trades_total{reason="target",strategy="macd_momentum"} 1`) {
		t.Errorf("unexpected textfile:\n%s", b)
	}
}

// Ensure the registry implements prometheus.Gatherer interface
func TestRegistry_ImplementsGatherer(t *testing.T) {
	reg := NewRegistry()
	var _ prometheus.Gatherer = reg
}
