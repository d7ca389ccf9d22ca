// internal/runner/jobs.go
package runner

import (
	"fmt"
	"strings"

	"github.com/newthinker/quantsim/internal/config"
	"github.com/newthinker/quantsim/internal/core"
	"github.com/newthinker/quantsim/internal/strategy"
)

// Overrides merges the configured params of a strategy with extra, extra
// taking precedence. Keys compare case-insensitively.
func Overrides(cfg *config.Config, name string, extra map[string]any) strategy.Params {
	out := strategy.Params{}
	if sc, ok := cfg.Strategies[name]; ok {
		set(out, sc.Params)
	}
	set(out, extra)
	return out
}

func set(dst strategy.Params, src map[string]any) {
	for k, v := range src {
		for existing := range dst {
			if strings.EqualFold(existing, k) {
				delete(dst, existing)
			}
		}
		dst[k] = v
	}
}

// Jobs converts the jobs section of cfg.
func Jobs(cfg *config.Config) ([]Job, error) {
	jobs := make([]Job, 0, len(cfg.Jobs))
	for i, jc := range cfg.Jobs {
		start, err := config.ParseDate(jc.StartDate)
		if err != nil {
			return nil, core.Errorf(core.ErrConfigInvalid, "jobs[%d].start_date: %w", i, err)
		}
		end, err := config.ParseDate(jc.EndDate)
		if err != nil {
			return nil, core.Errorf(core.ErrConfigInvalid, "jobs[%d].end_date: %w", i, err)
		}
		name := jc.Name
		if name == "" {
			name = fmt.Sprintf("%s %s", jc.Symbol, jc.Strategy)
		}
		jobs = append(jobs, Job{
			Name:     name,
			Symbol:   jc.Symbol,
			Strategy: jc.Strategy,
			Start:    start,
			End:      end,
			Params:   Overrides(cfg, jc.Strategy, jc.Params),
		})
	}
	return jobs, nil
}
