package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/quantsim/internal/backtest"
	"github.com/newthinker/quantsim/internal/core"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Log        LogConfig                 `mapstructure:"log"`
	Backtest   BacktestConfig            `mapstructure:"backtest"`
	Data       DataConfig                `mapstructure:"data"`
	Strategies map[string]StrategyConfig `mapstructure:"strategies"`
	Runner     RunnerConfig              `mapstructure:"runner"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
	Jobs       []JobConfig               `mapstructure:"jobs"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// BacktestConfig holds the run settings shared by every job. Dates are
// YYYY-MM-DD; empty means unbounded.
type BacktestConfig struct {
	StartDate       string  `mapstructure:"start_date"`
	EndDate         string  `mapstructure:"end_date"`
	InitialCapital  float64 `mapstructure:"initial_capital"`
	PositionSizePct float64 `mapstructure:"position_size_pct"`
	// MaxPositions is accepted for compatibility; only 1 is supported.
	MaxPositions  int     `mapstructure:"max_positions"`
	Commission    float64 `mapstructure:"commission"`
	SlippageBps   float64 `mapstructure:"slippage_bps"`
	StopPolicy    string  `mapstructure:"stop_policy"` // "atr" or "percent"
	StopLossPct   float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct float64 `mapstructure:"take_profit_pct"`
}

type DataConfig struct {
	Provider   string           `mapstructure:"provider"` // archive, yahoo, binance, postgres or clickhouse
	Timeframe  string           `mapstructure:"timeframe"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Yahoo      YahooConfig      `mapstructure:"yahoo"`
	Binance    BinanceConfig    `mapstructure:"binance"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type YahooConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type BinanceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Quote   string        `mapstructure:"quote"` // appended to bare symbols, default USDT
	Timeout time.Duration `mapstructure:"timeout"`
}

type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

type ClickHouseConfig struct {
	Addr     []string `mapstructure:"addr"`
	Database string   `mapstructure:"database"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	Table    string   `mapstructure:"table"`
}

// StrategyConfig holds parameter overrides for one strategy
type StrategyConfig struct {
	Params map[string]any `mapstructure:"params"`
}

type RunnerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}

// JobConfig is one run of a batch. Empty dates fall back to the backtest
// section.
type JobConfig struct {
	Name      string         `mapstructure:"name"`
	Symbol    string         `mapstructure:"symbol"`
	Strategy  string         `mapstructure:"strategy"`
	StartDate string         `mapstructure:"start_date"`
	EndDate   string         `mapstructure:"end_date"`
	Params    map[string]any `mapstructure:"params"`
}

// Load reads configuration from file over the defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides, e.g. QUANTSIM_DATA_POSTGRES_DSN
	v.SetEnvPrefix("quantsim")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("reading config: %w", err))
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unmarshaling config: %w", err))
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	bt := backtest.DefaultConfig()
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Backtest: BacktestConfig{
			InitialCapital:  bt.InitialCapital,
			PositionSizePct: bt.PositionSizePct,
			MaxPositions:    1,
			Commission:      bt.Commission,
			SlippageBps:     bt.SlippageBps,
			StopPolicy:      string(bt.StopPolicy),
			StopLossPct:     bt.StopLossPct,
			TakeProfitPct:   bt.TakeProfitPct,
		},
		Data: DataConfig{
			Provider:  "archive",
			Timeframe: "1d",
			Archive: ArchiveConfig{
				Type: "localfs",
				Path: "data",
			},
			Yahoo: YahooConfig{
				Timeout: 30 * time.Second,
			},
			Binance: BinanceConfig{
				Quote:   "USDT",
				Timeout: 10 * time.Second,
			},
			Postgres: PostgresConfig{
				Table: "candles",
			},
			ClickHouse: ClickHouseConfig{
				Database: "default",
				Table:    "candles",
			},
		},
		Runner: RunnerConfig{
			Concurrency: 4,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("log level: %w", err))
	}

	if c.Backtest.MaxPositions > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_positions %d is not supported, the engine holds one position at a time", c.Backtest.MaxPositions))
	}
	if _, err := c.Backtest.Engine(); err != nil {
		return err
	}

	if err := c.Data.validate(); err != nil {
		return err
	}

	if c.Runner.Concurrency < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("runner concurrency must be at least 1, got %d", c.Runner.Concurrency))
	}

	if c.Metrics.Enabled && c.Metrics.Textfile == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("metrics textfile required when metrics are enabled"))
	}

	for i, job := range c.Jobs {
		if job.Symbol == "" || job.Strategy == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("job %d needs a symbol and a strategy", i))
		}
		if _, err := ParseDate(job.StartDate); err != nil {
			return err
		}
		if _, err := ParseDate(job.EndDate); err != nil {
			return err
		}
	}

	return nil
}

func (d DataConfig) validate() error {
	switch d.Provider {
	case "archive":
		switch d.Archive.Type {
		case "localfs":
			if d.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive path required for localfs"))
			}
		case "s3":
			if d.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive s3 bucket required"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type %q", d.Archive.Type))
		}
	case "yahoo", "binance":
	case "postgres":
		if d.Postgres.DSN == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("postgres dsn required when provider is postgres"))
		}
	case "clickhouse":
		if len(d.ClickHouse.Addr) == 0 {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("clickhouse addr required when provider is clickhouse"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown data provider %q", d.Provider))
	}
	return nil
}

// Engine converts the section into a validated engine config
func (b BacktestConfig) Engine() (backtest.Config, error) {
	start, err := ParseDate(b.StartDate)
	if err != nil {
		return backtest.Config{}, err
	}
	end, err := ParseDate(b.EndDate)
	if err != nil {
		return backtest.Config{}, err
	}

	cfg := backtest.Config{
		StartDate:       start,
		EndDate:         end,
		InitialCapital:  b.InitialCapital,
		PositionSizePct: b.PositionSizePct,
		Commission:      b.Commission,
		SlippageBps:     b.SlippageBps,
		StopPolicy:      backtest.StopPolicy(b.StopPolicy),
		StopLossPct:     b.StopLossPct,
		TakeProfitPct:   b.TakeProfitPct,
	}
	if err := cfg.Validate(); err != nil {
		return backtest.Config{}, err
	}
	return cfg, nil
}

// ParseDate parses YYYY-MM-DD; empty yields the zero time
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("date %q: %w", s, err))
	}
	return t, nil
}
