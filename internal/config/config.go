package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"signal-backtest/internal/backtest"
	"signal-backtest/internal/model"
	"signal-backtest/internal/signal"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load ticker parameters from a separate YAML (e.g. examples/tickers/*.yaml).
	// If both TickerFile and Ticker are provided, Ticker overrides TickerFile.
	TickerFile string          `yaml:"ticker_file" json:"ticker_file,omitempty"`
	Ticker     TickerConfig    `yaml:"ticker" json:"ticker"`
	Run        RunConfig       `yaml:"run" json:"run"`
	Benchmark  BenchmarkConfig `yaml:"benchmark" json:"benchmark"`
	Signals    SignalsConfig   `yaml:"signals" json:"signals"`
	LogLevel   string          `yaml:"log_level" json:"log_level,omitempty"`
}

type TickerConfig struct {
	Symbol         string  `yaml:"symbol" json:"symbol"`
	Precision      float64 `yaml:"precision" json:"precision"`
	Spread         float64 `yaml:"spread" json:"spread"`
	LongOvernight  float64 `yaml:"long_overnight" json:"long_overnight"`
	ShortOvernight float64 `yaml:"short_overnight" json:"short_overnight"`
}

// RunConfig holds the run-level parameters. Zero fields take the defaults
// (leverage 1, margin 100%, capital 1000).
type RunConfig struct {
	Leverage       int     `yaml:"leverage" json:"leverage"`
	MarginPct      float64 `yaml:"margin_pct" json:"margin_pct"`
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
}

type BenchmarkConfig struct {
	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled" json:"enabled,omitempty"`
	Channel int   `yaml:"channel" json:"channel"`
}

// SignalsConfig describes a sparse signal matrix inline, for runs that do
// not come with a signals file.
type SignalsConfig struct {
	Channels int            `yaml:"channels" json:"channels"`
	Events   []signal.Event `yaml:"events" json:"events"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	// If ticker_file is set, load it and merge in any explicit overrides from c.Ticker.
	if c.TickerFile != "" {
		tickerPath := c.TickerFile
		if !filepath.IsAbs(tickerPath) {
			// Prefer interpreting relative paths as relative to the config file directory,
			// but fall back to the provided path (relative to cwd) if that doesn't exist.
			cand := filepath.Join(filepath.Dir(path), tickerPath)
			if _, err := os.Stat(cand); err == nil {
				tickerPath = cand
			}
		}
		loaded, err := LoadTickerFile(tickerPath)
		if err != nil {
			return nil, err
		}
		c.Ticker = MergeTicker(loaded, c.Ticker)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Ticker.ToModel().Validate(); err != nil {
		return fmt.Errorf("ticker config invalid: %w", err)
	}
	if err := c.Run.Params().Validate(); err != nil {
		return fmt.Errorf("run config invalid: %w", err)
	}
	if c.Benchmark.Channel < 0 {
		return errors.New("benchmark.channel must be >= 0")
	}
	if c.Signals.Channels < 0 {
		return errors.New("signals.channels must be >= 0")
	}
	for i, e := range c.Signals.Events {
		if e.Bar < 0 || e.Channel < 0 || e.Channel >= c.Signals.channels() {
			return fmt.Errorf("signals.events[%d] is out of range", i)
		}
	}
	return nil
}

// EffectiveLogLevel is log_level, or LOG_LEVEL from the environment when
// the config leaves it empty.
func (c *Config) EffectiveLogLevel() string {
	if c != nil && c.LogLevel != "" {
		return c.LogLevel
	}
	return os.Getenv("LOG_LEVEL")
}

func (t TickerConfig) ToModel() model.TickerConfig {
	return model.TickerConfig{
		Symbol:         t.Symbol,
		Precision:      t.Precision,
		Spread:         t.Spread,
		LongOvernight:  t.LongOvernight,
		ShortOvernight: t.ShortOvernight,
	}
}

// Params applies the defaults to zero fields.
func (r RunConfig) Params() backtest.Params {
	p := backtest.DefaultParams()
	if r.Leverage != 0 {
		p.Leverage = r.Leverage
	}
	if r.MarginPct != 0 {
		p.MarginPct = r.MarginPct
	}
	if r.InitialCapital != 0 {
		p.InitialCapital = r.InitialCapital
	}
	return p
}

func (b BenchmarkConfig) Policy() backtest.ExposurePolicy {
	enabled := true
	if b.Enabled != nil {
		enabled = *b.Enabled
	}
	return backtest.ExposurePolicy{Enabled: enabled, Channel: b.Channel}
}

func (s SignalsConfig) channels() int {
	if s.Channels == 0 {
		return 1
	}
	return s.Channels
}

// Matrix builds the sparse matrix for n bars.
func (s SignalsConfig) Matrix(n int) (model.SignalMatrix, error) {
	return signal.Sparse(n, s.channels(), s.Events)
}

type tickerFileWrapper struct {
	Ticker TickerConfig `yaml:"ticker"`
}

// LoadTickerFile reads a preset file with a top-level ticker key.
func LoadTickerFile(path string) (TickerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return TickerConfig{}, err
	}
	var w tickerFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return TickerConfig{}, err
	}
	return w.Ticker, nil
}

// MergeTicker overlays non-zero fields from override onto base.
// This is used when loading a ticker file and then applying overrides from the request.
func MergeTicker(base, override TickerConfig) TickerConfig {
	out := base
	if override.Symbol != "" {
		out.Symbol = override.Symbol
	}
	if override.Precision != 0 {
		out.Precision = override.Precision
	}
	// Note: a zero override cannot clear a preset's spread or overnight rate.
	if override.Spread != 0 {
		out.Spread = override.Spread
	}
	if override.LongOvernight != 0 {
		out.LongOvernight = override.LongOvernight
	}
	if override.ShortOvernight != 0 {
		out.ShortOvernight = override.ShortOvernight
	}
	return out
}
