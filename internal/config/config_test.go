package config

import (
	"os"
	"path/filepath"
	"testing"

	"signal-backtest/internal/model"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMergesTickerFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tickers", "aapl.yaml"), `
ticker:
  symbol: AAPL
  precision: 0.01
  spread: 0.05
  long_overnight: 0.02
  short_overnight: 0.01
`)
	cfgPath := filepath.Join(dir, "run.yaml")
	writeFile(t, cfgPath, `
ticker_file: tickers/aapl.yaml
ticker:
  spread: 0.1
run:
  leverage: 2
benchmark:
  enabled: false
signals:
  channels: 2
  events:
    - {bar: 0, channel: 0, signal: 1}
    - {bar: 3, channel: 1, signal: -1}
    - {bar: 4, channel: 0, signal: null}
log_level: debug
`)

	c, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Ticker.Symbol != "AAPL" || c.Ticker.Precision != 0.01 || c.Ticker.Spread != 0.1 || c.Ticker.LongOvernight != 0.02 {
		t.Fatalf("ticker = %+v", c.Ticker)
	}

	p := c.Run.Params()
	if p.Leverage != 2 || p.MarginPct != 100 || p.InitialCapital != 1000 {
		t.Fatalf("params = %+v", p)
	}
	if c.Benchmark.Policy().Enabled {
		t.Fatalf("benchmark policy should be disabled")
	}

	m, err := c.Signals.Matrix(5)
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	if m.Channels() != 2 || m[0][0] != model.SignalLong || m[3][1] != model.SignalShort || m[4][0] != model.SignalHold {
		t.Fatalf("matrix = %v", m)
	}
	if c.LogLevel != "debug" {
		t.Fatalf("log level = %q", c.LogLevel)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := map[string]string{
		"missing precision": "ticker: {symbol: X}\n",
		"negative spread":   "ticker: {precision: 1, spread: -1}\n",
		"zero leverage":     "ticker: {precision: 1}\nrun: {leverage: -1}\n",
		"negative margin":   "ticker: {precision: 1}\nrun: {margin_pct: -5}\n",
		"event channel":     "ticker: {precision: 1}\nsignals: {channels: 1, events: [{bar: 0, channel: 1, signal: 1}]}\n",
		"bad yaml":          "ticker: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "run.yaml")
			writeFile(t, path, body)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadUncheckedSkipsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	writeFile(t, path, "ticker: {symbol: X}\n")
	c, err := LoadUnchecked(path)
	if err != nil {
		t.Fatalf("LoadUnchecked: %v", err)
	}
	if c.Ticker.Symbol != "X" {
		t.Fatalf("ticker = %+v", c.Ticker)
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := (*Config)(nil).Validate(); err == nil {
		t.Fatalf("nil config must not validate")
	}
}

func TestBenchmarkPolicyDefaultsToEnabled(t *testing.T) {
	p := BenchmarkConfig{}.Policy()
	if !p.Enabled || p.Channel != 0 {
		t.Fatalf("policy = %+v", p)
	}
}

func TestMergeTicker(t *testing.T) {
	base := TickerConfig{Symbol: "EURUSD", Precision: 1000, Spread: 0.0001, LongOvernight: 0.01}
	out := MergeTicker(base, TickerConfig{Precision: 100, ShortOvernight: 0.02})
	if out.Symbol != "EURUSD" || out.Precision != 100 || out.Spread != 0.0001 || out.ShortOvernight != 0.02 {
		t.Fatalf("merged = %+v", out)
	}
}

func TestEffectiveLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	if got := (&Config{LogLevel: "debug"}).EffectiveLogLevel(); got != "debug" {
		t.Fatalf("configured level = %q, want debug", got)
	}
	if got := (&Config{}).EffectiveLogLevel(); got != "warn" {
		t.Fatalf("fallback level = %q, want warn", got)
	}
}
