package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"signal-backtest/internal/analysis"
	"signal-backtest/internal/backtest"
	"signal-backtest/internal/config"
	"signal-backtest/internal/logging"
	"signal-backtest/internal/model"
	"signal-backtest/internal/signal"
)

// Demo:
// - Generate a deterministic random walk of daily bars
// - Build a sparse single-channel signal (long, flat, long, flat)
// - Run the backtest and the benchmark and print both
func main() {
	n := flag.Int("n", 1000, "Number of bars to generate")
	seed := flag.Int64("seed", 42, "Random walk seed")
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	outCSV := flag.String("out", "", "Optional path to write capital CSV (e.g. results/demo.csv)")
	flag.Parse()

	if *n < 700 {
		fmt.Fprintln(os.Stderr, "-n must be at least 700 so every signal event lands on a bar")
		os.Exit(2)
	}

	// Defaults (can be overridden via --config).
	ticker := model.TickerConfig{
		Symbol:         "DEMO",
		Precision:      0.01,
		Spread:         0.02,
		LongOvernight:  0.01,
		ShortOvernight: 0.01,
	}
	params := backtest.Params{Leverage: 2, MarginPct: 100, InitialCapital: 1000}
	policy := backtest.DefaultExposurePolicy()
	logLevel := os.Getenv("LOG_LEVEL")

	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		ticker = cfg.Ticker.ToModel()
		params = cfg.Run.Params()
		policy = cfg.Benchmark.Policy()
		logLevel = cfg.EffectiveLogLevel()
	}

	bars := randomWalk(*n, *seed)
	signals, err := signal.Sparse(len(bars), 1, []signal.Event{
		{Bar: 0, Signal: model.SignalLong},
		{Bar: 400, Signal: model.SignalFlat},
		{Bar: 600, Signal: model.SignalLong},
		{Bar: len(bars) - 2, Signal: model.SignalFlat},
	})
	if err != nil {
		panic(err)
	}

	engine := backtest.New().WithLogger(logging.NewLoggerTo(os.Stderr, logLevel))
	result, err := engine.Run(bars, ticker, signals, params)
	if err != nil {
		panic(err)
	}
	bench, err := engine.Benchmark(bars, ticker, signals, params, policy)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Generated %d bars for %s (seed %d), close %.2f -> %.2f\n",
		len(bars), ticker.Symbol, *seed, bars[0].Close, bars[len(bars)-1].Close)
	fmt.Printf("Leverage=%d Margin=%.0f%% Capital=%.2f\n\n", params.Leverage, params.MarginPct, params.InitialCapital)

	for _, tr := range result.Trades {
		fmt.Printf(
			"%s -> %s  %-5s  entry=%8.2f  exit=%8.2f  shares=%8s  days=%3d  fee=%7s  pnl=%9s\n",
			tr.EntryDate.Format("2006-01-02"),
			tr.ExitDate.Format("2006-01-02"),
			tr.Side,
			tr.EntryPrice.InexactFloat64(),
			tr.ExitPrice.InexactFloat64(),
			tr.Shares.String(),
			tr.HoldingDays,
			tr.Fee.StringFixed(2),
			tr.Profit.StringFixed(2),
		)
	}

	s := analysis.Summarize(result)
	b := analysis.Summarize(bench)
	fmt.Printf("\nbacktest:  final=%.2f return=%.2f%% maxdd=%.2f%% trades=%d\n", s.FinalCapital, s.TotalReturnPct, s.MaxDrawdownPct, s.Trades)
	fmt.Printf("benchmark: final=%.2f return=%.2f%% maxdd=%.2f%% trades=%d\n", b.FinalCapital, b.TotalReturnPct, b.MaxDrawdownPct, b.Trades)
	fmt.Printf("excess return: %.2f%%\n", analysis.ExcessReturn(s, b))

	if *outCSV != "" {
		if err := os.MkdirAll(filepath.Dir(*outCSV), 0o755); err != nil {
			panic(err)
		}
		if err := backtest.WriteCapitalCSV(*outCSV, result.Capital, result.Drawdown, bench.Capital); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}
}

// randomWalk returns n daily bars with log-normal steps, starting at 100.
func randomWalk(n int, seed int64) []model.Bar {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	price := 100.0
	for i := range bars {
		open := price
		price *= math.Exp(rng.NormFloat64() * 0.01)
		price = math.Round(price*100) / 100
		bars[i] = model.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   open,
			High:   math.Max(open, price),
			Low:    math.Min(open, price),
			Close:  price,
			Volume: float64(1000 + rng.Intn(9000)),
		}
	}
	return bars
}
