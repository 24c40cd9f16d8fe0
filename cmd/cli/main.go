package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"signal-backtest/internal/analysis"
	"signal-backtest/internal/backtest"
	"signal-backtest/internal/config"
	"signal-backtest/internal/data"
	"signal-backtest/internal/logging"
	"signal-backtest/internal/model"
	"signal-backtest/internal/signal"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "backtest":
		cmdBacktest(os.Args[2:])
	case "summary":
		cmdSummary(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli backtest --bars bars.csv --signals signals.csv --config examples/config.yaml --out results/capital.csv --trades results/trades.csv")
	fmt.Println("  cli summary --bars bars.json --config examples/config.yaml [--oracle]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - bars may be CSV (date,open,high,low,close,volume) or JSON written by fetch-bars")
	fmt.Println("  - without --signals the config's signals.events are used; --oracle uses perfect foresight")
}

type runFlags struct {
	bars    *string
	signals *string
	config  *string
	oracle  *bool
	n       *int
}

func addRunFlags(fs *flag.FlagSet) runFlags {
	return runFlags{
		bars:    fs.String("bars", "bars.csv", "Path to bars (.csv or .json)"),
		signals: fs.String("signals", "", "Path to signal matrix (.csv or .json); optional"),
		config:  fs.String("config", "", "Path to YAML config"),
		oracle:  fs.Bool("oracle", false, "Use the perfect-foresight signal instead of --signals"),
		n:       fs.Int("n", 0, "Optional: limit to first N bars (0=all)"),
	}
}

type run struct {
	cfg       *config.Config
	inputs    model.BacktestInputs
	result    *backtest.Result
	benchmark *backtest.Result
}

func execute(f runFlags) (*run, error) {
	if *f.config == "" {
		return nil, errors.New("--config is required")
	}
	cfg, err := config.Load(*f.config)
	if err != nil {
		return nil, err
	}
	log := logging.NewLoggerTo(os.Stderr, cfg.EffectiveLogLevel())

	bars, symbol, err := loadBars(*f.bars)
	if err != nil {
		return nil, err
	}
	if cfg.Ticker.Symbol == "" {
		cfg.Ticker.Symbol = symbol
	}

	var fileSignals model.SignalMatrix
	if *f.signals != "" && !*f.oracle {
		if fileSignals, err = loadSignalFile(*f.signals); err != nil {
			return nil, err
		}
	}
	// Rows in the signals file follow the bars file order.
	paired := len(fileSignals) == len(bars)
	bars, fileSignals = data.Chronological(bars, fileSignals)
	if *f.n > 0 && *f.n < len(bars) {
		bars = bars[:*f.n]
		if paired {
			fileSignals = fileSignals[:*f.n]
		}
	}

	signals, err := resolveSignals(fileSignals, *f.signals != "", *f.oracle, cfg, bars)
	if err != nil {
		return nil, err
	}

	in := model.BacktestInputs{Bars: bars, Signals: signals, Ticker: cfg.Ticker.ToModel()}
	engine := backtest.New().WithLogger(log)
	params := cfg.Run.Params()

	res, err := engine.Run(in.Bars, in.Ticker, in.Signals, params)
	if err != nil {
		return nil, err
	}
	out := &run{cfg: cfg, inputs: in, result: res}

	if policy := cfg.Benchmark.Policy(); policy.Enabled {
		out.benchmark, err = engine.Benchmark(in.Bars, in.Ticker, in.Signals, params, policy)
		if err != nil {
			return nil, fmt.Errorf("benchmark: %w", err)
		}
	}
	return out, nil
}

func cmdBacktest(args []string) {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	f := addRunFlags(fs)
	outPath := fs.String("out", "results/capital.csv", "Output capital CSV path")
	tradesPath := fs.String("trades", "", "Optional trades CSV path")
	_ = fs.Parse(args)

	r, err := execute(f)
	if err != nil {
		fail(err)
	}

	var bench []float64
	if r.benchmark != nil {
		bench = r.benchmark.Capital
	}

	// ensure output dir exists
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		fail(err)
	}
	if err := backtest.WriteCapitalCSV(*outPath, r.result.Capital, r.result.Drawdown, bench); err != nil {
		fail(err)
	}
	fmt.Printf("Wrote %d rows to %s\n", len(r.result.Capital), *outPath)

	if *tradesPath != "" {
		if err := os.MkdirAll(filepath.Dir(*tradesPath), 0o755); err != nil {
			fail(err)
		}
		if err := backtest.WriteTradesCSV(*tradesPath, r.result.Trades); err != nil {
			fail(err)
		}
		fmt.Printf("Wrote %d trades to %s\n", len(r.result.Trades), *tradesPath)
	}

	printSummary(r)
}

func cmdSummary(args []string) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	f := addRunFlags(fs)
	_ = fs.Parse(args)

	r, err := execute(f)
	if err != nil {
		fail(err)
	}
	printSummary(r)
}

func printSummary(r *run) {
	s := analysis.Summarize(r.result)
	m := analysis.ComputeMarketStats(r.inputs.Ticker.Symbol, r.inputs.Bars)

	fmt.Printf("\n%s: %d bars x %d channels %s .. %s, close %.4f..%.4f\n",
		orDash(m.Symbol), m.Count, r.inputs.ChannelCount(), m.Start.Format("2006-01-02"), m.End.Format("2006-01-02"), m.MinClose, m.MaxClose)
	fmt.Printf("%-10s %12s %10s %10s %7s %9s %10s\n", "run", "final", "return%", "maxdd%", "trades", "winrate%", "fees")
	printRow("backtest", s)
	if r.benchmark != nil {
		b := analysis.Summarize(r.benchmark)
		printRow("benchmark", b)
		fmt.Printf("excess return: %.2f%%\n", analysis.ExcessReturn(s, b))
	}
	if s.Halted {
		fmt.Printf("halted at bar %d (capital at or below the insolvency floor)\n", s.HaltBar)
	}
	if s.OpenPositions > 0 {
		fmt.Printf("%d position(s) still open at the last bar, not included in capital\n", s.OpenPositions)
	}
}

func printRow(name string, s analysis.Summary) {
	fmt.Printf("%-10s %12.2f %10.2f %10.2f %7d %9.1f %10.2f\n",
		name, s.FinalCapital, s.TotalReturnPct, s.MaxDrawdownPct, s.Trades, s.WinRate, s.FeesPaid)
}

func loadBars(path string) ([]model.Bar, string, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		bars, err := data.LoadBarsCSV(path)
		return bars, "", err
	}
	series, err := data.LoadBarsJSON(path)
	if err != nil {
		return nil, "", err
	}
	return series.Bars, series.Symbol, nil
}

func loadSignalFile(path string) (model.SignalMatrix, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return data.LoadSignalsCSV(path)
	}
	return data.LoadSignalsJSON(path)
}

func resolveSignals(fromFile model.SignalMatrix, useFile, oracle bool, cfg *config.Config, bars []model.Bar) (model.SignalMatrix, error) {
	switch {
	case oracle:
		return signal.Oracle(bars)
	case useFile:
		return fromFile, nil
	case len(cfg.Signals.Events) == 0:
		return nil, errors.New("no signals: pass --signals, --oracle or set signals.events in the config")
	default:
		return cfg.Signals.Matrix(len(bars))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
