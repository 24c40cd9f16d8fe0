package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"signal-backtest/internal/model"
)

// Kind tells a primary run from a benchmark run in results and metrics.
type Kind string

const (
	KindBacktest  Kind = "backtest"
	KindBenchmark Kind = "benchmark"
)

// InsolvencyFloor is the capital at or below which a run halts.
const InsolvencyFloor = 10

// Params are the run-level knobs of run_backtest/run_benchmark.
type Params struct {
	Leverage       int
	MarginPct      float64
	InitialCapital float64
}

// DefaultParams returns leverage 1, 100% margin and 1000 of capital.
func DefaultParams() Params {
	return Params{Leverage: 1, MarginPct: 100, InitialCapital: 1000}
}

func (p Params) Validate() error {
	if p.Leverage < 1 {
		return fmt.Errorf("%w: leverage must be >= 1, got %d", ErrInvalidParams, p.Leverage)
	}
	return p.validateCapital()
}

func (p Params) validateCapital() error {
	if math.IsNaN(p.MarginPct) || math.IsInf(p.MarginPct, 0) || p.MarginPct <= 0 {
		return fmt.Errorf("%w: margin_pct must be > 0, got %v", ErrInvalidParams, p.MarginPct)
	}
	if math.IsNaN(p.InitialCapital) || math.IsInf(p.InitialCapital, 0) || p.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial_capital must be > 0, got %v", ErrInvalidParams, p.InitialCapital)
	}
	return nil
}

// Trade is one realized exit.
type Trade struct {
	Channel     int
	Bar         int
	Side        model.Side
	EntryPrice  decimal.Decimal
	ExitPrice   decimal.Decimal
	Shares      decimal.Decimal
	EntryDate   time.Time
	ExitDate    time.Time
	HoldingDays int
	Fee         decimal.Decimal
	Profit      decimal.Decimal
}

// Entry is one opened position.
type Entry struct {
	Channel int
	Bar     int
	Side    model.Side
	Price   decimal.Decimal
	Shares  decimal.Decimal
	Date    time.Time
}

// OpenPosition is a position still held when the run ended. Its
// unrealized profit is not part of the capital series.
type OpenPosition struct {
	Channel int
	model.Position
}

type Result struct {
	Kind Kind

	// Capital starts with the initial capital and gains one value per bar
	// with nonzero realized profit.
	Capital []float64
	// Drawdown is parallel to Capital; Drawdown[0] is always 0.
	Drawdown []float64

	Trades  []Trade
	Entries []Entry
	Open    []OpenPosition

	// BarsProcessed is the index of the last evaluated bar.
	BarsProcessed int
	Halted        bool
	// HaltBar is the bar index of the insolvency halt, -1 otherwise.
	HaltBar int
}

// FinalCapital returns the last value of the capital series.
func (r *Result) FinalCapital() float64 {
	if r == nil || len(r.Capital) == 0 {
		return 0
	}
	return r.Capital[len(r.Capital)-1]
}
