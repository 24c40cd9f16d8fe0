package models

import (
	"time"

	"github.com/shopspring/decimal"

	"signal-backtest/internal/analysis"
	"signal-backtest/internal/backtest"
)

// BacktestResponse represents the response from a backtest run
type BacktestResponse struct {
	ID        string               `json:"id,omitempty"`
	Status    string               `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	Summary   analysis.Summary     `json:"summary"`
	Market    analysis.MarketStats `json:"market"`
	Capital   []float64            `json:"capital"`
	Drawdown  []float64            `json:"drawdown"`
	Benchmark *BenchmarkResult     `json:"benchmark,omitempty"`
	Trades    []TradeRow           `json:"trades,omitempty"`
	Open      []OpenRow            `json:"open_positions,omitempty"`
}

// BenchmarkResult is the market-exposure baseline run on the same bars.
type BenchmarkResult struct {
	Summary         analysis.Summary `json:"summary"`
	Capital         []float64        `json:"capital"`
	Drawdown        []float64        `json:"drawdown"`
	ExcessReturnPct float64          `json:"excess_return_pct"`
}

// TradeRow represents one realized exit
type TradeRow struct {
	Channel     int             `json:"channel"`
	Bar         int             `json:"bar"`
	Side        string          `json:"side"`
	EntryDate   string          `json:"entry_date,omitempty"`
	ExitDate    string          `json:"exit_date,omitempty"`
	HoldingDays int             `json:"holding_days"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
	Shares      decimal.Decimal `json:"shares"`
	Fee         decimal.Decimal `json:"fee"`
	Profit      decimal.Decimal `json:"profit"`
}

// OpenRow is a position still open when the run ended
type OpenRow struct {
	Channel    int             `json:"channel"`
	Side       string          `json:"side"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	EntryDate  string          `json:"entry_date,omitempty"`
	Shares     decimal.Decimal `json:"shares"`
}

func NewTradeRows(trades []backtest.Trade) []TradeRow {
	out := make([]TradeRow, len(trades))
	for i, t := range trades {
		out[i] = TradeRow{
			Channel:     t.Channel,
			Bar:         t.Bar,
			Side:        t.Side.String(),
			EntryDate:   fmtTime(t.EntryDate),
			ExitDate:    fmtTime(t.ExitDate),
			HoldingDays: t.HoldingDays,
			EntryPrice:  t.EntryPrice,
			ExitPrice:   t.ExitPrice,
			Shares:      t.Shares,
			Fee:         t.Fee,
			Profit:      t.Profit,
		}
	}
	return out
}

func NewOpenRows(open []backtest.OpenPosition) []OpenRow {
	out := make([]OpenRow, len(open))
	for i, p := range open {
		out[i] = OpenRow{
			Channel:    p.Channel,
			Side:       p.Side.String(),
			EntryPrice: p.EntryPrice,
			EntryDate:  fmtTime(p.EntryDate),
			Shares:     p.Shares,
		}
	}
	return out
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// CompareBacktestResponse represents the response from a comparison
type CompareBacktestResponse struct {
	Comparison []analysis.Ranked  `json:"comparison"`
	Benchmark  *analysis.Summary  `json:"benchmark,omitempty"`
	Skipped    []SkippedVariation `json:"skipped,omitempty"`
}

// SkippedVariation is a variation that could not be run
type SkippedVariation struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// TickerInfo represents information about a ticker preset
type TickerInfo struct {
	ID     string      `json:"id"`
	Symbol string      `json:"symbol"`
	File   string      `json:"file"`
	Specs  TickerSpecs `json:"specs"`
}

// TickerSpecs contains the preset's instrument parameters
type TickerSpecs struct {
	Precision      float64 `json:"precision"`
	Spread         float64 `json:"spread"`
	LongOvernight  float64 `json:"long_overnight"`
	ShortOvernight float64 `json:"short_overnight"`
}

// ParameterInfo describes a run parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Section     string      `json:"section"`
	Type        string      `json:"type"` // "float", "int", "bool", "string"
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

// IntervalInfo represents one bar size supported by the bar provider
type IntervalInfo struct {
	ID       string `json:"id"`
	Intraday bool   `json:"intraday"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
