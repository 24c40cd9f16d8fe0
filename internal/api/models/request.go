package models

import (
	"signal-backtest/internal/config"
	"signal-backtest/internal/model"
)

// BacktestRequest represents the request body for running a backtest
type BacktestRequest struct {
	DataSource DataSourceConfig `json:"data_source"`
	// Signals is indexed [bar][channel]; null cells are undefined. When
	// omitted, config.signals events (or the oracle) provide the matrix.
	Signals model.SignalMatrix `json:"signals,omitempty"`
	Config  config.Config      `json:"config"`
	Options BacktestOptions    `json:"options,omitempty"`
}

// DataSourceConfig defines where bars come from
type DataSourceConfig struct {
	Type string `json:"type" binding:"required"` // "inline" or "twelvedata"

	// inline
	Bars []model.Bar `json:"bars,omitempty"`

	// twelvedata
	Symbol     string `json:"symbol,omitempty"`
	Interval   string `json:"interval,omitempty"`
	OutputSize int    `json:"outputsize,omitempty"`
	StartDate  string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    string `json:"end_date,omitempty"`   // YYYY-MM-DD
	APIKey     string `json:"api_key,omitempty"`    // falls back to the server key
}

// BacktestOptions contains optional backtest parameters
type BacktestOptions struct {
	LimitBars int  `json:"limit_bars,omitempty"` // 0 = all
	Oracle    bool `json:"oracle,omitempty"`     // replace signals with the oracle track
	// IncludeBenchmark defaults to true.
	IncludeBenchmark *bool `json:"include_benchmark,omitempty"`
	IncludeTrades    bool  `json:"include_trades,omitempty"`
}

func (o BacktestOptions) WantBenchmark() bool {
	return o.IncludeBenchmark == nil || *o.IncludeBenchmark
}

// CompareBacktestRequest runs named variations over one data set and ranks
// them by final capital.
type CompareBacktestRequest struct {
	DataSource DataSourceConfig    `json:"data_source"`
	Signals    model.SignalMatrix  `json:"signals,omitempty"`
	BaseConfig config.Config       `json:"base_config"`
	Variations []BacktestVariation `json:"variations" binding:"required,min=1"`
	Options    BacktestOptions     `json:"options,omitempty"`
}

// BacktestVariation defines a variation to test
type BacktestVariation struct {
	Name   string        `json:"name" binding:"required"`
	Config config.Config `json:"config"`
}
