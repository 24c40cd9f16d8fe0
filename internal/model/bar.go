package model

import "time"

// Bar is one OHLCV row. The engine reads only Date and Close; the other
// fields travel along for charting.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// BarSeries matches the JSON shape written by SaveBarsJSON.
//
// Example:
//
//	{
//	  "symbol": "AAPL",
//	  "interval": "1day",
//	  "bars": [ ... ]
//	}
type BarSeries struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Bars     []Bar  `json:"bars"`
}

// Closes returns the close column.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// CalendarDays counts whole calendar days between the dates of from and to,
// ignoring the time of day. Each timestamp is read in its own location.
func CalendarDays(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
