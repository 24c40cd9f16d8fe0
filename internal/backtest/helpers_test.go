package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"signal-backtest/internal/model"
)

const (
	L = model.SignalLong
	S = model.SignalShort
	F = model.SignalFlat
	H = model.SignalHold
)

var day0 = time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)

// mkBars builds daily bars from closes starting on 2024-01-01.
func mkBars(closes ...float64) []model.Bar {
	out := make([]model.Bar, len(closes))
	for i, c := range closes {
		out[i] = model.Bar{
			Date:   day0.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

// single builds a one-channel matrix.
func single(sigs ...model.Signal) model.SignalMatrix {
	m := make(model.SignalMatrix, len(sigs))
	for i, s := range sigs {
		m[i] = []model.Signal{s}
	}
	return m
}

// columns builds a matrix from per-channel tracks of equal length.
func columns(tracks ...[]model.Signal) model.SignalMatrix {
	m := make(model.SignalMatrix, len(tracks[0]))
	for i := range m {
		row := make([]model.Signal, len(tracks))
		for ch, tr := range tracks {
			row[ch] = tr[i]
		}
		m[i] = row
	}
	return m
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
