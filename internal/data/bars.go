package data

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"signal-backtest/internal/model"
)

var barTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseBarTime accepts RFC 3339, "YYYY-MM-DD HH:MM[:SS]" and plain dates.
// Times without a zone are read as UTC.
func ParseBarTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range barTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func LoadBarsJSON(path string) (*model.BarSeries, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bars file: %w", err)
	}
	var series model.BarSeries
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("failed to parse bars file: %w", err)
	}
	return &series, nil
}

func SaveBarsJSON(series *model.BarSeries, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bars: %w", err)
	}

	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write bars file: %w", err)
	}
	return nil
}

// LoadBarsCSV reads a headed CSV with at least date and close columns.
// Column order is free; open, high, low and volume are optional. Rows keep
// file order so that a signals file can be aligned with Chronological.
func LoadBarsCSV(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bars file: %w", err)
	}
	defer f.Close()
	return ReadBarsCSV(f)
}

func ReadBarsCSV(r io.Reader) ([]model.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read bars header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if name == "datetime" || name == "timestamp" {
			name = "date"
		}
		cols[name] = i
	}
	dateCol, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("bars CSV has no date column")
	}
	closeCol, ok := cols["close"]
	if !ok {
		return nil, fmt.Errorf("bars CSV has no close column")
	}

	var bars []model.Bar
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := ParseBarTime(rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		b := model.Bar{Date: date}
		if b.Close, err = parseFloat(rec[closeCol]); err != nil {
			return nil, fmt.Errorf("line %d: close: %w", line, err)
		}
		for name, dst := range map[string]*float64{"open": &b.Open, "high": &b.High, "low": &b.Low, "volume": &b.Volume} {
			i, ok := cols[name]
			if !ok || strings.TrimSpace(rec[i]) == "" {
				continue
			}
			if *dst, err = parseFloat(rec[i]); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, name, err)
			}
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// SortBars orders bars oldest first.
func SortBars(bars []model.Bar) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
}

// Chronological returns copies of bars and signals ordered oldest first,
// moving each signal row with the bar at the same index. When the row count
// differs from the bar count the rows cannot be paired; the matrix is then
// returned unchanged for the engine's shape check to reject.
func Chronological(bars []model.Bar, signals model.SignalMatrix) ([]model.Bar, model.SignalMatrix) {
	perm := make([]int, len(bars))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool { return bars[perm[a]].Date.Before(bars[perm[b]].Date) })

	outBars := make([]model.Bar, len(bars))
	for i, p := range perm {
		outBars[i] = bars[p]
	}
	if len(signals) != len(bars) {
		return outBars, signals
	}
	outSignals := make(model.SignalMatrix, len(signals))
	for i, p := range perm {
		outSignals[i] = append([]model.Signal(nil), signals[p]...)
	}
	return outBars, outSignals
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
