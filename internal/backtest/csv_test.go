package backtest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"signal-backtest/internal/model"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return rows
}

func TestWriteCapitalCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capital.csv")
	if err := WriteCapitalCSV(path, []float64{1000, 1004.92}, []float64{0, 0}, []float64{1000, 1080, 1100}); err != nil {
		t.Fatalf("WriteCapitalCSV: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if rows[0][1] != "capital" || rows[0][3] != "benchmark" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[2][1] != "1004.92" || rows[2][3] != "1080" {
		t.Fatalf("row 2 = %v", rows[2])
	}
	if rows[3][1] != "" || rows[3][3] != "1100" {
		t.Fatalf("row 3 = %v", rows[3])
	}
}

func TestWriteTradesCSV(t *testing.T) {
	bars := mkBars(100, 101, 99, 105, 102, 103)
	ticker := model.TickerConfig{Precision: 0.01, Spread: 0.5, LongOvernight: 0.01}
	res, err := New().Run(bars, ticker, single(F, L, L, L, F, F), Params{Leverage: 2, MarginPct: 100, InitialCapital: 1000})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	path := filepath.Join(t.TempDir(), "trades.csv")
	if err := WriteTradesCSV(path, res.Trades); err != nil {
		t.Fatalf("WriteTradesCSV: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	got := rows[1]
	if got[2] != "LONG" || got[5] != "3" || got[9] != "0.60282" || got[10] != "9.24718" {
		t.Fatalf("trade row = %v", got)
	}
	if got[3] == "" || got[4] == "" {
		t.Fatalf("dates missing: %v", got)
	}
}
