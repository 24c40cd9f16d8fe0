package backtest

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// WriteCapitalCSV writes the capital and drawdown series side by side. The
// benchmark column is left empty past the end of the benchmark series.
func WriteCapitalCSV(path string, capital, drawdown, benchmark []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"index", "capital", "drawdown_pct", "benchmark"}); err != nil {
		return err
	}

	rows := len(capital)
	if len(benchmark) > rows {
		rows = len(benchmark)
	}
	for i := 0; i < rows; i++ {
		row := []string{strconv.Itoa(i), cell(capital, i), cell(drawdown, i), cell(benchmark, i)}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func WriteTradesCSV(path string, trades []Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"channel",
		"bar",
		"side",
		"entry_date",
		"exit_date",
		"holding_days",
		"entry_price",
		"exit_price",
		"shares",
		"fee",
		"profit",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, t := range trades {
		row := []string{
			strconv.Itoa(t.Channel),
			strconv.Itoa(t.Bar),
			t.Side.String(),
			fmtDate(t.EntryDate),
			fmtDate(t.ExitDate),
			strconv.Itoa(t.HoldingDays),
			t.EntryPrice.String(),
			t.ExitPrice.String(),
			t.Shares.String(),
			t.Fee.String(),
			t.Profit.String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func cell(xs []float64, i int) string {
	if i >= len(xs) {
		return ""
	}
	return strconv.FormatFloat(xs[i], 'f', -1, 64)
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
