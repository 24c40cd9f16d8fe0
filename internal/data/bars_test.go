package data

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"signal-backtest/internal/model"
)

func TestReadBarsCSV(t *testing.T) {
	src := `Date,Close,Open,Volume
2024-01-03,101.5,100,2000
2024-01-02,100,99,
2024-01-04 15:30:00,99.25,101,1500
`
	bars, err := ReadBarsCSV(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadBarsCSV: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("bars = %d, want 3", len(bars))
	}
	if !bars[1].Date.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) || bars[1].Close != 100 {
		t.Fatalf("bars not kept in file order: %+v", bars[1])
	}
	if bars[0].Volume != 2000 || bars[1].Volume != 0 {
		t.Fatalf("volumes = %v, %v", bars[0].Volume, bars[1].Volume)
	}
	if bars[2].Date.Hour() != 15 || bars[2].Close != 99.25 {
		t.Fatalf("intraday bar = %+v", bars[2])
	}
}

func TestChronological(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	bars := []model.Bar{{Date: day(3), Close: 3}, {Date: day(1), Close: 1}, {Date: day(2), Close: 2}}
	signals := model.SignalMatrix{{model.SignalFlat}, {model.SignalLong}, {model.SignalShort}}

	gotBars, gotSignals := Chronological(bars, signals)
	for i, want := range []float64{1, 2, 3} {
		if gotBars[i].Close != want {
			t.Fatalf("bars[%d].Close = %v, want %v", i, gotBars[i].Close, want)
		}
	}
	wantSignals := []model.Signal{model.SignalLong, model.SignalShort, model.SignalFlat}
	for i, want := range wantSignals {
		if gotSignals[i][0] != want {
			t.Fatalf("signals[%d] = %v, want %v", i, gotSignals[i][0], want)
		}
	}
	if bars[0].Close != 3 || signals[0][0] != model.SignalFlat {
		t.Fatalf("inputs were reordered in place")
	}

	// Unpairable rows pass through untouched.
	short := model.SignalMatrix{{model.SignalLong}}
	gotBars, gotSignals = Chronological(bars, short)
	if gotBars[0].Close != 1 || len(gotSignals) != 1 || gotSignals[0][0] != model.SignalLong {
		t.Fatalf("got %v %v", gotBars, gotSignals)
	}
}

func TestReadBarsCSVErrors(t *testing.T) {
	tests := map[string]string{
		"no close column": "date,open\n2024-01-01,1\n",
		"no date column":  "close\n1\n",
		"bad date":        "date,close\nyesterday,1\n",
		"bad close":       "date,close\n2024-01-01,abc\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadBarsCSV(strings.NewReader(src)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestBarsJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "aapl.json")
	in := &model.BarSeries{
		Symbol:   "AAPL",
		Interval: "1day",
		Bars: []model.Bar{
			{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 185.64},
			{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Close: 184.25},
		},
	}
	if err := SaveBarsJSON(in, path); err != nil {
		t.Fatalf("SaveBarsJSON: %v", err)
	}
	out, err := LoadBarsJSON(path)
	if err != nil {
		t.Fatalf("LoadBarsJSON: %v", err)
	}
	if out.Symbol != "AAPL" || len(out.Bars) != 2 || out.Bars[1].Close != 184.25 {
		t.Fatalf("round trip = %+v", out)
	}
	if !out.Bars[0].Date.Equal(in.Bars[0].Date) {
		t.Fatalf("date = %v, want %v", out.Bars[0].Date, in.Bars[0].Date)
	}
}

func TestParseBarTime(t *testing.T) {
	for _, s := range []string{"2024-01-02", "2024-01-02 09:30:00", "2024-01-02T09:30:00Z", "2024-01-02 09:30"} {
		if _, err := ParseBarTime(s); err != nil {
			t.Errorf("ParseBarTime(%q): %v", s, err)
		}
	}
	if _, err := ParseBarTime("02/01/2024"); err == nil {
		t.Fatalf("expected error")
	}
}
