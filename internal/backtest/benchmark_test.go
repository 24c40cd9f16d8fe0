package backtest

import (
	"errors"
	"testing"

	"signal-backtest/internal/model"
)

func TestExposurePolicyApply(t *testing.T) {
	signals := columns(
		[]model.Signal{S, S, S, S, S, S},
		[]model.Signal{L, F, L, F, L, F},
	)

	got, err := DefaultExposurePolicy().Apply(signals)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	want := []model.Signal{L, H, H, H, F, S}
	col := got.Column(0)
	for i := range want {
		if col[i] != want[i] {
			t.Fatalf("channel 0 = %v, want %v", col, want)
		}
	}
	other := got.Column(1)
	for i, s := range signals.Column(1) {
		if other[i] != s {
			t.Fatalf("channel 1 changed at bar %d", i)
		}
	}
	if signals[0][0] != S || signals[4][0] != S {
		t.Fatalf("caller matrix was modified")
	}
}

func TestExposurePolicyShortSeries(t *testing.T) {
	tests := []struct {
		name string
		in   model.SignalMatrix
		want []model.Signal
	}{
		{"one bar", single(S), []model.Signal{L}},
		{"two bars", single(S, S), []model.Signal{F, S}},
		{"three bars", single(S, S, S), []model.Signal{L, F, S}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DefaultExposurePolicy().Apply(tt.in)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			col := got.Column(0)
			for i := range tt.want {
				if col[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", col, tt.want)
				}
			}
		})
	}
}

func TestExposurePolicyDisabledAndOutOfRange(t *testing.T) {
	signals := single(S, S, S)

	got, err := ExposurePolicy{}.Apply(signals)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for i := range signals {
		if got[i][0] != S {
			t.Fatalf("disabled policy changed bar %d", i)
		}
	}

	_, err = ExposurePolicy{Enabled: true, Channel: 1}.Apply(signals)
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
}

func TestBenchmarkForcesFullPeriodLong(t *testing.T) {
	bars := mkBars(100, 102, 104, 106, 108, 110)
	ticker := model.TickerConfig{Precision: 1, LongOvernight: 1, ShortOvernight: 1}
	signals := single(S, S, S, S, S, S)
	params := Params{Leverage: 4, MarginPct: 100, InitialCapital: 1000}

	res, err := New().Benchmark(bars, ticker, signals, params, DefaultExposurePolicy())
	if err != nil {
		t.Fatalf("Benchmark: %v", err)
	}
	if res.Kind != KindBenchmark {
		t.Fatalf("kind = %s", res.Kind)
	}
	// Long 10 at 100 on bar 1, exit at 108 on bar 5. Leverage and fees are
	// ignored.
	if want := []float64{1000, 1080}; !equalFloats(res.Capital, want) {
		t.Fatalf("capital = %v, want %v", res.Capital, want)
	}
	if len(res.Trades) != 1 || !res.Trades[0].Fee.IsZero() || !res.Trades[0].Shares.Equal(dec("10")) {
		t.Fatalf("unexpected trades %+v", res.Trades)
	}
	if !res.Trades[0].EntryDate.IsZero() || res.Trades[0].HoldingDays != 0 {
		t.Fatalf("benchmark must not track dates: %+v", res.Trades[0])
	}
	for i := range signals {
		if signals[i][0] != S {
			t.Fatalf("caller matrix was modified at bar %d", i)
		}
	}
}

func TestBenchmarkWithoutPolicyMatchesUnleveragedRun(t *testing.T) {
	bars := mkBars(100, 101, 99, 105, 102, 103)
	ticker := model.TickerConfig{Precision: 0.01, Spread: 0.5}
	signals := single(F, L, L, L, F, F)

	bench, err := New().Benchmark(bars, ticker, signals, Params{Leverage: 3, MarginPct: 100, InitialCapital: 1000}, ExposurePolicy{})
	if err != nil {
		t.Fatalf("Benchmark: %v", err)
	}
	run, err := New().Run(bars, ticker, signals, DefaultParams())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !equalFloats(bench.Capital, run.Capital) {
		t.Fatalf("benchmark %v != run %v", bench.Capital, run.Capital)
	}
}

func TestBenchmarkRejectsBadInput(t *testing.T) {
	ticker := model.TickerConfig{Precision: 1}

	_, err := New().Benchmark(mkBars(1, 2), ticker, single(L, F), Params{MarginPct: 100}, DefaultExposurePolicy())
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("err = %v, want ErrInvalidParams", err)
	}

	// Leverage is not validated for the benchmark.
	if _, err := New().Benchmark(mkBars(1, 2), ticker, single(L, F), Params{MarginPct: 100, InitialCapital: 1}, DefaultExposurePolicy()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = New().Benchmark(mkBars(1, 2, 3), ticker, single(L, F), DefaultParams(), DefaultExposurePolicy())
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
}
