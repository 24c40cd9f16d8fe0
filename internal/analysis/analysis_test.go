package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"signal-backtest/internal/backtest"
	"signal-backtest/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSummarize(t *testing.T) {
	res := &backtest.Result{
		Kind:     backtest.KindBacktest,
		Capital:  []float64{1000, 1100, 1050, 1200},
		Drawdown: []float64{0, 0, -100 * 50.0 / 1100, 0},
		Trades: []backtest.Trade{
			{Profit: d("100"), Fee: d("1.5")},
			{Profit: d("-50"), Fee: d("0.5")},
			{Profit: d("150")},
			{Profit: d("0")},
		},
		Open:    []backtest.OpenPosition{{Channel: 0}},
		HaltBar: -1,
	}

	s := Summarize(res)
	if s.Kind != "backtest" || s.InitialCapital != 1000 || s.FinalCapital != 1200 {
		t.Fatalf("summary = %+v", s)
	}
	if s.TotalReturnPct != 20 {
		t.Fatalf("return = %v, want 20", s.TotalReturnPct)
	}
	if s.Trades != 4 || s.Wins != 2 || s.Losses != 1 || s.WinRate != 50 {
		t.Fatalf("counts = %+v", s)
	}
	if s.GrossProfit != 250 || s.GrossLoss != -50 || s.ProfitFactor != 5 || s.FeesPaid != 2 {
		t.Fatalf("money = %+v", s)
	}
	if math.Abs(s.MaxDrawdownPct-(-100*50.0/1100)) > 1e-12 {
		t.Fatalf("max drawdown = %v", s.MaxDrawdownPct)
	}
	if s.OpenPositions != 1 || s.Halted {
		t.Fatalf("termination = %+v", s)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Trades != 0 || s.HaltBar != -1 {
		t.Fatalf("summary = %+v", s)
	}
	s = Summarize(&backtest.Result{Capital: []float64{1000}, Drawdown: []float64{0}})
	if s.ProfitFactor != 0 || s.WinRate != 0 || s.TotalReturnPct != 0 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestSummarizeEngineRun(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := []float64{100, 100, 110, 120, 130}
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{Date: start.AddDate(0, 0, i), Close: c}
	}
	signals := model.SignalMatrix{{1}, {1}, {-1}, {-1}, {-1}}

	res, err := backtest.New().Run(bars, model.TickerConfig{Precision: 1}, signals, backtest.DefaultParams())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s := Summarize(res)
	if s.FinalCapital != 1100 || s.Trades != 1 || s.Wins != 1 || s.OpenPositions != 1 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestExcessReturn(t *testing.T) {
	if got := ExcessReturn(Summary{TotalReturnPct: 12}, Summary{TotalReturnPct: 8}); got != 4 {
		t.Fatalf("got %v, want 4", got)
	}
}

func TestComputeMarketStats(t *testing.T) {
	bars := make([]model.Bar, 0, 21)
	for i := 0; i <= 20; i++ {
		bars = append(bars, model.Bar{Close: float64(100 + i)})
	}
	st := ComputeMarketStats("X", bars)
	if st.Count != 21 || st.MinClose != 100 || st.MaxClose != 120 || st.MeanClose != 110 {
		t.Fatalf("stats = %+v", st)
	}
	if st.P05Close != 101 || st.P95Close != 119 {
		t.Fatalf("percentiles = %v, %v", st.P05Close, st.P95Close)
	}
	if st.BuyHoldReturnPct != 20 {
		t.Fatalf("buy and hold = %v", st.BuyHoldReturnPct)
	}
	if ComputeMarketStats("X", nil).Count != 0 {
		t.Fatalf("empty stats must be zero")
	}
}

func TestRank(t *testing.T) {
	in := []Named{
		{Name: "a", Summary: Summary{FinalCapital: 1000}},
		{Name: "b", Summary: Summary{FinalCapital: 1200}},
		{Name: "c", Summary: Summary{FinalCapital: 1000}},
		{Name: "d", Summary: Summary{FinalCapital: 900}},
	}
	got := Rank(in)
	want := []string{"b", "a", "c", "d"}
	for i, r := range got {
		if r.Name != want[i] || r.Rank != i+1 {
			t.Fatalf("rank %d = %+v, want %s", i, r, want[i])
		}
	}
	if in[0].Name != "a" {
		t.Fatalf("input was reordered")
	}
}
