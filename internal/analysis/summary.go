package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"signal-backtest/internal/backtest"
	"signal-backtest/internal/model"
)

// Summary condenses one run into the numbers used for reporting and
// ranking. Percentages are in percent, not fractions.
type Summary struct {
	Kind string `json:"kind"`

	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	TotalReturnPct float64 `json:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`

	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"win_rate_pct"`

	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"`
	// ProfitFactor is GrossProfit / |GrossLoss|, 0 when there were no losses.
	ProfitFactor float64 `json:"profit_factor"`
	FeesPaid     float64 `json:"fees_paid"`

	OpenPositions int  `json:"open_positions"`
	Halted        bool `json:"halted"`
	HaltBar       int  `json:"halt_bar"`
}

func Summarize(res *backtest.Result) Summary {
	s := Summary{HaltBar: -1}
	if res == nil || len(res.Capital) == 0 {
		return s
	}
	s.Kind = string(res.Kind)
	s.InitialCapital = res.Capital[0]
	s.FinalCapital = res.FinalCapital()
	if s.InitialCapital != 0 {
		s.TotalReturnPct = 100 * (s.FinalCapital - s.InitialCapital) / s.InitialCapital
	}
	s.MaxDrawdownPct = backtest.MaxDrawdown(res.Drawdown)
	s.OpenPositions = len(res.Open)
	s.Halted = res.Halted
	s.HaltBar = res.HaltBar

	gross, loss, fees := decimal.Zero, decimal.Zero, decimal.Zero
	for _, t := range res.Trades {
		s.Trades++
		fees = fees.Add(t.Fee)
		switch {
		case t.Profit.IsPositive():
			s.Wins++
			gross = gross.Add(t.Profit)
		case t.Profit.IsNegative():
			s.Losses++
			loss = loss.Add(t.Profit)
		}
	}
	s.GrossProfit = gross.InexactFloat64()
	s.GrossLoss = loss.InexactFloat64()
	s.FeesPaid = fees.InexactFloat64()
	if s.Trades > 0 {
		s.WinRate = 100 * float64(s.Wins) / float64(s.Trades)
	}
	if !loss.IsZero() {
		s.ProfitFactor = gross.Div(loss.Abs()).InexactFloat64()
	}
	return s
}

// ExcessReturn is the run's total return minus the benchmark's, in percent
// points.
func ExcessReturn(run, benchmark Summary) float64 {
	return run.TotalReturnPct - benchmark.TotalReturnPct
}

// MarketStats describes the close series independently of any signal.
type MarketStats struct {
	Symbol string `json:"symbol,omitempty"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`

	MinClose  float64 `json:"min_close"`
	MaxClose  float64 `json:"max_close"`
	MeanClose float64 `json:"mean_close"`
	P05Close  float64 `json:"p05_close"`
	P95Close  float64 `json:"p95_close"`

	// BuyHoldReturnPct is the raw first-to-last close return.
	BuyHoldReturnPct float64 `json:"buy_hold_return_pct"`
}

func ComputeMarketStats(symbol string, bars []model.Bar) MarketStats {
	st := MarketStats{Symbol: symbol}
	if len(bars) == 0 {
		return st
	}
	st.Count = len(bars)
	st.Start = bars[0].Date
	st.End = bars[len(bars)-1].Date

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	vals := make([]float64, 0, len(bars))
	for _, b := range bars {
		v := b.Close
		vals = append(vals, v)
		sum += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
	}
	sort.Float64s(vals)
	st.MinClose = minv
	st.MaxClose = maxv
	st.MeanClose = sum / float64(len(vals))
	st.P05Close = percentileSorted(vals, 0.05)
	st.P95Close = percentileSorted(vals, 0.95)

	if first := bars[0].Close; first != 0 {
		st.BuyHoldReturnPct = 100 * (bars[len(bars)-1].Close - first) / first
	}
	return st
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
