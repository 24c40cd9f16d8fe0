package backtest

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"signal-backtest/internal/model"
)

type Engine struct {
	log zerolog.Logger
}

func New() *Engine { return &Engine{log: zerolog.Nop()} }

// WithLogger returns an engine that logs halts and run completion to l.
func (e *Engine) WithLogger(l zerolog.Logger) *Engine {
	return &Engine{log: l.With().Str("component", "backtest").Logger()}
}

// runMode is what differs between a primary run and a benchmark run.
type runMode struct {
	kind            Kind
	leverage        int
	marginPct       float64
	initialCapital  float64
	chargeOvernight bool
	trackDates      bool
}

// Run replays signals against bars. Bar i acts on the signal of bar i-1
// and fills at the close of bar i-1; bar 0 only seeds the first signal.
func (e *Engine) Run(bars []model.Bar, ticker model.TickerConfig, signals model.SignalMatrix, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validateInputs(bars, ticker, signals); err != nil {
		return nil, err
	}
	return e.run(bars, ticker, signals, runMode{
		kind:            KindBacktest,
		leverage:        p.Leverage,
		marginPct:       p.MarginPct,
		initialCapital:  p.InitialCapital,
		chargeOvernight: p.Leverage > 1,
		trackDates:      true,
	})
}

func (e *Engine) run(bars []model.Bar, ticker model.TickerConfig, signals model.SignalMatrix, mode runMode) (*Result, error) {
	channels := signals.Channels()
	tr := newTransitioner(ticker, mode, channels)
	ledger := NewLedger(decimal.NewFromFloat(mode.initialCapital))
	states := make([]model.ChannelState, channels)

	closes := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		closes[i] = decimal.NewFromFloat(b.Close)
	}

	res := &Result{Kind: mode.kind, HaltBar: -1}

	for i := 1; i < len(bars); i++ {
		// Every channel sizes against the capital at the start of the bar.
		capital := ledger.Capital()
		for ch := 0; ch < channels; ch++ {
			exit, entry, err := tr.step(&states[ch], barContext{
				Bar:       i,
				Channel:   ch,
				Signal:    signals[i-1][ch],
				PrevClose: closes[i-1],
				Date:      bars[i].Date,
				Capital:   capital,
			})
			if err != nil {
				return nil, err
			}
			if exit != nil {
				ledger.Accrue(exit.Profit)
				res.Trades = append(res.Trades, *exit)
			}
			if entry != nil {
				res.Entries = append(res.Entries, *entry)
			}
		}
		res.BarsProcessed = i

		if ledger.Settle() && ledger.Halted() {
			res.Halted = true
			res.HaltBar = i
			e.log.Warn().
				Str("kind", string(mode.kind)).
				Int("bar", i).
				Str("capital", ledger.Capital().String()).
				Msg("insolvency halt")
			break
		}
	}

	for ch := range states {
		if p := states[ch].Position; p != nil {
			res.Open = append(res.Open, OpenPosition{Channel: ch, Position: *p})
		}
	}

	res.Capital = ledger.Floats()
	res.Drawdown = Drawdown(res.Capital)

	e.log.Debug().
		Str("kind", string(mode.kind)).
		Int("bars", len(bars)).
		Int("channels", channels).
		Int("trades", len(res.Trades)).
		Float64("final_capital", res.FinalCapital()).
		Msg("run complete")

	return res, nil
}
