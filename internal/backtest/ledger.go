package backtest

import "github.com/shopspring/decimal"

var insolvencyFloor = decimal.NewFromInt(InsolvencyFloor)

// Ledger accumulates realized profit across channels within a bar and
// settles it into the capital history once per bar.
type Ledger struct {
	capital decimal.Decimal
	pending decimal.Decimal
	history []decimal.Decimal
	halted  bool
}

func NewLedger(initial decimal.Decimal) *Ledger {
	return &Ledger{
		capital: initial,
		history: []decimal.Decimal{initial},
	}
}

// Capital is the capital as of the last settlement.
func (l *Ledger) Capital() decimal.Decimal { return l.capital }

// Accrue adds one channel's realized profit to the current bar.
func (l *Ledger) Accrue(profit decimal.Decimal) {
	l.pending = l.pending.Add(profit)
}

// Settle closes the bar. A nonzero bar profit floors capital to the cent,
// appends it and resets the accumulator; it reports whether a value was
// appended. Once halted, Settle never appends again.
func (l *Ledger) Settle() bool {
	if l.halted || l.pending.IsZero() {
		l.pending = decimal.Zero
		return false
	}
	l.capital = l.capital.Add(l.pending).RoundFloor(2)
	l.history = append(l.history, l.capital)
	l.pending = decimal.Zero
	if l.capital.LessThanOrEqual(insolvencyFloor) {
		l.halted = true
	}
	return true
}

// Halted reports whether capital fell to the insolvency floor.
func (l *Ledger) Halted() bool { return l.halted }

// History returns a copy of the capital history.
func (l *Ledger) History() []decimal.Decimal {
	return append([]decimal.Decimal(nil), l.history...)
}

// Floats returns the capital history as float64 values.
func (l *Ledger) Floats() []float64 {
	out := make([]float64, len(l.history))
	for i, c := range l.history {
		out[i] = c.InexactFloat64()
	}
	return out
}
