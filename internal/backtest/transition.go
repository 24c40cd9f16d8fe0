package backtest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"signal-backtest/internal/model"
)

// guardDigits is the extra precision kept on the sizing quotient before it
// is rounded half-to-even onto the instrument grid.
const guardDigits = 24

// barContext is what one channel sees on one bar.
type barContext struct {
	Bar     int
	Channel int
	// Signal is the target observed on the previous bar.
	Signal model.Signal
	// PrevClose is the previous bar's close; exits and entries fill there.
	PrevClose decimal.Decimal
	// Date is the current bar's date.
	Date time.Time
	// Capital is the capital as of the start of the bar.
	Capital decimal.Decimal
}

// transitioner decides exits and entries for one channel on one bar.
type transitioner struct {
	spread    decimal.Decimal
	places    int32
	leverage  decimal.Decimal
	margin    decimal.Decimal
	channels  decimal.Decimal
	longRate  decimal.Decimal
	shortRate decimal.Decimal

	chargeOvernight bool
	trackDates      bool
}

func newTransitioner(ticker model.TickerConfig, mode runMode, channels int) *transitioner {
	return &transitioner{
		spread:          ticker.SpreadDecimal(),
		places:          ticker.Places(),
		leverage:        decimal.NewFromInt(int64(mode.leverage)),
		margin:          decimal.NewFromFloat(mode.marginPct).Shift(-2),
		channels:        decimal.NewFromInt(int64(channels)),
		longRate:        decimal.NewFromFloat(ticker.LongOvernight).Shift(-2),
		shortRate:       decimal.NewFromFloat(ticker.ShortOvernight).Shift(-2),
		chargeOvernight: mode.chargeOvernight,
		trackDates:      mode.trackDates,
	}
}

// step evaluates exit strictly before entry, so a flip from long to short
// closes the old side and opens the new one on the same bar.
func (t *transitioner) step(state *model.ChannelState, bc barContext) (*Trade, *Entry, error) {
	var exit *Trade
	if state.Side() == model.SideLong && bc.Signal.ExitsLong() {
		exit = t.exit(state, bc, t.longRate)
	} else if state.Side() == model.SideShort && bc.Signal.ExitsShort() {
		exit = t.exit(state, bc, t.shortRate)
	}

	var (
		entry *Entry
		err   error
	)
	if bc.Signal.EntersLong() && state.Side() != model.SideLong {
		entry, err = t.enter(state, bc, model.SideLong)
	} else if bc.Signal.EntersShort() && state.Side() != model.SideShort {
		entry, err = t.enter(state, bc, model.SideShort)
	}
	if err != nil {
		return nil, nil, err
	}
	return exit, entry, nil
}

func (t *transitioner) exit(state *model.ChannelState, bc barContext, rate decimal.Decimal) *Trade {
	pos := state.Close()
	exitPrice := bc.PrevClose

	fee := decimal.Zero
	days := 0
	if t.trackDates {
		days = model.CalendarDays(pos.EntryDate, bc.Date)
	}
	if t.chargeOvernight {
		fee = pos.Shares.Mul(exitPrice).Mul(rate).Mul(decimal.NewFromInt(int64(days)))
	}

	var gross decimal.Decimal
	if pos.Side == model.SideLong {
		gross = exitPrice.Sub(pos.EntryPrice).Mul(pos.Shares)
	} else {
		gross = pos.EntryPrice.Sub(exitPrice).Mul(pos.Shares)
	}

	tr := &Trade{
		Channel:     bc.Channel,
		Bar:         bc.Bar,
		Side:        pos.Side,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		Shares:      pos.Shares,
		EntryDate:   pos.EntryDate,
		HoldingDays: days,
		Fee:         fee,
		Profit:      gross.Sub(fee),
	}
	if t.trackDates {
		tr.ExitDate = bc.Date
	}
	return tr
}

func (t *transitioner) enter(state *model.ChannelState, bc barContext, side model.Side) (*Entry, error) {
	price := bc.PrevClose.Add(t.spread)
	if side == model.SideShort {
		price = bc.PrevClose.Sub(t.spread)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: channel %d bar %d %s entry price %s", ErrDegenerateSizing, bc.Channel, bc.Bar, side, price)
	}

	shares := t.size(bc.Capital, price)
	pos := model.Position{Side: side, EntryPrice: price, Shares: shares}
	if t.trackDates {
		pos.EntryDate = bc.Date
	}
	state.Open(pos)

	return &Entry{
		Channel: bc.Channel,
		Bar:     bc.Bar,
		Side:    side,
		Price:   price,
		Shares:  shares,
		Date:    pos.EntryDate,
	}, nil
}

// size returns RoundBank(capital*margin/channels/price, places) * leverage.
// A result of zero shares is accepted.
func (t *transitioner) size(capital, price decimal.Decimal) decimal.Decimal {
	return quantize(capital.Mul(t.margin), price.Mul(t.channels), t.places).Mul(t.leverage)
}

// quantize divides and rounds half-to-even onto a 10^-places grid.
func quantize(num, den decimal.Decimal, places int32) decimal.Decimal {
	return num.DivRound(den, places+guardDigits).RoundBank(places)
}
