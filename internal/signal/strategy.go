package signal

import (
	"fmt"

	"signal-backtest/internal/model"
)

type Context struct {
	Index   int
	Channel int
	Bar     model.Bar
}

// Strategy produces one signal cell per bar and channel.
type Strategy interface {
	Name() string
	Decide(ctx Context) model.Signal
}

// Generate evaluates s on every bar and channel.
func Generate(s Strategy, bars []model.Bar, channels int) model.SignalMatrix {
	out := make(model.SignalMatrix, len(bars))
	for i, b := range bars {
		row := make([]model.Signal, channels)
		for ch := range row {
			row[ch] = s.Decide(Context{Index: i, Channel: ch, Bar: b})
		}
		out[i] = row
	}
	return out
}

// Hold returns an n x channels matrix of undefined cells.
func Hold(n, channels int) model.SignalMatrix {
	out := make(model.SignalMatrix, n)
	for i := range out {
		row := make([]model.Signal, channels)
		for ch := range row {
			row[ch] = model.SignalHold
		}
		out[i] = row
	}
	return out
}

// Validate checks that m is a rectangular matrix with one row per bar, at
// least one channel and only known cell values.
func Validate(m model.SignalMatrix, bars int) error {
	if len(m) != bars {
		return fmt.Errorf("%d signal rows for %d bars", len(m), bars)
	}
	channels := m.Channels()
	if channels == 0 {
		return fmt.Errorf("signal matrix has no channels")
	}
	for i, row := range m {
		if len(row) != channels {
			return fmt.Errorf("signal row %d has %d channels, want %d", i, len(row), channels)
		}
		for ch, s := range row {
			switch s {
			case model.SignalShort, model.SignalFlat, model.SignalLong, model.SignalHold:
			default:
				return fmt.Errorf("signal row %d channel %d has value %d", i, ch, s)
			}
		}
	}
	return nil
}
