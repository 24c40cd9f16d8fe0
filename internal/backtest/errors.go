package backtest

import (
	"errors"
	"fmt"
	"math"

	"signal-backtest/internal/model"
	"signal-backtest/internal/signal"
)

var (
	// ErrMalformedInput covers shape problems: empty inputs, ragged signal
	// rows, bar/signal length mismatch, an invalid ticker.
	ErrMalformedInput = errors.New("malformed input")
	// ErrDegenerateSizing is returned when an entry price is not positive,
	// which would make share sizing divide by zero or go negative.
	ErrDegenerateSizing = errors.New("degenerate sizing")
	// ErrInvalidParams is returned for leverage, margin or capital values
	// the engine cannot run with.
	ErrInvalidParams = errors.New("invalid parameters")
)

// validateInputs runs every structural check once, before the first bar.
func validateInputs(bars []model.Bar, ticker model.TickerConfig, signals model.SignalMatrix) error {
	if len(bars) == 0 {
		return fmt.Errorf("%w: no bars", ErrMalformedInput)
	}
	if err := signal.Validate(signals, len(bars)); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if err := ticker.Validate(); err != nil {
		return fmt.Errorf("%w: ticker: %v", ErrMalformedInput, err)
	}
	for i, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close <= 0 {
			return fmt.Errorf("%w: bar %d close %v is not a positive price", ErrDegenerateSizing, i, b.Close)
		}
	}
	return nil
}
