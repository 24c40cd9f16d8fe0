package signal

import (
	"fmt"

	"signal-backtest/internal/model"
)

// OracleStrategy is a perfect-foresight signal used as an upper bound when
// ranking real signals. On bar i it targets the direction of the move from
// close[i] to close[i+1]; the engine acts on it at bar i+1 and fills at
// close[i], so every defined cell captures exactly that move.
//
// Every channel receives the same track.
type OracleStrategy struct {
	closes []float64
}

func NewOracleStrategy(bars []model.Bar) (*OracleStrategy, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars")
	}
	return &OracleStrategy{closes: model.Closes(bars)}, nil
}

func (s *OracleStrategy) Name() string { return "oracle" }

func (s *OracleStrategy) Decide(ctx Context) model.Signal {
	if ctx.Index < 0 || ctx.Index >= len(s.closes)-1 {
		return model.SignalHold
	}
	next, cur := s.closes[ctx.Index+1], s.closes[ctx.Index]
	switch {
	case next > cur:
		return model.SignalLong
	case next < cur:
		return model.SignalShort
	default:
		return model.SignalFlat
	}
}

// Oracle returns the single-channel oracle matrix for bars.
func Oracle(bars []model.Bar) (model.SignalMatrix, error) {
	s, err := NewOracleStrategy(bars)
	if err != nil {
		return nil, err
	}
	return Generate(s, bars, 1), nil
}
