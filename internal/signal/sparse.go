package signal

import (
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"signal-backtest/internal/model"
)

// Event sets one cell of an otherwise undefined matrix.
type Event struct {
	Bar     int          `json:"bar" yaml:"bar"`
	Channel int          `json:"channel" yaml:"channel"`
	Signal  model.Signal `json:"signal" yaml:"signal"`
}

// UnmarshalYAML reads the signal as text so that null, empty and "hold"
// decode to an undefined cell instead of flat.
func (e *Event) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Bar     int    `yaml:"bar"`
		Channel int    `yaml:"channel"`
		Signal  string `yaml:"signal"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	sig, err := model.ParseSignal(raw.Signal)
	if err != nil {
		return fmt.Errorf("event at bar %d: %w", raw.Bar, err)
	}
	*e = Event{Bar: raw.Bar, Channel: raw.Channel, Signal: sig}
	return nil
}

// SparseStrategy is undefined everywhere except at its events. A later
// event for the same cell wins.
type SparseStrategy struct {
	Events []Event

	once  sync.Once
	cells map[[2]int]model.Signal
}

func (s *SparseStrategy) Name() string { return "sparse" }

func (s *SparseStrategy) Decide(ctx Context) model.Signal {
	s.once.Do(func() {
		s.cells = make(map[[2]int]model.Signal, len(s.Events))
		for _, e := range s.Events {
			s.cells[[2]int{e.Bar, e.Channel}] = e.Signal
		}
	})
	if sig, ok := s.cells[[2]int{ctx.Index, ctx.Channel}]; ok {
		return sig
	}
	return model.SignalHold
}

// Sparse builds an n x channels matrix from events. Events outside the
// matrix are an error.
func Sparse(n, channels int, events []Event) (model.SignalMatrix, error) {
	for _, e := range events {
		if e.Bar < 0 || e.Bar >= n {
			return nil, fmt.Errorf("event bar %d out of range [0,%d)", e.Bar, n)
		}
		if e.Channel < 0 || e.Channel >= channels {
			return nil, fmt.Errorf("event channel %d out of range [0,%d)", e.Channel, channels)
		}
	}
	out := Hold(n, channels)
	for _, e := range events {
		out[e.Bar][e.Channel] = e.Signal
	}
	return out, nil
}
