package backtest

import (
	"fmt"

	"signal-backtest/internal/model"
)

// ExposurePolicy forces near full-period long exposure on one channel of
// the benchmark: long on the first bar, undefined on the interior bars and
// flat on the second to last bar. The last bar keeps the caller's value.
type ExposurePolicy struct {
	Enabled bool
	Channel int
}

// DefaultExposurePolicy forces exposure on channel 0.
func DefaultExposurePolicy() ExposurePolicy {
	return ExposurePolicy{Enabled: true, Channel: 0}
}

// Apply returns a copy of signals with the policy applied. The input is
// never modified.
func (p ExposurePolicy) Apply(signals model.SignalMatrix) (model.SignalMatrix, error) {
	out := signals.Clone()
	if !p.Enabled || len(out) == 0 {
		return out, nil
	}
	if p.Channel < 0 || p.Channel >= out.Channels() {
		return nil, fmt.Errorf("%w: exposure channel %d out of range [0,%d)", ErrMalformedInput, p.Channel, out.Channels())
	}

	n := len(out)
	out[0][p.Channel] = model.SignalLong
	for i := 1; i < n-2; i++ {
		out[i][p.Channel] = model.SignalHold
	}
	if n >= 2 {
		out[n-2][p.Channel] = model.SignalFlat
	}
	return out, nil
}

// Benchmark runs the market-exposure baseline: no leverage, no overnight
// fees, no entry dates, and the exposure policy applied to a copy of the
// signals. p.Leverage is ignored.
func (e *Engine) Benchmark(bars []model.Bar, ticker model.TickerConfig, signals model.SignalMatrix, p Params, policy ExposurePolicy) (*Result, error) {
	if err := p.validateCapital(); err != nil {
		return nil, err
	}
	if err := validateInputs(bars, ticker, signals); err != nil {
		return nil, err
	}
	forced, err := policy.Apply(signals)
	if err != nil {
		return nil, err
	}
	return e.run(bars, ticker, forced, runMode{
		kind:           KindBenchmark,
		leverage:       1,
		marginPct:      p.MarginPct,
		initialCapital: p.InitialCapital,
	})
}
