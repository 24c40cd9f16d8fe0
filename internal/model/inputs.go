package model

// BacktestInputs is everything a run consumes once bars, the signal matrix
// and the ticker configuration are combined.
type BacktestInputs struct {
	Bars    []Bar
	Signals SignalMatrix
	Ticker  TickerConfig
}

// ChannelCount is the number of independent position tracks.
func (in BacktestInputs) ChannelCount() int {
	return in.Signals.Channels()
}
