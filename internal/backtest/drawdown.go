package backtest

// Drawdown returns -100*(peak-c)/peak for each capital value, where peak is
// the running maximum up to and including that index. Values at a peak are
// exactly 0.
func Drawdown(capital []float64) []float64 {
	out := make([]float64, len(capital))
	if len(capital) == 0 {
		return out
	}
	peak := capital[0]
	for i, c := range capital {
		if c > peak {
			peak = c
		}
		if peak > c {
			out[i] = -100 * (peak - c) / peak
		}
	}
	return out
}

// MaxDrawdown returns the most negative drawdown value (0 when none).
func MaxDrawdown(drawdown []float64) float64 {
	worst := 0.0
	for _, d := range drawdown {
		if d < worst {
			worst = d
		}
	}
	return worst
}
