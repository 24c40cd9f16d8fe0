package model

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// TickerConfig holds static per-instrument parameters.
// Units:
//   - Precision: share quantization step; its decimal places set the grid
//     (0.01 -> two places, 2 -> whole units)
//   - Spread: absolute price offset applied on entry
//   - LongOvernight/ShortOvernight: daily financing in percent, charged only
//     when leverage > 1
type TickerConfig struct {
	Symbol         string
	Precision      float64
	Spread         float64
	LongOvernight  float64
	ShortOvernight float64
}

func (t TickerConfig) Validate() error {
	if math.IsNaN(t.Precision) || math.IsInf(t.Precision, 0) || t.Precision <= 0 {
		return errors.New("Precision must be > 0")
	}
	if math.IsNaN(t.Spread) || math.IsInf(t.Spread, 0) || t.Spread < 0 {
		return errors.New("Spread must be >= 0")
	}
	if math.IsNaN(t.LongOvernight) || math.IsInf(t.LongOvernight, 0) {
		return errors.New("LongOvernight must be finite")
	}
	if math.IsNaN(t.ShortOvernight) || math.IsInf(t.ShortOvernight, 0) {
		return errors.New("ShortOvernight must be finite")
	}
	return nil
}

// Places is the number of decimal places of the quantization grid. An
// integral precision quantizes to whole units.
func (t TickerConfig) Places() int32 {
	if t.Precision == math.Trunc(t.Precision) {
		return 0
	}
	exp := decimal.NewFromFloat(t.Precision).Exponent()
	if exp >= 0 {
		return 0
	}
	return -exp
}

// SpreadDecimal returns the spread as a decimal.
func (t TickerConfig) SpreadDecimal() decimal.Decimal {
	return decimal.NewFromFloat(t.Spread)
}
