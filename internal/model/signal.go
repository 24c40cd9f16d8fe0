package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Signal is one cell of the position decision matrix.
// Keep these values stable; they are written to CSV and JSON.
type Signal int8

const (
	SignalShort Signal = -1
	SignalFlat  Signal = 0
	SignalLong  Signal = 1
	// SignalHold means "no instruction this bar". It never triggers a
	// transition and is distinct from SignalFlat.
	SignalHold Signal = 2
)

// Defined reports whether the cell carries an instruction.
func (s Signal) Defined() bool { return s != SignalHold }

// ExitsLong reports whether a held long must be closed (target <= 0).
func (s Signal) ExitsLong() bool { return s == SignalFlat || s == SignalShort }

// ExitsShort reports whether a held short must be closed (target >= 0).
func (s Signal) ExitsShort() bool { return s == SignalFlat || s == SignalLong }

// EntersLong reports whether a long should be opened (target > 0).
func (s Signal) EntersLong() bool { return s == SignalLong }

// EntersShort reports whether a short should be opened (target < 0).
func (s Signal) EntersShort() bool { return s == SignalShort }

func (s Signal) String() string {
	switch s {
	case SignalShort:
		return "-1"
	case SignalFlat:
		return "0"
	case SignalLong:
		return "1"
	default:
		return ""
	}
}

// SignalFromFloat maps a numeric cell by its sign; NaN is Hold.
func SignalFromFloat(f float64) Signal {
	switch {
	case math.IsNaN(f):
		return SignalHold
	case f > 0:
		return SignalLong
	case f < 0:
		return SignalShort
	default:
		return SignalFlat
	}
}

// ParseSignal parses a text cell: a number or one of long, short, flat.
// Empty, "nan", "null", "none" and "hold" are Hold.
func ParseSignal(s string) (Signal, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "hold":
		return SignalHold, nil
	case "long":
		return SignalLong, nil
	case "short":
		return SignalShort, nil
	case "flat":
		return SignalFlat, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return SignalHold, fmt.Errorf("invalid signal %q: %w", s, err)
	}
	return SignalFromFloat(f), nil
}

// MarshalJSON writes Hold as null and the others as numbers.
func (s Signal) MarshalJSON() ([]byte, error) {
	if !s.Defined() {
		return []byte("null"), nil
	}
	return []byte(s.String()), nil
}

// UnmarshalJSON accepts null or a number.
func (s *Signal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = SignalHold
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("signal must be a number or null: %w", err)
	}
	*s = SignalFromFloat(f)
	return nil
}

// SignalMatrix is indexed [bar][channel].
type SignalMatrix [][]Signal

// Channels returns the width of the first row.
func (m SignalMatrix) Channels() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Clone returns a deep copy so callers' input is never mutated.
func (m SignalMatrix) Clone() SignalMatrix {
	out := make(SignalMatrix, len(m))
	for i, row := range m {
		out[i] = append([]Signal(nil), row...)
	}
	return out
}

// Column returns the signal track of one channel.
func (m SignalMatrix) Column(channel int) []Signal {
	out := make([]Signal, len(m))
	for i, row := range m {
		if channel < len(row) {
			out[i] = row[channel]
		} else {
			out[i] = SignalHold
		}
	}
	return out
}
