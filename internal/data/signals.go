package data

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"signal-backtest/internal/model"
)

// LoadSignalsCSV reads one row per bar and one column per channel. A first
// row in which no cell parses as a signal is taken as a header.
func LoadSignalsCSV(path string) (model.SignalMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open signals file: %w", err)
	}
	defer f.Close()
	return ReadSignalsCSV(f)
}

func ReadSignalsCSV(r io.Reader) (model.SignalMatrix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read signals: %w", err)
	}

	var out model.SignalMatrix
	for i, rec := range records {
		row, err := parseSignalRow(rec)
		if err != nil {
			if i == 0 && isHeader(rec) {
				continue
			}
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func isHeader(rec []string) bool {
	for _, cell := range rec {
		if _, err := model.ParseSignal(cell); err == nil {
			return false
		}
	}
	return true
}

func parseSignalRow(rec []string) ([]model.Signal, error) {
	row := make([]model.Signal, len(rec))
	for ch, cell := range rec {
		s, err := model.ParseSignal(cell)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		row[ch] = s
	}
	return row, nil
}

// LoadSignalsJSON accepts either a bare matrix or {"signals": matrix}.
// null cells are undefined.
func LoadSignalsJSON(path string) (model.SignalMatrix, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signals file: %w", err)
	}
	return ParseSignalsJSON(raw)
}

func ParseSignalsJSON(raw []byte) (model.SignalMatrix, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var wrapped struct {
			Signals model.SignalMatrix `json:"signals"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse signals: %w", err)
		}
		return wrapped.Signals, nil
	}
	var m model.SignalMatrix
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse signals: %w", err)
	}
	return m, nil
}
