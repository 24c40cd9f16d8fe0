package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a channel's position.
// Keep these values stable; they are intended for CSV output.
type Side int8

const (
	SideShort Side = -1
	SideFlat  Side = 0
	SideLong  Side = 1
)

func (s Side) String() string {
	switch s {
	case SideLong:
		return "LONG"
	case SideShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Position is an open position. A flat channel has no Position at all, so
// entry price and date exist exactly when the side is not flat.
type Position struct {
	Side       Side
	EntryPrice decimal.Decimal
	// EntryDate is zero when the run does not track dates.
	EntryDate time.Time
	Shares    decimal.Decimal
}

// ChannelState is the per-channel bookkeeping owned by one engine run.
type ChannelState struct {
	Position *Position
}

// Side returns SideFlat when no position is open.
func (c *ChannelState) Side() Side {
	if c.Position == nil {
		return SideFlat
	}
	return c.Position.Side
}

// Open replaces the state with a new position.
func (c *ChannelState) Open(p Position) {
	c.Position = &p
}

// Close resets the channel to flat and returns the position that was held.
func (c *ChannelState) Close() *Position {
	p := c.Position
	c.Position = nil
	return p
}
