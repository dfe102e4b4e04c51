package models

import (
	"strings"
	"time"
)

// Position is an open holding. Size is signed: a negative size is a short
// position.
type Position struct {
	Name       string
	Size       int
	CostBasis  float64
	TimeOpened time.Time
}

// Is reports whether the position is for the given symbol. Symbol
// comparison is case-insensitive everywhere in this package.
func (p Position) Is(name string) bool {
	return strings.EqualFold(p.Name, name)
}

// Equal reports whether two positions refer to the same symbol. Size and
// cost basis are deliberately ignored: positions are looked up by symbol.
func (p Position) Equal(other Position) bool {
	return p.Is(other.Name)
}

// ClosedPosition is a position that has been fully closed out, as reported
// by a broker's historical gain/loss query.
type ClosedPosition struct {
	Position
	Proceeds   float64
	TimeClosed time.Time
}

// Gain returns the realized dollar gain of the closed position.
func (c ClosedPosition) Gain() float64 {
	return c.Proceeds - c.CostBasis
}
