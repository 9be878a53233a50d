// Package marketdata turns FIX MarketDataSnapshotFullRefresh (W) and
// MarketDataIncrementalRefresh (X) messages into MarketTick values.
//
// HOT PATH: parsing reuses the teacher's single-pass, zero-allocation
// segment scan (fixclient/parser.go's parseTradeFromSegmentFast) instead of
// quickfix's structured GetGroup, for the same reason the teacher gives:
// GetGroup overhead dominates at tick rates this component needs to sustain.
package marketdata

import (
	"marketcore/mclock"
	"marketcore/mdecimal"
)

// Tick is spec.md §3's MarketTick: the last known state of both sides of
// top-of-book for one symbol.
type Tick struct {
	SymbolID   uint32
	SymbolName string
	BidPrice   mdecimal.Decimal
	AskPrice   mdecimal.Decimal
	BidVolume  mdecimal.Decimal
	AskVolume  mdecimal.Decimal
	TickTime   mclock.Timestamp
}

// HasBothSides reports whether both sides of top-of-book are populated, the
// invariant a Tick must satisfy before it may be emitted.
func (t Tick) HasBothSides() bool {
	return !t.BidPrice.IsZero() && !t.AskPrice.IsZero()
}

// Spread returns AskPrice - BidPrice; callers should check HasBothSides first.
func (t Tick) Spread() mdecimal.Decimal {
	return t.AskPrice.Sub(t.BidPrice)
}
