// Package matching implements the price-time priority matching engine
// (Module K): order validation, the post-only gate, fill-or-kill
// precheck, self-trade prevention, time-in-force residual handling, and
// maker/taker fee assignment, all driven through orderbook.Book's
// insert/cancel/best/walk primitives.
//
// The match loop itself — walk the crossing side while prices cross,
// consume the minimum of the two quantities, advance whichever side
// emptied first — is grounded on
// _examples/other_examples/.../wyfcoding-financialTrading/.../matching.go's
// matchOrder (decimal.Min(remaining, opposing) consumption) and
// _examples/other_examples/.../saiputravu-Exchange/.../orderbook.go's
// Match (maker/taker assigned by arrival-time comparison, level purged once
// its order slice empties). STP variants, TIF residual rules, the
// post-only gate, and fee computation are new: built directly from
// spec.md §4.K/§8/§6 on top of those two primitives — no pack example
// implements self-trade prevention or fee schedules.
package matching

import (
	"marketcore/mclock"
	"marketcore/mdecimal"
	"marketcore/midentity"
	"marketcore/orderbook"
)

// TimeInForce controls what happens to any quantity left over once the
// match loop stops, spec.md §3/§4.K.
type TimeInForce int

const (
	GTC TimeInForce = iota
	IOC
	FOK
	Day
)

func (t TimeInForce) String() string {
	switch t {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	case Day:
		return "Day"
	default:
		return "Unknown"
	}
}

// STP (self-trade prevention) governs what happens when an incoming order
// would match against a resting order from the same owner.
type STP int

const (
	STPNone STP = iota
	CancelResting
	CancelIncoming
	CancelBoth
	CancelSmallest
	DecrementBoth
)

// Status is the terminal or interim state of a submitted order.
type Status int

const (
	New Status = iota
	PartiallyFilled
	Filled
	Cancelled
	Rejected
)

func (s Status) String() string {
	switch s {
	case New:
		return "New"
	case PartiallyFilled:
		return "PartiallyFilled"
	case Filled:
		return "Filled"
	case Cancelled:
		return "Cancelled"
	case Rejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Request is the input to Submit.
type Request struct {
	OwnerID     string
	Symbol      string
	Side        orderbook.Side
	Type        orderbook.Type
	Price       mdecimal.Decimal // ignored for Market
	Quantity    mdecimal.Decimal
	TimeInForce TimeInForce
	PostOnly    bool
	STP         STP
}

// Trade is spec.md §3's Trade record, one per match produced by Submit.
type Trade struct {
	ID           midentity.TradeId
	Symbol       string
	Price        mdecimal.Decimal
	Quantity     mdecimal.Decimal
	MakerOrderID midentity.OrderId
	TakerOrderID midentity.OrderId
	MakerOwnerID string
	TakerOwnerID string
	MakerFee     mdecimal.Decimal
	TakerFee     mdecimal.Decimal
	Time         mclock.Timestamp
}

// Outcome is Submit's successful result.
type Outcome struct {
	Order  *orderbook.Order
	Status Status
	Trades []Trade
}
