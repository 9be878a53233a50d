package orderbook

import (
	"marketcore/mclock"
	"marketcore/mdecimal"
	"marketcore/midentity"
)

// Side is the resting side of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "Buy"
	}
	return "Sell"
}

// Opposite returns the side an incoming order of this side would cross.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Type is the order type, spec.md §3.
type Type int

const (
	Limit Type = iota
	Market
)

// Order is spec.md §3's Order, the unit stored in a Book's price levels.
type Order struct {
	ID          midentity.OrderId
	OwnerID     string
	Symbol      string
	Side        Side
	Type        Type
	Price       mdecimal.Decimal // zero for Market orders
	Quantity    mdecimal.Decimal // original requested quantity
	Remaining   mdecimal.Decimal // quantity still unfilled
	ArrivalTime mclock.Timestamp // used for price-time priority and maker/taker
}

// Filled reports whether the order has no remaining quantity — a terminal
// order must never be referenced from a Book's by-ID index or level queues.
func (o *Order) Filled() bool {
	return o.Remaining.IsZero()
}
