// Package midentity issues the 128-bit identifiers used for orders and
// trades throughout the core.
package midentity

import "github.com/google/uuid"

// OrderId uniquely identifies an Order for its entire lifetime.
type OrderId uuid.UUID

// TradeId uniquely identifies an immutable Trade record.
type TradeId uuid.UUID

// NewOrderId mints a fresh random order identifier.
func NewOrderId() OrderId { return OrderId(uuid.New()) }

// NewTradeId mints a fresh random trade identifier.
func NewTradeId() TradeId { return TradeId(uuid.New()) }

func (id OrderId) String() string { return uuid.UUID(id).String() }
func (id TradeId) String() string { return uuid.UUID(id).String() }

// ParseOrderId decodes an order id from its canonical string form, used when
// the coordinator accepts an order id from the external router.
func ParseOrderId(s string) (OrderId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return OrderId{}, err
	}
	return OrderId(u), nil
}

func (id OrderId) MarshalJSON() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *OrderId) UnmarshalJSON(data []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(trimQuotes(data)); err != nil {
		return err
	}
	*id = OrderId(u)
	return nil
}

func (id TradeId) MarshalJSON() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func trimQuotes(b []byte) []byte {
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		return b[1 : len(b)-1]
	}
	return b
}
