package coordinator

import (
	"sync"
	"time"

	"marketcore/mdecimal"
	"marketcore/midentity"
	"marketcore/orderbook"

	"marketcore/matching"
)

// IndexedOrder is the cross-book projection the control surface reports for
// an order, independent of which per-symbol book currently holds it.
type IndexedOrder struct {
	ID        midentity.OrderId
	OwnerID   string
	Symbol    string
	Side      orderbook.Side
	Type      orderbook.Type
	Price     mdecimal.Decimal
	Quantity  mdecimal.Decimal
	Remaining mdecimal.Decimal
	Status    matching.Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderIndex is a thread-safe, copy-on-read map from order id to its latest
// known state, repurposing the teacher's fixclient.OrderStore (ClOrdID ->
// *Order, RWMutex, defensive-copy reads, isOpenStatus classifier) for this
// engine's own Order/Status types instead of FIX execution reports.
type OrderIndex struct {
	mu     sync.RWMutex
	orders map[midentity.OrderId]*IndexedOrder
}

func NewOrderIndex() *OrderIndex {
	return &OrderIndex{orders: make(map[midentity.OrderId]*IndexedOrder)}
}

// Record stores or updates the index entry from a fresh Submit outcome.
func (idx *OrderIndex) Record(o *matching.Outcome) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	now := time.Now()
	existing, ok := idx.orders[o.Order.ID]
	createdAt := now
	if ok {
		createdAt = existing.CreatedAt
	}
	idx.orders[o.Order.ID] = &IndexedOrder{
		ID:        o.Order.ID,
		OwnerID:   o.Order.OwnerID,
		Symbol:    o.Order.Symbol,
		Side:      o.Order.Side,
		Type:      o.Order.Type,
		Price:     o.Order.Price,
		Quantity:  o.Order.Quantity,
		Remaining: o.Order.Remaining,
		Status:    o.Status,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
}

// MarkCancelled updates an entry's status after a successful Cancel call.
func (idx *OrderIndex) MarkCancelled(o *orderbook.Order) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if entry, ok := idx.orders[o.ID]; ok {
		entry.Status = matching.Cancelled
		entry.Remaining = mdecimal.Zero
		entry.UpdatedAt = time.Now()
	}
}

// Get returns a defensive copy of an order's current state.
func (idx *OrderIndex) Get(id midentity.OrderId) (IndexedOrder, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	o, ok := idx.orders[id]
	if !ok {
		return IndexedOrder{}, false
	}
	return *o, true
}

// Open returns copies of every order still in a non-terminal status.
func (idx *OrderIndex) Open() []IndexedOrder {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	result := make([]IndexedOrder, 0)
	for _, o := range idx.orders {
		if isOpenStatus(o.Status) {
			result = append(result, *o)
		}
	}
	return result
}

// isOpenStatus reports whether status indicates an order still resting or
// otherwise actionable, mirroring fixclient.isOpenStatus's role.
func isOpenStatus(status matching.Status) bool {
	switch status {
	case matching.New, matching.PartiallyFilled:
		return true
	default:
		return false
	}
}
