// Package orderbook implements the per-symbol two-sided price-level book
// (Module J): an ordered tree of price levels per side and a FIFO queue of
// orders within each level, plus an id index for O(1) cancel. Its operations
// are Insert/Cancel/Best/Walk plus RemoveFilled, Get and Len — the matching
// algorithm itself (STP, TIF, fees, post-only) lives in package matching and
// drives this book through them, the same separation the teacher's engine
// package draws between OrderBook and the trading engine that calls it.
//
// The ordered-price-level structure is grounded on
// _examples/other_examples/.../saiputravu-Exchange/internal/engine/orderbook.go
// (one btree.BTreeG[*PriceLevel] per side, comparator-only ordering). The
// FIFO-within-level queue is grounded on
// _examples/other_examples/.../wyfcoding-financialTrading/.../matching.go
// (OrderLevel.Orders *list.List). The by-ID index is modelled on
// gurre-prime-fix-md-go/fixclient/orderstore.go's OrderStore, but Get
// returns the live *Order, not a defensive copy.
package orderbook

import (
	"container/list"
	"errors"
	"sync"

	"marketcore/mdecimal"
	"marketcore/midentity"

	"github.com/tidwall/btree"
)

var ErrNotFound = errors.New("orderbook: order not found")

// PriceLevel is one price's FIFO queue of resting orders.
type PriceLevel struct {
	Price  mdecimal.Decimal
	Orders *list.List // of *Order, oldest (best time priority) at Front
}

type entry struct {
	side Side
	lvl  *PriceLevel
	elem *list.Element
}

// Book is one symbol's two-sided order book. Safe for concurrent use.
type Book struct {
	Symbol string

	mu   sync.RWMutex
	bids *btree.BTreeG[*PriceLevel]
	asks *btree.BTreeG[*PriceLevel]
	byID map[midentity.OrderId]*entry
}

func New(symbol string) *Book {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.GreaterThan(b.Price) // best bid = highest price first
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.LessThan(b.Price) // best ask = lowest price first
	})
	return &Book{
		Symbol: symbol,
		bids:   bids,
		asks:   asks,
		byID:   make(map[midentity.OrderId]*entry),
	}
}

func (b *Book) tree(side Side) *btree.BTreeG[*PriceLevel] {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

// Insert rests o on the book at its limit price, appending to the back of
// its price level's FIFO queue (time priority within the level).
func (b *Book) Insert(o *Order) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree := b.tree(o.Side)
	lvl, ok := tree.GetMut(&PriceLevel{Price: o.Price})
	if !ok {
		lvl = &PriceLevel{Price: o.Price, Orders: list.New()}
		tree.Set(lvl)
	}
	elem := lvl.Orders.PushBack(o)
	b.byID[o.ID] = &entry{side: o.Side, lvl: lvl, elem: elem}
}

// Cancel removes and returns the order with the given id, deleting its
// price level if it becomes empty. Returns ErrNotFound if the order is not
// resting on the book (already filled or never inserted).
func (b *Book) Cancel(id midentity.OrderId) (*Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	o := e.elem.Value.(*Order)
	b.detach(e)
	return o, nil
}

// RemoveFilled detaches o from its level and the by-ID index once its
// Remaining quantity has reached zero. The matching engine calls this after
// decrementing an order found via Best/Walk — it is the one place a caller
// outside this package mutates book structure in response to a fill.
func (b *Book) RemoveFilled(o *Order) {
	if !o.Filled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.byID[o.ID]
	if !ok {
		return
	}
	b.detach(e)
}

// detach must be called with b.mu held.
func (b *Book) detach(e *entry) {
	o := e.elem.Value.(*Order)
	delete(b.byID, o.ID)
	e.lvl.Orders.Remove(e.elem)
	if e.lvl.Orders.Len() == 0 {
		b.tree(e.side).Delete(e.lvl)
	}
}

// Best returns the top price level on the given side, if any.
func (b *Book) Best(side Side) (*PriceLevel, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tree(side).Min()
}

// Walk visits price levels on the given side in priority order (best
// first), calling cb for each. Walk stops when cb returns false or, if
// limit > 0, after limit levels have been visited.
func (b *Book) Walk(side Side, limit int, cb func(*PriceLevel) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	visited := 0
	b.tree(side).Scan(func(lvl *PriceLevel) bool {
		if limit > 0 && visited >= limit {
			return false
		}
		visited++
		return cb(lvl)
	})
}

// Get looks up a resting order by id without removing it.
func (b *Book) Get(id midentity.OrderId) (*Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.byID[id]
	if !ok {
		return nil, false
	}
	return e.elem.Value.(*Order), true
}

// Len returns the number of resting orders on the given side.
func (b *Book) Len(side Side) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	b.tree(side).Scan(func(lvl *PriceLevel) bool {
		n += lvl.Orders.Len()
		return true
	})
	return n
}
