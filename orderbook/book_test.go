package orderbook

import (
	"testing"

	"marketcore/mclock"
	"marketcore/mdecimal"
	"marketcore/midentity"
)

func mkOrder(side Side, price, qty string) *Order {
	p := mdecimal.MustParse(price)
	q := mdecimal.MustParse(qty)
	return &Order{
		ID:          midentity.NewOrderId(),
		Symbol:      "BTC-USD",
		Side:        side,
		Type:        Limit,
		Price:       p,
		Quantity:    q,
		Remaining:   q,
		ArrivalTime: mclock.Now(),
	}
}

func TestBook_InsertAndBest(t *testing.T) {
	b := New("BTC-USD")
	low := mkOrder(Buy, "100", "1")
	high := mkOrder(Buy, "101", "1")
	b.Insert(low)
	b.Insert(high)

	lvl, ok := b.Best(Buy)
	if !ok {
		t.Fatal("expected a best bid")
	}
	if !lvl.Price.Equal(mdecimal.MustParse("101")) {
		t.Fatalf("best bid = %s, want 101 (highest price first)", lvl.Price.String())
	}
}

func TestBook_AsksOrderedAscending(t *testing.T) {
	b := New("BTC-USD")
	b.Insert(mkOrder(Sell, "105", "1"))
	b.Insert(mkOrder(Sell, "102", "1"))

	lvl, ok := b.Best(Sell)
	if !ok {
		t.Fatal("expected a best ask")
	}
	if !lvl.Price.Equal(mdecimal.MustParse("102")) {
		t.Fatalf("best ask = %s, want 102 (lowest price first)", lvl.Price.String())
	}
}

func TestBook_FIFOWithinLevel(t *testing.T) {
	b := New("BTC-USD")
	first := mkOrder(Buy, "100", "1")
	second := mkOrder(Buy, "100", "1")
	b.Insert(first)
	b.Insert(second)

	lvl, _ := b.Best(Buy)
	if lvl.Orders.Len() != 2 {
		t.Fatalf("expected 2 orders at the level, got %d", lvl.Orders.Len())
	}
	front := lvl.Orders.Front().Value.(*Order)
	if front.ID != first.ID {
		t.Fatal("expected time priority: first-inserted order at the front")
	}
}

func TestBook_CancelRemovesFromIndexAndLevel(t *testing.T) {
	b := New("BTC-USD")
	o := mkOrder(Buy, "100", "1")
	b.Insert(o)

	got, err := b.Cancel(o.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.ID != o.ID {
		t.Fatal("Cancel returned the wrong order")
	}
	if _, ok := b.Get(o.ID); ok {
		t.Fatal("order should no longer be indexed after cancel")
	}
	if _, ok := b.Best(Buy); ok {
		t.Fatal("price level should be deleted once its last order is cancelled")
	}
}

func TestBook_CancelNotFound(t *testing.T) {
	b := New("BTC-USD")
	_, err := b.Cancel(midentity.NewOrderId())
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBook_RemoveFilledPurgesTerminalOrder(t *testing.T) {
	b := New("BTC-USD")
	o := mkOrder(Buy, "100", "1")
	b.Insert(o)

	o.Remaining = mdecimal.Zero
	b.RemoveFilled(o)

	if _, ok := b.Get(o.ID); ok {
		t.Fatal("a filled order must not remain referenced by the by-id index")
	}
	if _, ok := b.Best(Buy); ok {
		t.Fatal("level should be empty and removed after its only order filled")
	}
}

func TestBook_WalkRespectsLimitAndOrder(t *testing.T) {
	b := New("BTC-USD")
	b.Insert(mkOrder(Buy, "100", "1"))
	b.Insert(mkOrder(Buy, "101", "1"))
	b.Insert(mkOrder(Buy, "99", "1"))

	var seen []string
	b.Walk(Buy, 2, func(lvl *PriceLevel) bool {
		seen = append(seen, lvl.Price.String())
		return true
	})

	if len(seen) != 2 {
		t.Fatalf("expected walk to stop at limit=2, saw %d levels", len(seen))
	}
	if seen[0] != "101" || seen[1] != "100" {
		t.Fatalf("expected best-first order [101 100], got %v", seen)
	}
}
