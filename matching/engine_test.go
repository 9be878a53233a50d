package matching

import (
	"testing"

	"marketcore/mclock"
	"marketcore/mdecimal"
	"marketcore/midentity"
	"marketcore/orderbook"
)

func restingSell(b *orderbook.Book, owner, price, qty string) *orderbook.Order {
	o := &orderbook.Order{
		ID:          midentity.NewOrderId(),
		OwnerID:     owner,
		Symbol:      b.Symbol,
		Side:        orderbook.Sell,
		Type:        orderbook.Limit,
		Price:       mdecimal.MustParse(price),
		Quantity:    mdecimal.MustParse(qty),
		Remaining:   mdecimal.MustParse(qty),
		ArrivalTime: mclock.Now(),
	}
	b.Insert(o)
	return o
}

// Scenario 1: Crossed limit.
func TestSubmit_CrossedLimit(t *testing.T) {
	e := NewEngine()
	s1 := restingSell(e.Book("BTC-USD"), "A", "2000", "10")

	out, err := e.Submit(Request{
		OwnerID: "B", Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Limit,
		Price: mdecimal.MustParse("2000"), Quantity: mdecimal.MustParse("5"), TimeInForce: GTC,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(out.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(out.Trades))
	}
	tr := out.Trades[0]
	if !tr.Price.Equal(mdecimal.MustParse("2000")) || !tr.Quantity.Equal(mdecimal.MustParse("5")) {
		t.Fatalf("unexpected trade %+v", tr)
	}
	if tr.MakerOrderID != s1.ID {
		t.Fatal("expected S1 as maker")
	}
	if out.Status != Filled {
		t.Fatalf("expected Filled, got %s", out.Status)
	}

	resting, ok := e.Book("BTC-USD").Get(s1.ID)
	if !ok {
		t.Fatal("S1 should still be resting")
	}
	if !resting.Remaining.Equal(mdecimal.MustParse("5")) {
		t.Fatalf("S1.remaining = %s, want 5", resting.Remaining.String())
	}
}

// Scenario 2: FOK unfillable.
func TestSubmit_FOKUnfillable(t *testing.T) {
	e := NewEngine()
	restingSell(e.Book("BTC-USD"), "A", "2000", "3")

	out, err := e.Submit(Request{
		OwnerID: "B", Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Limit,
		Price: mdecimal.MustParse("2000"), Quantity: mdecimal.MustParse("5"), TimeInForce: FOK,
	})
	if out != nil {
		t.Fatal("expected no outcome on FOK rejection")
	}
	merr, ok := err.(*Error)
	if !ok || merr.Kind != FillOrKillUnfillable {
		t.Fatalf("expected FillOrKillUnfillable, got %v", err)
	}
	if e.Book("BTC-USD").Len(orderbook.Sell) != 1 {
		t.Fatal("book must be unchanged after a rejected FOK")
	}
}

// Scenario 3: IOC partial.
func TestSubmit_IOCPartial(t *testing.T) {
	e := NewEngine()
	restingSell(e.Book("BTC-USD"), "A", "2000", "3")

	out, err := e.Submit(Request{
		OwnerID: "B", Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Limit,
		Price: mdecimal.MustParse("2000"), Quantity: mdecimal.MustParse("5"), TimeInForce: IOC,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(out.Trades) != 1 || !out.Trades[0].Quantity.Equal(mdecimal.MustParse("3")) {
		t.Fatalf("expected one trade of qty 3, got %+v", out.Trades)
	}
	if out.Status != Cancelled {
		t.Fatalf("expected Cancelled (residual cancelled), got %s", out.Status)
	}
	if e.Book("BTC-USD").Len(orderbook.Sell) != 0 {
		t.Fatal("sell side should be empty")
	}
	if _, ok := e.Book("BTC-USD").Get(out.Order.ID); ok {
		t.Fatal("a cancelled incoming order must not rest on the book")
	}
}

// Scenario 4: Post-only would match.
func TestSubmit_PostOnlyWouldMatch(t *testing.T) {
	e := NewEngine()
	restingSell(e.Book("BTC-USD"), "A", "2000", "1")

	out, err := e.Submit(Request{
		OwnerID: "B", Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Limit,
		Price: mdecimal.MustParse("2000"), Quantity: mdecimal.MustParse("1"), TimeInForce: GTC, PostOnly: true,
	})
	if out != nil {
		t.Fatal("expected no outcome on post-only rejection")
	}
	merr, ok := err.(*Error)
	if !ok || merr.Kind != PostOnlyWouldMatch {
		t.Fatalf("expected PostOnlyWouldMatch, got %v", err)
	}
	if e.Book("BTC-USD").Len(orderbook.Sell) != 1 {
		t.Fatal("book must be unchanged after a rejected post-only order")
	}
}

// Scenario 5: STP CancelResting.
func TestSubmit_STPCancelResting(t *testing.T) {
	e := NewEngine()
	s1 := restingSell(e.Book("BTC-USD"), "A", "2000", "10")

	out, err := e.Submit(Request{
		OwnerID: "A", Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Limit,
		Price: mdecimal.MustParse("2000"), Quantity: mdecimal.MustParse("5"), TimeInForce: GTC, STP: CancelResting,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(out.Trades) != 0 {
		t.Fatalf("expected zero trades, got %d", len(out.Trades))
	}
	if _, ok := e.Book("BTC-USD").Get(s1.ID); ok {
		t.Fatal("S1 should have been removed by STP CancelResting")
	}
	if out.Status != New {
		t.Fatalf("expected New (placed, no fill), got %s", out.Status)
	}
	resting, ok := e.Book("BTC-USD").Get(out.Order.ID)
	if !ok {
		t.Fatal("incoming order should rest as a bid")
	}
	if resting.Side != orderbook.Buy || !resting.Remaining.Equal(mdecimal.MustParse("5")) {
		t.Fatalf("unexpected resting order %+v", resting)
	}
}

// Scenario 6: Market sweeps two levels.
func TestSubmit_MarketSweepsTwoLevels(t *testing.T) {
	e := NewEngine()
	s1 := restingSell(e.Book("BTC-USD"), "A", "2000", "1")
	s2 := restingSell(e.Book("BTC-USD"), "A", "2001", "2")

	out, err := e.Submit(Request{
		OwnerID: "B", Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Market,
		Quantity: mdecimal.MustParse("3"), TimeInForce: IOC,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(out.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(out.Trades))
	}
	if !out.Trades[0].Price.Equal(mdecimal.MustParse("2000")) || !out.Trades[0].Quantity.Equal(mdecimal.MustParse("1")) {
		t.Fatalf("first trade = %+v, want price 2000 qty 1", out.Trades[0])
	}
	if !out.Trades[1].Price.Equal(mdecimal.MustParse("2001")) || !out.Trades[1].Quantity.Equal(mdecimal.MustParse("2")) {
		t.Fatalf("second trade = %+v, want price 2001 qty 2", out.Trades[1])
	}
	if out.Status != Filled {
		t.Fatalf("expected Filled, got %s", out.Status)
	}
	if _, ok := e.Book("BTC-USD").Get(s1.ID); ok {
		t.Fatal("S1 should be fully removed")
	}
	if _, ok := e.Book("BTC-USD").Get(s2.ID); ok {
		t.Fatal("S2 should be fully removed")
	}
}

// P1: conservation of quantity across trades + residual.
func TestSubmit_P1ConservationOfQuantity(t *testing.T) {
	e := NewEngine()
	restingSell(e.Book("BTC-USD"), "A", "2000", "3")

	out, err := e.Submit(Request{
		OwnerID: "B", Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Limit,
		Price: mdecimal.MustParse("2000"), Quantity: mdecimal.MustParse("5"), TimeInForce: IOC,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	traded := mdecimal.Zero
	for _, tr := range out.Trades {
		traded = traded.Add(tr.Quantity)
	}
	residual := out.Order.Remaining
	total := traded.Add(residual)
	if !total.Equal(mdecimal.MustParse("5")) {
		t.Fatalf("traded(%s) + residual(%s) = %s, want 5", traded.String(), residual.String(), total.String())
	}
}

// P2: maker price priority — every trade executes at the maker's price.
func TestSubmit_P2MakerPricePriority(t *testing.T) {
	e := NewEngine()
	restingSell(e.Book("BTC-USD"), "A", "1999", "5")

	out, err := e.Submit(Request{
		OwnerID: "B", Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Limit,
		Price: mdecimal.MustParse("2000"), Quantity: mdecimal.MustParse("5"), TimeInForce: GTC,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(out.Trades) != 1 || !out.Trades[0].Price.Equal(mdecimal.MustParse("1999")) {
		t.Fatalf("trade should execute at maker's price 1999, got %+v", out.Trades)
	}
}

// P3: time priority within a price level.
func TestSubmit_P3TimePriorityWithinLevel(t *testing.T) {
	e := NewEngine()
	book := e.Book("BTC-USD")
	first := restingSell(book, "A", "2000", "2")
	second := restingSell(book, "A", "2000", "2")

	out, err := e.Submit(Request{
		OwnerID: "B", Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Limit,
		Price: mdecimal.MustParse("2000"), Quantity: mdecimal.MustParse("2"), TimeInForce: GTC,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(out.Trades) != 1 || out.Trades[0].MakerOrderID != first.ID {
		t.Fatalf("expected the earlier-arrived order to be consumed first, got maker=%v want=%v", out.Trades[0].MakerOrderID, first.ID)
	}
	if _, ok := book.Get(second.ID); !ok {
		t.Fatal("the later order should still be resting untouched")
	}
}

// P4: no self-trade under STP=CancelResting.
func TestSubmit_P4NoSelfTradeUnderCancelResting(t *testing.T) {
	e := NewEngine()
	restingSell(e.Book("BTC-USD"), "A", "2000", "5")

	out, err := e.Submit(Request{
		OwnerID: "A", Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Limit,
		Price: mdecimal.MustParse("2000"), Quantity: mdecimal.MustParse("5"), TimeInForce: GTC, STP: CancelResting,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for _, tr := range out.Trades {
		if tr.MakerOwnerID == tr.TakerOwnerID {
			t.Fatalf("self-trade recorded under CancelResting: %+v", tr)
		}
	}
}

func TestSubmit_InvalidRequestRejectsNonPositiveQuantity(t *testing.T) {
	e := NewEngine()
	_, err := e.Submit(Request{
		Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Limit,
		Price: mdecimal.MustParse("2000"), Quantity: mdecimal.Zero, TimeInForce: GTC,
	})
	merr, ok := err.(*Error)
	if !ok || merr.Kind != InvalidRequest {
		t.Fatalf("expected InvalidRequest, got %v", err)
	}
}

func TestSubmit_FeesComputedPerTrade(t *testing.T) {
	e := NewEngine()
	restingSell(e.Book("BTC-USD"), "A", "2000", "5")

	out, err := e.Submit(Request{
		OwnerID: "B", Symbol: "BTC-USD", Side: orderbook.Buy, Type: orderbook.Limit,
		Price: mdecimal.MustParse("2000"), Quantity: mdecimal.MustParse("5"), TimeInForce: GTC,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	tr := out.Trades[0]
	notional := tr.Price.Mul(tr.Quantity)
	wantMaker := notional.Mul(e.MakerFeeRate)
	wantTaker := notional.Mul(e.TakerFeeRate)
	if !tr.MakerFee.Equal(wantMaker) {
		t.Fatalf("maker fee = %s, want %s", tr.MakerFee.String(), wantMaker.String())
	}
	if !tr.TakerFee.Equal(wantTaker) {
		t.Fatalf("taker fee = %s, want %s", tr.TakerFee.String(), wantTaker.String())
	}
}

func TestCancel_RemovesRestingOrder(t *testing.T) {
	e := NewEngine()
	s1 := restingSell(e.Book("BTC-USD"), "A", "2000", "5")

	got, err := e.Cancel("BTC-USD", s1.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.ID != s1.ID {
		t.Fatal("Cancel returned the wrong order")
	}
	if _, ok := e.Book("BTC-USD").Get(s1.ID); ok {
		t.Fatal("order should no longer be on the book")
	}
}

func TestCancel_NotFound(t *testing.T) {
	e := NewEngine()
	_, err := e.Cancel("BTC-USD", midentity.NewOrderId())
	merr, ok := err.(*Error)
	if !ok || merr.Kind != NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
