package matching

import (
	"sync"

	"marketcore/mclock"
	"marketcore/mdecimal"
	"marketcore/midentity"
	"marketcore/orderbook"
)

var (
	// DefaultMakerFeeRate and DefaultTakerFeeRate are spec.md §6's default
	// fee schedule: 0.10% maker, 0.20% taker.
	DefaultMakerFeeRate = mdecimal.MustParse("0.0010")
	DefaultTakerFeeRate = mdecimal.MustParse("0.0020")
)

// symbolState pairs one symbol's book with the single mutex that makes an
// entire Submit/Cancel call atomic — per spec.md §5, order books are
// RWMutex-guarded (not channel-actors), and the lock here covers the whole
// match transaction rather than individual book mutations, so a concurrent
// submit on the same symbol can never interleave mid-match.
type symbolState struct {
	mu   sync.Mutex
	book *orderbook.Book
}

// Engine owns one order book per symbol and runs the matching algorithm
// against it.
type Engine struct {
	MakerFeeRate mdecimal.Decimal
	TakerFeeRate mdecimal.Decimal

	mu      sync.RWMutex
	symbols map[string]*symbolState
}

func NewEngine() *Engine {
	return &Engine{
		MakerFeeRate: DefaultMakerFeeRate,
		TakerFeeRate: DefaultTakerFeeRate,
		symbols:      make(map[string]*symbolState),
	}
}

func (e *Engine) stateFor(symbol string) *symbolState {
	e.mu.RLock()
	s, ok := e.symbols[symbol]
	e.mu.RUnlock()
	if ok {
		return s
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.symbols[symbol]; ok {
		return s
	}
	s = &symbolState{book: orderbook.New(symbol)}
	e.symbols[symbol] = s
	return s
}

// Book returns the live order book for a symbol, creating it if needed —
// used by the coordinator for order_book_snapshot.
func (e *Engine) Book(symbol string) *orderbook.Book {
	return e.stateFor(symbol).book
}

// Submit runs spec.md §4.K's algorithm: validate, gate post-only, precheck
// FOK liquidity, match against the crossing side applying STP, then
// resolve the residual per TimeInForce.
func (e *Engine) Submit(req Request) (*Outcome, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	st := e.stateFor(req.Symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	book := st.book

	if req.PostOnly && crosses(book, req) {
		return nil, newErr(PostOnlyWouldMatch, "post-only %s order at %s would cross the book", req.Side, req.Price.String())
	}

	// Only FOK gets a liquidity precheck with book state guaranteed unchanged
	// on rejection (spec.md §7). A Market order has no such precheck: it
	// matches as much as it can and any residual is cancelled in place,
	// keeping whatever trades already executed (spec.md §4.K step 6).
	if req.TimeInForce == FOK {
		if !hasSufficientLiquidity(book, req) {
			return nil, newErr(FillOrKillUnfillable, "insufficient resting liquidity to fill %s %s", req.Quantity.String(), req.Symbol)
		}
	}

	order := &orderbook.Order{
		ID:          midentity.NewOrderId(),
		OwnerID:     req.OwnerID,
		Symbol:      req.Symbol,
		Side:        req.Side,
		Type:        req.Type,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Remaining:   req.Quantity,
		ArrivalTime: mclock.Now(),
	}

	trades, aborted := e.match(book, order, req)

	status := e.resolveResidual(book, order, req, len(trades) > 0, aborted)

	return &Outcome{Order: order, Status: status, Trades: trades}, nil
}

// match consumes the crossing side of the book while order has remaining
// quantity and the top of that side still crosses order's limit (Market
// orders cross at any price). aborted reports whether STP terminated the
// incoming order outright (CancelIncoming/CancelBoth).
func (e *Engine) match(book *orderbook.Book, order *orderbook.Order, req Request) ([]Trade, bool) {
	opposite := order.Side.Opposite()
	var trades []Trade

	for !order.Filled() {
		lvl, ok := book.Best(opposite)
		if !ok || !levelCrosses(lvl, order) {
			return trades, false
		}

		elem := lvl.Orders.Front()
		for elem != nil && !order.Filled() {
			resting := elem.Value.(*orderbook.Order)
			next := elem.Next()

			if req.STP != STPNone && resting.OwnerID != "" && resting.OwnerID == order.OwnerID {
				abort := e.applySTP(book, order, resting, req.STP)
				if abort {
					return trades, true
				}
				elem = next
				continue
			}

			qty := mdecimal.Min(order.Remaining, resting.Remaining)
			order.Remaining = order.Remaining.Sub(qty)
			resting.Remaining = resting.Remaining.Sub(qty)

			trades = append(trades, e.buildTrade(req.Symbol, resting, order, qty))

			if resting.Filled() {
				book.RemoveFilled(resting)
			}
			elem = next
		}
	}
	return trades, false
}

// applySTP handles a same-owner crossing pair per the configured STP
// variant. Returns true if the incoming order must abort matching entirely.
func (e *Engine) applySTP(book *orderbook.Book, incoming, resting *orderbook.Order, stp STP) bool {
	switch stp {
	case CancelResting:
		resting.Remaining = mdecimal.Zero
		book.RemoveFilled(resting)
		return false
	case CancelIncoming:
		incoming.Remaining = mdecimal.Zero
		return true
	case CancelBoth:
		resting.Remaining = mdecimal.Zero
		book.RemoveFilled(resting)
		incoming.Remaining = mdecimal.Zero
		return true
	case CancelSmallest:
		// Ties cancel the incoming order, spec.md §4.K.
		if incoming.Remaining.LessThanOrEqual(resting.Remaining) {
			incoming.Remaining = mdecimal.Zero
			return true
		}
		resting.Remaining = mdecimal.Zero
		book.RemoveFilled(resting)
		return false
	case DecrementBoth:
		qty := mdecimal.Min(incoming.Remaining, resting.Remaining)
		incoming.Remaining = incoming.Remaining.Sub(qty)
		resting.Remaining = resting.Remaining.Sub(qty)
		if resting.Filled() {
			book.RemoveFilled(resting)
		}
		return false
	default:
		return false
	}
}

func (e *Engine) buildTrade(symbol string, maker, taker *orderbook.Order, qty mdecimal.Decimal) Trade {
	price := maker.Price
	notional := price.Mul(qty)
	return Trade{
		ID:           midentity.NewTradeId(),
		Symbol:       symbol,
		Price:        price,
		Quantity:     qty,
		MakerOrderID: maker.ID,
		TakerOrderID: taker.ID,
		MakerOwnerID: maker.OwnerID,
		TakerOwnerID: taker.OwnerID,
		MakerFee:     notional.Mul(e.MakerFeeRate),
		TakerFee:     notional.Mul(e.TakerFeeRate),
		Time:         mclock.Now(),
	}
}

// resolveResidual applies TimeInForce rules to whatever quantity is left
// after matching, resting the order on the book for GTC/Day if appropriate.
func (e *Engine) resolveResidual(book *orderbook.Book, order *orderbook.Order, req Request, matched, aborted bool) Status {
	if order.Filled() {
		return Filled
	}
	if aborted {
		return Cancelled
	}

	// A market order never rests regardless of its configured TimeInForce:
	// any residual is cancelled in place, trades already executed stand.
	if req.Type == orderbook.Market {
		if matched {
			return PartiallyFilled
		}
		return Cancelled
	}

	switch req.TimeInForce {
	case IOC, FOK:
		// The unfilled residual is cancelled; trades already executed stand.
		return Cancelled
	case GTC, Day:
		book.Insert(order)
		if matched {
			return PartiallyFilled
		}
		return New
	default:
		return Rejected
	}
}

// Cancel removes a resting order from its symbol's book.
func (e *Engine) Cancel(symbol string, id midentity.OrderId) (*orderbook.Order, error) {
	st := e.stateFor(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	o, err := st.book.Cancel(id)
	if err != nil {
		return nil, newErr(NotFound, "order %s not resting on %s", id.String(), symbol)
	}
	return o, nil
}

func validate(req Request) error {
	if req.Symbol == "" {
		return newErr(InvalidRequest, "symbol is required")
	}
	if req.Quantity.IsZero() || req.Quantity.IsNegative() {
		return newErr(InvalidRequest, "quantity must be positive")
	}
	if req.Type == orderbook.Limit && (req.Price.IsZero() || req.Price.IsNegative()) {
		return newErr(InvalidRequest, "limit orders require a positive price")
	}
	if req.Type == orderbook.Market && req.PostOnly {
		return newErr(InvalidRequest, "market orders cannot be post-only")
	}
	if req.Type == orderbook.Market && req.TimeInForce == GTC {
		return newErr(InvalidRequest, "market orders cannot be GTC")
	}
	return nil
}

// crosses reports whether req, if inserted as a resting limit order, would
// immediately match against the opposite side's current best.
func crosses(book *orderbook.Book, req Request) bool {
	lvl, ok := book.Best(req.Side.Opposite())
	if !ok {
		return false
	}
	if req.Side == orderbook.Buy {
		return req.Price.GreaterThanOrEqual(lvl.Price)
	}
	return req.Price.LessThanOrEqual(lvl.Price)
}

// levelCrosses reports whether the top-of-book level on the opposite side
// still crosses order's limit (always true for Market orders).
func levelCrosses(lvl *orderbook.PriceLevel, order *orderbook.Order) bool {
	if order.Type == orderbook.Market {
		return true
	}
	if order.Side == orderbook.Buy {
		return order.Price.GreaterThanOrEqual(lvl.Price)
	}
	return order.Price.LessThanOrEqual(lvl.Price)
}

// hasSufficientLiquidity sums resting quantity on the crossing side (at or
// through order's limit for Limit orders, unconditionally for Market) and
// compares it to the requested quantity — the FOK precheck.
func hasSufficientLiquidity(book *orderbook.Book, req Request) bool {
	available := mdecimal.Zero
	book.Walk(req.Side.Opposite(), 0, func(lvl *orderbook.PriceLevel) bool {
		if req.Type == orderbook.Limit {
			if req.Side == orderbook.Buy && lvl.Price.GreaterThan(req.Price) {
				return false
			}
			if req.Side == orderbook.Sell && lvl.Price.LessThan(req.Price) {
				return false
			}
		}
		for el := lvl.Orders.Front(); el != nil; el = el.Next() {
			o := el.Value.(*orderbook.Order)
			available = available.Add(o.Remaining)
		}
		return available.LessThan(req.Quantity)
	})
	return available.GreaterThanOrEqual(req.Quantity)
}
