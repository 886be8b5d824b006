// Package book implements a single-instrument continuous limit order book
// under price-time priority (FIFO), its matching kernel, and the batch
// command processor that drives it. A Book is not safe for concurrent use;
// callers serialize access to one Book per instrument (see internal/ingest).
package book

import (
	"clobengine/internal/domain"

	"github.com/tidwall/btree"
)

// locator is the id index's weak reference to a resting order: enough to
// find its price level, never ownership of the order itself.
type locator struct {
	side  domain.Side
	price domain.Price
}

// PriceLevelView is a read-only snapshot of one price level, returned by
// BestBid/BestAsk/TopN.
type PriceLevelView struct {
	Price domain.Price
	Qty   domain.Qty
}

// Book holds one instrument: two price-indexed ordered trees of price
// levels (bids descending, asks ascending), an order-id index for cancel,
// and the monotonic local order-id counter.
//
// Invariants maintained by every mutating method:
//
//	(I1) no price level is empty (it is deleted the instant it empties)
//	(I2) every id in the index resolves to exactly one live order
//	(I3) best bid price < best ask price whenever both sides are non-empty
//	(I4) no two orders share an id
type Book struct {
	bids  *btree.BTreeG[*PriceLevel] // iteration yields highest price first
	asks  *btree.BTreeG[*PriceLevel] // iteration yields lowest price first
	index map[domain.OrderId]locator

	nextID domain.OrderId
}

// New creates an empty book.
func New() *Book {
	return &Book{
		bids: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price > b.Price // higher is better for bids
		}),
		asks: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price < b.Price // lower is better for asks
		}),
		index: make(map[domain.OrderId]locator),
	}
}

func (b *Book) treeFor(side domain.Side) *btree.BTreeG[*PriceLevel] {
	if side == domain.Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) oppositeTreeFor(side domain.Side) *btree.BTreeG[*PriceLevel] {
	if side == domain.Buy {
		return b.asks
	}
	return b.bids
}

// SubmitLimit submits a new limit order, matching it against the opposite
// side under price-time priority and resting any residual at the tail of
// its price level. Returns the assigned id, the trades produced, and the
// unfilled remainder (0 if fully filled).
func (b *Book) SubmitLimit(side domain.Side, price domain.Price, qty domain.Qty) (domain.OrderId, []domain.Trade, domain.Qty, error) {
	var trades []domain.Trade
	id, remaining, err := b.SubmitLimitInto(side, price, qty, &trades)
	return id, trades, remaining, err
}

// SubmitLimitInto behaves identically to SubmitLimit but appends trades to
// a caller-owned buffer instead of allocating a new slice, for use on a
// long-running worker's hot path.
func (b *Book) SubmitLimitInto(side domain.Side, price domain.Price, qty domain.Qty, trades *[]domain.Trade) (domain.OrderId, domain.Qty, error) {
	if qty == 0 {
		return 0, 0, domain.ErrInvalidQty
	}
	if price <= 0 {
		return 0, 0, domain.ErrInvalidPrice
	}

	id := b.allocID()
	taker := &domain.Order{ID: id, Side: side, Price: price, Quantity: qty}
	b.matchInto(taker, true, trades)

	if taker.Quantity > 0 {
		b.restOrder(taker)
	}
	return id, taker.Quantity, nil
}

// SubmitMarket submits a market order, matching it against the opposite
// side until either qty is exhausted or the opposite side is empty. Any
// unfilled remainder is dropped — a market order never rests.
func (b *Book) SubmitMarket(side domain.Side, qty domain.Qty) (domain.OrderId, []domain.Trade, domain.Qty, error) {
	var trades []domain.Trade
	id, remaining, err := b.SubmitMarketInto(side, qty, &trades)
	return id, trades, remaining, err
}

// SubmitMarketInto is the zero-allocation variant of SubmitMarket.
func (b *Book) SubmitMarketInto(side domain.Side, qty domain.Qty, trades *[]domain.Trade) (domain.OrderId, domain.Qty, error) {
	if qty == 0 {
		return 0, 0, domain.ErrInvalidQty
	}

	id := b.allocID()
	taker := &domain.Order{ID: id, Side: side, Quantity: qty}
	b.matchInto(taker, false, trades)

	// Any remainder is dropped: a market order never rests.
	return id, taker.Quantity, nil
}

// Cancel removes a resting order from its price level and the id index. If
// the level becomes empty it is dropped too. Returns ErrUnknownOrder if id
// is not currently resting.
func (b *Book) Cancel(id domain.OrderId) (*domain.Order, error) {
	loc, ok := b.index[id]
	if !ok {
		return nil, domain.ErrUnknownOrder
	}

	tree := b.treeFor(loc.side)
	level, ok := tree.Get(&PriceLevel{Price: loc.price})
	if !ok {
		// Index and tree disagree — should be unreachable if invariants hold.
		delete(b.index, id)
		return nil, domain.ErrUnknownOrder
	}

	order, ok := level.removeByID(id)
	if !ok {
		delete(b.index, id)
		return nil, domain.ErrUnknownOrder
	}
	delete(b.index, id)

	if level.empty() {
		tree.Delete(level)
	}
	return order, nil
}

// BestBid returns the highest bid price and its aggregate resting quantity.
func (b *Book) BestBid() (PriceLevelView, bool) {
	return bestOf(b.bids)
}

// BestAsk returns the lowest ask price and its aggregate resting quantity.
func (b *Book) BestAsk() (PriceLevelView, bool) {
	return bestOf(b.asks)
}

func bestOf(tree *btree.BTreeG[*PriceLevel]) (PriceLevelView, bool) {
	level, ok := tree.Min()
	if !ok {
		return PriceLevelView{}, false
	}
	return PriceLevelView{Price: level.Price, Qty: level.Quantity}, true
}

// TopN returns up to n price levels on the given side, in priority order.
func (b *Book) TopN(side domain.Side, n int) []PriceLevelView {
	if n <= 0 {
		return nil
	}
	tree := b.treeFor(side)
	items := tree.Items()
	if n > len(items) {
		n = len(items)
	}
	out := make([]PriceLevelView, n)
	for i := 0; i < n; i++ {
		out[i] = PriceLevelView{Price: items[i].Price, Qty: items[i].Quantity}
	}
	return out
}

// restOrder inserts the residual quantity of a partially (or un-)filled
// limit order at the tail of its price level's FIFO queue, creating the
// level if this is its first order.
func (b *Book) restOrder(order *domain.Order) {
	tree := b.treeFor(order.Side)
	level, ok := tree.Get(&PriceLevel{Price: order.Price})
	if !ok {
		level = newPriceLevel(order.Price)
		tree.Set(level)
	}
	level.pushBack(order)
	b.index[order.ID] = locator{side: order.Side, price: order.Price}
}

func (b *Book) allocID() domain.OrderId {
	b.nextID++
	return b.nextID
}
