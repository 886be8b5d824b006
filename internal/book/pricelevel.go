package book

import "clobengine/internal/domain"

// PriceLevel is a FIFO queue of resting orders at a single price, plus the
// cached sum of their remaining quantities. A level is created on first
// insertion at that price and destroyed the moment it becomes empty — the
// owning Book enforces that half of the invariant.
type PriceLevel struct {
	Price    domain.Price
	orders   []*domain.Order
	Quantity domain.Qty // sum(order.Quantity), invariant: > 0 while the level exists
}

func newPriceLevel(price domain.Price) *PriceLevel {
	return &PriceLevel{Price: price}
}

// pushBack appends an order to the tail of the FIFO queue.
func (pl *PriceLevel) pushBack(o *domain.Order) {
	pl.orders = append(pl.orders, o)
	pl.Quantity += o.Quantity
}

// front returns the head of the queue for matching, or nil if empty.
func (pl *PriceLevel) front() *domain.Order {
	if len(pl.orders) == 0 {
		return nil
	}
	return pl.orders[0]
}

// popFront removes a fully-consumed head order.
func (pl *PriceLevel) popFront() {
	if len(pl.orders) == 0 {
		return
	}
	pl.orders = pl.orders[1:]
}

// removeByID removes an order anywhere in the queue. O(k) linear scan, k =
// orders resting at this price — acceptable per the FIFO queue contract.
func (pl *PriceLevel) removeByID(id domain.OrderId) (*domain.Order, bool) {
	for i, o := range pl.orders {
		if o.ID != id {
			continue
		}
		pl.Quantity -= o.Quantity
		pl.orders = append(pl.orders[:i], pl.orders[i+1:]...)
		return o, true
	}
	return nil, false
}

// len reports the number of resting orders at this price level.
func (pl *PriceLevel) len() int {
	return len(pl.orders)
}

// empty reports whether the level has no resting orders left.
func (pl *PriceLevel) empty() bool {
	return len(pl.orders) == 0
}

// ordersView returns the resting orders in FIFO order, for read-only
// inspection (tests). Callers must not mutate it.
func (pl *PriceLevel) ordersView() []*domain.Order {
	return pl.orders
}
