package book

import "clobengine/internal/domain"

// matchInto executes a taker order against the opposite side under
// price-time priority, appending trades to trades in the order produced.
// It never blocks, never allocates beyond growing *trades, and never
// returns an error: once the preconditions in SubmitLimitInto/SubmitMarketInto
// are satisfied, matching itself cannot fail.
//
// For a limit taker (isLimit), matching stops at the first opposite price
// that is not crossable; equality does cross. For a market taker, matching
// continues until qty is exhausted or the opposite side empties — any
// remainder is left on taker.Quantity for the caller to drop.
func (b *Book) matchInto(taker *domain.Order, isLimit bool, trades *[]domain.Trade) {
	oppTree := b.oppositeTreeFor(taker.Side)

	for taker.Quantity > 0 {
		level, ok := oppTree.Min()
		if !ok {
			break
		}

		if isLimit && !crossable(taker.Side, taker.Price, level.Price) {
			break
		}

		maker := level.front()
		if maker == nil {
			// Invariant (I1) forbids an empty level; should be unreachable.
			oppTree.Delete(level)
			continue
		}

		fill := taker.Quantity
		if maker.Quantity < fill {
			fill = maker.Quantity
		}

		*trades = append(*trades, domain.Trade{
			TakerID: taker.ID,
			MakerID: maker.ID,
			Price:   maker.Price,
			Qty:     fill,
		})

		taker.Quantity -= fill
		maker.Quantity -= fill
		level.Quantity -= fill

		if maker.Quantity == 0 {
			level.popFront()
			delete(b.index, maker.ID)
			if level.empty() {
				oppTree.Delete(level)
			}
		}
	}
}

// crossable reports whether a taker on the given side at price crosses the
// best opposite price levelPrice. A buy taker requires levelPrice <= price;
// a sell taker requires levelPrice >= price. Equality crosses.
func crossable(side domain.Side, price, levelPrice domain.Price) bool {
	if side == domain.Buy {
		return levelPrice <= price
	}
	return levelPrice >= price
}
