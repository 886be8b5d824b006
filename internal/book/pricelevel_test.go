package book

import (
	"testing"

	"clobengine/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestPriceLevel_PushBackAggregatesQuantity(t *testing.T) {
	level := newPriceLevel(100)
	level.pushBack(&domain.Order{ID: 1, Quantity: 5})
	level.pushBack(&domain.Order{ID: 2, Quantity: 7})

	assert.Equal(t, domain.Qty(12), level.Quantity)
	assert.Equal(t, 2, level.len())
}

func TestPriceLevel_FrontIsFIFO(t *testing.T) {
	level := newPriceLevel(100)
	level.pushBack(&domain.Order{ID: 1, Quantity: 5})
	level.pushBack(&domain.Order{ID: 2, Quantity: 7})

	assert.Equal(t, domain.OrderId(1), level.front().ID)
	level.popFront()
	assert.Equal(t, domain.OrderId(2), level.front().ID)
	level.popFront()
	assert.Nil(t, level.front())
	assert.True(t, level.empty())
}

func TestPriceLevel_RemoveByIDMidQueue(t *testing.T) {
	level := newPriceLevel(100)
	level.pushBack(&domain.Order{ID: 1, Quantity: 5})
	level.pushBack(&domain.Order{ID: 2, Quantity: 7})
	level.pushBack(&domain.Order{ID: 3, Quantity: 3})

	removed, ok := level.removeByID(2)
	assert.True(t, ok)
	assert.Equal(t, domain.OrderId(2), removed.ID)
	assert.Equal(t, domain.Qty(8), level.Quantity)
	assert.Equal(t, 2, level.len())
	assert.Equal(t, []domain.OrderId{1, 3}, idsOf(level))
}

func TestPriceLevel_RemoveByIDUnknown(t *testing.T) {
	level := newPriceLevel(100)
	level.pushBack(&domain.Order{ID: 1, Quantity: 5})

	_, ok := level.removeByID(99)
	assert.False(t, ok)
	assert.Equal(t, domain.Qty(5), level.Quantity)
}

func idsOf(level *PriceLevel) []domain.OrderId {
	var ids []domain.OrderId
	for _, o := range level.ordersView() {
		ids = append(ids, o.ID)
	}
	return ids
}
