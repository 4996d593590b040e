package exchange

import "sort"

// OrderBook holds the resting limit orders of one asset, one ordered
// slice per side. Invariant: bids are sorted by price descending, asks
// by price ascending, ties broken by order ID ascending (oldest first),
// so index 0 is always the most competitive order.
//
// The array-backed design keeps insertion O(n); expected book depths
// make that acceptable and keep removal of the best order trivial.
type OrderBook struct {
	Asset string
	bids  []*Order
	asks  []*Order
}

// NewOrderBook creates an empty book for one asset.
func NewOrderBook(asset string) *OrderBook {
	return &OrderBook{Asset: asset}
}

// side returns the slice pointer for one side.
func (b *OrderBook) side(s Side) *[]*Order {
	if s == Buy {
		return &b.bids
	}
	return &b.asks
}

// before reports whether x sorts ahead of y on side s.
func before(s Side, x, y *Order) bool {
	if x.Price != y.Price {
		if s == Buy {
			return x.Price > y.Price
		}
		return x.Price < y.Price
	}
	return x.ID < y.ID
}

// Insert places o at the position preserving the side's sort invariant.
func (b *OrderBook) Insert(o *Order) {
	side := b.side(o.Side)
	i := sort.Search(len(*side), func(i int) bool {
		return before(o.Side, o, (*side)[i])
	})
	*side = append(*side, nil)
	copy((*side)[i+1:], (*side)[i:])
	(*side)[i] = o
}

// orders exposes one side's live slice to the matching engine for its
// plan-then-commit walk. Callers must not reorder it.
func (b *OrderBook) orders(s Side) []*Order {
	return *b.side(s)
}

// PeekBest returns the most competitive resting order on side s, or nil
// if that side is empty.
func (b *OrderBook) PeekBest(s Side) *Order {
	side := *b.side(s)
	if len(side) == 0 {
		return nil
	}
	return side[0]
}

// RemoveBest removes the order at position 0. Calling it on an empty
// side is a programmer error.
func (b *OrderBook) RemoveBest(s Side) {
	side := b.side(s)
	if len(*side) == 0 {
		panic("orderbook: RemoveBest on empty side")
	}
	*side = (*side)[1:]
}

// Depth returns the number of resting orders on side s.
func (b *OrderBook) Depth(s Side) int {
	return len(*b.side(s))
}

// Snapshot returns a copy of side s in book order. Mutating the copies
// does not touch the resting orders.
func (b *OrderBook) Snapshot(s Side) []Order {
	side := *b.side(s)
	out := make([]Order, len(side))
	for i, o := range side {
		out[i] = *o
	}
	return out
}
