package exchange

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func addr(n byte) common.Address {
	var a common.Address
	a[19] = n
	return a
}

func mkOrder(id uint64, side Side, price, amount int64) *Order {
	return &Order{ID: id, Trader: addr(1), Side: side, Asset: "LINK", Price: price, Amount: amount}
}

func prices(orders []Order) []int64 {
	out := make([]int64, len(orders))
	for i, o := range orders {
		out[i] = o.Price
	}
	return out
}

func TestOrderBook_InsertKeepsPriceOrder(t *testing.T) {
	tests := []struct {
		name     string
		side     Side
		inserted []int64
		want     []int64
	}{
		{"bids descending", Buy, []int64{5, 9, 1, 7, 3}, []int64{9, 7, 5, 3, 1}},
		{"asks ascending", Sell, []int64{5, 9, 1, 7, 3}, []int64{1, 3, 5, 7, 9}},
		{"bids already sorted", Buy, []int64{9, 7, 5}, []int64{9, 7, 5}},
		{"asks reverse input", Sell, []int64{9, 7, 5}, []int64{5, 7, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewOrderBook("LINK")
			for i, p := range tt.inserted {
				b.Insert(mkOrder(uint64(i+1), tt.side, p, 10))
			}
			got := prices(b.Snapshot(tt.side))
			if len(got) != len(tt.want) {
				t.Fatalf("depth = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("position %d: price %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestOrderBook_TieBreakByID(t *testing.T) {
	b := NewOrderBook("LINK")
	// Same price, inserted newest-ID first. Oldest ID must win priority.
	b.Insert(mkOrder(3, Sell, 100, 10))
	b.Insert(mkOrder(1, Sell, 100, 10))
	b.Insert(mkOrder(2, Sell, 100, 10))

	snap := b.Snapshot(Sell)
	wantIDs := []uint64{1, 2, 3}
	for i, want := range wantIDs {
		if snap[i].ID != want {
			t.Errorf("position %d: id %d, want %d", i, snap[i].ID, want)
		}
	}
}

func TestOrderBook_PeekAndRemoveBest(t *testing.T) {
	b := NewOrderBook("LINK")
	if b.PeekBest(Buy) != nil {
		t.Fatal("PeekBest on empty side should be nil")
	}

	b.Insert(mkOrder(1, Buy, 10, 5))
	b.Insert(mkOrder(2, Buy, 20, 5))

	if best := b.PeekBest(Buy); best == nil || best.Price != 20 {
		t.Fatalf("best bid = %+v, want price 20", best)
	}
	b.RemoveBest(Buy)
	if best := b.PeekBest(Buy); best == nil || best.Price != 10 {
		t.Fatalf("best bid after removal = %+v, want price 10", best)
	}
	b.RemoveBest(Buy)
	if b.Depth(Buy) != 0 {
		t.Fatalf("depth = %d, want 0", b.Depth(Buy))
	}
}

func TestOrderBook_SidesAreIndependent(t *testing.T) {
	b := NewOrderBook("LINK")
	b.Insert(mkOrder(1, Buy, 10, 5))
	b.Insert(mkOrder(2, Sell, 12, 5))

	if b.Depth(Buy) != 1 || b.Depth(Sell) != 1 {
		t.Fatalf("depths = %d/%d, want 1/1", b.Depth(Buy), b.Depth(Sell))
	}
	b.RemoveBest(Buy)
	if b.Depth(Sell) != 1 {
		t.Fatal("removing a bid must not touch the asks")
	}
}

func TestOrderBook_SnapshotIsACopy(t *testing.T) {
	b := NewOrderBook("LINK")
	b.Insert(mkOrder(1, Sell, 10, 5))

	snap := b.Snapshot(Sell)
	snap[0].Filled = 5

	if b.PeekBest(Sell).Filled != 0 {
		t.Fatal("mutating a snapshot must not touch the resting order")
	}
}
