package exchange

import (
	"github.com/ethereum/go-ethereum/common"
)

// NativeSymbol is the reserved identifier for the native settlement
// currency. It is always a valid symbol and never lives in the registry:
// every trade settles its payment leg in this currency.
const NativeSymbol = "ETH"

// Side of an order relative to the traded asset.
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the side a taker order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Order is a resting limit order. ID is assigned from a global counter
// that is strictly increasing across all orders ever created, so it
// doubles as the time-priority tie-break within a price level.
type Order struct {
	ID     uint64         `json:"id"`
	Trader common.Address `json:"trader"`
	Side   Side           `json:"side"`
	Asset  string         `json:"asset"`
	Price  int64          `json:"price"`  // native units per asset unit
	Amount int64          `json:"amount"` // total asset units
	Filled int64          `json:"filled"` // asset units filled so far
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.Amount - o.Filled
}

// Trade records one match step: an executed transfer of Qty asset units
// at Price between a resting maker order and the taker's market order.
type Trade struct {
	ID        string         `json:"id"`
	Asset     string         `json:"asset"`
	Price     int64          `json:"price"`
	Qty       int64          `json:"qty"`
	TakerSide Side           `json:"takerSide"`
	Buyer     common.Address `json:"buyer"`
	Seller    common.Address `json:"seller"`
	MakerID   uint64         `json:"makerId"` // resting order consumed by this step
	Timestamp int64          `json:"timestamp"` // unix milliseconds
}
