package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Pebble key schema. Prefix-based so that all balances of an account and
// all trades of an asset are contiguous ranges; trade keys embed a
// zero-padded timestamp for lexicographic time ordering.
const (
	prefixBalance = "bal:"
	prefixTrade   = "trade:"
)

// balanceKey formats "bal:{address}:{symbol}".
func balanceKey(addr common.Address, symbol string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixBalance, addr.Hex(), symbol))
}

// balancePrefix formats "bal:{address}:" for range scans over one account.
func balancePrefix(addr common.Address) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixBalance, addr.Hex()))
}

// tradeKey formats "trade:{asset}:{timestamp}:{tradeID}".
func tradeKey(asset string, timestamp int64, tradeID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", prefixTrade, asset, timestamp, tradeID))
}

// tradePrefix formats "trade:{asset}:" for range scans over one asset.
func tradePrefix(asset string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixTrade, asset))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan by
// incrementing the last byte of the prefix.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
