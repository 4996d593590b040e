// Package storage provides pebble-backed persistence for ledger balances
// and trade history. All writes go through the exchange's serialization,
// so the store itself needs no locking.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

// BalanceRecord is the persisted form of a single (account, symbol)
// ledger entry.
type BalanceRecord struct {
	Address common.Address `json:"address"`
	Symbol  string         `json:"symbol"`
	Amount  int64          `json:"amount"`
}

// TradeRecord is the persisted form of one executed match step.
type TradeRecord struct {
	ID        string         `json:"id"`
	Asset     string         `json:"asset"`
	Price     int64          `json:"price"`
	Qty       int64          `json:"qty"`
	TakerSide string         `json:"takerSide"`
	Buyer     common.Address `json:"buyer"`
	Seller    common.Address `json:"seller"`
	MakerID   uint64         `json:"makerId"`
	Timestamp int64          `json:"timestamp"`
}

// Store wraps a pebble database holding balances and trades.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(64 << 20),
		MemTableSize: 32 << 20,
		MaxOpenFiles: 1000,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBalance writes one balance record synchronously. Balances are the
// solvency source of truth, so they always sync.
func (s *Store) SaveBalance(rec BalanceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal balance: %w", err)
	}
	if err := s.db.Set(balanceKey(rec.Address, rec.Symbol), data, pebble.Sync); err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

// LoadBalances returns all persisted balance records for an account.
// Returns an empty slice for unknown accounts.
func (s *Store) LoadBalances(addr common.Address) ([]BalanceRecord, error) {
	prefix := balancePrefix(addr)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("balance iterator: %w", err)
	}
	defer iter.Close()

	var recs []BalanceRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var rec BalanceRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // skip corrupt entries
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// SaveTrade appends one trade record. Trades are history, not solvency
// state, so they use NoSync writes.
func (s *Store) SaveTrade(rec TradeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}
	if err := s.db.Set(tradeKey(rec.Asset, rec.Timestamp, rec.ID), data, pebble.NoSync); err != nil {
		return fmt.Errorf("save trade: %w", err)
	}
	return nil
}

// LoadRecentTrades returns up to limit trades for an asset, newest first.
func (s *Store) LoadRecentTrades(asset string, limit int) ([]TradeRecord, error) {
	prefix := tradePrefix(asset)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("trade iterator: %w", err)
	}
	defer iter.Close()

	var recs []TradeRecord
	for iter.Last(); iter.Valid() && len(recs) < limit; iter.Prev() {
		var rec TradeRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
