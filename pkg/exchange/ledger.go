package exchange

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xrave110/dex/pkg/storage"
)

// Ledger holds the available balance of every (account, symbol) pair.
// It is the single source of truth for solvency checks and the only
// component that mutates balances. Balances never go negative: Debit
// refuses any mutation that would.
//
// The ledger itself is not safe for concurrent use; the Exchange owns it
// and serializes every operation behind its mutex.
type Ledger struct {
	balances map[common.Address]map[string]int64
	loaded   map[common.Address]bool
	store    *storage.Store // optional write-through persistence
}

// NewLedger creates a ledger. store may be nil for a purely in-memory
// ledger (tests, embedding).
func NewLedger(store *storage.Store) *Ledger {
	return &Ledger{
		balances: make(map[common.Address]map[string]int64),
		loaded:   make(map[common.Address]bool),
		store:    store,
	}
}

// Balance returns the available balance, zero for accounts or symbols
// with no record.
func (l *Ledger) Balance(account common.Address, symbol string) int64 {
	l.ensure(account)
	return l.balances[account][symbol]
}

// Credit increases a balance. Used by deposits and by the matching
// engine's settlement legs.
func (l *Ledger) Credit(account common.Address, symbol string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit %d %s: %w", amount, symbol, ErrInvalidArgument)
	}
	l.ensure(account)
	return l.set(account, symbol, l.balances[account][symbol]+amount)
}

// Debit decreases a balance. Fails with ErrInsufficientBalance if the
// balance would go negative, leaving it untouched.
func (l *Ledger) Debit(account common.Address, symbol string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("debit %d %s: %w", amount, symbol, ErrInvalidArgument)
	}
	l.ensure(account)
	have := l.balances[account][symbol]
	if have < amount {
		return fmt.Errorf("debit %d %s from %s, have %d: %w",
			amount, symbol, account.Hex(), have, ErrInsufficientBalance)
	}
	return l.set(account, symbol, have-amount)
}

// apply adds a signed delta to a balance. Used by staged settlement
// commits, whose overlay already proved the result non-negative; a
// negative result here is a programming error.
func (l *Ledger) apply(account common.Address, symbol string, delta int64) error {
	l.ensure(account)
	next := l.balances[account][symbol] + delta
	if next < 0 {
		return fmt.Errorf("apply %d %s to %s: %w", delta, symbol, account.Hex(), ErrInsufficientBalance)
	}
	return l.set(account, symbol, next)
}

// ensure lazily creates the account's balance map, loading persisted
// records on first touch.
func (l *Ledger) ensure(account common.Address) {
	if l.loaded[account] {
		return
	}
	bals := make(map[string]int64)
	if l.store != nil {
		recs, err := l.store.LoadBalances(account)
		if err == nil {
			for _, rec := range recs {
				bals[rec.Symbol] = rec.Amount
			}
		}
	}
	l.balances[account] = bals
	l.loaded[account] = true
}

// set updates one balance and writes it through to the store.
func (l *Ledger) set(account common.Address, symbol string, amount int64) error {
	l.balances[account][symbol] = amount
	if l.store == nil {
		return nil
	}
	if err := l.store.SaveBalance(storage.BalanceRecord{
		Address: account,
		Symbol:  symbol,
		Amount:  amount,
	}); err != nil {
		return fmt.Errorf("persist balance: %w", err)
	}
	return nil
}
