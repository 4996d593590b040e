package exchange

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// stagedLedger overlays pending balance deltas on top of the real
// ledger. Market-order settlement runs entirely against the overlay:
// every debit sees the effect of earlier steps, and nothing touches the
// ledger until commit. Abandoning the overlay is the rollback.
type stagedLedger struct {
	ledger *Ledger
	delta  map[common.Address]map[string]int64
}

func newStagedLedger(l *Ledger) *stagedLedger {
	return &stagedLedger{
		ledger: l,
		delta:  make(map[common.Address]map[string]int64),
	}
}

// balance returns the effective balance including pending deltas.
func (s *stagedLedger) balance(account common.Address, symbol string) int64 {
	return s.ledger.Balance(account, symbol) + s.delta[account][symbol]
}

func (s *stagedLedger) add(account common.Address, symbol string, amount int64) {
	m, ok := s.delta[account]
	if !ok {
		m = make(map[string]int64)
		s.delta[account] = m
	}
	m[symbol] += amount
}

// debit stages a balance decrease, failing if the effective balance
// cannot cover it.
func (s *stagedLedger) debit(account common.Address, symbol string, amount int64) error {
	if have := s.balance(account, symbol); have < amount {
		return fmt.Errorf("debit %d %s from %s, have %d: %w",
			amount, symbol, account.Hex(), have, ErrInsufficientBalance)
	}
	s.add(account, symbol, -amount)
	return nil
}

// credit stages a balance increase.
func (s *stagedLedger) credit(account common.Address, symbol string, amount int64) {
	s.add(account, symbol, amount)
}

// transfer stages the four-way settlement of one match step: the buyer
// pays cost native units and receives qty asset units, the seller the
// reverse. The buyer's native leg is gated first, then the seller's
// asset leg.
func (s *stagedLedger) transfer(buyer, seller common.Address, asset string, qty, cost int64) error {
	if err := s.debit(buyer, NativeSymbol, cost); err != nil {
		return err
	}
	s.credit(buyer, asset, qty)
	if err := s.debit(seller, asset, qty); err != nil {
		return err
	}
	s.credit(seller, NativeSymbol, cost)
	return nil
}

// commit applies all pending deltas to the real ledger. The overlay
// guaranteed no balance goes negative, so application cannot fail on
// solvency; only persistence errors surface, and the in-memory ledger is
// fully applied regardless.
func (s *stagedLedger) commit() error {
	var firstErr error
	for account, symbols := range s.delta {
		for symbol, d := range symbols {
			if d == 0 {
				continue
			}
			if err := s.ledger.apply(account, symbol, d); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
