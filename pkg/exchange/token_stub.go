package exchange

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// StubToken is an in-process TransferAgent backed by its own balance
// map: an ERC20-style token without a chain. The devnet entrypoint and
// the tests use it as the external custody collaborator; escrow held for
// the exchange accumulates in Escrowed.
type StubToken struct {
	mu       sync.Mutex
	Symbol   string
	balances map[common.Address]int64
	escrowed int64

	// FailPulls makes every PullFrom fail, simulating a token whose
	// allowance or transfer breaks mid-flight.
	FailPulls bool
}

// NewStubToken creates a token and mints the initial supply to owner.
func NewStubToken(symbol string, owner common.Address, supply int64) *StubToken {
	t := &StubToken{
		Symbol:   symbol,
		balances: make(map[common.Address]int64),
	}
	t.balances[owner] = supply
	return t
}

// Mint credits fresh units to an account.
func (t *StubToken) Mint(account common.Address, amount int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] += amount
}

// BalanceOf returns the token balance held directly by account, outside
// the exchange.
func (t *StubToken) BalanceOf(account common.Address) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[account]
}

// Escrowed returns the units currently pulled into escrow.
func (t *StubToken) Escrowed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.escrowed
}

// PullFrom moves amount from the account into escrow.
func (t *StubToken) PullFrom(account common.Address, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailPulls {
		return fmt.Errorf("%s: transfer rejected", t.Symbol)
	}
	if t.balances[account] < amount {
		return fmt.Errorf("%s: %s holds %d, cannot pull %d",
			t.Symbol, account.Hex(), t.balances[account], amount)
	}
	t.balances[account] -= amount
	t.escrowed += amount
	return nil
}

// PushTo moves amount from escrow back to the account.
func (t *StubToken) PushTo(account common.Address, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.escrowed < amount {
		return fmt.Errorf("%s: escrow holds %d, cannot push %d", t.Symbol, t.escrowed, amount)
	}
	t.escrowed -= amount
	t.balances[account] += amount
	return nil
}
