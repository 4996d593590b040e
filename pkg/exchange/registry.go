package exchange

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// TransferAgent is the external custody collaborator for one registered
// asset. PullFrom moves amount units from the account into escrow before
// a deposit commits; PushTo moves amount units back out during a
// withdrawal. Both are assumed synchronous and atomic from the core's
// point of view.
type TransferAgent interface {
	PullFrom(account common.Address, amount int64) error
	PushTo(account common.Address, amount int64) error
}

// AdminGate decides who may call administrative operations. The policy
// lives outside the core.
type AdminGate interface {
	IsAdmin(caller common.Address) bool
}

// AdminFunc adapts a plain predicate to an AdminGate.
type AdminFunc func(caller common.Address) bool

func (f AdminFunc) IsAdmin(caller common.Address) bool { return f(caller) }

// SingleAdmin returns a gate that admits exactly one address.
func SingleAdmin(owner common.Address) AdminGate {
	return AdminFunc(func(caller common.Address) bool { return caller == owner })
}

// Registry maps asset symbols to their transfer agents. A symbol must be
// registered before it can be deposited, withdrawn or traded; the native
// currency is always valid and never appears here. Entries are only ever
// created or overwritten, never deleted.
//
// Not safe for concurrent use on its own; the Exchange serializes access.
type Registry struct {
	agents map[string]TransferAgent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]TransferAgent)}
}

// Register adds or overwrites the entry for symbol. The agent's
// correctness is not validated here.
func (r *Registry) Register(symbol string, agent TransferAgent) error {
	if symbol == "" || symbol == NativeSymbol {
		return fmt.Errorf("register asset %q: %w", symbol, ErrInvalidArgument)
	}
	if agent == nil {
		return fmt.Errorf("register asset %s: nil transfer agent: %w", symbol, ErrInvalidArgument)
	}
	r.agents[symbol] = agent
	return nil
}

// Resolve returns the transfer agent for symbol. Fails with
// ErrUnknownAsset for unregistered symbols; the native currency resolves
// to a nil agent since its custody is external to the registry.
func (r *Registry) Resolve(symbol string) (TransferAgent, error) {
	if symbol == NativeSymbol {
		return nil, nil
	}
	agent, ok := r.agents[symbol]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", symbol, ErrUnknownAsset)
	}
	return agent, nil
}

// Registered reports whether symbol may be used in orders: either the
// native currency or a registry entry.
func (r *Registry) Registered(symbol string) bool {
	if symbol == NativeSymbol {
		return true
	}
	_, ok := r.agents[symbol]
	return ok
}

// Symbols returns all registered symbols, excluding the native currency.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.agents))
	for s := range r.agents {
		out = append(out, s)
	}
	return out
}
