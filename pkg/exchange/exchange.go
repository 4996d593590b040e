// Package exchange implements the token exchange core: a balance ledger,
// an asset registry, per-asset order books and the matching engine that
// drives escrow-based settlement between them.
package exchange

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xrave110/dex/pkg/storage"
)

// Exchange is the owned context object holding all exchange state. Every
// operation runs to completion under one mutex, so no two operations ever
// interleave and no partially settled state is observable.
type Exchange struct {
	mu       sync.Mutex
	ledger   *Ledger
	registry *Registry
	books    map[string]*OrderBook
	gate     AdminGate
	store    *storage.Store
	log      *zap.SugaredLogger
	nextID   uint64

	// nativeAgent, when set, receives PushTo calls for native withdrawals.
	nativeAgent TransferAgent

	// onTrade, when set, observes every committed trade. Called inside
	// the operation's critical section; keep it non-blocking.
	onTrade func(Trade)
}

// New creates an exchange. store may be nil (in-memory only), gate may be
// nil (every administrative call is rejected) and log may be nil.
func New(store *storage.Store, gate AdminGate, log *zap.SugaredLogger) *Exchange {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Exchange{
		ledger:   NewLedger(store),
		registry: NewRegistry(),
		books:    make(map[string]*OrderBook),
		gate:     gate,
		store:    store,
		log:      log,
	}
}

// SetNativeAgent sets the custody collaborator for native withdrawals.
func (e *Exchange) SetNativeAgent(agent TransferAgent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nativeAgent = agent
}

// SetTradeHook registers an observer for committed trades.
func (e *Exchange) SetTradeHook(fn func(Trade)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTrade = fn
}

// book returns the order book for asset, creating it lazily.
func (e *Exchange) book(asset string) *OrderBook {
	b, ok := e.books[asset]
	if !ok {
		b = NewOrderBook(asset)
		e.books[asset] = b
	}
	return b
}

// RegisterAsset adds or overwrites a registry entry. Only callers
// admitted by the admin gate may do this.
func (e *Exchange) RegisterAsset(caller common.Address, symbol string, agent TransferAgent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gate == nil || !e.gate.IsAdmin(caller) {
		return fmt.Errorf("register asset %s by %s: %w", symbol, caller.Hex(), ErrUnauthorized)
	}
	if err := e.registry.Register(symbol, agent); err != nil {
		return err
	}
	e.log.Infow("asset_registered", "symbol", symbol, "caller", caller.Hex())
	return nil
}

// Deposit pulls amount units of symbol from the account's external
// custody into escrow, then credits the ledger. The ledger is only
// credited after the pull succeeded.
func (e *Exchange) Deposit(account common.Address, symbol string, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount <= 0 {
		return fmt.Errorf("deposit %d %s: %w", amount, symbol, ErrInvalidArgument)
	}
	agent, err := e.registry.Resolve(symbol)
	if err != nil {
		return err
	}
	if agent != nil {
		if err := agent.PullFrom(account, amount); err != nil {
			return fmt.Errorf("deposit %d %s for %s: escrow pull: %w", amount, symbol, account.Hex(), err)
		}
	}
	if err := e.ledger.Credit(account, symbol, amount); err != nil {
		return err
	}
	e.log.Infow("deposit", "account", account.Hex(), "symbol", symbol, "amount", amount)
	return nil
}

// DepositNative credits the native currency attached to the call.
func (e *Exchange) DepositNative(account common.Address, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount <= 0 {
		return fmt.Errorf("deposit %d %s: %w", amount, NativeSymbol, ErrInvalidArgument)
	}
	if err := e.ledger.Credit(account, NativeSymbol, amount); err != nil {
		return err
	}
	e.log.Infow("deposit", "account", account.Hex(), "symbol", NativeSymbol, "amount", amount)
	return nil
}

// Withdraw debits the ledger, then pushes the units back to the
// account's external custody. The debit happens first so a re-entrant
// push can never double-withdraw; a failed push restores the balance.
func (e *Exchange) Withdraw(account common.Address, symbol string, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount <= 0 {
		return fmt.Errorf("withdraw %d %s: %w", amount, symbol, ErrInvalidArgument)
	}
	agent, err := e.registry.Resolve(symbol)
	if err != nil {
		return err
	}
	if symbol == NativeSymbol {
		agent = e.nativeAgent
	}
	if err := e.ledger.Debit(account, symbol, amount); err != nil {
		return err
	}
	if agent != nil {
		if err := agent.PushTo(account, amount); err != nil {
			if cerr := e.ledger.Credit(account, symbol, amount); cerr != nil {
				e.log.Errorw("withdraw_restore_failed", "account", account.Hex(), "err", cerr)
			}
			return fmt.Errorf("withdraw %d %s for %s: escrow push: %w", amount, symbol, account.Hex(), err)
		}
	}
	e.log.Infow("withdraw", "account", account.Hex(), "symbol", symbol, "amount", amount)
	return nil
}

// Balance returns the ledger balance, zero for accounts with no record.
func (e *Exchange) Balance(account common.Address, symbol string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Balance(account, symbol)
}

// BookSnapshot returns a read-only copy of one side of an asset's book
// in priority order. Unknown assets yield an empty book.
func (e *Exchange) BookSnapshot(asset string, side Side) []Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book(asset).Snapshot(side)
}

// CreateLimitOrder validates and rests a limit order. The solvency check
// is advisory at submission time only: nothing is reserved, so a trader
// can rest orders whose combined requirement exceeds their balance. The
// order never matches on entry; it waits for market flow.
func (e *Exchange) CreateLimitOrder(trader common.Address, side Side, asset string, amount, price int64) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount <= 0 || price <= 0 {
		return Order{}, fmt.Errorf("limit order %d @ %d: %w", amount, price, ErrInvalidArgument)
	}
	if asset == NativeSymbol {
		return Order{}, fmt.Errorf("limit order on %s: %w", asset, ErrInvalidArgument)
	}
	if !e.registry.Registered(asset) {
		return Order{}, fmt.Errorf("limit order: asset %s: %w", asset, ErrUnknownAsset)
	}

	switch side {
	case Sell:
		if have := e.ledger.Balance(trader, asset); have < amount {
			return Order{}, fmt.Errorf("limit sell %d %s, have %d: %w", amount, asset, have, ErrInsufficientBalance)
		}
	case Buy:
		required := amount * price
		if have := e.ledger.Balance(trader, NativeSymbol); have < required {
			return Order{}, fmt.Errorf("limit buy needs %d %s, have %d: %w", required, NativeSymbol, have, ErrInsufficientBalance)
		}
	}

	e.nextID++
	o := &Order{
		ID:     e.nextID,
		Trader: trader,
		Side:   side,
		Asset:  asset,
		Price:  price,
		Amount: amount,
	}
	e.book(asset).Insert(o)

	e.log.Infow("limit_order",
		"id", o.ID, "trader", trader.Hex(), "side", side.String(),
		"asset", asset, "amount", amount, "price", price)
	return *o, nil
}

// matchStep is one planned consumption of a resting order.
type matchStep struct {
	maker *Order
	qty   int64
}

// CreateMarketOrder matches a market order against the opposite book,
// best price first, settling every step through the ledger. The whole
// call is atomic: settlement is planned against a staging view of the
// ledger and committed only once every step cleared its solvency gate.
// An empty or exhausted book is a successful partial or zero fill, not
// an error; a failed solvency gate on any attempted step aborts the
// entire call with no effect.
//
// Returns the filled quantity and the trades executed.
func (e *Exchange) CreateMarketOrder(trader common.Address, side Side, asset string, amount int64) (int64, []Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount <= 0 {
		return 0, nil, fmt.Errorf("market order %d: %w", amount, ErrInvalidArgument)
	}
	if asset == NativeSymbol {
		return 0, nil, fmt.Errorf("market order on %s: %w", asset, ErrInvalidArgument)
	}
	if !e.registry.Registered(asset) {
		return 0, nil, fmt.Errorf("market order: asset %s: %w", asset, ErrUnknownAsset)
	}
	// The asset leg of a market sell is fixed regardless of which price
	// levels it crosses, so it is gated up front.
	if side == Sell {
		if have := e.ledger.Balance(trader, asset); have < amount {
			return 0, nil, fmt.Errorf("market sell %d %s, have %d: %w", amount, asset, have, ErrInsufficientBalance)
		}
	}

	book := e.book(asset)
	opposite := side.Opposite()

	stage := newStagedLedger(e.ledger)
	var steps []matchStep
	remaining := amount

	for _, maker := range book.orders(opposite) {
		if remaining == 0 {
			break
		}
		qty := remaining
		if avail := maker.Remaining(); avail < qty {
			qty = avail
		}
		cost := qty * maker.Price

		// Four-way settlement at the resting order's price: the buyer
		// pays native and receives the asset, the seller the reverse.
		// Any failed leg aborts the whole call before anything commits.
		var err error
		if side == Buy {
			err = stage.transfer(trader, maker.Trader, asset, qty, cost)
		} else {
			err = stage.transfer(maker.Trader, trader, asset, qty, cost)
		}
		if err != nil {
			return 0, nil, fmt.Errorf("market %s %s: %w", side, asset, err)
		}

		steps = append(steps, matchStep{maker: maker, qty: qty})
		remaining -= qty
	}

	if len(steps) == 0 {
		// No liquidity: trivially complete with zero fill.
		return 0, nil, nil
	}

	if err := stage.commit(); err != nil {
		return 0, nil, err
	}

	now := time.Now().UnixMilli()
	trades := make([]Trade, 0, len(steps))
	for _, st := range steps {
		st.maker.Filled += st.qty

		buyer, seller := trader, st.maker.Trader
		if side == Sell {
			buyer, seller = st.maker.Trader, trader
		}
		tr := Trade{
			ID:        uuid.NewString(),
			Asset:     asset,
			Price:     st.maker.Price,
			Qty:       st.qty,
			TakerSide: side,
			Buyer:     buyer,
			Seller:    seller,
			MakerID:   st.maker.ID,
			Timestamp: now,
		}
		trades = append(trades, tr)
		e.recordTrade(tr)
	}

	// Fully consumed orders leave the book; a partially consumed best
	// order stays resting with its filled quantity advanced.
	for book.Depth(opposite) > 0 && book.PeekBest(opposite).Remaining() == 0 {
		book.RemoveBest(opposite)
	}

	filled := amount - remaining
	e.log.Infow("market_order",
		"trader", trader.Hex(), "side", side.String(), "asset", asset,
		"amount", amount, "filled", filled, "steps", len(steps))
	return filled, trades, nil
}

// recordTrade persists and publishes one committed trade.
func (e *Exchange) recordTrade(tr Trade) {
	if e.store != nil {
		err := e.store.SaveTrade(storage.TradeRecord{
			ID:        tr.ID,
			Asset:     tr.Asset,
			Price:     tr.Price,
			Qty:       tr.Qty,
			TakerSide: tr.TakerSide.String(),
			Buyer:     tr.Buyer,
			Seller:    tr.Seller,
			MakerID:   tr.MakerID,
			Timestamp: tr.Timestamp,
		})
		if err != nil {
			e.log.Errorw("trade_persist_failed", "trade", tr.ID, "err", err)
		}
	}
	if e.onTrade != nil {
		e.onTrade(tr)
	}
}

// RecentTrades returns up to limit persisted trades for asset, newest
// first. Without a store it returns nothing.
func (e *Exchange) RecentTrades(asset string, limit int) ([]Trade, error) {
	e.mu.Lock()
	store := e.store
	e.mu.Unlock()

	if store == nil {
		return nil, nil
	}
	recs, err := store.LoadRecentTrades(asset, limit)
	if err != nil {
		return nil, err
	}
	trades := make([]Trade, 0, len(recs))
	for _, rec := range recs {
		side := Buy
		if rec.TakerSide == Sell.String() {
			side = Sell
		}
		trades = append(trades, Trade{
			ID:        rec.ID,
			Asset:     rec.Asset,
			Price:     rec.Price,
			Qty:       rec.Qty,
			TakerSide: side,
			Buyer:     rec.Buyer,
			Seller:    rec.Seller,
			MakerID:   rec.MakerID,
			Timestamp: rec.Timestamp,
		})
	}
	return trades, nil
}

// Symbols returns the registered asset symbols.
func (e *Exchange) Symbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Symbols()
}
