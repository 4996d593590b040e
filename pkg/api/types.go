package api

// Request and response types for the REST endpoints and WebSocket
// messages. All quantities are integer units: prices in native units per
// asset unit, amounts in asset units.

// ==============================
// Requests
// ==============================

// RegisterAssetRequest registers a symbol with a freshly minted stub
// token whose supply goes to the caller. Admin-gated.
type RegisterAssetRequest struct {
	Caller string `json:"caller"`
	Symbol string `json:"symbol"`
	Supply int64  `json:"supply"`
}

// FaucetRequest mints stub token units to an account so a devnet user
// can deposit something. Only assets registered through the API qualify.
type FaucetRequest struct {
	Account string `json:"account"`
	Symbol  string `json:"symbol"`
	Amount  int64  `json:"amount"`
}

type DepositRequest struct {
	Account string `json:"account"`
	Symbol  string `json:"symbol"`
	Amount  int64  `json:"amount"`
}

type NativeDepositRequest struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

type WithdrawRequest struct {
	Account string `json:"account"`
	Symbol  string `json:"symbol"`
	Amount  int64  `json:"amount"`
}

type SubmitOrderRequest struct {
	Trader string `json:"trader"`
	Side   string `json:"side"` // "buy" or "sell"
	Type   string `json:"type"` // "limit" or "market"
	Asset  string `json:"asset"`
	Amount int64  `json:"amount"`
	Price  int64  `json:"price,omitempty"` // limit orders only
}

// ==============================
// Responses
// ==============================

type OrderInfo struct {
	ID     uint64 `json:"id"`
	Trader string `json:"trader"`
	Side   string `json:"side"`
	Asset  string `json:"asset"`
	Price  int64  `json:"price"`
	Amount int64  `json:"amount"`
	Filled int64  `json:"filled"`
}

type TradeInfo struct {
	ID        string `json:"id"`
	Asset     string `json:"asset"`
	Price     int64  `json:"price"`
	Qty       int64  `json:"qty"`
	TakerSide string `json:"takerSide"`
	Buyer     string `json:"buyer"`
	Seller    string `json:"seller"`
	Timestamp int64  `json:"timestamp"`
}

// SubmitOrderResponse reports the resting order (limit) or the fill
// outcome (market).
type SubmitOrderResponse struct {
	Order  *OrderInfo  `json:"order,omitempty"`
	Filled int64       `json:"filled"`
	Trades []TradeInfo `json:"trades,omitempty"`
}

type OrderbookResponse struct {
	Asset  string      `json:"asset"`
	Side   string      `json:"side"`
	Orders []OrderInfo `json:"orders"`
}

type BalanceResponse struct {
	Account string `json:"account"`
	Symbol  string `json:"symbol"`
	Amount  int64  `json:"amount"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ==============================
// WebSocket messages
// ==============================

// WSSubscribeRequest subscribes or unsubscribes channels, e.g.
// {"op":"subscribe","channels":["trades:LINK"]}.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

// WSTradeMessage is pushed to "trades:{asset}" subscribers.
type WSTradeMessage struct {
	Channel string    `json:"channel"`
	Data    TradeInfo `json:"data"`
}
