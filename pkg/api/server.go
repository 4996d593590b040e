// Package api exposes the exchange over REST and WebSocket: asset
// registration, deposits, withdrawals, order submission, book and trade
// queries, plus a live trade feed.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/xrave110/dex/pkg/exchange"
)

const defaultTradeLimit = 50

// Server serves the HTTP and WebSocket API for one exchange instance.
type Server struct {
	ex     *exchange.Exchange
	hub    *Hub
	router *mux.Router
	log    *zap.SugaredLogger
	srv    *http.Server

	// tokens holds the stub custody agents created through the API, so
	// operators can inspect and seed them.
	tokensMu sync.Mutex
	tokens   map[string]*exchange.StubToken
}

// NewServer wires routes and the trade feed. allowedOrigins configures
// CORS; an empty list allows any origin.
func NewServer(ex *exchange.Exchange, log *zap.SugaredLogger, allowedOrigins []string) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{
		ex:     ex,
		hub:    NewHub(log),
		router: mux.NewRouter(),
		log:    log,
		tokens: make(map[string]*exchange.StubToken),
	}
	s.routes()

	ex.SetTradeHook(func(tr exchange.Trade) {
		s.hub.BroadcastToChannel("trades:"+tr.Asset, WSTradeMessage{
			Channel: "trades:" + tr.Asset,
			Data:    tradeInfo(tr),
		})
	})

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	handler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.router)

	s.srv = &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/assets", s.handleRegisterAsset).Methods("POST")
	api.HandleFunc("/assets", s.handleListAssets).Methods("GET")
	api.HandleFunc("/faucet", s.handleFaucet).Methods("POST")
	api.HandleFunc("/deposits", s.handleDeposit).Methods("POST")
	api.HandleFunc("/deposits/native", s.handleDepositNative).Methods("POST")
	api.HandleFunc("/withdrawals", s.handleWithdraw).Methods("POST")
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orderbook", s.handleOrderbook).Methods("GET")
	api.HandleFunc("/balances/{address}", s.handleBalances).Methods("GET")
	api.HandleFunc("/trades", s.handleTrades).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub loop and listens on addr, blocking until the
// listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	s.srv.Addr = addr
	s.log.Infow("api_listening", "addr", addr)
	return s.srv.ListenAndServe()
}

// Shutdown stops the HTTP listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req RegisterAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAddress(w, req.Caller)
	if !ok {
		return
	}
	if req.Supply < 0 {
		writeError(w, http.StatusBadRequest, "supply must not be negative")
		return
	}

	token := exchange.NewStubToken(req.Symbol, caller, req.Supply)
	if err := s.ex.RegisterAsset(caller, req.Symbol, token); err != nil {
		writeExchangeError(w, err)
		return
	}
	s.tokensMu.Lock()
	s.tokens[req.Symbol] = token
	s.tokensMu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]string{"symbol": req.Symbol})
}

// handleFaucet mints stub token units to an account. Only works for
// assets registered through this API; a devnet convenience.
func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req FaucetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, ok := parseAddress(w, req.Account)
	if !ok {
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	s.tokensMu.Lock()
	token := s.tokens[req.Symbol]
	s.tokensMu.Unlock()
	if token == nil {
		writeError(w, http.StatusNotFound, "no stub token for symbol "+req.Symbol)
		return
	}
	token.Mint(account, req.Amount)

	writeJSON(w, http.StatusOK, BalanceResponse{
		Account: account.Hex(),
		Symbol:  req.Symbol,
		Amount:  token.BalanceOf(account),
	})
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"assets": s.ex.Symbols()})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, ok := parseAddress(w, req.Account)
	if !ok {
		return
	}
	if err := s.ex.Deposit(account, req.Symbol, req.Amount); err != nil {
		writeExchangeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Account: account.Hex(),
		Symbol:  req.Symbol,
		Amount:  s.ex.Balance(account, req.Symbol),
	})
}

func (s *Server) handleDepositNative(w http.ResponseWriter, r *http.Request) {
	var req NativeDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, ok := parseAddress(w, req.Account)
	if !ok {
		return
	}
	if err := s.ex.DepositNative(account, req.Amount); err != nil {
		writeExchangeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Account: account.Hex(),
		Symbol:  exchange.NativeSymbol,
		Amount:  s.ex.Balance(account, exchange.NativeSymbol),
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, ok := parseAddress(w, req.Account)
	if !ok {
		return
	}
	if err := s.ex.Withdraw(account, req.Symbol, req.Amount); err != nil {
		writeExchangeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Account: account.Hex(),
		Symbol:  req.Symbol,
		Amount:  s.ex.Balance(account, req.Symbol),
	})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	trader, ok := parseAddress(w, req.Trader)
	if !ok {
		return
	}
	side, ok := parseSide(w, req.Side)
	if !ok {
		return
	}

	switch strings.ToLower(req.Type) {
	case "limit":
		order, err := s.ex.CreateLimitOrder(trader, side, req.Asset, req.Amount, req.Price)
		if err != nil {
			writeExchangeError(w, err)
			return
		}
		info := orderInfo(order)
		writeJSON(w, http.StatusCreated, SubmitOrderResponse{Order: &info})

	case "market":
		filled, trades, err := s.ex.CreateMarketOrder(trader, side, req.Asset, req.Amount)
		if err != nil {
			writeExchangeError(w, err)
			return
		}
		resp := SubmitOrderResponse{Filled: filled}
		for _, tr := range trades {
			resp.Trades = append(resp.Trades, tradeInfo(tr))
		}
		writeJSON(w, http.StatusOK, resp)

	default:
		writeError(w, http.StatusBadRequest, "type must be limit or market")
	}
}

func (s *Server) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	if asset == "" {
		writeError(w, http.StatusBadRequest, "asset query parameter required")
		return
	}
	side, ok := parseSide(w, r.URL.Query().Get("side"))
	if !ok {
		return
	}

	orders := s.ex.BookSnapshot(asset, side)
	resp := OrderbookResponse{Asset: asset, Side: side.String(), Orders: []OrderInfo{}}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, orderInfo(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}

	symbols := append([]string{exchange.NativeSymbol}, s.ex.Symbols()...)
	balances := make([]BalanceResponse, 0, len(symbols))
	for _, sym := range symbols {
		balances = append(balances, BalanceResponse{
			Account: account.Hex(),
			Symbol:  sym,
			Amount:  s.ex.Balance(account, sym),
		})
	}
	writeJSON(w, http.StatusOK, map[string][]BalanceResponse{"balances": balances})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	if asset == "" {
		writeError(w, http.StatusBadRequest, "asset query parameter required")
		return
	}
	limit := defaultTradeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	trades, err := s.ex.RecentTrades(asset, limit)
	if err != nil {
		writeExchangeError(w, err)
		return
	}
	infos := make([]TradeInfo, 0, len(trades))
	for _, tr := range trades {
		infos = append(infos, tradeInfo(tr))
	}
	writeJSON(w, http.StatusOK, map[string][]TradeInfo{"trades": infos})
}

func orderInfo(o exchange.Order) OrderInfo {
	return OrderInfo{
		ID:     o.ID,
		Trader: o.Trader.Hex(),
		Side:   o.Side.String(),
		Asset:  o.Asset,
		Price:  o.Price,
		Amount: o.Amount,
		Filled: o.Filled,
	}
}

func tradeInfo(tr exchange.Trade) TradeInfo {
	return TradeInfo{
		ID:        tr.ID,
		Asset:     tr.Asset,
		Price:     tr.Price,
		Qty:       tr.Qty,
		TakerSide: tr.TakerSide.String(),
		Buyer:     tr.Buyer.Hex(),
		Seller:    tr.Seller.Hex(),
		Timestamp: tr.Timestamp,
	}
}

func parseAddress(w http.ResponseWriter, raw string) (common.Address, bool) {
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, "invalid address: "+raw)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func parseSide(w http.ResponseWriter, raw string) (exchange.Side, bool) {
	switch strings.ToLower(raw) {
	case "buy":
		return exchange.Buy, true
	case "sell":
		return exchange.Sell, true
	default:
		writeError(w, http.StatusBadRequest, "side must be buy or sell")
		return 0, false
	}
}

// writeExchangeError maps sentinel exchange errors onto HTTP statuses.
func writeExchangeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, exchange.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, exchange.ErrUnknownAsset):
		status = http.StatusNotFound
	case errors.Is(err, exchange.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, exchange.ErrInsufficientBalance):
		status = http.StatusConflict
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
