package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xrave110/dex/pkg/exchange"
)

const (
	adminHex  = "0x0000000000000000000000000000000000000063"
	traderHex = "0x0000000000000000000000000000000000000001"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	admin := common.HexToAddress(adminHex)
	ex := exchange.New(nil, exchange.SingleAdmin(admin), nil)
	return NewServer(ex, nil, nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func registerTestAsset(t *testing.T, s *Server, symbol string, supply int64) {
	t.Helper()
	rr := doJSON(t, s, http.MethodPost, "/api/v1/assets", RegisterAssetRequest{
		Caller: adminHex,
		Symbol: symbol,
		Supply: supply,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register asset: status %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestRegisterAsset_Authorization(t *testing.T) {
	s := newTestServer(t)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/assets", RegisterAssetRequest{
		Caller: traderHex, Symbol: "LINK", Supply: 100,
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", rr.Code)
	}

	registerTestAsset(t, s, "LINK", 100)

	rr = doJSON(t, s, http.MethodGet, "/api/v1/assets", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rr.Code)
	}
	var listed map[string][]string
	if err := json.Unmarshal(rr.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed["assets"]) != 1 || listed["assets"][0] != "LINK" {
		t.Fatalf("assets = %v, want [LINK]", listed["assets"])
	}
}

func TestRegisterAsset_BadAddress(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s, http.MethodPost, "/api/v1/assets", RegisterAssetRequest{
		Caller: "not-an-address", Symbol: "LINK", Supply: 1,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestFaucet(t *testing.T) {
	s := newTestServer(t)
	registerTestAsset(t, s, "LINK", 0)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/faucet", FaucetRequest{
		Account: traderHex, Symbol: "LINK", Amount: 500,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("faucet status = %d, body %s", rr.Code, rr.Body.String())
	}
	var bal BalanceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &bal); err != nil {
		t.Fatalf("decode faucet response: %v", err)
	}
	if bal.Amount != 500 {
		t.Fatalf("token balance = %d, want 500", bal.Amount)
	}

	rr = doJSON(t, s, http.MethodPost, "/api/v1/faucet", FaucetRequest{
		Account: traderHex, Symbol: "DOGE", Amount: 1,
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown symbol status = %d, want 404", rr.Code)
	}
}

func TestDepositAndOrderFlow(t *testing.T) {
	s := newTestServer(t)
	// Supply minted to the admin, who both makes and takes here.
	registerTestAsset(t, s, "LINK", 1_000)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/deposits", DepositRequest{
		Account: adminHex, Symbol: "LINK", Amount: 100,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("deposit status = %d, body %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, s, http.MethodPost, "/api/v1/deposits/native", NativeDepositRequest{
		Account: traderHex, Amount: 1_000,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("native deposit status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, s, http.MethodPost, "/api/v1/orders", SubmitOrderRequest{
		Trader: adminHex, Side: "sell", Type: "limit", Asset: "LINK", Amount: 10, Price: 7,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("limit order status = %d, body %s", rr.Code, rr.Body.String())
	}
	var limitResp SubmitOrderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &limitResp); err != nil {
		t.Fatalf("decode limit response: %v", err)
	}
	if limitResp.Order == nil || limitResp.Order.ID == 0 {
		t.Fatalf("limit response = %+v, want a resting order", limitResp)
	}

	rr = doJSON(t, s, http.MethodPost, "/api/v1/orders", SubmitOrderRequest{
		Trader: traderHex, Side: "buy", Type: "market", Asset: "LINK", Amount: 4,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("market order status = %d, body %s", rr.Code, rr.Body.String())
	}
	var marketResp SubmitOrderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &marketResp); err != nil {
		t.Fatalf("decode market response: %v", err)
	}
	if marketResp.Filled != 4 || len(marketResp.Trades) != 1 {
		t.Fatalf("market response = %+v, want filled 4 with 1 trade", marketResp)
	}

	rr = doJSON(t, s, http.MethodGet, "/api/v1/orderbook?asset=LINK&side=sell", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("orderbook status = %d", rr.Code)
	}
	var book OrderbookResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &book); err != nil {
		t.Fatalf("decode orderbook: %v", err)
	}
	if len(book.Orders) != 1 || book.Orders[0].Filled != 4 {
		t.Fatalf("book = %+v, want the partially filled sell", book)
	}

	rr = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/v1/balances/%s", traderHex), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("balances status = %d", rr.Code)
	}
	var balances map[string][]BalanceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &balances); err != nil {
		t.Fatalf("decode balances: %v", err)
	}
	bySymbol := make(map[string]int64)
	for _, b := range balances["balances"] {
		bySymbol[b.Symbol] = b.Amount
	}
	if bySymbol["LINK"] != 4 || bySymbol[exchange.NativeSymbol] != 1_000-4*7 {
		t.Fatalf("balances = %v, want LINK 4 and native %d", bySymbol, 1_000-4*7)
	}
}

func TestSubmitOrder_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	registerTestAsset(t, s, "LINK", 1_000)

	tests := []struct {
		name string
		req  SubmitOrderRequest
		want int
	}{
		{
			"unknown asset",
			SubmitOrderRequest{Trader: traderHex, Side: "buy", Type: "limit", Asset: "DOGE", Amount: 1, Price: 1},
			http.StatusNotFound,
		},
		{
			"insufficient balance",
			SubmitOrderRequest{Trader: traderHex, Side: "buy", Type: "limit", Asset: "LINK", Amount: 1, Price: 1},
			http.StatusConflict,
		},
		{
			"bad amount",
			SubmitOrderRequest{Trader: traderHex, Side: "buy", Type: "limit", Asset: "LINK", Amount: 0, Price: 1},
			http.StatusBadRequest,
		},
		{
			"bad side",
			SubmitOrderRequest{Trader: traderHex, Side: "hold", Type: "limit", Asset: "LINK", Amount: 1, Price: 1},
			http.StatusBadRequest,
		},
		{
			"bad type",
			SubmitOrderRequest{Trader: traderHex, Side: "buy", Type: "stop", Asset: "LINK", Amount: 1, Price: 1},
			http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, s, http.MethodPost, "/api/v1/orders", tt.req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestOrderbook_RequiresAsset(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s, http.MethodGet, "/api/v1/orderbook?side=buy", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}
