package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"lvrguard/internal/bank"
	"lvrguard/internal/hook"
)

var (
	apiOwner    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	apiManager  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	apiProvider = common.HexToAddress("0x0000000000000000000000000000000000000011")
	apiWinner   = common.HexToAddress("0x0000000000000000000000000000000000000022")
	apiPool     = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
)

type apiEnv struct {
	server *httptest.Server
	engine *hook.Engine
	payer  *bank.Memory

	mu  sync.Mutex
	now time.Time
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	env := &apiEnv{now: time.Unix(1_700_000_000, 0), payer: bank.NewMemory()}
	engine, err := hook.New(hook.Config{
		Owner:                 apiOwner,
		PoolManager:           apiManager,
		DeviationThresholdBps: 50,
		AuctionDuration:       time.Minute,
		VoidGrace:             time.Hour,
	}, hook.Deps{
		Payer: env.payer,
		Now: func() time.Time {
			env.mu.Lock()
			defer env.mu.Unlock()
			return env.now
		},
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	env.engine = engine

	srv := NewServer(engine, nil, nil, nil)
	env.server = httptest.NewServer(srv.Router())
	t.Cleanup(env.server.Close)
	return env
}

func (env *apiEnv) advance(d time.Duration) {
	env.mu.Lock()
	env.now = env.now.Add(d)
	env.mu.Unlock()
}

func (env *apiEnv) post(t *testing.T, path string, body any, out any) int {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(env.server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return resp.StatusCode
}

func (env *apiEnv) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(env.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestHealthAndStatus(t *testing.T) {
	env := newAPIEnv(t)

	var health struct {
		Status   string            `json:"status"`
		Services map[string]string `json:"services"`
	}
	if code := env.get(t, "/api/health", &health); code != http.StatusOK {
		t.Fatalf("health code = %d", code)
	}
	if health.Status != "healthy" || health.Services["engine"] != "operational" {
		t.Fatalf("health = %+v", health)
	}

	var created struct {
		ID         string `json:"id"`
		ClientName string `json:"client_name"`
	}
	code := env.post(t, "/api/status", map[string]string{"client_name": "probe"}, &created)
	if code != http.StatusCreated || created.ID == "" || created.ClientName != "probe" {
		t.Fatalf("create status = %d %+v", code, created)
	}

	var checks []struct {
		ID string `json:"id"`
	}
	if code := env.get(t, "/api/status", &checks); code != http.StatusOK {
		t.Fatalf("list status code = %d", code)
	}
	if len(checks) != 1 || checks[0].ID != created.ID {
		t.Fatalf("checks = %+v", checks)
	}
}

func TestLiquidityHookEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	body := map[string]any{
		"caller":    apiManager.Hex(),
		"pool_id":   apiPool.Hex(),
		"provider":  apiProvider.Hex(),
		"delta":     "1000",
		"direction": "add",
	}
	var ack struct {
		Ack string `json:"ack"`
	}
	if code := env.post(t, "/api/hooks/liquidity", body, &ack); code != http.StatusOK {
		t.Fatalf("add code = %d", code)
	}
	if ack.Ack != hook.AckLiquidityAdded {
		t.Fatalf("ack = %q", ack.Ack)
	}
	if got := env.engine.TotalLiquidity(apiPool).Int64(); got != 1000 {
		t.Fatalf("total = %d, want 1000", got)
	}

	// A caller other than the pool manager is rejected.
	body["caller"] = apiProvider.Hex()
	if code := env.post(t, "/api/hooks/liquidity", body, nil); code != http.StatusForbidden {
		t.Fatalf("unauthorized add code = %d, want 403", code)
	}

	// Removing more than the stake maps to a conflict.
	body["caller"] = apiManager.Hex()
	body["direction"] = "remove"
	body["delta"] = "5000"
	if code := env.post(t, "/api/hooks/liquidity", body, nil); code != http.StatusConflict {
		t.Fatalf("overdraw code = %d, want 409", code)
	}

	body["direction"] = "sideways"
	if code := env.post(t, "/api/hooks/liquidity", body, nil); code != http.StatusBadRequest {
		t.Fatalf("bad direction code = %d, want 400", code)
	}
}

func TestSettleAndClaimEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	if _, err := env.engine.OnLiquidityAdded(apiManager, apiPool, apiProvider, big.NewInt(1000)); err != nil {
		t.Fatalf("seed liquidity: %v", err)
	}
	auction, err := env.engine.Open(apiPool, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	settle := map[string]any{
		"caller":      apiOwner.Hex(),
		"winner":      apiWinner.Hex(),
		"winning_bid": "10",
		"total_bids":  2,
	}
	path := fmt.Sprintf("/api/auctions/%s/settle", auction.ID.Hex())

	// The window has not elapsed: conflict.
	if code := env.post(t, path, settle, nil); code != http.StatusConflict {
		t.Fatalf("early settle code = %d, want 409", code)
	}

	env.advance(time.Minute)
	if code := env.post(t, path, settle, nil); code != http.StatusOK {
		t.Fatalf("settle code = %d", code)
	}
	if code := env.post(t, path, settle, nil); code != http.StatusConflict {
		t.Fatalf("re-settle code = %d, want 409", code)
	}

	var record struct {
		Status     string `json:"status"`
		WinningBid string `json:"winning_bid"`
	}
	if code := env.get(t, "/api/auctions/"+auction.ID.Hex(), &record); code != http.StatusOK {
		t.Fatalf("auction fetch code = %d", code)
	}
	if record.Status != "settled" || record.WinningBid != "10" {
		t.Fatalf("record = %+v", record)
	}

	var claim struct {
		Amount string `json:"amount"`
	}
	claimPath := fmt.Sprintf("/api/pools/%s/claim", apiPool.Hex())
	if code := env.post(t, claimPath, map[string]string{"provider": apiProvider.Hex()}, &claim); code != http.StatusOK {
		t.Fatalf("claim code = %d", code)
	}
	if claim.Amount != "10" {
		t.Fatalf("claim amount = %s, want 10", claim.Amount)
	}
	if got := env.payer.Balance(apiProvider).Int64(); got != 10 {
		t.Fatalf("paid = %d, want 10", got)
	}

	// Claiming for a stranger maps to a conflict.
	if code := env.post(t, claimPath, map[string]string{"provider": apiWinner.Hex()}, nil); code != http.StatusConflict {
		t.Fatalf("stranger claim code = %d, want 409", code)
	}
}

func TestAuctionNotFoundEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	missing := common.HexToHash("0xdead").Hex()
	if code := env.get(t, "/api/auctions/"+missing, nil); code != http.StatusNotFound {
		t.Fatalf("missing auction code = %d, want 404", code)
	}
	body := map[string]any{"caller": apiOwner.Hex(), "winner": apiWinner.Hex(), "winning_bid": "1", "total_bids": 1}
	if code := env.post(t, "/api/auctions/"+missing+"/settle", body, nil); code != http.StatusNotFound {
		t.Fatalf("settle missing code = %d, want 404", code)
	}
}

func TestVoidEndpoint(t *testing.T) {
	env := newAPIEnv(t)

	auction, err := env.engine.Open(apiPool, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	path := fmt.Sprintf("/api/auctions/%s/void", auction.ID.Hex())

	if code := env.post(t, path, map[string]string{"caller": apiOwner.Hex()}, nil); code != http.StatusConflict {
		t.Fatalf("early void code = %d, want 409", code)
	}
	if code := env.post(t, path, map[string]string{"caller": apiProvider.Hex()}, nil); code != http.StatusForbidden {
		t.Fatalf("stranger void code = %d, want 403", code)
	}

	env.advance(time.Minute + time.Hour)
	var out struct {
		Status string `json:"status"`
	}
	if code := env.post(t, path, map[string]string{"caller": apiOwner.Hex()}, &out); code != http.StatusOK {
		t.Fatalf("void code = %d", code)
	}
	if out.Status != "voided" {
		t.Fatalf("void status = %q", out.Status)
	}
}

func TestSummaryAndPerformanceEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	if _, err := env.engine.OnLiquidityAdded(apiManager, apiPool, apiProvider, big.NewInt(1000)); err != nil {
		t.Fatalf("seed liquidity: %v", err)
	}
	auction, err := env.engine.Open(apiPool, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var summary struct {
		ActiveAuctions int `json:"active_auctions"`
		OperatorCount  int `json:"avs_operator_count"`
	}
	if code := env.get(t, "/api/auctions/summary", &summary); code != http.StatusOK {
		t.Fatalf("summary code = %d", code)
	}
	if summary.ActiveAuctions != 1 {
		t.Fatalf("active auctions = %d, want 1", summary.ActiveAuctions)
	}

	var pools []struct {
		PoolID         string `json:"pool_id"`
		TotalLiquidity string `json:"total_liquidity"`
	}
	if code := env.get(t, "/api/pools/performance", &pools); code != http.StatusOK {
		t.Fatalf("performance code = %d", code)
	}
	if len(pools) != 1 || pools[0].PoolID != apiPool.Hex() || pools[0].TotalLiquidity != "1000" {
		t.Fatalf("pools = %+v", pools)
	}

	var metrics struct {
		Pool struct {
			ActiveAuctionID string `json:"active_auction_id"`
		} `json:"pool"`
	}
	if code := env.get(t, "/api/pools/"+apiPool.Hex()+"/metrics", &metrics); code != http.StatusOK {
		t.Fatalf("metrics code = %d", code)
	}
	if metrics.Pool.ActiveAuctionID != auction.ID.Hex() {
		t.Fatalf("active auction = %s, want %s", metrics.Pool.ActiveAuctionID, auction.ID.Hex())
	}
}
