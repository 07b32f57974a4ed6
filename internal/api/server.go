package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"lvrguard/internal/hook"
	"lvrguard/internal/model"
	"lvrguard/internal/storage/postgres"
)

const maxStatusChecks = 1000

var weiPerEther = decimal.New(1, 18)

// Server exposes the engine's read views, the mutating provider/operator
// entry points, and the websocket bidding-window feed.
//
// Mutating routes take the acting address from the request body and do
// not verify it; the engine's owner/operator/pool-manager gates are the
// only check. Deployments exposed beyond a trusted network must front
// this API with an authenticating layer that binds callers to their
// addresses.
type Server struct {
	engine  *hook.Engine
	store   *postgres.Store
	hub     *Hub
	logger  *zap.Logger
	limiter *rate.Limiter

	mu           sync.Mutex
	statusChecks []statusCheck
}

type statusCheck struct {
	ID         string `json:"id"`
	ClientName string `json:"client_name"`
	Timestamp  string `json:"timestamp"`
}

// NewServer wires the handler set. store may be nil when history
// persistence is disabled.
func NewServer(engine *hook.Engine, store *postgres.Store, hub *Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:  engine,
		store:   store,
		hub:     hub,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(50), 100),
	}
}

// Router builds the HTTP route table.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimit)

	api.HandleFunc("", s.root).Methods(http.MethodGet)
	api.HandleFunc("/health", s.health).Methods(http.MethodGet)
	api.HandleFunc("/status", s.createStatusCheck).Methods(http.MethodPost)
	api.HandleFunc("/status", s.listStatusChecks).Methods(http.MethodGet)

	api.HandleFunc("/auctions/summary", s.auctionSummary).Methods(http.MethodGet)
	api.HandleFunc("/auctions/recent", s.recentAuctions).Methods(http.MethodGet)
	api.HandleFunc("/auctions/{id}", s.auctionByID).Methods(http.MethodGet)
	api.HandleFunc("/auctions/{id}/settle", s.settleAuction).Methods(http.MethodPost)
	api.HandleFunc("/auctions/{id}/void", s.voidAuction).Methods(http.MethodPost)

	api.HandleFunc("/pools/performance", s.poolPerformance).Methods(http.MethodGet)
	api.HandleFunc("/pools/{id}/metrics", s.poolMetrics).Methods(http.MethodGet)
	api.HandleFunc("/pools/{id}/claim", s.claimRewards).Methods(http.MethodPost)

	api.HandleFunc("/hooks/liquidity", s.liquidityHook).Methods(http.MethodPost)
	api.HandleFunc("/hooks/swap", s.swapHook).Methods(http.MethodPost)

	api.HandleFunc("/operators", s.listOperators).Methods(http.MethodGet)

	if s.hub != nil {
		r.Handle("/ws/events", s.hub)
	}
	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "lvrguard API - loss-versus-rebalancing auction engine",
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	services := map[string]string{"engine": "operational"}
	if s.engine.IsPaused() {
		services["engine"] = "paused"
	}
	if s.store != nil {
		services["database"] = "connected"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  services,
	})
}

func (s *Server) createStatusCheck(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ClientName string `json:"client_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	check := statusCheck{
		ID:         uuid.NewString(),
		ClientName: in.ClientName,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	s.mu.Lock()
	s.statusChecks = append(s.statusChecks, check)
	if len(s.statusChecks) > maxStatusChecks {
		s.statusChecks = s.statusChecks[len(s.statusChecks)-maxStatusChecks:]
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, check)
}

func (s *Server) listStatusChecks(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]statusCheck, len(s.statusChecks))
	copy(out, s.statusChecks)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) auctionSummary(w http.ResponseWriter, r *http.Request) {
	recovered := new(big.Int)
	distributed := new(big.Int)
	for _, pool := range s.engine.PoolIDs() {
		stat := s.engine.PoolStat(pool)
		if v, ok := new(big.Int).SetString(stat.TotalDeposited, 10); ok {
			recovered.Add(recovered, v)
		}
		if v, ok := new(big.Int).SetString(stat.TotalClaimed, 10); ok {
			distributed.Add(distributed, v)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"active_auctions":       s.engine.ActiveAuctionCount(),
		"total_mev_recovered":   weiToEther(recovered),
		"total_lp_rewards":      weiToEther(distributed),
		"avs_operator_count":    len(s.engine.Operators()),
		"undistributed_balance": weiToEther(new(big.Int).Sub(recovered, distributed)),
	})
}

func (s *Server) recentAuctions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []model.AuctionRecord{})
		return
	}
	records, err := s.store.RecentAuctions(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []model.AuctionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) auctionByID(w http.ResponseWriter, r *http.Request) {
	id := common.HexToHash(mux.Vars(r)["id"])
	if auction, ok := s.engine.AuctionByID(id); ok {
		writeJSON(w, http.StatusOK, auction.Record())
		return
	}
	if s.store != nil {
		record, ok, err := s.store.AuctionByID(r.Context(), id.Hex())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if ok {
			writeJSON(w, http.StatusOK, record)
			return
		}
	}
	writeError(w, http.StatusNotFound, hook.ErrAuctionNotFound)
}

func (s *Server) settleAuction(w http.ResponseWriter, r *http.Request) {
	id := common.HexToHash(mux.Vars(r)["id"])
	var in struct {
		Caller     string `json:"caller"`
		Winner     string `json:"winner"`
		WinningBid string `json:"winning_bid"`
		TotalBids  uint32 `json:"total_bids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	bid, ok := new(big.Int).SetString(in.WinningBid, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("invalid winning_bid"))
		return
	}

	err := s.engine.Settle(r.Context(), common.HexToAddress(in.Caller), id, common.HexToAddress(in.Winner), bid, in.TotalBids)
	if err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "settled", "auction_id": id.Hex()})
}

func (s *Server) voidAuction(w http.ResponseWriter, r *http.Request) {
	id := common.HexToHash(mux.Vars(r)["id"])
	var in struct {
		Caller string `json:"caller"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.engine.Void(common.HexToAddress(in.Caller), id); err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "voided", "auction_id": id.Hex()})
}

func (s *Server) poolPerformance(w http.ResponseWriter, _ *http.Request) {
	pools := s.engine.PoolIDs()
	out := make([]map[string]any, 0, len(pools))
	for _, pool := range pools {
		stat := s.engine.PoolStat(pool)
		entry := map[string]any{
			"pool_id":          stat.PoolID,
			"total_liquidity":  stat.TotalLiquidity,
			"providers":        stat.Providers,
			"auctions_opened":  stat.AuctionsOpened,
			"auctions_settled": stat.AuctionsSettled,
		}
		if v, ok := new(big.Int).SetString(stat.TotalDeposited, 10); ok {
			entry["rewards_deposited"] = weiToEther(v)
		}
		if v, ok := new(big.Int).SetString(stat.TotalClaimed, 10); ok {
			entry["rewards_distributed"] = weiToEther(v)
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) poolMetrics(w http.ResponseWriter, r *http.Request) {
	pool := common.HexToHash(mux.Vars(r)["id"])
	stat := s.engine.PoolStat(pool)

	resp := map[string]any{"pool": stat}
	if s.store != nil {
		claims, err := s.store.ClaimsForPool(r.Context(), pool.Hex(), 50)
		if err == nil {
			if claims == nil {
				claims = []model.ClaimRecord{}
			}
			resp["recent_claims"] = claims
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) claimRewards(w http.ResponseWriter, r *http.Request) {
	pool := common.HexToHash(mux.Vars(r)["id"])
	var in struct {
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := s.engine.Claim(r.Context(), pool, common.HexToAddress(in.Provider))
	if err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "claimed",
		"pool_id": pool.Hex(),
		"amount":  amount.String(),
	})
}

func (s *Server) liquidityHook(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Caller    string `json:"caller"`
		PoolID    string `json:"pool_id"`
		Provider  string `json:"provider"`
		Delta     string `json:"delta"`
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	delta, ok := new(big.Int).SetString(in.Delta, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("invalid delta"))
		return
	}

	caller := common.HexToAddress(in.Caller)
	pool := common.HexToHash(in.PoolID)
	provider := common.HexToAddress(in.Provider)

	var ack string
	var err error
	switch in.Direction {
	case "add":
		ack, err = s.engine.OnLiquidityAdded(caller, pool, provider, delta)
	case "remove":
		ack, err = s.engine.OnLiquidityRemoved(caller, pool, provider, delta)
	default:
		writeError(w, http.StatusBadRequest, errors.New("direction must be add or remove"))
		return
	}
	if err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ack": ack})
}

func (s *Server) swapHook(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Caller    string `json:"caller"`
		PoolID    string `json:"pool_id"`
		Asset0    string `json:"asset0"`
		Asset1    string `json:"asset1"`
		PoolPrice string `json:"pool_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	price, ok := new(big.Int).SetString(in.PoolPrice, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("invalid pool_price"))
		return
	}

	ack, err := s.engine.OnSwap(r.Context(), common.HexToAddress(in.Caller), common.HexToHash(in.PoolID),
		common.HexToAddress(in.Asset0), common.HexToAddress(in.Asset1), price)
	if err != nil {
		writeError(w, statusForEngineError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ack": ack})
}

func (s *Server) listOperators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.OperatorStats(r.Context()))
}

// Serve runs the HTTP server until the context is canceled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func statusForEngineError(err error) int {
	switch {
	case errors.Is(err, hook.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, hook.ErrPaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, hook.ErrAuctionNotFound):
		return http.StatusNotFound
	case errors.Is(err, hook.ErrAuctionNotActive),
		errors.Is(err, hook.ErrAuctionNotEnded),
		errors.Is(err, hook.ErrAuctionAlreadyActive),
		errors.Is(err, hook.ErrInsufficientLiquidity),
		errors.Is(err, hook.ErrNoLiquidity):
		return http.StatusConflict
	case errors.Is(err, hook.ErrInvalidAmount),
		errors.Is(err, hook.ErrInvalidConfiguration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func weiToEther(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, 0).Div(weiPerEther).String()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
