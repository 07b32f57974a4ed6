package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lvrguard/internal/model"
)

// Hub broadcasts event envelopes to websocket subscribers. It implements
// the engine's notifier interface so operators can watch bidding windows
// live.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	// writeMu serializes broadcasts; gorilla connections allow a single
	// concurrent writer.
	writeMu sync.Mutex
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and keeps it registered until the
// peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client connected", zap.Int("clients", count))

	// Drain reads so close frames are processed; subscribers are
	// write-only from our side.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(eventType string, payload any) {
	env, err := model.NewEnvelope(eventType, payload)
	if err != nil {
		h.logger.Error("hub envelope", zap.Error(err))
		return
	}
	body, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("hub marshal", zap.Error(err))
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			h.drop(conn)
		}
	}
}

func (h *Hub) AuctionOpened(ev model.AuctionOpened) {
	h.broadcast(model.EventAuctionOpened, ev)
}

func (h *Hub) AuctionEnded(ev model.AuctionEnded) {
	h.broadcast(model.EventAuctionEnded, ev)
}

func (h *Hub) AuctionVoided(ev model.AuctionVoided) {
	h.broadcast(model.EventAuctionVoided, ev)
}

func (h *Hub) RewardsClaimed(ev model.RewardsClaimed) {
	h.broadcast(model.EventRewardsClaimed, ev)
}
