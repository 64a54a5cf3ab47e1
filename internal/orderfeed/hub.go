package orderfeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Message is pushed to subscribers on every order change.
type Message struct {
	Type  order.ChangeKind `json:"type"`
	Order order.Order      `json:"order"`
}

type subscriber struct {
	userID string
	seller bool
	send   chan []byte
}

// Hub keeps live websocket subscribers. Shoppers see changes to their own
// orders; sellers see every change.
type Hub struct {
	mu       sync.RWMutex
	subs     map[*subscriber]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHub(allowOrigins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	allowAll := len(allowOrigins) == 0 || (len(allowOrigins) == 1 && allowOrigins[0] == "*")
	return &Hub{
		subs:   map[*subscriber]struct{}{},
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if allowAll || origin == "" {
					return true
				}
				for _, o := range allowOrigins {
					if o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// OrderChanged implements order.Notifier. Subscribers whose buffer is full are dropped.
func (h *Hub) OrderChanged(_ context.Context, change order.Change) {
	data, err := json.Marshal(Message{Type: change.Kind, Order: change.Order})
	if err != nil {
		h.logger.Error("encode order feed message failed", "order_id", change.Order.ID, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if !s.seller && s.userID != change.Order.UserID {
			continue
		}
		select {
		case s.send <- data:
		default:
			h.logger.Warn("order feed subscriber too slow, dropping", "user_id", s.userID)
			h.remove(s)
		}
	}
}

// ServeWS upgrades an authenticated request and streams order changes until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	s := &subscriber{userID: p.UserID, seller: auth.Can(p.Role, auth.ManageOrders), send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go h.writePump(conn, s)
	h.readPump(conn, s)
}

// Subscribers reports the number of live connections.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		h.remove(s)
	}
}

// remove must be called with mu held.
func (h *Hub) remove(s *subscriber) {
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.send)
	}
}

func (h *Hub) readPump(conn *websocket.Conn, s *subscriber) {
	defer func() {
		h.mu.Lock()
		h.remove(s)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
