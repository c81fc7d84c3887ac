// Package notify fans warehouse events out to connected frontends.
// The hub tracks one pool of general connections (dashboards) plus
// per-user pools, so status updates can target the requester alone.
package notify

import (
	"sync"

	"github.com/almoxarifado/almox-backend/pkg/logger"
)

// Push types sent over the wire
const (
	PushNewAlert               = "new_alert"
	PushNewWithdrawalRequest   = "new_withdrawal_request"
	PushWithdrawalStatusUpdate = "withdrawal_status_update"
)

// Push is the envelope for every outbound notification
type Push struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Conn is the minimal connection surface the hub needs. The websocket
// handler wraps *websocket.Conn; tests plug in fakes.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub tracks live connections and delivers pushes to them
type Hub struct {
	mu      sync.RWMutex
	general map[Conn]struct{}
	users   map[int64]map[Conn]struct{}
	logger  *logger.Logger
}

// NewHub creates a new hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		general: make(map[Conn]struct{}),
		users:   make(map[int64]map[Conn]struct{}),
		logger:  log,
	}
}

// Register adds a connection. userID 0 registers a general connection
// that receives broadcasts only.
func (h *Hub) Register(userID int64, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userID == 0 {
		h.general[conn] = struct{}{}
		return
	}

	if h.users[userID] == nil {
		h.users[userID] = make(map[Conn]struct{})
	}
	h.users[userID][conn] = struct{}{}
}

// Unregister removes a connection. Safe to call twice.
func (h *Hub) Unregister(userID int64, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userID == 0 {
		delete(h.general, conn)
		return
	}

	if conns, ok := h.users[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.users, userID)
		}
	}
}

// Broadcast delivers a push to every connection, general and per-user.
// Connections whose write fails are dropped.
func (h *Hub) Broadcast(push Push) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.general {
		if err := conn.WriteJSON(push); err != nil {
			h.logger.Warn().Err(err).Msg("dropping dead general connection")
			conn.Close()
			delete(h.general, conn)
		}
	}

	for userID, conns := range h.users {
		for conn := range conns {
			if err := conn.WriteJSON(push); err != nil {
				h.logger.Warn().Err(err).Int64("user_id", userID).Msg("dropping dead user connection")
				conn.Close()
				delete(conns, conn)
			}
		}
		if len(conns) == 0 {
			delete(h.users, userID)
		}
	}
}

// NotifyUser delivers a push to one user's connections only. Users
// with no live connection miss the push; state lives in the database,
// not the socket.
func (h *Hub) NotifyUser(userID int64, push Push) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.users[userID]
	if !ok {
		return
	}

	for conn := range conns {
		if err := conn.WriteJSON(push); err != nil {
			h.logger.Warn().Err(err).Int64("user_id", userID).Msg("dropping dead user connection")
			conn.Close()
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.users, userID)
	}
}

// ConnectionCount reports how many connections are registered
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := len(h.general)
	for _, conns := range h.users {
		count += len(conns)
	}
	return count
}
