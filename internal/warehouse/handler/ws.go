package handler

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/almoxarifado/almox-backend/internal/warehouse/notify"
	"github.com/almoxarifado/almox-backend/pkg/logger"
)

const wsWriteTimeout = 10 * time.Second

// WSHandler upgrades push subscription requests and ties the socket
// into the notification hub.
type WSHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(hub *notify.Hub, log *logger.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser frontend connects from another origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// wsConn serializes writes; the hub may push from several goroutines
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// Subscribe upgrades the connection and registers it for pushes.
// A user_id query parameter additionally subscribes the socket to
// pushes addressed to that user; without it the socket only gets
// broadcasts.
func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if userID < 0 {
		userID = 0
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	wrapped := &wsConn{conn: conn}
	h.hub.Register(userID, wrapped)

	h.logger.Info().Int64("user_id", userID).Msg("websocket subscribed")

	// Reads are only consumed to detect the peer going away
	go func() {
		defer func() {
			h.hub.Unregister(userID, wrapped)
			conn.Close()
			h.logger.Info().Int64("user_id", userID).Msg("websocket closed")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
