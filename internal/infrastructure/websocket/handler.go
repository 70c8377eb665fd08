package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"sealed-auction/internal/domain"
	"sealed-auction/internal/services"
	"sealed-auction/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// WebSocketHandler upgrades watch requests into auction-room subscriptions.
// Clients receive the event feed for one auction; bids still go through the
// HTTP surface.
type WebSocketHandler struct {
	engine      *services.Engine
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewWebSocketHandler(engine *services.Engine, connManager domain.ConnectionManager, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		engine:      engine,
		connManager: connManager,
		log:         log,
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request, auctionID uint64, clientID string) {
	info, err := h.engine.GetAuctionInfo(r.Context(), auctionID)
	if err != nil {
		h.log.Error("Failed to find auction", "error", err, "auction_id", auctionID)
		http.Error(w, "auction not found", http.StatusNotFound)
		return
	}
	if info.IsResolved {
		h.log.Info("Rejected connection, auction already resolved", "auction_id", auctionID)
		http.Error(w, "auction already resolved", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewWebSocketConnection(conn, clientID, auctionID, h.log)

	if err := h.connManager.RegisterConnection(clientID, auctionID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		_ = conn.Close()
		return
	}

	// Send the current snapshot, then keep the socket open for pushes.
	if err := wsConn.Send(map[string]interface{}{"type": "snapshot", "auction": info}); err != nil {
		h.log.Error("Failed to send snapshot", "error", err)
	}

	go h.readLoop(wsConn, clientID, auctionID)
}

func (h *WebSocketHandler) readLoop(conn *WebSocketConnection, clientID string, auctionID uint64) {
	defer func() {
		h.connManager.UnregisterConnection(clientID, auctionID)
		conn.Close()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.conn.ReadJSON(&msg); err != nil {
			return
		}

		if msgType, ok := msg["type"].(string); ok && msgType == "ping" {
			conn.Send(map[string]string{"type": "pong"})
		}
	}
}
