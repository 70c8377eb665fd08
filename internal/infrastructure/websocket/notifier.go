package websocket

import (
	"context"

	"sealed-auction/internal/domain"
)

// WebSocketNotifier bridges the redis event feed onto auction rooms.
type WebSocketNotifier struct {
	connManager domain.ConnectionManager
}

func NewWebSocketNotifier(connManager domain.ConnectionManager) *WebSocketNotifier {
	return &WebSocketNotifier{connManager: connManager}
}

func (n *WebSocketNotifier) BroadcastToAuction(ctx context.Context, auctionID uint64, message interface{}) error {
	return n.connManager.BroadcastToAuction(auctionID, message)
}

// HandleEvent is the domain.EventHandler fed by the event subscriber.
func (n *WebSocketNotifier) HandleEvent(event *domain.AuctionEvent) error {
	return n.connManager.BroadcastToAuction(event.AuctionID, event)
}
