package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"sealed-auction/internal/infrastructure/websocket"
	"sealed-auction/internal/services"
	"sealed-auction/pkg/logger"
)

type WebSocketHandlers struct {
	wsHandler *websocket.WebSocketHandler
}

func NewWebSocketHandlers(engine *services.Engine, connManager *websocket.ConnectionManager, log logger.Logger) *WebSocketHandlers {
	return &WebSocketHandlers{
		wsHandler: websocket.NewWebSocketHandler(engine, connManager, log),
	}
}

// Watch upgrades GET /ws/:id into a live subscription on one auction room.
func (h *WebSocketHandlers) Watch(c echo.Context) error {
	auctionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid auction id"})
	}

	clientID := c.QueryParam("client_id")
	if clientID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "client_id required"})
	}

	h.wsHandler.HandleConnection(c.Response(), c.Request(), auctionID, clientID)
	return nil
}
