package websocket

import (
	"github.com/gorilla/websocket"

	"sealed-auction/pkg/logger"
)

type WebSocketConnection struct {
	conn      *websocket.Conn
	clientID  string
	auctionID uint64
	log       logger.Logger
}

func NewWebSocketConnection(conn *websocket.Conn, clientID string, auctionID uint64, log logger.Logger) *WebSocketConnection {
	return &WebSocketConnection{
		conn:      conn,
		clientID:  clientID,
		auctionID: auctionID,
		log:       log,
	}
}

func (wsc *WebSocketConnection) Send(message interface{}) error {
	return wsc.conn.WriteJSON(message)
}

func (wsc *WebSocketConnection) Close() error {
	return wsc.conn.Close()
}

func (wsc *WebSocketConnection) ClientID() string {
	return wsc.clientID
}

func (wsc *WebSocketConnection) AuctionID() uint64 {
	return wsc.auctionID
}
