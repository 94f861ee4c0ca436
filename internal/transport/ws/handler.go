package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"surveybot/internal/logger"
	"surveybot/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Operators authenticate with a token
	},
}

// TokenValidator checks operator tokens
type TokenValidator interface {
	ValidateOperatorToken(token string) (*model.OperatorClaims, error)
}

// Handler handles WebSocket connections
type Handler struct {
	hub       *Hub
	validator TokenValidator
	logger    *logger.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, validator TokenValidator, log *logger.Logger) *Handler {
	return &Handler{hub: hub, validator: validator, logger: log}
}

// FeedWS handles GET /v1/ws/feed?token=
func (h *Handler) FeedWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.validator.ValidateOperatorToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	conn := &Connection{
		OperatorID: claims.OperatorID,
		Send:       make(chan []byte, 256),
	}
	hello, _ := json.Marshal(map[string]string{"operatorId": claims.OperatorID})
	conn.Send <- mustMessage(MsgHello, hello)

	if !h.hub.Register(conn) {
		_ = wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		wsConn.Close()
		return
	}

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// The feed is one-way; reads only drive pongs and close detection
		if _, _, err := wsConn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.WithError(err).Warn("WebSocket error", zap.String("operator_id", conn.OperatorID))
			}
			return
		}
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func mustMessage(t MessageType, payload json.RawMessage) []byte {
	data, _ := json.Marshal(&Message{Type: t, Payload: payload})
	return data
}
