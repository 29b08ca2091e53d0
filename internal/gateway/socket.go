// ABOUTME: Websocket endpoint that pushes newMessage events to connected users
// ABOUTME: One broadcaster subscription per socket, with ping/pong keepalive

package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2389/coven-chat/internal/auth"
	"github.com/2389/coven-chat/internal/model"
	"github.com/2389/coven-chat/internal/realtime"
)

const (
	socketWriteWait  = 10 * time.Second
	socketPongWait   = 60 * time.Second
	socketPingPeriod = 20 * time.Second
	socketReadLimit  = 4 << 10
)

var socketUpgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 10 * time.Second,
	// Origins are enforced by the cors middleware and the bearer token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleSocket handles GET /api/socket. The optional userId query parameter
// must match the token's user.
func (g *Gateway) handleSocket(w http.ResponseWriter, r *http.Request) {
	me := auth.MustFromContext(r.Context())
	if id := r.URL.Query().Get("userId"); id != "" && id != me.ID {
		g.sendJSONError(w, http.StatusForbidden, "Forbidden - userId does not match token")
		return
	}

	// Subscribe before the handshake completes so nothing sent after the
	// client sees the connection open is missed. The request context ends
	// when the handler returns, which also drops the subscription.
	msgs, subID := g.broadcaster.Subscribe(r.Context(), me.ID)
	defer g.broadcaster.Unsubscribe(me.ID, subID)

	ws, err := socketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		g.logger.Debug("websocket upgrade failed", "user_id", me.ID, "error", err)
		return
	}

	logger := g.logger.With("user_id", me.ID, "sub_id", subID)
	logger.Info("socket connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		g.readSocket(ws)
	}()

	g.writeSocket(ws, msgs, done, logger)
	_ = ws.Close()
	<-done
	logger.Info("socket disconnected")
}

// readSocket discards client frames and keeps the read deadline fresh until
// the connection fails.
func (g *Gateway) readSocket(ws *websocket.Conn) {
	ws.SetReadLimit(socketReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(socketPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(socketPongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

// writeSocket is the only writer on ws.
func (g *Gateway) writeSocket(ws *websocket.Conn, msgs <-chan model.Message, done <-chan struct{}, logger *slog.Logger) {
	ticker := time.NewTicker(socketPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-msgs:
			if !ok {
				_ = ws.SetWriteDeadline(time.Now().Add(socketWriteWait))
				_ = ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			frame, err := newMessageFrame(msg)
			if err != nil {
				logger.Debug("failed to encode frame", "message_id", msg.ID, "error", err)
				continue
			}
			_ = ws.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug("socket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait)); err != nil {
				logger.Debug("socket ping failed", "error", err)
				return
			}
		}
	}
}

func newMessageFrame(msg model.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(realtime.Frame{Event: realtime.EventNewMessage, Data: data})
}
