package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"wmsdash/internal/models"
)

const (
	clientFocus     = "focus"
	clientReconnect = "reconnect"
)

var upgrader = websocket.Upgrader{
	WriteBufferSize: 1024 * 10,
	ReadBufferSize:  1024 * 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Events streams dataset events to the client. Clients report focus and
// reconnects, which refresh stale datasets.
func (h *Handler) Events(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()

	events, unsubscribe := h.upstream.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request().Context()))
	defer cancel()

	// a connection is itself a reconnect
	h.upstream.Touch(ctx, clientReconnect)

	go func() {
		defer cancel()
		for {
			var msg models.Event
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Warn("websocket closed unexpectedly", "error", err)
				} else {
					slog.Debug("websocket closed", "error", err)
				}
				return
			}
			switch msg.Type {
			case clientFocus, clientReconnect:
				h.upstream.Touch(ctx, msg.Type)
			default:
				slog.Debug("ignoring websocket message", "type", msg.Type)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := conn.WriteJSON(ev); err != nil {
				slog.Debug("websocket write failed", "error", err)
				return nil
			}
		}
	}
}
