package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/repcoach/internal/app"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// SnapshotSource publishes status snapshots.
type SnapshotSource interface {
	Subscribe() (<-chan app.Snapshot, func())
}

// EventsHandler pushes every status change to websocket clients as JSON.
type EventsHandler struct {
	source   SnapshotSource
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewEventsHandler creates a new EventsHandler. A nil policy accepts only
// same-host origins.
func NewEventsHandler(source SnapshotSource, log *slog.Logger, policy *OriginPolicy) *EventsHandler {
	if policy == nil {
		policy = NewOriginPolicy(nil)
	}
	return &EventsHandler{
		source:   source,
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: policy.Allow},
	}
}

// ServeHTTP upgrades the connection and streams snapshots until either
// side goes away.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.source.Subscribe()
	defer cancel()

	// Reader: handles pongs and notices the client leaving.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case snap, ok := <-updates:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
