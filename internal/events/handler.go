package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/pocketos/internal/identity"
)

const writeTimeout = 10 * time.Second

// Handler upgrades requests to a WebSocket stream of Events for the
// requesting device and tab.
type Handler struct {
	hub            *Hub
	originPatterns []string
}

// NewHandler creates a Handler. originPatterns follow websocket.AcceptOptions.
func NewHandler(hub *Hub, originPatterns []string) *Handler {
	return &Handler{hub: hub, originPatterns: originPatterns}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deviceID := identity.DeviceIDFromContext(r.Context())
	tabID := identity.TabIDFromContext(r.Context())
	if deviceID == "" {
		http.Error(w, `{"error":"unknown device"}`, http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "device_id", deviceID)
		return
	}

	events, cancel := h.hub.Subscribe(deviceID, tabID)
	defer cancel()

	// Nothing is read from the client; CloseRead handles control frames
	// and cancels ctx once the peer goes away.
	ctx := ws.CloseRead(r.Context())

	reason := "stream ended"
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, reason); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "device_id", deviceID)
		}
	}()

	if err := writeJSON(ctx, ws, Event{Store: "hello", Reason: "connected", At: time.Now().UnixMilli()}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				reason = "stream replaced"
				return
			}
			if err := writeJSON(ctx, ws, ev); err != nil {
				slog.Debug("Event write failed", "error", err, "device_id", deviceID, "tab_id", tabID)
				return
			}
		}
	}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
