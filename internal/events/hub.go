// Package events pushes state-change notifications to connected browser
// tabs over WebSocket.
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Event tells a tab that one of its stores changed and should be re-read.
type Event struct {
	Seq    int64  `json:"seq"`
	Store  string `json:"store"`
	Reason string `json:"reason"`
	At     int64  `json:"at"`
}

type subscriber struct {
	ch     chan Event
	closed bool
}

// Hub fans events out to the tabs of each device. A device may have many
// tabs; each tab id holds at most one subscription.
type Hub struct {
	mu     sync.Mutex
	active map[string]map[string]*subscriber
	seq    atomic.Int64
	buffer int
}

// NewHub creates a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		active: make(map[string]map[string]*subscriber),
		buffer: buffer,
	}
}

// Subscribe registers a tab. An existing subscription for the same tab is
// closed. The returned cancel func is safe to call more than once.
func (h *Hub) Subscribe(deviceID, tabID string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if _, ok := h.active[deviceID]; !ok {
		h.active[deviceID] = make(map[string]*subscriber)
	}
	if existing, ok := h.active[deviceID][tabID]; ok {
		existing.close()
	}
	h.active[deviceID][tabID] = sub
	h.mu.Unlock()
	slog.Info("Event stream registered", "device_id", deviceID, "tab_id", tabID)

	return sub.ch, func() { h.unsubscribe(deviceID, tabID, sub) }
}

func (h *Hub) unsubscribe(deviceID, tabID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub.close()
	tabs, ok := h.active[deviceID]
	if !ok {
		return
	}
	if current, exists := tabs[tabID]; exists && current == sub {
		delete(tabs, tabID)
		if len(tabs) == 0 {
			delete(h.active, deviceID)
		}
		slog.Info("Event stream unregistered", "device_id", deviceID, "tab_id", tabID)
	}
}

// Notify implements the state and settings notifier contracts. Slow tabs
// miss events rather than block the writer.
func (h *Hub) Notify(deviceID, store, reason string) {
	ev := Event{Seq: h.seq.Add(1), Store: store, Reason: reason, At: time.Now().UnixMilli()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for tabID, sub := range h.active[deviceID] {
		select {
		case sub.ch <- ev:
		default:
			slog.Debug("Event dropped for slow tab", "device_id", deviceID, "tab_id", tabID, "seq", ev.Seq)
		}
	}
}

// CloseDevice ends every stream of a device.
func (h *Hub) CloseDevice(deviceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tabs, ok := h.active[deviceID]
	if !ok {
		return
	}
	for tabID, sub := range tabs {
		sub.close()
		slog.Info("Event stream closed", "device_id", deviceID, "tab_id", tabID)
	}
	delete(h.active, deviceID)
}

// Count returns the number of open streams for deviceID.
func (h *Hub) Count(deviceID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.active[deviceID])
}

// close must be called with the hub lock held.
func (s *subscriber) close() {
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
