package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/goleak"

	"github.com/ashureev/pocketos/internal/identity"
)

func TestHubSubscribeNotify(t *testing.T) {
	h := NewHub(4)
	ch, cancel := h.Subscribe("dev", "tab-1")
	defer cancel()

	h.Notify("dev", "app-storage", "add_message")
	h.Notify("other", "app-storage", "ignored")

	select {
	case ev := <-ch:
		if ev.Store != "app-storage" || ev.Reason != "add_message" || ev.Seq == 0 {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Fatal("expected an event")
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestHubReplaceTab(t *testing.T) {
	h := NewHub(1)
	first, cancelFirst := h.Subscribe("dev", "tab-1")
	_, cancelSecond := h.Subscribe("dev", "tab-1")
	defer cancelSecond()

	if _, ok := <-first; ok {
		t.Fatal("replaced subscription should be closed")
	}
	// A stale cancel must not remove the replacement.
	cancelFirst()
	if n := h.Count("dev"); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(1)
	_, cancel := h.Subscribe("dev", "tab-1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Notify("dev", "os-storage", "x")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full subscriber")
	}
}

func TestHubCloseDevice(t *testing.T) {
	h := NewHub(1)
	a, cancelA := h.Subscribe("dev", "a")
	b, cancelB := h.Subscribe("dev", "b")
	defer cancelA()
	defer cancelB()

	h.CloseDevice("dev")
	for i, ch := range []<-chan Event{a, b} {
		if _, ok := <-ch; ok {
			t.Errorf("stream %d still open", i)
		}
	}
	if n := h.Count("dev"); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	h := NewHub(1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			_, cancel := h.Subscribe("dev", "tab-"+strconv.Itoa(i%10))
			cancel()
		}
	}()
	for i := 0; i < 500; i++ {
		h.Notify("dev", "app-storage", "x")
	}
	<-done
}

func TestHandlerStreamsEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(4)
	inner := NewHandler(hub, []string{"*"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner.ServeHTTP(w, r.WithContext(identity.WithDevice(r.Context(), "dev", "tab-1")))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer func() { _ = conn.CloseNow() }()

	hello := readEvent(ctx, t, conn)
	if hello.Store != "hello" {
		t.Fatalf("first event = %+v, want hello", hello)
	}

	hub.Notify("dev", "os-storage", "wallpaper")
	ev := readEvent(ctx, t, conn)
	if ev.Store != "os-storage" || ev.Reason != "wallpaper" {
		t.Errorf("event = %+v", ev)
	}

	if err := conn.Close(websocket.StatusNormalClosure, "bye"); err != nil {
		t.Logf("Close: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count("dev") != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := hub.Count("dev"); n != 0 {
		t.Errorf("Count after close = %d, want 0", n)
	}
}

func TestHandlerRejectsMissingDevice(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(NewHub(1), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func readEvent(ctx context.Context, t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return ev
}
