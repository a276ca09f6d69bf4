package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestConn(userID uuid.UUID) *Connection {
	return &Connection{UserID: userID, Send: make(chan []byte, 4)}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestHubRegisterAndPresence(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Shutdown()

	alice := uuid.New()
	conn := newTestConn(alice)

	if h.IsOnline(alice) {
		t.Fatalf("user online before registering")
	}

	h.Register(conn)
	waitFor(t, func() bool { return h.IsOnline(alice) })

	if got := h.GetConnectionCount(); got != 1 {
		t.Fatalf("expected 1 connection, got %d", got)
	}

	h.Unregister(conn)
	waitFor(t, func() bool { return !h.IsOnline(alice) })

	if _, open := <-conn.Send; open {
		t.Fatalf("send channel must be closed after unregister")
	}
}

func TestHubSendToUserJSON(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Shutdown()

	alice, bob := uuid.New(), uuid.New()
	conn := newTestConn(alice)
	h.Register(conn)
	waitFor(t, func() bool { return h.IsOnline(alice) })

	if err := h.SendToUserJSON(alice, map[string]string{"type": "test", "body": "hello"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	select {
	case data := <-conn.Send:
		var payload map[string]string
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if payload["type"] != "test" || payload["body"] != "hello" {
			t.Fatalf("unexpected payload: %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event delivered")
	}

	// Sending to a user with no connections is a quiet no-op.
	if err := h.SendToUserJSON(bob, map[string]string{"type": "test"}); err != nil {
		t.Fatalf("send to offline user failed: %v", err)
	}
}

func TestHubFansOutToAllConnectionsOfUser(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Shutdown()

	alice := uuid.New()
	first, second := newTestConn(alice), newTestConn(alice)
	h.Register(first)
	h.Register(second)
	waitFor(t, func() bool { return h.GetConnectionCount() == 2 })

	if err := h.SendToUserJSON(alice, map[string]string{"type": "test"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	for _, conn := range []*Connection{first, second} {
		select {
		case <-conn.Send:
		case <-time.After(time.Second):
			t.Fatalf("connection missed the event")
		}
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Shutdown()

	alice := uuid.New()
	conn := &Connection{UserID: alice, Send: make(chan []byte, 1)}
	h.Register(conn)
	waitFor(t, func() bool { return h.IsOnline(alice) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			h.SendToUserJSON(alice, map[string]int{"seq": i})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("send must not block on a full buffer")
	}

	// Only the first event fit; the rest were dropped, not queued.
	<-conn.Send
	select {
	case data := <-conn.Send:
		t.Fatalf("unexpected queued event: %s", data)
	default:
	}
}
