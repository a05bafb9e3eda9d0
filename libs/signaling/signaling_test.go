package signaling

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestServerConnectDisconnectOrdering(t *testing.T) {
	srv := NewServer()

	var mu sync.Mutex
	var events []string

	srv.OnConnected(func(clientID string) {
		mu.Lock()
		events = append(events, "connected:"+clientID)
		mu.Unlock()
	})
	srv.OnDisconnected(func(clientID string) {
		mu.Lock()
		events = append(events, "disconnected:"+clientID)
		mu.Unlock()
	})
	srv.OnEvent(EventOffer, func(clientID string, env Envelope) {
		mu.Lock()
		events = append(events, "offer:"+clientID)
		mu.Unlock()
	})

	ts := httptest.NewServer(http.HandlerFunc(srv.ServeHTTP))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "?client_id=test-client"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if err := conn.WriteJSON(OfferEnvelope("test-client", "relay", "v=0 sdp")); err != nil {
		t.Fatalf("write offer: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	conn.Close()
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %v", len(events), events)
	}
	if events[0] != "connected:test-client" {
		t.Fatalf("first event %q, want connected first", events[0])
	}
	if events[1] != "offer:test-client" {
		t.Fatalf("second event %q, want offer between connect and disconnect", events[1])
	}
	if events[2] != "disconnected:test-client" {
		t.Fatalf("last event %q, want disconnected last", events[2])
	}
}
