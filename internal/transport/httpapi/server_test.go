package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/araliya/araliyad/internal/kernel"
	"github.com/araliya/araliyad/internal/kernel/eventfeed"
)

func TestHandleHealth_AllHealthyReturns200(t *testing.T) {
	health := kernel.NewHealthRegistry()
	health.Reporter("echo").SetHealthy()
	s := New("127.0.0.1:0", health, eventfeed.New(), nil)

	srv := httptest.NewServer(s.httpServer.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if healthy, _ := body["healthy"].(bool); !healthy {
		t.Errorf("healthy = %v, want true", body["healthy"])
	}
}

func TestHandleHealth_UnhealthyReturns503(t *testing.T) {
	health := kernel.NewHealthRegistry()
	health.Reporter("llm").SetUnhealthy("upstream down")
	s := New("127.0.0.1:0", health, eventfeed.New(), nil)

	srv := httptest.NewServer(s.httpServer.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestHandleEvents_StreamsPublishedEvents(t *testing.T) {
	health := kernel.NewHealthRegistry()
	events := eventfeed.New()
	s := New("127.0.0.1:0", health, events, nil)

	srv := httptest.NewServer(s.httpServer.Handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the subscription before publishing.
	time.Sleep(50 * time.Millisecond)
	events.Publish(eventfeed.Event{Source: eventfeed.SourceKernel, Kind: eventfeed.KindHealthChanged, Data: "echo"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got eventfeed.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Kind != eventfeed.KindHealthChanged {
		t.Errorf("Kind = %v, want %v", got.Kind, eventfeed.KindHealthChanged)
	}
}
