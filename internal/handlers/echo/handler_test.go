package echo

import (
	"context"
	"testing"
	"time"

	"github.com/araliya/araliyad/internal/kernel"
)

// driveOne pulls exactly one envelope off the bus and dispatches it
// into h, mirroring the minimal slice of supervisor.runRequest /
// runNotification needed to exercise a handler standalone.
func driveOne(t *testing.T, bus *kernel.Bus, h *Handler) {
	t.Helper()
	select {
	case env := <-bus.Chan():
		if env.Kind == kernel.KindRequest {
			h.HandleRequest(context.Background(), env.Method, env.Payload, env.Reply)
		} else {
			h.HandleNotification(env.Method, env.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestHandleRequest_Ping(t *testing.T) {
	h := New()
	bus := kernel.NewBus(4)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go driveOne(t, bus, h)
	got, err := bus.Request(ctx, "echo/ping", "hello")
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if got != "hello" {
		t.Errorf("got %v, want %q", got, "hello")
	}
}

func TestHandleRequest_Count(t *testing.T) {
	h := New()
	bus := kernel.NewBus(4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go driveOne(t, bus, h)
	if _, err := bus.Request(ctx, "echo/ping", nil); err != nil {
		t.Fatalf("Request(ping) error: %v", err)
	}

	go driveOne(t, bus, h)
	got, err := bus.Request(ctx, "echo/count", nil)
	if err != nil {
		t.Fatalf("Request(count) error: %v", err)
	}
	if got != uint64(2) {
		t.Errorf("got %v, want 2", got)
	}
}

func TestHandleRequest_UnknownMethodFails(t *testing.T) {
	h := New()
	bus := kernel.NewBus(4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go driveOne(t, bus, h)
	_, err := bus.Request(ctx, "echo/bogus", nil)
	if err == nil {
		t.Fatal("expected error for unknown method, got nil")
	}
}

func TestHandleNotification_CountsWithoutReply(t *testing.T) {
	h := New()
	bus := kernel.NewBus(4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := bus.Notify("echo/ping", nil); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	driveOne(t, bus, h)

	go driveOne(t, bus, h)
	got, err := bus.Request(ctx, "echo/count", nil)
	if err != nil {
		t.Fatalf("Request(count) error: %v", err)
	}
	if got != uint64(2) {
		t.Errorf("got %v, want 2", got)
	}
}

func TestComponentInfo_ReportsRunning(t *testing.T) {
	h := New()
	info := h.ComponentInfo()
	if info.State != kernel.StatusOn {
		t.Errorf("State = %v, want %v", info.State, kernel.StatusOn)
	}
	if info.ID != "echo" {
		t.Errorf("ID = %q, want %q", info.ID, "echo")
	}
}
