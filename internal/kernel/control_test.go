package kernel

import (
	"context"
	"testing"
)

func TestControlRequestRoundTrip(t *testing.T) {
	control := NewControl(4)
	go func() {
		msg := <-control.Chan()
		msg.reply <- ControlResult{Response: HealthResponse(42)}
	}()

	result, err := control.Request(context.Background(), Health())
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if result.Response.UptimeMS != 42 {
		t.Errorf("UptimeMS = %d, want 42", result.Response.UptimeMS)
	}
}

func TestControlNotifyDoesNotBlockWhenFull(t *testing.T) {
	control := NewControl(1)
	if err := control.Notify(Shutdown()); err != nil {
		t.Fatalf("first Notify() error = %v", err)
	}

	err := control.Notify(Shutdown())
	busErr, ok := err.(*BusError)
	if !ok {
		t.Fatalf("err type = %T, want *BusError", err)
	}
	if busErr.Kind != HandlerBusy {
		t.Errorf("err.Kind = %v, want %v", busErr.Kind, HandlerBusy)
	}
}

func TestControlRequestAfterCloseObservesChannelClosed(t *testing.T) {
	control := NewControl(4)
	control.Close()

	_, err := control.Request(context.Background(), Health())
	busErr, ok := err.(*BusError)
	if !ok {
		t.Fatalf("err type = %T, want *BusError", err)
	}
	if busErr.Kind != ChannelClosed {
		t.Errorf("err.Kind = %v, want %v", busErr.Kind, ChannelClosed)
	}
}

func TestControlCloseIsIdempotent(t *testing.T) {
	control := NewControl(4)
	control.Close()
	control.Close() // must not panic on double close
}
