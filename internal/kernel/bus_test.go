package kernel

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRequestReplyRoundTrip(t *testing.T) {
	bus := NewBus(4)
	go func() {
		env := <-bus.Chan()
		env.Reply.Fulfill(env.Payload)
	}()

	got, err := bus.Request(context.Background(), "echo/ping", "hello")
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("Request() = %v, want %q", got, "hello")
	}
}

func TestRequestExactlyOneReplyObservedOnDoubleFulfill(t *testing.T) {
	bus := NewBus(4)
	go func() {
		env := <-bus.Chan()
		env.Reply.Fulfill("first")
		env.Reply.Fulfill("second") // must be a silent no-op
	}()

	got, err := bus.Request(context.Background(), "echo/ping", nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if got != "first" {
		t.Errorf("Request() = %v, want %q", got, "first")
	}
}

func TestRequestObservesHandlerDroppedWhenHandleIsDropped(t *testing.T) {
	bus := NewBus(4)
	go func() {
		env := <-bus.Chan()
		env.Reply.Drop()
	}()

	_, err := bus.Request(context.Background(), "echo/ping", nil)
	busErr, ok := err.(*BusError)
	if !ok {
		t.Fatalf("err type = %T, want *BusError", err)
	}
	if busErr.Kind != HandlerDropped {
		t.Errorf("err.Kind = %v, want %v", busErr.Kind, HandlerDropped)
	}
}

func TestRequestFailPropagatesBusError(t *testing.T) {
	bus := NewBus(4)
	go func() {
		env := <-bus.Chan()
		env.Reply.Fail(PayloadMismatchError(env.Method, "int"))
	}()

	_, err := bus.Request(context.Background(), "echo/ping", "not an int")
	busErr, ok := err.(*BusError)
	if !ok {
		t.Fatalf("err type = %T, want *BusError", err)
	}
	if busErr.Kind != PayloadMismatch {
		t.Errorf("err.Kind = %v, want %v", busErr.Kind, PayloadMismatch)
	}
}

func TestPerSenderRequestsPreserveFIFOOrder(t *testing.T) {
	bus := NewBus(8)
	const n = 20

	go func() {
		for i := 0; i < n; i++ {
			env := <-bus.Chan()
			env.Reply.Fulfill(env.Payload)
		}
	}()

	for i := 0; i < n; i++ {
		got, err := bus.Request(context.Background(), "echo/ping", i)
		if err != nil {
			t.Fatalf("Request(%d) error = %v", i, err)
		}
		if got != i {
			t.Fatalf("Request(%d) = %v, want %d (FIFO order broken)", i, got, i)
		}
	}
}

func TestNotifyDoesNotBlockWhenBusIsFull(t *testing.T) {
	bus := NewBus(1)
	if err := bus.Notify("echo/ping", nil); err != nil {
		t.Fatalf("first Notify() error = %v", err)
	}

	err := bus.Notify("echo/ping", nil)
	busErr, ok := err.(*BusError)
	if !ok {
		t.Fatalf("err type = %T, want *BusError", err)
	}
	if busErr.Kind != HandlerBusy {
		t.Errorf("err.Kind = %v, want %v", busErr.Kind, HandlerBusy)
	}
}

func TestRequestBlocksUntilBusHasSpaceThenCancelUnblocksIt(t *testing.T) {
	bus := NewBus(1)
	// Fill the queue with an envelope nobody drains, so the next Request blocks on send.
	stuck := make(chan Envelope, 1)
	bus.ch <- Envelope{Kind: KindNotification, Method: "x"}
	_ = stuck

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := bus.Request(ctx, "echo/ping", nil)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Request() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Request() did not unblock after ctx cancellation")
	}
}

func TestRequestAfterCloseObservesChannelClosed(t *testing.T) {
	bus := NewBus(4)
	bus.Close()

	_, err := bus.Request(context.Background(), "echo/ping", nil)
	busErr, ok := err.(*BusError)
	if !ok {
		t.Fatalf("err type = %T, want *BusError", err)
	}
	if busErr.Kind != ChannelClosed {
		t.Errorf("err.Kind = %v, want %v", busErr.Kind, ChannelClosed)
	}
}

func TestConcurrentSendersEachGetTheirOwnReply(t *testing.T) {
	bus := NewBus(16)
	const n = 50

	go func() {
		for i := 0; i < n; i++ {
			env := <-bus.Chan()
			go env.Reply.Fulfill(env.Payload)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := bus.Request(context.Background(), "echo/ping", i)
			if err != nil {
				t.Errorf("Request(%d) error = %v", i, err)
				return
			}
			if got != i {
				t.Errorf("Request(%d) = %v, want %d", i, got, i)
			}
		}(i)
	}
	wg.Wait()
}
