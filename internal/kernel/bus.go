package kernel

import (
	"context"
	"fmt"
)

// DefaultBusBuffer is the default bounded capacity of the bus channel
// (spec §4.1).
const DefaultBusBuffer = 64

// Bus is the bounded FIFO of typed envelopes that carries requests and
// notifications between senders and the supervisor run loop. Create one
// with NewBus at startup and hand the same *Bus to every sender (all
// fields are already safe to share, so passing the pointer around
// serves as the sender clone).
type Bus struct {
	ch     chan Envelope
	closed chan struct{}
}

// NewBus creates a bus with the given bounded buffer size. A
// non-positive size falls back to DefaultBusBuffer.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBusBuffer
	}
	return &Bus{
		ch:     make(chan Envelope, buffer),
		closed: make(chan struct{}),
	}
}

// Chan exposes the receive side for the supervisor run loop. Only the
// supervisor should read from it.
func (b *Bus) Chan() <-chan Envelope {
	return b.ch
}

// Close marks the bus closed for senders. It does not close the
// underlying data channel (closing a channel with pending/future
// senders would panic); instead, further Request/Notify calls observe
// ChannelClosed via the closed signal. Idempotent.
func (b *Bus) Close() {
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}
}

// Request enqueues a request envelope and awaits its reply. If the bus
// is full, Request asynchronously blocks until space is available
// (backpressure is a correctness signal: the caller must wait for its
// answer regardless — spec §4.1). Cancelling ctx while waiting for
// queue space drops the reply handle. Cancelling it while waiting for
// the reply abandons the handle; a handler's later Fulfill/Fail goes
// unread. Once enqueued, the handle is not referenced here, so a
// handler that loses it lets the finalizer close it, which this call
// reports as HandlerDropped.
func (b *Bus) Request(ctx context.Context, method string, payload Payload) (Payload, error) {
	if method == "" {
		return nil, errMethodNotFound(method)
	}

	handle, replyCh := newReplyHandle(method)
	env := Envelope{
		Kind:    KindRequest,
		ID:      newEnvelopeID(),
		Method:  method,
		Payload: payload,
		Reply:   handle,
	}

	select {
	case b.ch <- env:
	case <-b.closed:
		handle.Drop()
		return nil, errChannelClosed("bus")
	case <-ctx.Done():
		handle.Drop()
		return nil, ctx.Err()
	}

	select {
	case r, ok := <-replyCh:
		if !ok {
			return nil, errHandlerDropped(method)
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Notify enqueues a fire-and-forget notification. It never blocks: if
// the bus is full it fails fast with HandlerBusy rather than applying
// backpressure (spec §4.1 — dropping a notification is an operational
// signal, not a correctness one).
func (b *Bus) Notify(method string, payload Payload) error {
	if method == "" {
		return errMethodNotFound(method)
	}

	env := Envelope{
		Kind:    KindNotification,
		ID:      newEnvelopeID(),
		Method:  method,
		Payload: payload,
	}

	select {
	case b.ch <- env:
		return nil
	case <-b.closed:
		return errChannelClosed("bus")
	default:
		return errHandlerBusy(method)
	}
}

// String renders the bus for debug logs (current queue depth / capacity).
func (b *Bus) String() string {
	return fmt.Sprintf("Bus{len=%d cap=%d}", len(b.ch), cap(b.ch))
}
