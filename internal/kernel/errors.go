package kernel

import "fmt"

// BusErrorKind closes the set of error variants a bus request or
// notification can surface to its sender. See spec §3 "Bus error
// taxonomy" and §7.
type BusErrorKind string

const (
	// MethodNotFound means no handler is registered for the method's prefix.
	MethodNotFound BusErrorKind = "MethodNotFound"
	// HandlerBusy means a notification was dropped because the bus is full.
	HandlerBusy BusErrorKind = "HandlerBusy"
	// HandlerDropped means the handler released the reply handle without
	// fulfilling it.
	HandlerDropped BusErrorKind = "HandlerDropped"
	// PayloadMismatch means the handler rejected the payload shape.
	PayloadMismatch BusErrorKind = "PayloadMismatch"
	// Timeout is reserved for senders that layer their own deadline on
	// top of a request; the kernel itself never produces it (per-request
	// timeouts are a sender concern, spec §5).
	Timeout BusErrorKind = "Timeout"
	// ChannelClosed means the bus or control channel has been torn down;
	// the kernel is shutting down or has already exited.
	ChannelClosed BusErrorKind = "ChannelClosed"
)

// BusError is the concrete error type returned by Request and Notify.
type BusError struct {
	Kind    BusErrorKind
	Message string
}

// Error implements the error interface.
func (e *BusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func errMethodNotFound(method string) *BusError {
	return &BusError{Kind: MethodNotFound, Message: fmt.Sprintf("method not found: %s", method)}
}

func errHandlerBusy(method string) *BusError {
	return &BusError{Kind: HandlerBusy, Message: fmt.Sprintf("bus full, dropping notification: %s", method)}
}

func errHandlerDropped(method string) *BusError {
	return &BusError{Kind: HandlerDropped, Message: fmt.Sprintf("handler dropped reply for: %s", method)}
}

func errChannelClosed(what string) *BusError {
	return &BusError{Kind: ChannelClosed, Message: fmt.Sprintf("%s is closed", what)}
}

// PayloadMismatchError is a convenience constructor handlers use when a
// request's payload does not match the shape their method expects.
func PayloadMismatchError(method string, want string) *BusError {
	return &BusError{
		Kind:    PayloadMismatch,
		Message: fmt.Sprintf("method %s expects %s payload", method, want),
	}
}
