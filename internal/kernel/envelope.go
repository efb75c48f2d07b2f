// Package kernel implements the Araliya supervisor kernel: the bus
// channel, control channel, health registry, component-info protocol,
// dispatch table, and the supervisor run loop that ties them together.
//
// Concrete subsystems (LLM clients, agents, tools, cron, memory,
// transport adapters) are deliberately out of scope here — they appear
// only as implementations of Handler plugged into a Table, the way
// internal/handlers/* do in this repository.
package kernel

import (
	"runtime"
	"sync"

	"github.com/google/uuid"
)

// Payload is an opaque structured value carried by an envelope. The
// kernel never inspects it; handlers type-assert to the concrete shape
// they expect and return PayloadMismatch on failure. There is no
// runtime registry of payload types — the closed set is per handler,
// not global (spec §9).
type Payload any

// Reply is what a handler delivers into a ReplyHandle: either a payload
// or a bus error, never both.
type Reply struct {
	Payload Payload
	Err     *BusError
}

// ReplyHandle is a single-use, move-only sink for a request's answer.
// The sender creates it, enqueues it as part of a Request envelope, and
// awaits it; the matching handler must Fulfill or Fail it exactly once,
// or explicitly Drop it. A handler that loses its last reference to a
// ReplyHandle without completing it is caught by a finalizer, which
// closes the reply channel the same way an explicit Drop would — the
// sender observes this as a received-false read on the channel, mapped
// to HandlerDropped.
type ReplyHandle struct {
	mu   sync.Mutex
	ch   chan Reply
	done bool
	// method is kept only for diagnostic messages.
	method string
}

func newReplyHandle(method string) (*ReplyHandle, <-chan Reply) {
	ch := make(chan Reply, 1)
	h := &ReplyHandle{ch: ch, method: method}
	runtime.SetFinalizer(h, (*ReplyHandle).finalize)
	return h, ch
}

// Fulfill completes the handle with a successful payload. A second call
// (by this or any other goroutine) is a silent no-op — exactly one
// completion is ever observed by the sender, satisfying the
// exactly-one-reply property (spec P2).
func (h *ReplyHandle) Fulfill(payload Payload) {
	h.complete(Reply{Payload: payload})
}

// Fail completes the handle with a bus error, most commonly
// PayloadMismatch from a handler that recognised the method but
// rejected the payload shape.
func (h *ReplyHandle) Fail(err *BusError) {
	h.complete(Reply{Err: err})
}

// Drop releases the handle without completing it. The sender observes
// this as HandlerDropped. Safe to call after Fulfill/Fail (no-op).
func (h *ReplyHandle) Drop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.markDoneLocked()
}

func (h *ReplyHandle) complete(r Reply) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return
	}
	h.done = true
	runtime.SetFinalizer(h, nil)
	h.ch <- r
	close(h.ch)
}

func (h *ReplyHandle) markDoneLocked() {
	if h.done {
		return
	}
	h.done = true
	runtime.SetFinalizer(h, nil)
	close(h.ch)
}

func (h *ReplyHandle) finalize() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.markDoneLocked()
}

// EnvelopeKind distinguishes a request (reply expected) from a
// notification (fire-and-forget).
type EnvelopeKind int

const (
	// KindRequest carries a reply handle the handler must complete.
	KindRequest EnvelopeKind = iota
	// KindNotification carries no reply expectation.
	KindNotification
)

// Envelope is the unit of bus traffic. ID is a monotonically-opaque
// correlation token (a UUID here, not a counter, so no shared mutable
// sequence state is needed across senders — spec §9 forbids process-wide
// singletons). Method is a "/"-delimited path ("echo/ping"); the first
// segment is the prefix that selects a handler (see Table.Lookup).
type Envelope struct {
	Kind    EnvelopeKind
	ID      string
	Method  string
	Payload Payload
	Reply   *ReplyHandle
}

func newEnvelopeID() string {
	return uuid.NewString()
}
