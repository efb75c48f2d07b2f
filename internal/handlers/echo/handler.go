// Package echo is the simplest possible kernel handler: it answers
// "echo/ping" with its payload unchanged, and "echo/count" with the
// number of requests it has seen. It exists to give the supervisor a
// handler that requires no external dependency, useful for exercising
// the bus and the control protocol end to end.
package echo

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/araliya/araliyad/internal/kernel"
)

// Handler implements kernel.Handler.
type Handler struct {
	startedAt time.Time
	seen      atomic.Uint64
}

// New creates an echo handler.
func New() *Handler {
	return &Handler{startedAt: time.Now()}
}

// HandleRequest answers "echo/ping" and "echo/count".
func (h *Handler) HandleRequest(_ context.Context, method string, payload kernel.Payload, reply *kernel.ReplyHandle) {
	h.seen.Add(1)
	switch method {
	case "echo/ping":
		reply.Fulfill(payload)
	case "echo/count":
		reply.Fulfill(h.seen.Load())
	default:
		reply.Fail(kernel.PayloadMismatchError(method, "no such echo method"))
	}
}

// HandleNotification counts the notification and otherwise does nothing.
func (h *Handler) HandleNotification(_ string, _ kernel.Payload) {
	h.seen.Add(1)
}

// ComponentInfo reports a single running leaf node.
func (h *Handler) ComponentInfo() kernel.ComponentInfo {
	uptime := uint64(time.Since(h.startedAt).Milliseconds())
	return kernel.RunningComponent("echo", "echo", uptime)
}

// String renders the handler for debug logs.
func (h *Handler) String() string {
	return fmt.Sprintf("echo{seen=%d}", h.seen.Load())
}
