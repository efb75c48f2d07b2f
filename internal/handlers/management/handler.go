// Package management is a demo handler that answers bus requests about
// the kernel's own state — bus depth, registered handlers, health
// snapshot — the way a real deployment might expose operational
// queries to other in-process subsystems rather than only to the
// external control socket.
package management

import (
	"context"
	"time"

	"github.com/araliya/araliyad/internal/kernel"
)

// Handler implements kernel.Handler.
type Handler struct {
	bus       *kernel.Bus
	table     *kernel.Table
	health    *kernel.HealthRegistry
	startedAt time.Time
}

// New creates a management handler over the kernel's own state.
func New(bus *kernel.Bus, table *kernel.Table, health *kernel.HealthRegistry) *Handler {
	return &Handler{bus: bus, table: table, health: health, startedAt: time.Now()}
}

// HandleRequest answers "management/health", "management/handlers",
// "management/bus_depth".
func (h *Handler) HandleRequest(_ context.Context, method string, _ kernel.Payload, reply *kernel.ReplyHandle) {
	switch method {
	case "management/health":
		reply.Fulfill(h.health.Snapshot())
	case "management/handlers":
		reply.Fulfill(h.table.Prefixes())
	case "management/bus_depth":
		reply.Fulfill(h.bus.String())
	default:
		reply.Fail(kernel.PayloadMismatchError(method, "no such management method"))
	}
}

// HandleNotification is a no-op: management exposes read-only queries.
func (h *Handler) HandleNotification(_ string, _ kernel.Payload) {}

// ComponentInfo reports whether every subsystem is currently healthy.
func (h *Handler) ComponentInfo() kernel.ComponentInfo {
	uptime := uint64(time.Since(h.startedAt).Milliseconds())
	if !h.health.AllHealthy() {
		return kernel.ErrorComponent("management", "management", "one or more subsystems degraded")
	}
	return kernel.RunningComponent("management", "management", uptime)
}
