package kernel

import (
	"context"
	"fmt"
	"strings"
)

// Handler is implemented by every subsystem registered on the bus. The
// supervisor owns dispatch: it looks up a handler by method prefix and
// calls HandleRequest/HandleNotification on a fresh goroutine for each
// envelope, so a slow handler never stalls the run loop; a handler may
// still hand work to goroutines of its own and reply later through the
// ReplyHandle it was given (spec §4.4).
type Handler interface {
	// HandleRequest is called for every request whose method matches
	// this handler's registered prefix. The handler must eventually call
	// exactly one of reply.Fulfill, reply.Fail, or let the handle be
	// garbage collected (observed by the caller as HandlerDropped).
	HandleRequest(ctx context.Context, method string, payload Payload, reply *ReplyHandle)

	// HandleNotification is called for matching notifications. There is
	// no reply path; panics are recovered by the supervisor and logged.
	HandleNotification(method string, payload Payload)

	// ComponentInfo reports this handler's current status for the
	// ComponentTree control command. Called synchronously from the
	// supervisor loop, so it must return quickly.
	ComponentInfo() ComponentInfo
}

// Table is the dispatch table: a prefix-keyed map of handlers built
// once at startup with Register, then only ever read from the
// supervisor loop. A duplicate prefix is a startup programming error,
// not a runtime condition, so Register panics rather than returning an
// error (original_source/.../mod.rs does the same with its own
// panic!("duplicate handler prefix...")).
type Table struct {
	handlers map[string]Handler
	order    []string
}

// NewTable creates an empty dispatch table.
func NewTable() *Table {
	return &Table{handlers: make(map[string]Handler)}
}

// Register binds a handler to a method prefix. Methods are matched by
// "prefix/rest" — Register("echo", h) answers "echo/ping",
// "echo/status", etc. Panics if prefix is already registered.
func (t *Table) Register(prefix string, h Handler) {
	if prefix == "" {
		panic("kernel: empty handler prefix")
	}
	if _, exists := t.handlers[prefix]; exists {
		panic(fmt.Sprintf("kernel: duplicate handler prefix %q", prefix))
	}
	t.handlers[prefix] = h
	t.order = append(t.order, prefix)
}

// Lookup returns the handler registered for method's prefix, if any.
// Methods are partitioned by the "/" separator (spec §4.5/§4.6):
// prefix = method.split('/').next().
func (t *Table) Lookup(method string) (Handler, bool) {
	prefix, _, _ := strings.Cut(method, "/")
	h, ok := t.handlers[prefix]
	return h, ok
}

// Prefixes returns every registered prefix in registration order —
// backs the Status and SubsystemsList control responses.
func (t *Table) Prefixes() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// ComponentTree builds the full component tree rooted at "supervisor",
// querying every registered handler synchronously and sorting children
// by id (spec P9, spec §8 scenario 4).
func (t *Table) ComponentTree(rootUptimeMS uint64) ComponentInfo {
	children := make([]ComponentInfo, 0, len(t.order))
	for _, prefix := range t.order {
		children = append(children, t.handlers[prefix].ComponentInfo())
	}
	return RunningComponent("supervisor", "Supervisor", rootUptimeMS, children...)
}
