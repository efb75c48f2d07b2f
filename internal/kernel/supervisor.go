package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/araliya/araliyad/internal/kernel/eventfeed"
)

// sortedStrings returns a sorted copy of ss, leaving Table.Prefixes's own
// registration-order slice untouched for other callers (e.g. the
// management handler's diagnostic "management/handlers" query, where
// registration order is the more useful answer).
func sortedStrings(ss []string) []string {
	out := make([]string, len(ss))
	copy(out, ss)
	sort.Strings(out)
	return out
}

// Supervisor owns the bus, the control channel, the dispatch table and
// the health registry, and runs the single-goroutine loop that ties
// them together (original_source/.../supervisor/mod.rs). There is
// exactly one Supervisor per daemon; it is constructed once at startup
// and handed its dependencies rather than reaching for globals.
type Supervisor struct {
	Bus     *Bus
	Control *Control
	Table   *Table
	Health  *HealthRegistry
	Events  *eventfeed.Bus
	Logger  *slog.Logger

	startedAt time.Time
	cancel    context.CancelFunc
}

// NewSupervisor wires a Supervisor from its dependencies. Events may be
// nil (eventfeed.Bus is nil-safe); Logger defaults to slog.Default() if
// nil.
func NewSupervisor(bus *Bus, control *Control, table *Table, health *HealthRegistry, events *eventfeed.Bus, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		Bus:     bus,
		Control: control,
		Table:   table,
		Health:  health,
		Events:  events,
		Logger:  logger,
	}
}

// Uptime returns the time elapsed since Run started, or zero if Run has
// not been called yet.
func (s *Supervisor) Uptime() time.Duration {
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

// Run is the supervisor's single-goroutine event loop. It reads from
// three sources in strict priority order — shutdown, then control, then
// bus — matching original_source's `tokio::select! { biased; ... }`.
// Go's select has no bias keyword, so priority is approximated with a
// two-stage check each iteration: a non-blocking probe of shutdown, a
// non-blocking probe of control, and only then a blocking three-way
// select. This guarantees that whenever shutdown or control is already
// ready at the top of an iteration, it is serviced before bus traffic,
// which is the scenario spec P4 requires (it does not guarantee
// ordering against a source that becomes ready mid-select, which no
// select-based scheduler can without starving the others entirely).
//
// Run returns when ctx is cancelled or a Shutdown control command is
// received.
func (s *Supervisor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	s.startedAt = time.Now()
	defer s.Bus.Close()

	for {
		select {
		case <-ctx.Done():
			return s.onShutdown()
		default:
		}

		select {
		case msg := <-s.Control.Chan():
			if s.handleControl(ctx, msg) {
				return s.onShutdown()
			}
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return s.onShutdown()
		case msg := <-s.Control.Chan():
			if s.handleControl(ctx, msg) {
				return s.onShutdown()
			}
		case env := <-s.Bus.Chan():
			s.handleEnvelope(ctx, env)
		}
	}
}

func (s *Supervisor) onShutdown() error {
	s.Events.Publish(eventfeed.Event{
		Time: time.Now(), Source: eventfeed.SourceKernel, Kind: eventfeed.KindShutdownStarted,
	})
	s.Logger.Info("supervisor shutting down")
	s.Control.Close()
	return nil
}

// handleControl answers one control message and reports whether the
// supervisor should now shut down.
func (s *Supervisor) handleControl(ctx context.Context, msg controlMessage) bool {
	s.Events.Publish(eventfeed.Event{
		Time: time.Now(), Source: eventfeed.SourceKernel, Kind: eventfeed.KindControlCommand,
		Data: map[string]string{"command": string(msg.command.Kind)},
	})

	if msg.isNotify {
		if msg.command.Kind == CmdShutdown {
			return true
		}
		s.Logger.Warn("control notification ignored", "command", msg.command.Kind)
		return false
	}

	result, terminate := s.answerControl(msg.command)
	select {
	case msg.reply <- result:
	default:
	}
	return terminate
}

func (s *Supervisor) answerControl(cmd ControlCommand) (ControlResult, bool) {
	switch cmd.Kind {
	case CmdHealth:
		return ControlResult{Response: HealthResponse(uint64(s.Uptime().Milliseconds()))}, false

	case CmdStatus:
		return ControlResult{Response: StatusResponse(uint64(s.Uptime().Milliseconds()), sortedStrings(s.Table.Prefixes()))}, false

	case CmdSubsystemsList:
		return ControlResult{Response: SubsystemsResponse(sortedStrings(s.Table.Prefixes()))}, false

	case CmdComponentTree:
		tree := s.Table.ComponentTree(uint64(s.Uptime().Milliseconds()))
		blob, err := json.Marshal(tree)
		if err != nil {
			return ControlResult{Err: InvalidError(fmt.Sprintf("failed to encode component tree: %v", err))}, false
		}
		return ControlResult{Response: ComponentTreeResponse(string(blob))}, false

	case CmdShutdown:
		return ControlResult{Response: AckResponse("shutdown requested")}, true

	case CmdSubsystemEnable:
		return ControlResult{Err: NotImplementedError(fmt.Sprintf("subsystem enable not implemented: %s", cmd.ID))}, false

	case CmdSubsystemDisable:
		return ControlResult{Err: NotImplementedError(fmt.Sprintf("subsystem disable not implemented: %s", cmd.ID))}, false

	default:
		return ControlResult{Err: InvalidError(fmt.Sprintf("unknown command: %s", cmd.Kind))}, false
	}
}

// handleEnvelope dispatches one bus envelope to its registered handler.
// Each dispatch runs on its own goroutine so a slow or blocked handler
// can never stall the run loop or delay other subsystems — the
// supervisor's only synchronous duty is routing (spec §4.4).
func (s *Supervisor) handleEnvelope(ctx context.Context, env Envelope) {
	handler, ok := s.Table.Lookup(env.Method)
	if !ok {
		s.Events.Publish(eventfeed.Event{
			Time: time.Now(), Source: eventfeed.SourceKernel, Kind: eventfeed.KindRequestFailed,
			Data: map[string]string{"method": env.Method, "reason": "method_not_found"},
		})
		if env.Kind == KindRequest {
			s.Logger.Warn("no handler for request", "method", env.Method, "id", env.ID)
			env.Reply.Fail(errMethodNotFound(env.Method))
		} else {
			s.Logger.Debug("no handler for notification, dropping", "method", env.Method, "id", env.ID)
		}
		return
	}

	switch env.Kind {
	case KindRequest:
		go s.runRequest(ctx, handler, env)
	case KindNotification:
		go s.runNotification(handler, env)
	}
}

func (s *Supervisor) runRequest(ctx context.Context, handler Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("handler panicked handling request", "method", env.Method, "panic", r)
			env.Reply.Fail(&BusError{Kind: HandlerDropped, Message: fmt.Sprintf("handler panicked: %v", r)})
			s.Events.Publish(eventfeed.Event{
				Time: time.Now(), Source: eventfeed.SourceKernel, Kind: eventfeed.KindRequestFailed,
				Data: map[string]string{"method": env.Method, "reason": "panic"},
			})
		}
	}()
	handler.HandleRequest(ctx, env.Method, env.Payload, env.Reply)
	s.Events.Publish(eventfeed.Event{
		Time: time.Now(), Source: eventfeed.SourceKernel, Kind: eventfeed.KindRequestHandled,
		Data: map[string]string{"method": env.Method},
	})
}

func (s *Supervisor) runNotification(handler Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("handler panicked handling notification", "method", env.Method, "panic", r)
		}
	}()
	handler.HandleNotification(env.Method, env.Payload)
}
