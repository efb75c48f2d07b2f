// Package cron adapts internal/scheduler onto the kernel bus: the
// demo-handler boundary named in the expanded specification for
// exercising mattn/go-sqlite3-backed persistence from a running
// subsystem. "cron/create" creates a task, "cron/list" lists tasks,
// "cron/trigger" runs one immediately.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/araliya/araliyad/internal/kernel"
	"github.com/araliya/araliyad/internal/scheduler"
)

// Handler implements kernel.Handler over a *scheduler.Scheduler.
type Handler struct {
	sched     *scheduler.Scheduler
	store     *scheduler.Store
	bus       *kernel.Bus
	startedAt time.Time
}

// New opens the SQLite-backed store at dbPath, wires a scheduler whose
// ExecuteFunc dispatches PayloadBusNotify tasks back onto bus, and
// starts it.
func New(ctx context.Context, dbPath string, bus *kernel.Bus, logger *slog.Logger) (*Handler, error) {
	store, err := scheduler.NewStore(dbPath)
	if err != nil {
		return nil, err
	}

	h := &Handler{bus: bus, store: store, startedAt: time.Now()}
	h.sched = scheduler.New(logger, store, h.execute)
	if err := h.sched.Start(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return h, nil
}

// Close stops the scheduler and closes its store.
func (h *Handler) Close() error {
	h.sched.Stop()
	return h.store.Close()
}

func (h *Handler) execute(_ context.Context, task *scheduler.Task, _ *scheduler.Execution) error {
	switch task.Payload.Kind {
	case scheduler.PayloadBusNotify:
		return h.bus.Notify(task.Payload.Target, task.Payload.Data)
	case scheduler.PayloadLog:
		return nil
	default:
		return nil
	}
}

type createRequest struct {
	Name     string             `json:"name"`
	Schedule scheduler.Schedule `json:"schedule"`
	Payload  scheduler.Payload  `json:"payload"`
}

// HandleRequest answers "cron/create", "cron/list", "cron/trigger".
func (h *Handler) HandleRequest(ctx context.Context, method string, payload kernel.Payload, reply *kernel.ReplyHandle) {
	switch method {
	case "cron/create":
		req, ok := payload.(createRequest)
		if !ok {
			reply.Fail(kernel.PayloadMismatchError(method, "createRequest"))
			return
		}
		task := &scheduler.Task{Name: req.Name, Schedule: req.Schedule, Payload: req.Payload, Enabled: true}
		if err := h.sched.CreateTask(task); err != nil {
			reply.Fail(kernel.PayloadMismatchError(method, err.Error()))
			return
		}
		reply.Fulfill(task)

	case "cron/list":
		tasks, err := h.sched.ListTasks(false)
		if err != nil {
			reply.Fail(kernel.PayloadMismatchError(method, err.Error()))
			return
		}
		reply.Fulfill(tasks)

	case "cron/trigger":
		id, ok := payload.(string)
		if !ok {
			reply.Fail(kernel.PayloadMismatchError(method, "string task id"))
			return
		}
		exec, err := h.sched.TriggerTask(ctx, id)
		if err != nil {
			reply.Fail(kernel.PayloadMismatchError(method, err.Error()))
			return
		}
		reply.Fulfill(exec)

	default:
		reply.Fail(kernel.PayloadMismatchError(method, "no such cron method"))
	}
}

// HandleNotification is a no-op: every cron operation expects a reply.
func (h *Handler) HandleNotification(_ string, _ kernel.Payload) {}

// ComponentInfo reports a running node with the handler's uptime.
func (h *Handler) ComponentInfo() kernel.ComponentInfo {
	uptime := uint64(time.Since(h.startedAt).Milliseconds())
	return kernel.RunningComponent("cron", "cron", uptime)
}
