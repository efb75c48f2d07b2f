package kernel

import (
	"sort"
	"sync"
)

// ComponentStatus is the closed set of operational states a component
// can report itself in (original_source/.../component_info.rs).
type ComponentStatus string

const (
	StatusOn  ComponentStatus = "on"
	StatusOff ComponentStatus = "off"
	StatusErr ComponentStatus = "err"
)

// Lifecycle status strings, reported in ComponentInfo.Status alongside
// the operational State enum — "running"/"stopped" describe what the
// component is doing, State describes whether that's healthy (spec
// §4.5: "lifecycle_status, operational_state ∈ {On, Off, Err}").
const (
	lifecycleRunning = "running"
	lifecycleStopped = "stopped"
	lifecycleFailed  = "failed"
)

// ComponentInfo is one node of the tree returned by the ComponentTree
// control command. The supervisor synthesises the root node and sorts
// every children slice by ID before responding (spec P9).
type ComponentInfo struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Status   string          `json:"status"`
	State    ComponentStatus `json:"state"`
	Message  string          `json:"message,omitempty"`
	UptimeMS *uint64         `json:"uptime_ms,omitempty"`
	Children []ComponentInfo `json:"children"`
}

// RunningComponent builds a leaf or branch node reporting StatusOn.
func RunningComponent(id, name string, uptimeMS uint64, children ...ComponentInfo) ComponentInfo {
	c := ComponentInfo{
		ID:       id,
		Name:     name,
		Status:   lifecycleRunning,
		State:    StatusOn,
		UptimeMS: &uptimeMS,
		Children: children,
	}
	c.sortChildren()
	return c
}

// StoppedComponent builds a node reporting StatusOff, with no uptime.
func StoppedComponent(id, name string, children ...ComponentInfo) ComponentInfo {
	c := ComponentInfo{
		ID:       id,
		Name:     name,
		Status:   lifecycleStopped,
		State:    StatusOff,
		Children: children,
	}
	c.sortChildren()
	return c
}

// ErrorComponent builds a node reporting StatusErr, carrying message as
// the failure detail rather than overloading the lifecycle status.
func ErrorComponent(id, name, message string, children ...ComponentInfo) ComponentInfo {
	c := ComponentInfo{
		ID:       id,
		Name:     name,
		Status:   lifecycleFailed,
		State:    StatusErr,
		Message:  message,
		Children: children,
	}
	c.sortChildren()
	return c
}

// LeafComponent is a convenience for a childless running component with
// no uptime tracked (e.g. a static capability announcement).
func LeafComponent(id, name string) ComponentInfo {
	return ComponentInfo{
		ID:       id,
		Name:     name,
		Status:   lifecycleRunning,
		State:    StatusOn,
		Children: []ComponentInfo{},
	}
}

// sortChildren orders children by ID and replaces a nil slice with an
// empty one, so the JSON "children" field is always an array.
func (c *ComponentInfo) sortChildren() {
	if c.Children == nil {
		c.Children = []ComponentInfo{}
	}
	sort.Slice(c.Children, func(i, j int) bool { return c.Children[i].ID < c.Children[j].ID })
}

// Cell is a single-assignment container: the Go equivalent of
// Arc<OnceLock<T>> used in original_source to bridge a value produced
// by a background task (e.g. the comms adapter's own ComponentInfo)
// into the supervisor's synchronous tree-building pass without forcing
// that adapter to speak the bus protocol. Set and Get are safe from any
// number of goroutines; only the first Set stores a value.
type Cell[T any] struct {
	mu sync.Mutex
	ch chan T
}

// NewCell creates an empty, unset Cell.
func NewCell[T any]() *Cell[T] {
	return &Cell[T]{ch: make(chan T, 1)}
}

// Set stores a value, if one has not already been stored. Subsequent
// calls are no-ops.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case c.ch <- v:
	default:
	}
}

// Get returns the stored value and true, or the zero value and false if
// nothing has been set yet.
func (c *Cell[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case v := <-c.ch:
		c.ch <- v
		return v, true
	default:
		var zero T
		return zero, false
	}
}
