package handler

import (
	"sync"
	"time"

	"github.com/mineclover/context-action-sub008/id"
)

// Registration is one entry in the handler table. It is immutable after
// creation; replacing a registration creates a new entry.
type Registration struct {
	// ID uniquely identifies the registration within its action.
	ID string

	// Action is the action name this handler answers to.
	Action string

	// Priority orders invocation. Higher runs earlier.
	Priority int

	// Once, Blocking, NonFatal, Condition, Timeout, and MaxRetries carry
	// the registration's Options (see Options for semantics).
	Once       bool
	Blocking   bool
	NonFatal   bool
	Condition  Condition
	Timeout    time.Duration
	MaxRetries int

	// Fn is the handler function.
	Fn Func

	// seq is the insertion sequence, used only to break priority ties.
	seq uint64
}

// Table is the per-action ordered collection of handler registrations.
// It is safe for concurrent use. Mutations replace the per-action slice
// (copy-on-write), so a snapshot taken at dispatch start is never
// invalidated by later registration changes.
type Table struct {
	mu      sync.RWMutex
	actions map[string][]*Registration
	nextSeq uint64
}

// NewTable creates an empty handler table.
func NewTable() *Table {
	return &Table{
		actions: make(map[string][]*Registration),
	}
}

// Register adds a handler for the given action and returns its
// registration. A duplicate ID on the same action replaces the prior
// entry; the new entry is positioned by its own priority and a fresh
// insertion sequence.
func (t *Table) Register(action string, fn Func, opts ...Option) *Registration {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	regID := o.ID
	if regID == "" {
		regID = id.NewHandlerID().String()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextSeq++
	reg := &Registration{
		ID:         regID,
		Action:     action,
		Priority:   o.Priority,
		Once:       o.Once,
		Blocking:   o.Blocking,
		NonFatal:   o.NonFatal,
		Condition:  o.Condition,
		Timeout:    o.Timeout,
		MaxRetries: o.MaxRetries,
		Fn:         fn,
		seq:        t.nextSeq,
	}

	existing := t.actions[action]
	next := make([]*Registration, 0, len(existing)+1)

	inserted := false
	for _, e := range existing {
		if e.ID == regID {
			continue // replaced
		}
		if !inserted && less(reg, e) {
			next = append(next, reg)
			inserted = true
		}
		next = append(next, e)
	}
	if !inserted {
		next = append(next, reg)
	}

	t.actions[action] = next
	return reg
}

// less reports whether a sorts before b: descending priority, then
// ascending insertion sequence.
func less(a, b *Registration) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.seq < b.seq
}

// Unregister removes the entry with the given ID from the action's list.
// It reports whether an entry was removed; removing an absent entry is
// a no-op, not an error.
func (t *Table) Unregister(action, regID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, ok := t.actions[action]
	if !ok {
		return false
	}

	for i, e := range existing {
		if e.ID != regID {
			continue
		}
		next := make([]*Registration, 0, len(existing)-1)
		next = append(next, existing[:i]...)
		next = append(next, existing[i+1:]...)
		if len(next) == 0 {
			delete(t.actions, action)
		} else {
			t.actions[action] = next
		}
		return true
	}
	return false
}

// Snapshot returns the current ordered registration list for the action.
// The returned slice is immutable: mutations always publish a new slice,
// so callers may iterate it without holding any lock.
func (t *Table) Snapshot(action string) []*Registration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.actions[action]
}

// Has reports whether any handler is registered for the action.
func (t *Table) Has(action string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.actions[action]) > 0
}

// Count returns the number of handlers registered for the action.
func (t *Table) Count(action string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.actions[action])
}

// Clear removes all registrations for the action.
func (t *Table) Clear(action string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.actions, action)
}

// ClearAll removes every registration for every action.
func (t *Table) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actions = make(map[string][]*Registration)
}

// Actions returns all action names with at least one registration.
func (t *Table) Actions() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.actions))
	for name := range t.actions {
		names = append(names, name)
	}
	return names
}
