// Package hook provides named subscriptions to the lifecycle events an
// editor host raises: buffer saves, mode entry and shutdown.
//
// Subscribers of the same event run one after another, but the order is
// not part of the contract. Hosts are free to run them in any order and
// callers must not rely on one subscriber observing another's effects.
package hook

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
)

// Event names a lifecycle event raised by the host.
type Event string

// Lifecycle events.
const (
	// BeforeSave is raised before a buffer is written to its file.
	BeforeSave Event = "before-save"
	// AfterSave is raised after a buffer has been written.
	AfterSave Event = "after-save"
	// ModeEnter is raised when a buffer enters a major mode.
	ModeEnter Event = "mode-enter"
	// Shutdown is raised once when the host exits.
	Shutdown Event = "shutdown"
)

// Payload describes the buffer an event is about. Shutdown carries an
// empty payload.
type Payload struct {
	// Buffer is the host buffer name.
	Buffer string
	// File is the absolute file the buffer visits, if any.
	File string
	// Mode is the major mode entered, for ModeEnter.
	Mode string
}

// Func is a hook callback.
type Func func(ctx context.Context, p Payload) error

// ErrPanic wraps a panic recovered from a hook callback.
var ErrPanic = errors.New("hook: callback panic")

type subscription struct {
	name string
	fn   Func
}

// Registry holds subscriptions per event.
type Registry struct {
	mu   sync.RWMutex
	subs map[Event][]subscription
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[Event][]subscription)}
}

// Subscribe registers fn under name. Subscribing an existing name again
// replaces the earlier callback, so repeated initialization is harmless.
func (r *Registry) Subscribe(ev Event, name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.subs[ev]
	for i, s := range subs {
		if s.name == name {
			subs[i].fn = fn
			return
		}
	}
	r.subs[ev] = append(subs, subscription{name: name, fn: fn})
}

// Unsubscribe removes the named subscription.
func (r *Registry) Unsubscribe(ev Event, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.subs[ev]
	for i, s := range subs {
		if s.name == name {
			r.subs[ev] = append(subs[:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// Names returns the subscriber names for ev, sorted.
func (r *Registry) Names(ev Event) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.subs[ev]))
	for _, s := range r.subs[ev] {
		names = append(names, s.name)
	}
	sort.Strings(names)
	return names
}

// Run invokes every subscriber of ev. A failing or panicking subscriber
// does not stop the others; their errors are joined.
func (r *Registry) Run(ctx context.Context, ev Event, p Payload) error {
	r.mu.RLock()
	subs := make([]subscription, len(r.subs[ev]))
	copy(subs, r.subs[ev])
	r.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := call(ctx, s, p); err != nil {
			errs = append(errs, fmt.Errorf("%s hook %s: %w", ev, s.name, err))
		}
	}
	return errors.Join(errs...)
}

func call(ctx context.Context, s subscription, p Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, stack[:n])
		}
	}()
	return s.fn(ctx, p)
}
