package command

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/keymap"
	"github.com/dshills/ropestorm/internal/keyseq"
)

// Entry is a registered command.
type Entry struct {
	Spec  Spec
	Name  string
	Keys  keyseq.Sequence
	Scope keymap.Scope
	// Invoke is the wrapper built for this spec.
	Invoke Handler
}

// Bound reports whether the command has a key.
func (e Entry) Bound() bool { return len(e.Keys) > 0 }

// Registry is the command table. It is filled once at startup.
type Registry struct {
	mu      sync.RWMutex
	prefix  keyseq.Sequence
	entries map[string]*Entry
	order   []string
	global  *keymap.Table
	local   *keymap.Table
}

// NewRegistry creates a registry; keys starting with globalPrefix are
// global.
func NewRegistry(globalPrefix keyseq.Sequence) *Registry {
	return &Registry{
		prefix:  globalPrefix,
		entries: make(map[string]*Entry),
		global:  keymap.NewTable("global"),
		local:   keymap.NewTable("local"),
	}
}

// Register adds s. Each binding lands in exactly one table; a key bound
// twice fails.
func (r *Registry) Register(s Spec) error {
	if s.Name == "" || s.Handler == nil {
		return fmt.Errorf("%w: %q", ErrInvalidSpec, s.Name)
	}
	var keys keyseq.Sequence
	if s.Key != "" {
		parsed, err := keyseq.Parse(s.Key)
		if err != nil {
			return fmt.Errorf("command %s: %w", s.Name, err)
		}
		keys = parsed
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	name := s.PublicName()
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	e := newEntry(s, name, keys, keymap.ScopeFor(keys, r.prefix))
	if e.Bound() {
		table := r.local
		if e.Scope == keymap.ScopeGlobal {
			table = r.global
		}
		if err := table.Bind(keys, name); err != nil {
			return fmt.Errorf("command %s: %w", name, err)
		}
	}
	r.entries[name] = e
	r.order = append(r.order, name)
	return nil
}

// newEntry builds the entry for one spec. Its wrapper captures only s.
func newEntry(s Spec, name string, keys keyseq.Sequence, scope keymap.Scope) *Entry {
	return &Entry{
		Spec:   s,
		Name:   name,
		Keys:   keys,
		Scope:  scope,
		Invoke: wrap(s),
	}
}

// wrap builds the invocation wrapper for s. A panic in the handler is
// recovered into ErrPanic carrying the stack.
func wrap(s Spec) Handler {
	name := s.PublicName()
	return func(ctx context.Context, prefix Prefix) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := make([]byte, 4096)
				n := runtime.Stack(stack, false)
				err = fmt.Errorf("%w for %s: %v\n%s", ErrPanic, name, rec, stack[:n])
			}
		}()
		return s.Handler(ctx, prefix)
	}
}

// Lookup returns the command named name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns every command in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.order))
	for i, name := range r.order {
		out[i] = *r.entries[name]
	}
	return out
}

// Names returns every public name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Global returns the global key table.
func (r *Registry) Global() *keymap.Table { return r.global }

// Local returns the table installed into source buffers.
func (r *Registry) Local() *keymap.Table { return r.local }

// InstallGlobal binds every global key in the host.
func (r *Registry) InstallGlobal(keys host.Keys) error {
	for _, b := range r.global.Bindings() {
		if err := keys.GlobalSetKey(b.Keys, b.Command); err != nil {
			return fmt.Errorf("binding %s: %w", b.Keys, err)
		}
	}
	return nil
}

// InstallLocal binds every local key in buf.
func (r *Registry) InstallLocal(keys host.Keys, buf host.Buffer) error {
	for _, b := range r.local.Bindings() {
		if err := keys.LocalSetKey(buf, b.Keys, b.Command); err != nil {
			return fmt.Errorf("binding %s in %s: %w", b.Keys, buf.Name(), err)
		}
	}
	return nil
}
