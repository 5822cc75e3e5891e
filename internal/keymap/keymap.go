// Package keymap holds the global and buffer-local key tables commands are
// bound into.
package keymap

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/ropestorm/internal/keyseq"
)

// Keymap errors.
var (
	// ErrDuplicateBinding indicates the key is already bound to another command.
	ErrDuplicateBinding = errors.New("keymap: key already bound")

	// ErrPrefixConflict indicates a key that is a prefix of an existing
	// binding, or that extends one.
	ErrPrefixConflict = errors.New("keymap: key conflicts with a prefix binding")
)

// Scope says which table a binding belongs to.
type Scope uint8

const (
	// ScopeLocal bindings are installed per source buffer.
	ScopeLocal Scope = iota
	// ScopeGlobal bindings are installed once in the global table.
	ScopeGlobal
)

// String returns "global" or "local".
func (s Scope) String() string {
	if s == ScopeGlobal {
		return "global"
	}
	return "local"
}

// ScopeFor applies the naming convention: a key starting with the global
// prefix belongs to the global table, anything else is buffer-local.
func ScopeFor(keys, globalPrefix keyseq.Sequence) Scope {
	if len(globalPrefix) > 0 && keys.HasPrefix(globalPrefix) {
		return ScopeGlobal
	}
	return ScopeLocal
}

// Binding maps a key sequence to a command name.
type Binding struct {
	Keys    keyseq.Sequence
	Command string
}

// Table is a named set of bindings.
type Table struct {
	mu       sync.RWMutex
	name     string
	bindings map[string]Binding
}

// NewTable creates an empty table.
func NewTable(name string) *Table {
	return &Table{
		name:     name,
		bindings: make(map[string]Binding),
	}
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Bind adds a binding. Rebinding a key to the command it already runs is
// a no-op.
func (t *Table) Bind(keys keyseq.Sequence, command string) error {
	if len(keys) == 0 {
		return fmt.Errorf("keymap %s: %w", t.name, keyseq.ErrEmptySpec)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id := keys.String()
	if existing, ok := t.bindings[id]; ok {
		if existing.Command == command {
			return nil
		}
		return fmt.Errorf("keymap %s: %s -> %s: %w (%s)", t.name, id, command, ErrDuplicateBinding, existing.Command)
	}
	for _, b := range t.bindings {
		if b.Keys.HasPrefix(keys) || keys.HasPrefix(b.Keys) {
			return fmt.Errorf("keymap %s: %s -> %s: %w (%s)", t.name, id, command, ErrPrefixConflict, b.Keys)
		}
	}

	t.bindings[id] = Binding{Keys: keys, Command: command}
	return nil
}

// Lookup returns the command bound to keys.
func (t *Table) Lookup(keys keyseq.Sequence) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.bindings[keys.String()]
	return b.Command, ok
}

// IsPrefix returns true if keys is a proper prefix of some binding, so the
// host should wait for more input.
func (t *Table) IsPrefix(keys keyseq.Sequence) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, b := range t.bindings {
		if len(b.Keys) > len(keys) && b.Keys.HasPrefix(keys) {
			return true
		}
	}
	return false
}

// Count returns how many keys are bound to command.
func (t *Table) Count(command string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, b := range t.bindings {
		if b.Command == command {
			n++
		}
	}
	return n
}

// Len returns the number of bindings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.bindings)
}

// Bindings returns all bindings sorted by key.
func (t *Table) Bindings() []Binding {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Binding, 0, len(t.bindings))
	for _, b := range t.bindings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Keys.String() < out[j].Keys.String()
	})
	return out
}
