package local

import (
	"context"
	"iter"
	"sync"

	"github.com/dshills/ropestorm/internal/engine"
)

// History is a bounded undo/redo record of applied change sets.
type History struct {
	p   *Project
	max int

	mu   sync.Mutex
	undo []*Changes
	redo []*Changes
}

func newHistory(p *Project, max int) *History {
	return &History{p: p, max: max}
}

// record pushes an applied batch and clears the redo stack.
func (h *History) record(c *Changes) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = append(h.undo, c)
	if len(h.undo) > h.max {
		h.undo = h.undo[len(h.undo)-h.max:]
	}
	h.redo = nil
}

// UndoCount returns the number of undoable batches.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo)
}

// RedoCount returns the number of redoable batches.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo)
}

// Undo reverts the last batch and yields the reverting change set.
func (h *History) Undo(ctx context.Context) iter.Seq2[engine.ChangeSet, error] {
	return func(yield func(engine.ChangeSet, error) bool) {
		h.mu.Lock()
		if len(h.undo) == 0 {
			h.mu.Unlock()
			yield(nil, engine.ErrNothingToUndo)
			return
		}
		last := h.undo[len(h.undo)-1]
		h.undo = h.undo[:len(h.undo)-1]
		h.mu.Unlock()

		revert := last.undoing()
		if err := revert.apply(ctx, h.p); err != nil {
			h.mu.Lock()
			h.undo = append(h.undo, last)
			h.mu.Unlock()
			yield(nil, err)
			return
		}

		h.mu.Lock()
		h.redo = append(h.redo, last)
		h.mu.Unlock()
		h.p.log.Debug("undone", "id", last.ID(), "description", last.description)
		yield(revert, nil)
	}
}

// Redo re-applies the last undone batch and yields it.
func (h *History) Redo(ctx context.Context) iter.Seq2[engine.ChangeSet, error] {
	return func(yield func(engine.ChangeSet, error) bool) {
		h.mu.Lock()
		if len(h.redo) == 0 {
			h.mu.Unlock()
			yield(nil, engine.ErrNothingToRedo)
			return
		}
		last := h.redo[len(h.redo)-1]
		h.redo = h.redo[:len(h.redo)-1]
		h.mu.Unlock()

		if err := last.apply(ctx, h.p); err != nil {
			h.mu.Lock()
			h.redo = append(h.redo, last)
			h.mu.Unlock()
			yield(nil, err)
			return
		}

		h.mu.Lock()
		h.undo = append(h.undo, last)
		h.mu.Unlock()
		h.p.log.Debug("redone", "id", last.ID(), "description", last.description)
		yield(last, nil)
	}
}
