// Package reconcile applies engine change sets and brings the editor's
// open buffers back in line with the files they changed.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/dshills/ropestorm/internal/engine"
	"github.com/dshills/ropestorm/internal/host"
)

// Editor is the part of the host the reconciler drives.
type Editor interface {
	host.Buffers
	host.Files
	host.Prompter
}

// Result records what a reconciliation pass did, by absolute file name.
type Result struct {
	Reverted []string
	// Moved maps a killed buffer's file to the file visited in its place.
	Moved map[string]string
	// Skipped lists open buffers whose file vanished without a move target.
	Skipped []string
}

func (r *Result) merge(o Result) {
	r.Reverted = append(r.Reverted, o.Reverted...)
	r.Skipped = append(r.Skipped, o.Skipped...)
	for k, v := range o.Moved {
		if r.Moved == nil {
			r.Moved = make(map[string]string)
		}
		r.Moved[k] = v
	}
}

// Reconciler performs change sets and reconciles buffers.
type Reconciler struct {
	editor Editor
	log    *slog.Logger

	// passes counts reconciliation passes, for diagnostics.
	passes int
}

// New creates a reconciler.
func New(editor Editor, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{editor: editor, log: logger.With("component", "reconcile")}
}

// Passes returns how many reconciliation passes have run.
func (r *Reconciler) Passes() int { return r.passes }

// Perform applies changes to p and reconciles the buffers they touched.
func (r *Reconciler) Perform(ctx context.Context, p engine.Project, changes engine.ChangeSet) (Result, error) {
	if err := p.Do(ctx, changes); err != nil {
		return Result{}, fmt.Errorf("performing %q: %w", changes.Description(), err)
	}
	return r.Reconcile(changes)
}

// Reconcile walks the resources cs touched. A buffer whose file still
// exists is reverted; one whose file moved is killed and the target
// visited; one whose file is gone without a target is left alone.
func (r *Reconciler) Reconcile(cs engine.ChangeSet) (Result, error) {
	r.passes++
	var moved map[string]engine.Resource
	if m, ok := cs.(engine.Mover); ok {
		moved = m.MovedResources()
	}

	var res Result
	var errs []error
	visited := make(map[string]bool)
	for _, changed := range cs.ChangedResources() {
		file := changed.RealPath()
		if visited[file] || changed.IsFolder() {
			continue
		}
		b := r.editor.BufferVisiting(file)
		if b == nil {
			continue
		}
		if changed.Exists() {
			if err := b.Revert(); err != nil {
				errs = append(errs, err)
				continue
			}
			res.Reverted = append(res.Reverted, file)
			continue
		}
		target, ok := moved[changed.Path()]
		if !ok || target == nil {
			r.log.Debug("buffer left untouched", "file", file)
			res.Skipped = append(res.Skipped, file)
			continue
		}
		r.editor.KillBuffer(b)
		visited[target.RealPath()] = true
		if _, err := r.editor.FindFile(target.RealPath()); err != nil {
			errs = append(errs, err)
			continue
		}
		if res.Moved == nil {
			res.Moved = make(map[string]string)
		}
		res.Moved[file] = target.RealPath()
	}
	r.log.Debug("reconciled", "change", cs.Description(),
		"reverted", len(res.Reverted), "moved", len(res.Moved), "skipped", len(res.Skipped))
	return res, errors.Join(errs...)
}

// Undo confirms, then undoes the last refactoring, reconciling after each
// change set the history yields.
func (r *Reconciler) Undo(ctx context.Context, p engine.Project) (Result, error) {
	h := p.History()
	if h.UndoCount() == 0 {
		r.editor.Message("Nothing to undo!")
		return Result{}, nil
	}
	ok, err := r.editor.Confirm("Undo refactoring might change many files; proceed? ")
	if err != nil || !ok {
		return Result{}, err
	}
	return r.replay(h.Undo(ctx), engine.ErrNothingToUndo, "Nothing to undo!")
}

// Redo is Undo for the redo history.
func (r *Reconciler) Redo(ctx context.Context, p engine.Project) (Result, error) {
	h := p.History()
	if h.RedoCount() == 0 {
		r.editor.Message("Nothing to redo!")
		return Result{}, nil
	}
	ok, err := r.editor.Confirm("Redo refactoring might change many files; proceed? ")
	if err != nil || !ok {
		return Result{}, err
	}
	return r.replay(h.Redo(ctx), engine.ErrNothingToRedo, "Nothing to redo!")
}

func (r *Reconciler) replay(seq iter.Seq2[engine.ChangeSet, error], empty error, msg string) (Result, error) {
	var total Result
	for cs, err := range seq {
		if errors.Is(err, empty) {
			r.editor.Message(msg)
			return total, nil
		}
		if err != nil {
			return total, err
		}
		res, err := r.Reconcile(cs)
		total.merge(res)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
