// Package refactor defines the refactoring commands and runs them: gather
// parameters through a dialog, calculate the change set as a task, then
// preview or perform it.
package refactor

import (
	"context"
	"log/slog"

	"github.com/dshills/ropestorm/internal/bufsync"
	"github.com/dshills/ropestorm/internal/dialog"
	"github.com/dshills/ropestorm/internal/engine"
	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/reconcile"
	"github.com/dshills/ropestorm/internal/task"
)

// PreviewBuffer shows a change set before it is performed.
const PreviewBuffer = "*rope-preview*"

// Dialog actions.
const (
	ActionPerform = "perform"
	ActionPreview = "preview"
	ActionCancel  = "cancel"
)

// Target is where a refactoring applies.
type Target struct {
	Project  engine.Project
	Resource engine.Resource
	Buffer   host.Buffer
}

// Offset is point in the target buffer.
func (t Target) Offset() int { return t.Buffer.Point() }

// Region returns the ordered mark and point, if the mark is set.
func (t Target) Region() (int, int, bool) {
	mark, ok := t.Buffer.Mark()
	if !ok {
		return 0, 0, false
	}
	point := t.Buffer.Point()
	return min(mark, point), max(mark, point), true
}

// Editor is the part of the host refactorings use.
type Editor interface {
	host.Prompter
	host.Listings
	host.Reporter
}

// Saver saves project buffers.
type Saver interface {
	SaveAll(ctx context.Context, opts bufsync.Options) error
}

// Performer applies change sets and reconciles buffers.
type Performer interface {
	Perform(ctx context.Context, p engine.Project, changes engine.ChangeSet) (reconcile.Result, error)
}

// Runner runs refactoring definitions.
type Runner struct {
	engine    engine.Refactorer
	editor    Editor
	saver     Saver
	performer Performer
	log       *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(e engine.Refactorer, editor Editor, saver Saver, performer Performer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		engine:    e,
		editor:    editor,
		saver:     saver,
		performer: performer,
		log:       logger.With("component", "refactor"),
	}
}

// Run shows def's dialog for t and acts on the choice. With initial set
// the fields are asked up front; otherwise the user starts at the action
// choice.
func (r *Runner) Run(ctx context.Context, def Definition, t Target, initial bool) error {
	if t.Resource == nil {
		return ErrNoResource
	}
	if err := r.saver.SaveAll(ctx, bufsync.Options{OnlyCurrent: !def.SaveAll}); err != nil {
		return err
	}

	action, values, err := dialog.Show(r.editor, dialog.Dialog{
		Actions:  []string{ActionPerform, ActionPreview, ActionCancel},
		Required: def.Fields(t),
		Deferred: !initial,
	})
	if err != nil {
		return err
	}
	if action == ActionCancel {
		r.editor.Message("Cancelled!")
		return nil
	}

	name := "Calculating " + def.Name + " changes"
	changes, err := task.Run(ctx, r.editor, name, func(h *task.Handle) (engine.ChangeSet, error) {
		return def.calculate(h.Context(), r.engine, t, values)
	})
	if err != nil {
		return err
	}
	if changes == nil {
		r.editor.Message("No changes!")
		return nil
	}

	if action == ActionPreview {
		r.editor.MakeBuffer(PreviewBuffer, changes.Description())
		ok, err := r.editor.Confirm("Do the changes? ")
		r.editor.HideBuffer(PreviewBuffer)
		if err != nil {
			return err
		}
		if !ok {
			r.editor.Message("Thrown away!")
			return nil
		}
	}
	return r.perform(ctx, t.Project, changes)
}

func (r *Runner) perform(ctx context.Context, p engine.Project, changes engine.ChangeSet) error {
	if _, err := r.performer.Perform(ctx, p, changes); err != nil {
		return err
	}
	summary := engine.Summary(changes)
	r.log.Info("refactoring performed", "change", summary, "resources", len(changes.ChangedResources()))
	r.editor.Message(summary + " finished")
	return nil
}
