package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/task"
)

// OpenCommand is run when a command needs a project and none is open.
const OpenCommand = "rope-open-project"

// Projects is what the dispatcher needs to know about the open project.
type Projects interface {
	IsOpen() bool
	// Validate re-checks the open project.
	Validate() error
}

// UserError maps an error to the message shown for it. An empty Message
// shows the error text. Silent errors were already shown and are only
// logged.
type UserError struct {
	Err     error
	Message string
	Silent  bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithUserErrors adds errors that are reported as messages.
func WithUserErrors(errs ...UserError) Option {
	return func(d *Dispatcher) { d.userErrors = append(d.userErrors, errs...) }
}

// WithMetrics records every invocation in m.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// Dispatcher invokes registered commands.
type Dispatcher struct {
	registry   *Registry
	projects   Projects
	ui         host.Prompter
	log        *slog.Logger
	metrics    *Metrics
	userErrors []UserError
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, projects Projects, ui host.Prompter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		projects: projects,
		ui:       ui,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With("component", "dispatcher")
	return d
}

// Metrics returns the collector, or nil.
func (d *Dispatcher) Metrics() *Metrics { return d.metrics }

// Invoke runs the command named name. Errors the user can act on are
// shown as messages and Invoke returns nil; other failures are returned.
func (d *Dispatcher) Invoke(ctx context.Context, name string, prefix Prefix) error {
	e, ok := d.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if e.Spec.NeedsProject {
		ready, err := d.ensureProject(ctx, e)
		if err != nil || !ready {
			return d.route(name, err)
		}
	}
	return d.run(ctx, e, prefix)
}

// ensureProject opens a project through the open command when none is
// open, exactly once, and validates an open one.
func (d *Dispatcher) ensureProject(ctx context.Context, e Entry) (bool, error) {
	if d.projects.IsOpen() {
		return true, d.projects.Validate()
	}
	if e.Name == OpenCommand {
		return true, nil
	}
	open, ok := d.registry.Lookup(OpenCommand)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCommand, OpenCommand)
	}
	d.log.Debug("opening project first", "command", e.Name)
	if err := d.run(ctx, open, NoPrefix()); err != nil {
		return false, err
	}
	if !d.projects.IsOpen() {
		d.ui.Message("No project open; " + e.Name + " skipped")
		return false, nil
	}
	return true, nil
}

func (d *Dispatcher) run(ctx context.Context, e Entry, prefix Prefix) error {
	start := time.Now()
	err := e.Invoke(ctx, prefix)
	if d.metrics != nil {
		d.metrics.Record(e.Name, time.Since(start), err != nil)
		if errors.Is(err, ErrPanic) {
			d.metrics.RecordPanic()
		}
	}
	d.log.Debug("command finished", "command", e.Name, "prefix", prefix.String(),
		"duration", time.Since(start), "error", err)
	return d.route(e.Name, err)
}

// route turns err into a message when the user can act on it. It is
// idempotent: a routed error is nil or returned unchanged.
func (d *Dispatcher) route(name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, host.ErrCancelled) {
		d.ui.Message("Quit")
		return nil
	}
	if msg, ok := d.userMessage(err); ok {
		if msg != "" {
			d.ui.Message(msg)
		} else {
			d.log.Debug("command stopped", "command", name, "error", err)
		}
		return nil
	}
	if errors.Is(err, task.ErrInterrupted) {
		d.log.Warn("task interrupted", "command", name, "error", err)
		return nil
	}
	var routed *Error
	if errors.As(err, &routed) {
		return err
	}
	d.log.Error("command failed", "command", name, "error", err)
	return &Error{Command: name, Err: err}
}

func (d *Dispatcher) userMessage(err error) (string, bool) {
	for _, ue := range d.userErrors {
		if errors.Is(err, ue.Err) {
			switch {
			case ue.Silent:
				return "", true
			case ue.Message != "":
				return ue.Message, true
			}
			return err.Error(), true
		}
	}
	return "", false
}

// Error is a command failure returned to the host.
type Error struct {
	Command string
	Err     error
}

func (e *Error) Error() string { return e.Command + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }
