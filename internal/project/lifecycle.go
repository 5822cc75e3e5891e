package project

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/dshills/ropestorm/internal/engine"
	"github.com/dshills/ropestorm/internal/hook"
	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/project/watcher"
)

// State is the lifecycle state of the project slot.
type State uint8

// States.
const (
	StateAbsent State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "absent"
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithoutWatcher disables the file system watcher.
func WithoutWatcher() Option {
	return func(l *Lifecycle) { l.watch = false }
}

// WithWatchDelay sets the watcher's debounce delay.
func WithWatchDelay(d time.Duration) Option {
	return func(l *Lifecycle) { l.watchDelay = d }
}

// WithIgnore sets the path segments the watcher skips.
func WithIgnore(patterns ...string) Option {
	return func(l *Lifecycle) { l.ignore = patterns }
}

// Lifecycle holds at most one open project.
type Lifecycle struct {
	opener     engine.Opener
	ui         host.Prompter
	log        *slog.Logger
	watch      bool
	watchDelay time.Duration
	ignore     []string

	mu      sync.Mutex
	state   State
	project engine.Project
	stale   error
	w       *watcher.Watcher
	done    chan struct{}
}

// New creates a lifecycle with no project open.
func New(opener engine.Opener, ui host.Prompter, logger *slog.Logger, opts ...Option) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Lifecycle{
		opener:     opener,
		ui:         ui,
		log:        logger.With("component", "project"),
		watch:      true,
		watchDelay: 50 * time.Millisecond,
		ignore:     []string{".git", ".hg", ".svn", "__pycache__", ".ropeproject", "*~"},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Init closes the project when the host shuts down.
func (l *Lifecycle) Init(hooks host.Hooks) {
	hooks.AddHook(hook.Shutdown, "ropestorm-close-project", func(context.Context, hook.Payload) error {
		return l.Close()
	})
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Project returns the open project, or nil.
func (l *Lifecycle) Project() engine.Project {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.project
}

// IsOpen reports whether a project is open.
func (l *Lifecycle) IsOpen() bool { return l.Project() != nil }

// Open closes any open project and opens root.
func (l *Lifecycle) Open(ctx context.Context, root string) (engine.Project, error) {
	if err := l.Close(); err != nil {
		l.log.Warn("closing previous project", "error", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	p, err := l.opener.Open(abs)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.project = p
	l.state = StateOpen
	l.stale = nil
	l.mu.Unlock()

	if l.watch {
		l.startWatcher(p)
	}
	l.log.Info("project opened", "root", p.Root())
	return p, nil
}

// Close releases the open project. Without one it does nothing.
func (l *Lifecycle) Close() error {
	l.mu.Lock()
	p := l.project
	w, done := l.w, l.done
	l.project, l.w, l.done, l.stale = nil, nil, nil, nil
	if p != nil {
		l.state = StateClosed
	}
	l.mu.Unlock()

	if p == nil {
		return nil
	}
	if w != nil {
		_ = w.Close()
		<-done
	}
	err := p.Close()
	l.ui.Message("Project closed")
	l.log.Info("project closed", "root", p.Root())
	return err
}

// Validate checks the open project is still usable.
func (l *Lifecycle) Validate() error {
	l.mu.Lock()
	p, stale := l.project, l.stale
	l.mu.Unlock()

	if p == nil {
		return ErrNoProject
	}
	if stale != nil {
		return stale
	}
	if err := p.Validate(); err != nil {
		return &StaleError{Root: p.Root(), Err: err}
	}
	return nil
}

// Resolve maps an editor file name to a resource of the open project. It
// returns nil without a project, for "" and for files outside the root.
func (l *Lifecycle) Resolve(filename string) engine.Resource {
	p := l.Project()
	if p == nil || filename == "" {
		return nil
	}
	r, ok := p.PathToResource(filename)
	if !ok {
		return nil
	}
	return r
}

func (l *Lifecycle) startWatcher(p engine.Project) {
	w, err := watcher.New(watcher.WithDelay(l.watchDelay), watcher.WithIgnore(l.ignore...))
	if err != nil {
		l.log.Warn("file watcher unavailable", "error", err)
		return
	}
	if err := w.AddTree(p.Root()); err != nil {
		l.log.Warn("watching project", "root", p.Root(), "error", err)
		_ = w.Close()
		return
	}
	done := make(chan struct{})

	l.mu.Lock()
	if l.project != p {
		l.mu.Unlock()
		_ = w.Close()
		return
	}
	l.w, l.done = w, done
	l.mu.Unlock()

	go l.forward(p, w, done)
}

// forward turns watcher events into engine refreshes until the watcher is
// closed.
func (l *Lifecycle) forward(p engine.Project, w *watcher.Watcher, done chan struct{}) {
	defer close(done)
	root := p.Root()
	events, errs := w.Events(), w.Errors()
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Path == root {
				if ev.Op.Has(watcher.OpRemove) || ev.Op.Has(watcher.OpRename) {
					l.markStale(p, ev.Op)
				}
				continue
			}
			rel, err := filepath.Rel(root, ev.Path)
			if err != nil {
				continue
			}
			p.Refresh(filepath.ToSlash(rel))
			l.log.Debug("external change", "path", rel, "op", ev.Op.String())
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			l.log.Warn("watch error", "error", err)
		}
	}
}

func (l *Lifecycle) markStale(p engine.Project, op watcher.Op) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.project != p {
		return
	}
	l.stale = &StaleError{Root: p.Root()}
	l.log.Warn("project root went away", "root", p.Root(), "op", op.String())
}
