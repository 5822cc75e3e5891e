// Package bridge wires the refactoring engine to an editor host: it owns
// the project lifecycle, the save synchronizer, the change reconciler and
// the command table, and installs them into the host.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dshills/ropestorm/internal/bufsync"
	"github.com/dshills/ropestorm/internal/command"
	"github.com/dshills/ropestorm/internal/completion"
	"github.com/dshills/ropestorm/internal/config"
	"github.com/dshills/ropestorm/internal/dialog"
	"github.com/dshills/ropestorm/internal/engine"
	"github.com/dshills/ropestorm/internal/hook"
	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/occurrence"
	"github.com/dshills/ropestorm/internal/project"
	"github.com/dshills/ropestorm/internal/reconcile"
	"github.com/dshills/ropestorm/internal/refactor"
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithProjectOptions passes options to the project lifecycle.
func WithProjectOptions(opts ...project.Option) Option {
	return func(b *Bridge) { b.projectOpts = append(b.projectOpts, opts...) }
}

// WithSourceModes sets the major modes whose buffers get the local keys.
func WithSourceModes(modes ...string) Option {
	return func(b *Bridge) { b.sourceModes = modes }
}

// Bridge connects one host to one engine.
type Bridge struct {
	host   host.Host
	engine engine.Engine
	store  *config.Store
	log    *slog.Logger

	projectOpts []project.Option
	sourceModes []string

	projects    *project.Lifecycle
	syncer      *bufsync.Syncer
	reconciler  *reconcile.Reconciler
	completion  *completion.Adapter
	occurrences *occurrence.Runner
	refactoring *refactor.Runner
	registry    *command.Registry
	dispatcher  *command.Dispatcher
	metrics     *command.Metrics
}

// New builds the bridge and its command table. Key bindings use the
// options current in store.
func New(h host.Host, e engine.Engine, store *config.Store, logger *slog.Logger, opts ...Option) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = config.NewStore(config.Default())
	}
	b := &Bridge{
		host:        h,
		engine:      e,
		store:       store,
		log:         logger.With("component", "bridge"),
		sourceModes: []string{"python-mode"},
		metrics:     command.NewMetrics(),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.projects = project.New(e, h, logger, b.projectOpts...)
	b.syncer = bufsync.New(b.projects, h, logger)
	b.reconciler = reconcile.New(h, logger)
	b.completion = completion.New(e, h, func() int { return b.store.Get().CodeAssistMaxFixes }, logger)
	b.occurrences = occurrence.New(e, h, logger)
	b.refactoring = refactor.NewRunner(e, h, b, b, logger)

	settings := store.Get()
	b.registry = command.NewRegistry(settings.Prefix())
	for _, spec := range b.specs() {
		spec.Key = settings.KeyFor(spec.PublicName(), spec.Key)
		if err := b.registry.Register(spec); err != nil {
			return nil, err
		}
	}
	b.dispatcher = command.NewDispatcher(b.registry, b.projects, h,
		command.WithLogger(logger),
		command.WithMetrics(b.metrics),
		command.WithUserErrors(userErrors()...),
	)
	return b, nil
}

func userErrors() []command.UserError {
	return []command.UserError{
		{Err: project.ErrStaleRoot},
		{Err: project.ErrNoProject, Message: "No project is open"},
		{Err: engine.ErrInvalidRoot},
		{Err: engine.ErrNoTarget, Message: "Nothing to refactor here"},
		{Err: engine.ErrSyntax},
		{Err: engine.ErrConflict},
		{Err: engine.ErrInvalidName},
		{Err: engine.ErrNotFound},
		{Err: engine.ErrOutsideProject},
		{Err: refactor.ErrNoRegion, Message: "The mark is not set"},
		{Err: refactor.ErrNoResource, Message: "Buffer is not visiting a project file"},
		{Err: dialog.ErrRequired, Silent: true},
	}
}

// Init subscribes the hooks and installs the global keys.
func (b *Bridge) Init() error {
	b.projects.Init(b.host)
	b.syncer.Init(b.host)
	b.host.AddHook(hook.ModeEnter, "ropestorm-local-keys", b.modeEntered)
	if err := b.registry.InstallGlobal(b.host); err != nil {
		return fmt.Errorf("installing global keys: %w", err)
	}
	b.log.Debug("bridge initialised", "commands", len(b.registry.Names()))
	return nil
}

// modeEntered installs the local keys into source buffers.
func (b *Bridge) modeEntered(_ context.Context, p hook.Payload) error {
	if !slices.Contains(b.sourceModes, p.Mode) {
		return nil
	}
	for _, buf := range b.host.Buffers() {
		if buf.Name() == p.Buffer {
			return b.registry.InstallLocal(b.host, buf)
		}
	}
	return nil
}

// Invoke runs a command by public name.
func (b *Bridge) Invoke(ctx context.Context, name string, prefix command.Prefix) error {
	return b.dispatcher.Invoke(ctx, name, prefix)
}

// Open opens root as the project without prompting.
func (b *Bridge) Open(ctx context.Context, root string) (engine.Project, error) {
	return b.projects.Open(ctx, root)
}

// Shutdown closes the open project.
func (b *Bridge) Shutdown() error { return b.projects.Close() }

// Commands returns the command table in registration order.
func (b *Bridge) Commands() []command.Entry { return b.registry.Entries() }

// Registry returns the command table.
func (b *Bridge) Registry() *command.Registry { return b.registry }

// Metrics returns the invocation statistics.
func (b *Bridge) Metrics() *command.Metrics { return b.metrics }

// Projects returns the project lifecycle.
func (b *Bridge) Projects() *project.Lifecycle { return b.projects }

// Options returns the live options.
func (b *Bridge) Options() *config.Store { return b.store }

// Host returns the editor host.
func (b *Bridge) Host() host.Host { return b.host }

// SaveAll saves project buffers, asking first when confirm_saving is set.
func (b *Bridge) SaveAll(ctx context.Context, opts bufsync.Options) error {
	opts.Ask = opts.Ask || b.store.Get().ConfirmSaving
	return b.syncer.SaveAll(ctx, opts)
}

// Perform applies changes and reconciles the buffers they touched.
func (b *Bridge) Perform(ctx context.Context, p engine.Project, changes engine.ChangeSet) (reconcile.Result, error) {
	return b.reconciler.Perform(ctx, p, changes)
}

// Complete returns where the identifier before offset starts and the
// ranked proposal names. The source is the buffer visiting filename, or
// the file on disk.
func (b *Bridge) Complete(ctx context.Context, filename string, offset int) (int, []string, error) {
	p := b.projects.Project()
	if p == nil {
		return 0, nil, project.ErrNoProject
	}
	r := b.projects.Resolve(filename)
	if r == nil {
		return 0, nil, refactor.ErrNoResource
	}
	var source string
	if buf := b.host.BufferVisiting(filename); buf != nil {
		source = buf.Text()
	} else {
		text, err := r.Read()
		if err != nil {
			return 0, nil, err
		}
		source = text
	}
	return b.completion.Compute(ctx, p, r, source, offset)
}
