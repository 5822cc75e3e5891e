package local

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/dshills/ropestorm/internal/engine"
)

// Engine implements engine.Engine over the local file system.
type Engine struct {
	log          *slog.Logger
	createFolder bool
	workers      int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithoutConfigFolder stops Open from creating .ropeproject in projects
// that lack one.
func WithoutConfigFolder() Option {
	return func(e *Engine) { e.createFolder = false }
}

// WithWorkers bounds the files scanned concurrently by FindOccurrences.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:          slog.Default(),
		createFolder: true,
		workers:      runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "engine")
	return e
}

// Open opens the project rooted at root.
func (e *Engine) Open(root string) (engine.Project, error) {
	return openProject(root, e.createFolder, e.log)
}

func (e *Engine) local(p engine.Project) (*Project, error) {
	lp, ok := p.(*Project)
	if !ok || lp == nil {
		return nil, fmt.Errorf("local: foreign project %T", p)
	}
	if err := lp.checkOpen(); err != nil {
		return nil, err
	}
	return lp, nil
}

var _ engine.Engine = (*Engine)(nil)
var _ engine.Project = (*Project)(nil)
var _ engine.ChangeSet = (*Changes)(nil)
var _ engine.Mover = (*Changes)(nil)
