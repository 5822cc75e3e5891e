// Package bufsync keeps the engine's view of files current as the editor
// saves buffers, and saves project buffers before analyses that read from
// disk.
package bufsync

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/dshills/ropestorm/internal/engine"
	"github.com/dshills/ropestorm/internal/hook"
	"github.com/dshills/ropestorm/internal/host"
)

// Projects gives access to the open project.
type Projects interface {
	Project() engine.Project
	Resolve(filename string) engine.Resource
}

// Editor is the part of the host the synchronizer uses.
type Editor interface {
	host.Buffers
	host.Prompter
}

// Options control SaveAll.
type Options struct {
	// OnlyCurrent limits saving to the current buffer.
	OnlyCurrent bool
	// Ask confirms each save.
	Ask bool
}

// Syncer snapshots files before save and reports them after.
type Syncer struct {
	projects Projects
	editor   Editor
	log      *slog.Logger

	mu        sync.Mutex
	snapshots map[string]string
}

// New creates a synchronizer.
func New(projects Projects, editor Editor, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		projects:  projects,
		editor:    editor,
		log:       logger.With("component", "bufsync"),
		snapshots: make(map[string]string),
	}
}

// Init subscribes to the host's save hooks.
func (s *Syncer) Init(hooks host.Hooks) {
	hooks.AddHook(hook.BeforeSave, "ropestorm-before-save", s.BeforeSave)
	hooks.AddHook(hook.AfterSave, "ropestorm-after-save", s.AfterSave)
}

// BeforeSave records the on-disk content of the file about to be written,
// or "" when it does not exist yet. Files outside the project are ignored.
func (s *Syncer) BeforeSave(_ context.Context, p hook.Payload) error {
	if s.projects.Project() == nil {
		return nil
	}
	r := s.projects.Resolve(p.File)
	if r == nil {
		return nil
	}
	old := ""
	if r.Exists() {
		content, err := r.Read()
		if err != nil {
			return err
		}
		old = content
	}
	s.mu.Lock()
	s.snapshots[p.File] = old
	s.mu.Unlock()
	return nil
}

// AfterSave reports the save to the engine and drops the snapshot. A save
// with no snapshot reports nothing.
func (s *Syncer) AfterSave(ctx context.Context, p hook.Payload) error {
	s.mu.Lock()
	old, ok := s.snapshots[p.File]
	delete(s.snapshots, p.File)
	s.mu.Unlock()

	proj := s.projects.Project()
	if !ok || proj == nil {
		return nil
	}
	r := s.projects.Resolve(p.File)
	if r == nil {
		return nil
	}
	if s.log.Enabled(ctx, slog.LevelDebug) {
		s.logDiff(r, old)
	}
	return proj.ReportChange(r.Path(), old)
}

// Pending returns the number of snapshots awaiting an after-save.
func (s *Syncer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

func (s *Syncer) logDiff(r engine.Resource, old string) {
	current, err := r.Read()
	if err != nil {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(old),
		B:        difflib.SplitLines(current),
		FromFile: r.Path(),
		ToFile:   r.Path(),
		Context:  1,
	})
	if err != nil {
		return
	}
	s.log.Debug("buffer saved", "path", r.Path(), "diff", diff)
}

// SaveAll saves modified buffers visiting existing source files of the
// open project. The buffer current on entry is current again on return,
// whether the saves were declined, cancelled or failed.
func (s *Syncer) SaveAll(ctx context.Context, opts Options) error {
	proj := s.projects.Project()
	if proj == nil {
		return nil
	}
	initial := s.editor.CurrentBuffer()
	defer s.editor.SetCurrentBuffer(initial)

	buffers := []host.Buffer{initial}
	if !opts.OnlyCurrent {
		buffers = s.editor.Buffers()
	}
	for _, b := range buffers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if b == nil || !b.Modified() || !s.isProjectSource(proj, b.FileName()) {
			continue
		}
		if opts.Ask {
			ok, err := s.editor.Confirm("Save " + b.FileName() + " buffer? ")
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		s.editor.SetCurrentBuffer(b)
		if err := b.Save(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) isProjectSource(proj engine.Project, filename string) bool {
	if filename == "" {
		return false
	}
	r := s.projects.Resolve(filename)
	return r != nil && r.Exists() && proj.IsSourceFile(r)
}
