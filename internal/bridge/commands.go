package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dshills/ropestorm/internal/bufsync"
	"github.com/dshills/ropestorm/internal/command"
	"github.com/dshills/ropestorm/internal/completion"
	"github.com/dshills/ropestorm/internal/dialog"
	"github.com/dshills/ropestorm/internal/engine"
	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/keymap"
	"github.com/dshills/ropestorm/internal/keyseq"
	"github.com/dshills/ropestorm/internal/occurrence"
	"github.com/dshills/ropestorm/internal/project"
	"github.com/dshills/ropestorm/internal/refactor"
)

// Listing buffer names and host commands bound in them.
const (
	DocBuffer  = "*rope-pydoc*"
	BuryBuffer = "bury-buffer"
)

// Messages shown by the supplementary commands.
const (
	MsgNoRopeFolder = "No rope project folder found"
	MsgNoDocs       = "No docs available!"
)

// specs is the command table. Refactorings are appended from their
// definitions.
func (b *Bridge) specs() []command.Spec {
	specs := []command.Spec{
		{Name: "open_project", Key: "C-x p o", Handler: b.openProject},
		{Name: "close_project", Key: "C-x p k", Handler: b.closeProject},
		{Name: "undo_refactoring", Key: "C-x p u", NeedsProject: true, Handler: b.undoRefactoring},
		{Name: "redo_refactoring", Key: "C-x p r", NeedsProject: true, Handler: b.redoRefactoring},
		{Name: "find_file", Key: "C-x p f", NeedsProject: true, Handler: b.findFile},
		{Name: "project_config", Key: "C-x p c", NeedsProject: true, Handler: b.projectConfig},
		{Name: "create_module", Key: "C-x p n m", NeedsProject: true, Handler: b.createModule},
		{Name: "create_package", Key: "C-x p n p", NeedsProject: true, Handler: b.createPackage},
		{Name: "create_file", Key: "C-x p n f", NeedsProject: true, Handler: b.createFile},
		{Name: "create_directory", Key: "C-x p n d", NeedsProject: true, Handler: b.createDirectory},
		{Name: "code_assist", Key: "M-/", NeedsProject: true, Handler: b.codeAssist},
		{Name: "lucky_assist", Key: "M-?", NeedsProject: true, Handler: b.luckyAssist},
		{Name: "goto_definition", Key: "C-c g", NeedsProject: true, Handler: b.gotoDefinition},
		{Name: "show_doc", Key: "C-c C-d", NeedsProject: true, Handler: b.showDoc},
		{Name: "find_occurrences", Key: "C-c f", NeedsProject: true, Handler: b.findOccurrences},
		{Name: occurrence.CmdGoto, NeedsProject: true, Handler: b.gotoOccurrence},
		{Name: occurrence.CmdQuit, Handler: b.quitOccurrences},
	}
	for _, def := range refactor.Definitions() {
		specs = append(specs, b.refactoringSpec(def))
	}
	return specs
}

func (b *Bridge) refactoringSpec(def refactor.Definition) command.Spec {
	return command.Spec{
		Name:         def.Name,
		Key:          def.Key,
		NeedsProject: true,
		Handler: func(ctx context.Context, prefix command.Prefix) error {
			t, err := b.location()
			if err != nil {
				return err
			}
			return b.refactoring.Run(ctx, def, refactor.Target(t), !prefix.IsSet())
		},
	}
}

// location is the open project, the current buffer and the resource it
// visits.
type location struct {
	Project  engine.Project
	Resource engine.Resource
	Buffer   host.Buffer
}

func (b *Bridge) location() (location, error) {
	p := b.projects.Project()
	if p == nil {
		return location{}, project.ErrNoProject
	}
	buf := b.host.CurrentBuffer()
	return location{Project: p, Resource: b.projects.Resolve(buf.FileName()), Buffer: buf}, nil
}

// resourceLocation is location for commands that analyse the buffer's file.
func (b *Bridge) resourceLocation() (location, error) {
	loc, err := b.location()
	if err != nil {
		return loc, err
	}
	if loc.Resource == nil {
		return loc, refactor.ErrNoResource
	}
	return loc, nil
}

func (b *Bridge) openProject(ctx context.Context, _ command.Prefix) error {
	initial := ""
	if f := b.host.CurrentBuffer().FileName(); f != "" {
		initial = filepath.Dir(f)
	} else if wd, err := os.Getwd(); err == nil {
		initial = wd
	}
	root, err := b.host.AskDirectory("Rope project root folder: ", initial)
	if err != nil {
		return err
	}
	_, err = b.projects.Open(ctx, root)
	return err
}

func (b *Bridge) closeProject(context.Context, command.Prefix) error {
	return b.projects.Close()
}

func (b *Bridge) undoRefactoring(ctx context.Context, _ command.Prefix) error {
	res, err := b.reconciler.Undo(ctx, b.projects.Project())
	if len(res.Skipped) > 0 {
		b.log.Warn("buffers left stale by undo", "paths", res.Skipped)
	}
	return err
}

func (b *Bridge) redoRefactoring(ctx context.Context, _ command.Prefix) error {
	res, err := b.reconciler.Redo(ctx, b.projects.Project())
	if len(res.Skipped) > 0 {
		b.log.Warn("buffers left stale by redo", "paths", res.Skipped)
	}
	return err
}

// ReversedName names a project path by its segments last first, joined by
// '<', so completion matches on the file name.
func ReversedName(path string) string {
	parts := strings.Split(path, "/")
	slices.Reverse(parts)
	return strings.Join(parts, "<")
}

func (b *Bridge) findFile(context.Context, command.Prefix) error {
	p := b.projects.Project()
	files, err := p.Files()
	if err != nil {
		return err
	}
	byName := make(map[string]engine.Resource, len(files))
	names := make([]string, 0, len(files))
	for _, f := range files {
		name := ReversedName(f.Path())
		byName[name] = f
		names = append(names, name)
	}
	answer, err := b.host.AskChoice("Rope Find File: ", names, "")
	if err != nil {
		return err
	}
	f, ok := byName[answer]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrNotFound, answer)
	}
	_, err = b.host.FindFile(f.RealPath())
	return err
}

func (b *Bridge) projectConfig(context.Context, command.Prefix) error {
	cfg, ok := b.projects.Project().ConfigFile()
	if !ok {
		b.host.Message(MsgNoRopeFolder)
		return nil
	}
	_, err := b.host.FindFile(cfg.RealPath())
	return err
}

// creator makes name under parent; a nil resource means nothing to visit.
type creator func(p engine.Project, parent engine.Resource, name string) (engine.Resource, error)

func (b *Bridge) createModule(_ context.Context, _ command.Prefix) error {
	return b.create("module", "source", func(p engine.Project, parent engine.Resource, name string) (engine.Resource, error) {
		return b.engine.CreateModule(p, name, parent)
	})
}

func (b *Bridge) createPackage(_ context.Context, _ command.Prefix) error {
	return b.create("package", "source", func(p engine.Project, parent engine.Resource, name string) (engine.Resource, error) {
		pkg, err := b.engine.CreatePackage(p, name, parent)
		if err != nil {
			return nil, err
		}
		return b.engine.PackageInit(pkg)
	})
}

func (b *Bridge) createFile(_ context.Context, _ command.Prefix) error {
	return b.create("file", "parent", func(p engine.Project, parent engine.Resource, name string) (engine.Resource, error) {
		return p.CreateFile(parent, name)
	})
}

func (b *Bridge) createDirectory(_ context.Context, _ command.Prefix) error {
	return b.create("directory", "parent", func(p engine.Project, parent engine.Resource, name string) (engine.Resource, error) {
		_, err := p.CreateFolder(parent, name)
		return nil, err
	})
}

func (b *Bridge) create(kind, parentName string, fn creator) error {
	p := b.projects.Project()
	folderField := parentName + "folder"
	action, values, err := dialog.Show(b.host, dialog.Dialog{
		Actions: []string{"perform", "cancel"},
		Required: []dialog.Field{{Name: "name", Data: dialog.Data{
			Prompt: title(kind) + " name: ",
		}}},
		Optional: []dialog.Field{{Name: folderField, Data: dialog.Data{
			Prompt:  title(folderField) + " Folder: ",
			Default: p.Root(),
			Kind:    dialog.KindDirectory,
		}}},
	})
	if err != nil || action != "perform" {
		return err
	}
	parent, err := folderResource(p, values[folderField])
	if err != nil {
		return err
	}
	r, err := fn(p, parent, values["name"])
	if err != nil || r == nil {
		return err
	}
	_, err = b.host.FindFile(r.RealPath())
	return err
}

// folderResource maps a directory answer to a project folder; the root is
// nil.
func folderResource(p engine.Project, dir string) (engine.Resource, error) {
	if dir == "" {
		return nil, nil
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(p.Root(), dir)
	}
	r, ok := p.PathToResource(dir)
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrOutsideProject, dir)
	}
	if r.Path() == "" {
		return nil, nil
	}
	if !r.Exists() || !r.IsFolder() {
		return nil, fmt.Errorf("%w: %s", engine.ErrNotFound, dir)
	}
	return r, nil
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (b *Bridge) codeAssist(ctx context.Context, prefix command.Prefix) error {
	loc, err := b.resourceLocation()
	if err != nil {
		return err
	}
	return b.completion.CodeAssist(ctx, completion.Target(loc), prefix.Value(), prefix.IsSet())
}

func (b *Bridge) luckyAssist(ctx context.Context, prefix command.Prefix) error {
	loc, err := b.resourceLocation()
	if err != nil {
		return err
	}
	index := 0
	if prefix.IsSet() {
		index = prefix.Value()
	}
	return b.completion.LuckyAssist(ctx, completion.Target(loc), index)
}

func (b *Bridge) gotoDefinition(ctx context.Context, _ command.Prefix) error {
	loc, err := b.resourceLocation()
	if err != nil {
		return err
	}
	def, err := b.engine.DefinitionLocation(ctx, loc.Project, loc.Buffer.Text(), loc.Buffer.Point(), loc.Resource)
	if err != nil {
		return err
	}
	if !def.Found() {
		b.log.Debug("no definition", "path", loc.Resource.Path(), "offset", loc.Buffer.Point())
		return nil
	}
	loc.Buffer.PushMark()
	buf := loc.Buffer
	if def.Resource != nil {
		visit := b.host.FindFile
		if def.Resource.Project() != loc.Project {
			visit = b.host.FindFileReadOnly
		}
		if buf, err = visit(def.Resource.RealPath()); err != nil {
			return err
		}
	}
	if def.Line > 0 {
		host.GotoLine(buf, def.Line)
	}
	return nil
}

func (b *Bridge) showDoc(ctx context.Context, _ command.Prefix) error {
	loc, err := b.resourceLocation()
	if err != nil {
		return err
	}
	doc, err := b.engine.Doc(ctx, loc.Project, loc.Buffer.Text(), loc.Buffer.Point(), loc.Resource)
	if err != nil {
		return err
	}
	if doc == "" {
		b.host.Message(MsgNoDocs)
		return nil
	}
	b.host.MakeBuffer(DocBuffer, doc, keymap.Binding{Keys: keyseq.MustParse("q"), Command: BuryBuffer})
	return nil
}

func (b *Bridge) findOccurrences(ctx context.Context, prefix command.Prefix) error {
	if err := b.SaveAll(ctx, bufsync.Options{}); err != nil {
		return err
	}
	loc, err := b.resourceLocation()
	if err != nil {
		return err
	}
	occs, err := b.occurrences.Find(ctx, loc.Project, loc.Resource, loc.Buffer.Point(), prefix.Value() != 1)
	if err != nil {
		return err
	}
	b.occurrences.Show(occs)
	return nil
}

func (b *Bridge) gotoOccurrence(context.Context, command.Prefix) error {
	return b.occurrences.GotoOccurrence(b.projects.Project(), b.host.CurrentBuffer())
}

func (b *Bridge) quitOccurrences(context.Context, command.Prefix) error {
	b.occurrences.Quit()
	return nil
}
