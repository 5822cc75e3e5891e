package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/dshills/ropestorm/internal/engine"
)

// change is one primitive mutation. Applying it returns the change that
// undoes it, built from the state it replaced.
type change interface {
	do(p *Project) (change, error)
	paths() []string
	preview(p *Project) string
}

// Changes is an ordered, reversible batch of changes. It implements
// engine.ChangeSet and engine.Mover.
type Changes struct {
	id          string
	description string
	p           *Project
	changes     []change

	// inverse is set once the batch has been applied.
	inverse []change
}

// NewChanges starts an empty batch for p.
func NewChanges(p *Project, description string) *Changes {
	return &Changes{id: uuid.NewString(), description: description, p: p}
}

// Add appends a change.
func (c *Changes) Add(ch change) { c.changes = append(c.changes, ch) }

// Len returns the number of primitive changes.
func (c *Changes) Len() int { return len(c.changes) }

// ID identifies the batch in logs.
func (c *Changes) ID() string { return c.id }

// Summary returns the one line description.
func (c *Changes) Summary() string { return c.description }

// Description returns the summary followed by a preview of every change.
func (c *Changes) Description() string {
	var b strings.Builder
	b.WriteString(c.description)
	b.WriteString("\n")
	for _, ch := range c.changes {
		if text := ch.preview(c.p); text != "" {
			b.WriteString("\n")
			b.WriteString(text)
		}
	}
	return b.String()
}

// ChangedResources lists the touched resources, first occurrence order.
func (c *Changes) ChangedResources() []engine.Resource {
	seen := make(map[string]bool)
	var out []engine.Resource
	for _, ch := range c.changes {
		for _, p := range ch.paths() {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, c.p.resource(p))
		}
	}
	return out
}

// MovedResources maps moved paths to their destinations.
func (c *Changes) MovedResources() map[string]engine.Resource {
	moved := make(map[string]engine.Resource)
	for _, ch := range c.changes {
		if m, ok := ch.(moveChange); ok {
			moved[m.from] = c.p.resource(m.to)
		}
	}
	return moved
}

// apply performs every change in order. On failure the changes already
// made are rolled back.
func (c *Changes) apply(ctx context.Context, p *Project) error {
	if c.p == nil {
		c.p = p
	}
	if c.p != p {
		return fmt.Errorf("local: change set belongs to %s", c.p.root)
	}
	inverse := make([]change, 0, len(c.changes))
	rollback := func() {
		for i := len(inverse) - 1; i >= 0; i-- {
			if _, err := inverse[i].do(p); err != nil {
				p.log.Error("rollback failed", "id", c.id, "error", err)
			}
		}
	}
	for _, ch := range c.changes {
		if err := ctx.Err(); err != nil {
			rollback()
			return err
		}
		inv, err := ch.do(p)
		if err != nil {
			rollback()
			return err
		}
		inverse = append(inverse, inv)
		for _, path := range ch.paths() {
			p.invalidate(path)
		}
	}
	c.inverse = make([]change, len(inverse))
	for i, inv := range inverse {
		c.inverse[len(inverse)-1-i] = inv
	}
	return nil
}

// undoing returns a batch that reverts c. It is only valid after c was
// applied.
func (c *Changes) undoing() *Changes {
	u := NewChanges(c.p, "Undo: "+c.description)
	u.changes = append(u.changes, c.inverse...)
	return u
}

// ChangeContents replaces the contents of a file. before is the content the
// change was computed against; applying fails with engine.ErrConflict when
// the file no longer holds it.
func ChangeContents(path, before, after string) change {
	return contentChange{path: cleanPath(path), old: before, new: after}
}

// CreateFile creates an empty file.
func CreateFile(path string) change { return createChange{path: cleanPath(path)} }

// CreateFolder creates a folder.
func CreateFolder(path string) change { return createChange{path: cleanPath(path), folder: true} }

// Remove deletes a file or a whole folder.
func Remove(path string) change { return removeChange{path: cleanPath(path)} }

// Move renames a resource.
func Move(from, to string) change { return moveChange{from: cleanPath(from), to: cleanPath(to)} }

type contentChange struct {
	path     string
	old, new string
}

func (c contentChange) do(p *Project) (change, error) {
	r := p.resource(c.path)
	current, err := r.Read()
	if err != nil {
		return nil, err
	}
	if current != c.old {
		return nil, fmt.Errorf("%w: %s", engine.ErrConflict, c.path)
	}
	if err := writeFile(r.RealPath(), c.new); err != nil {
		return nil, err
	}
	return contentChange{path: c.path, old: c.new, new: current}, nil
}

func (c contentChange) paths() []string { return []string{c.path} }

func (c contentChange) preview(*Project) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(c.old),
		B:        difflib.SplitLines(c.new),
		FromFile: "a/" + c.path,
		ToFile:   "b/" + c.path,
		Context:  2,
	})
	if err != nil {
		return "change <" + c.path + ">\n"
	}
	return diff
}

type createChange struct {
	path   string
	folder bool
}

func (c createChange) do(p *Project) (change, error) {
	abs := p.resource(c.path).RealPath()
	if _, err := os.Stat(abs); err == nil {
		return nil, fmt.Errorf("local: %s: %w", c.path, fs.ErrExist)
	}
	if c.folder {
		if err := os.Mkdir(abs, 0o755); err != nil {
			return nil, err
		}
	} else if err := writeFile(abs, ""); err != nil {
		return nil, err
	}
	return removeChange{path: c.path}, nil
}

func (c createChange) paths() []string { return []string{c.path} }

func (c createChange) preview(*Project) string {
	if c.folder {
		return "new folder <" + c.path + ">\n"
	}
	return "new file <" + c.path + ">\n"
}

type removeChange struct{ path string }

func (c removeChange) do(p *Project) (change, error) {
	snap, err := snapshot(p, c.path)
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(p.resource(c.path).RealPath()); err != nil {
		return nil, err
	}
	return snap, nil
}

func (c removeChange) paths() []string { return []string{c.path} }

func (c removeChange) preview(*Project) string { return "remove <" + c.path + ">\n" }

// restoreChange recreates a removed tree.
type restoreChange struct {
	path    string
	folders []string
	files   map[string]string
	order   []string
}

func snapshot(p *Project, rel string) (restoreChange, error) {
	snap := restoreChange{path: rel, files: make(map[string]string)}
	root := p.resource(rel).RealPath()
	err := filepath.WalkDir(root, func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		sub, _ := filepath.Rel(p.root, abs)
		sub = filepath.ToSlash(sub)
		if d.IsDir() {
			snap.folders = append(snap.folders, sub)
			return nil
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return err
		}
		snap.files[sub] = string(data)
		snap.order = append(snap.order, sub)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return snap, fmt.Errorf("%w: %s", engine.ErrNotFound, rel)
	}
	return snap, err
}

func (c restoreChange) do(p *Project) (change, error) {
	for _, dir := range c.folders {
		if err := os.MkdirAll(p.resource(dir).RealPath(), 0o755); err != nil {
			return nil, err
		}
	}
	for _, f := range c.order {
		if err := writeFile(p.resource(f).RealPath(), c.files[f]); err != nil {
			return nil, err
		}
	}
	return removeChange{path: c.path}, nil
}

func (c restoreChange) paths() []string { return []string{c.path} }

func (c restoreChange) preview(*Project) string { return "restore <" + c.path + ">\n" }

type moveChange struct{ from, to string }

func (c moveChange) do(p *Project) (change, error) {
	src := p.resource(c.from).RealPath()
	dst := p.resource(c.to).RealPath()
	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrNotFound, c.from)
	}
	if _, err := os.Stat(dst); err == nil {
		return nil, fmt.Errorf("local: %s: %w", c.to, fs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, err
	}
	if err := os.Rename(src, dst); err != nil {
		return nil, err
	}
	return moveChange{from: c.to, to: c.from}, nil
}

func (c moveChange) paths() []string { return []string{c.from, c.to} }

func (c moveChange) preview(*Project) string {
	return "move <" + c.from + "> -> <" + c.to + ">\n"
}

// writeFile keeps the mode of an existing file.
func writeFile(abs, content string) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(abs, []byte(content), mode)
}
