package local

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dshills/ropestorm/internal/engine"
)

// renameIdents rewrites every code occurrence of from in src.
func renameIdents(src string, ids []ident, from, to string) string {
	var b strings.Builder
	last := 0
	for _, id := range ids {
		if id.Where != inCode || id.Name != from {
			continue
		}
		b.WriteString(src[last:id.Start])
		b.WriteString(to)
		last = id.End
	}
	if last == 0 {
		return src
	}
	b.WriteString(src[last:])
	return b.String()
}

// renameAcross adds a content change for every project file mentioning
// from in code.
func (e *Engine) renameAcross(ctx context.Context, lp *Project, cs *Changes, extra engine.Resource, from, to string) error {
	files, err := lp.Files()
	if err != nil {
		return err
	}
	if extra != nil && !containsResource(files, extra) {
		files = append(files, extra)
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, ids, err := lp.identsOf(f)
		if err != nil {
			return err
		}
		if updated := renameIdents(content, ids, from, to); updated != content {
			cs.Add(ChangeContents(f.Path(), content, updated))
		}
	}
	return nil
}

// Rename renames the identifier at offset throughout the project.
func (e *Engine) Rename(ctx context.Context, p engine.Project, r engine.Resource, offset int, newName string) (engine.ChangeSet, error) {
	lp, err := e.local(p)
	if err != nil {
		return nil, err
	}
	if !IsIdentifier(newName) {
		return nil, fmt.Errorf("%w: %q is not a valid name", engine.ErrInvalidName, newName)
	}
	source, err := r.Read()
	if err != nil {
		return nil, err
	}
	target, ok := identAt(source, clamp(offset, len(source)))
	if !ok || isKeyword(target.Name) {
		return nil, engine.ErrNoTarget
	}
	cs := NewChanges(lp, fmt.Sprintf("Renaming <%s> to <%s>", target.Name, newName))
	if err := e.renameAcross(ctx, lp, cs, r, target.Name, newName); err != nil {
		return nil, err
	}
	return cs, nil
}

// RenameModule moves the module file r and renames references to it.
func (e *Engine) RenameModule(ctx context.Context, p engine.Project, r engine.Resource, newName string) (engine.ChangeSet, error) {
	lp, err := e.local(p)
	if err != nil {
		return nil, err
	}
	if !IsIdentifier(newName) {
		return nil, fmt.Errorf("%w: %q is not a valid module name", engine.ErrInvalidName, newName)
	}
	if r == nil || r.IsFolder() || !r.Exists() {
		return nil, engine.ErrNoTarget
	}
	old := moduleName(r.Path())
	dir := path.Dir(r.Path())
	if dir == "." {
		dir = ""
	}
	dest := joinPath(dir, newName+path.Ext(r.Path()))

	cs := NewChanges(lp, fmt.Sprintf("Renaming module <%s> to <%s>", old, newName))
	if err := e.renameAcross(ctx, lp, cs, r, old, newName); err != nil {
		return nil, err
	}
	cs.Add(Move(r.Path(), dest))
	return cs, nil
}

// ExtractVariable assigns source[start:end] to name on a new line above
// the expression and replaces the expression with name.
func (e *Engine) ExtractVariable(ctx context.Context, p engine.Project, r engine.Resource, start, end int, name string) (engine.ChangeSet, error) {
	lp, err := e.local(p)
	if err != nil {
		return nil, err
	}
	if !IsIdentifier(name) {
		return nil, fmt.Errorf("%w: %q is not a valid name", engine.ErrInvalidName, name)
	}
	source, err := r.Read()
	if err != nil {
		return nil, err
	}
	if start > end {
		start, end = end, start
	}
	start, end = clamp(start, len(source)), clamp(end, len(source))
	expr := strings.TrimSpace(source[start:end])
	if expr == "" || strings.Contains(expr, "\n") {
		return nil, engine.ErrNoTarget
	}
	lineStart, lineEnd := lineBounds(source, start)
	indent := indentation(source[lineStart:lineEnd])

	var b strings.Builder
	b.WriteString(source[:lineStart])
	b.WriteString(indent + name + " = " + expr + "\n")
	b.WriteString(source[lineStart:start])
	b.WriteString(strings.Replace(source[start:end], expr, name, 1))
	b.WriteString(source[end:])

	cs := NewChanges(lp, fmt.Sprintf("Extracting variable <%s>", name))
	cs.Add(ChangeContents(r.Path(), source, b.String()))
	return cs, nil
}

// Inline replaces uses of the variable at offset with its single line
// assigned value and removes the assignment.
func (e *Engine) Inline(ctx context.Context, p engine.Project, r engine.Resource, offset int) (engine.ChangeSet, error) {
	lp, err := e.local(p)
	if err != nil {
		return nil, err
	}
	source, err := r.Read()
	if err != nil {
		return nil, err
	}
	target, ok := identAt(source, clamp(offset, len(source)))
	if !ok {
		return nil, engine.ErrNoTarget
	}
	ids := scan(source)
	var assign ident
	found := false
	for _, id := range ids {
		if id.Where == inCode && id.Name == target.Name && isAssignment(source, id) {
			assign, found = id, true
			break
		}
	}
	if !found {
		return nil, engine.ErrNoTarget
	}
	lineStart, lineEnd := lineBounds(source, assign.Start)
	rest := strings.TrimLeft(source[assign.End:lineEnd], " \t")
	value := strings.TrimSpace(strings.TrimPrefix(rest, "="))
	if value == "" {
		return nil, engine.ErrNoTarget
	}
	if strings.ContainsAny(value, " +-*/%<>=!&|^~,") {
		value = "(" + value + ")"
	}
	removeEnd := lineEnd
	if removeEnd < len(source) {
		removeEnd++
	}

	var b strings.Builder
	last := 0
	for _, id := range ids {
		if id.Where != inCode || id.Name != target.Name || id.Start < lineStart {
			continue
		}
		if id.Start < removeEnd {
			continue
		}
		b.WriteString(source[last:id.Start])
		b.WriteString(value)
		last = id.End
	}
	b.WriteString(source[last:])
	updated := b.String()
	updated = updated[:lineStart] + updated[removeEnd:]

	cs := NewChanges(lp, fmt.Sprintf("Inlining <%s>", target.Name))
	cs.Add(ChangeContents(r.Path(), source, updated))
	return cs, nil
}
