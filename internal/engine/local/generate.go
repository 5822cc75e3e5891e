package local

import (
	"context"
	"fmt"

	"github.com/dshills/ropestorm/internal/engine"
)

func (p *Project) sourceExtension() string {
	return p.cfg.SourceExtensions[0]
}

func parentPath(folder engine.Resource) string {
	if folder == nil {
		return ""
	}
	return folder.Path()
}

// CreateModule creates an empty module named name in folder, or the
// project root when folder is nil.
func (e *Engine) CreateModule(p engine.Project, name string, folder engine.Resource) (engine.Resource, error) {
	lp, err := e.local(p)
	if err != nil {
		return nil, err
	}
	if !IsIdentifier(name) {
		return nil, fmt.Errorf("%w: %q is not a valid module name", engine.ErrInvalidName, name)
	}
	return lp.CreateFile(folder, name+lp.sourceExtension())
}

// CreatePackage creates a package folder with its initialisation module in
// a single undoable change.
func (e *Engine) CreatePackage(p engine.Project, name string, folder engine.Resource) (engine.Resource, error) {
	lp, err := e.local(p)
	if err != nil {
		return nil, err
	}
	if !IsIdentifier(name) {
		return nil, fmt.Errorf("%w: %q is not a valid package name", engine.ErrInvalidName, name)
	}
	pkg := joinPath(parentPath(folder), name)
	cs := NewChanges(lp, fmt.Sprintf("Create package <%s>", pkg))
	cs.Add(CreateFolder(pkg))
	cs.Add(CreateFile(joinPath(pkg, lp.cfg.PackageInit+lp.sourceExtension())))
	if err := lp.Do(context.Background(), cs); err != nil {
		return nil, err
	}
	return lp.resource(pkg), nil
}

// PackageInit returns the initialisation module of pkg.
func (e *Engine) PackageInit(pkg engine.Resource) (engine.Resource, error) {
	lp, err := e.local(pkg.Project())
	if err != nil {
		return nil, err
	}
	if !pkg.IsFolder() {
		return nil, fmt.Errorf("%w: %s is not a package", engine.ErrNotFound, pkg.Path())
	}
	return lp.resource(joinPath(pkg.Path(), lp.cfg.PackageInit+lp.sourceExtension())), nil
}
