package local

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dshills/ropestorm/internal/engine"
)

// Resource is a file or folder of a local project.
type Resource struct {
	p    *Project
	path string
}

// Path returns the slash separated path relative to the project root.
func (r *Resource) Path() string { return r.path }

// RealPath returns the absolute path on disk.
func (r *Resource) RealPath() string {
	return filepath.Join(r.p.root, filepath.FromSlash(r.path))
}

// Exists reports whether the resource is on disk.
func (r *Resource) Exists() bool {
	_, err := os.Stat(r.RealPath())
	return err == nil
}

// IsFolder reports whether the resource is a directory.
func (r *Resource) IsFolder() bool {
	info, err := os.Stat(r.RealPath())
	return err == nil && info.IsDir()
}

// Read returns the file contents.
func (r *Resource) Read() (string, error) {
	data, err := os.ReadFile(r.RealPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", engine.ErrNotFound, r.path)
		}
		return "", err
	}
	return string(data), nil
}

// Project returns the owning project.
func (r *Resource) Project() engine.Project { return r.p }

// Name returns the last path segment.
func (r *Resource) Name() string { return path.Base(r.path) }

func (r *Resource) String() string { return r.path }

// cleanPath normalises a project relative path; ".." cannot climb above
// the root.
func cleanPath(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "." {
		p = ""
	}
	return p
}

func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// moduleName strips the directory and extension of a file path.
func moduleName(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
