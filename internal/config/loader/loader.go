// Package loader reads option layers: TOML files and environment
// variables, each producing a map that is merged over the defaults.
package loader

import (
	"io/fs"
	"os"
)

// Loader produces one configuration layer. A source that does not exist
// yields nil, nil.
type Loader interface {
	Load() (map[string]any, error)
}

// FileSystem is the read side of a file system, replaceable in tests.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

// OSFS reads the real file system.
type OSFS struct{}

// ReadFile reads the file at path.
func (OSFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

// Merge overlays src on dst. Nested tables merge key by key; any other
// value in src replaces the one in dst.
func Merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for key, sv := range src {
		sm, sIsMap := sv.(map[string]any)
		dm, dIsMap := dst[key].(map[string]any)
		if sIsMap && dIsMap {
			dst[key] = Merge(dm, sm)
			continue
		}
		dst[key] = sv
	}
	return dst
}
