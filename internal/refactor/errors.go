package refactor

import "errors"

var (
	// ErrNoRegion indicates a refactoring that needs a region was run
	// without a mark.
	ErrNoRegion = errors.New("refactor: the mark is not set")

	// ErrNoResource indicates the current buffer does not visit a project
	// file.
	ErrNoResource = errors.New("refactor: buffer is not visiting a project file")
)
