package engine

import "errors"

// Errors engines report through the boundary.
var (
	// ErrInvalidRoot indicates a project root that is missing or not a
	// directory.
	ErrInvalidRoot = errors.New("engine: invalid project root")

	// ErrProjectClosed indicates use of a project after Close.
	ErrProjectClosed = errors.New("engine: project closed")

	// ErrNotFound indicates a resource that does not exist.
	ErrNotFound = errors.New("engine: resource not found")

	// ErrOutsideProject indicates a path outside the project root.
	ErrOutsideProject = errors.New("engine: path outside project")

	// ErrNothingToUndo indicates an empty undo history.
	ErrNothingToUndo = errors.New("engine: nothing to undo")

	// ErrNothingToRedo indicates an empty redo history.
	ErrNothingToRedo = errors.New("engine: nothing to redo")

	// ErrNoTarget indicates the offset is not on anything the operation can
	// act on, e.g. rename outside an identifier.
	ErrNoTarget = errors.New("engine: nothing to act on at offset")

	// ErrSyntax indicates source the engine could not repair within the
	// allowed number of fixes.
	ErrSyntax = errors.New("engine: syntax errors exceed allowed fixes")

	// ErrConflict indicates a change set that no longer applies, because
	// its resources changed after it was computed.
	ErrConflict = errors.New("engine: change set conflicts with current contents")

	// ErrInvalidName indicates a new name the engine cannot use.
	ErrInvalidName = errors.New("engine: invalid name")
)
