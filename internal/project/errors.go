package project

import (
	"errors"
	"fmt"
)

var (
	// ErrNoProject indicates an operation that needs an open project.
	ErrNoProject = errors.New("project: no project open")

	// ErrStaleRoot indicates the project root was removed, renamed or is
	// otherwise no longer usable.
	ErrStaleRoot = errors.New("project: project root is no longer valid")
)

// StaleError reports why a root went stale.
type StaleError struct {
	Root string
	Err  error
}

func (e *StaleError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("project root %s is no longer valid", e.Root)
	}
	return fmt.Sprintf("project root %s is no longer valid: %v", e.Root, e.Err)
}

func (e *StaleError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStaleRoot}
	}
	return []error{ErrStaleRoot, e.Err}
}
