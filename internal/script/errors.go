package script

import (
	"errors"
	"fmt"
)

var (
	// ErrStateClosed is returned when running on a closed state.
	ErrStateClosed = errors.New("script: state is closed")

	// ErrNoProject is returned by path operations that need an open
	// project.
	ErrNoProject = errors.New("script: no project open")
)

// Error is a failed script run.
type Error struct {
	Script string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("script %s: %v", e.Script, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
