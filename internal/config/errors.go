package config

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOption indicates an option name that does not exist.
	ErrUnknownOption = errors.New("config: unknown option")

	// ErrInvalidValue indicates a value the option does not accept.
	ErrInvalidValue = errors.New("config: invalid value")
)

// ValueError reports an invalid option value.
type ValueError struct {
	Option string
	Value  string
	Err    error
}

func (e *ValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: invalid value %q for %s: %v", e.Value, e.Option, e.Err)
	}
	return fmt.Sprintf("config: invalid value %q for %s", e.Value, e.Option)
}

func (e *ValueError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidValue}
	}
	return []error{ErrInvalidValue, e.Err}
}
