package command

import "errors"

var (
	// ErrUnknownCommand indicates an invocation of an unregistered command.
	ErrUnknownCommand = errors.New("command: unknown command")

	// ErrDuplicateCommand indicates two specs with the same public name.
	ErrDuplicateCommand = errors.New("command: command already registered")

	// ErrInvalidSpec indicates a spec without a name or handler.
	ErrInvalidSpec = errors.New("command: invalid spec")

	// ErrPanic wraps a panic recovered from a command handler.
	ErrPanic = errors.New("command: handler panic")
)
