package keyseq

import "errors"

// Parse and encoding errors.
var (
	// ErrEmptySpec indicates an empty key specification.
	ErrEmptySpec = errors.New("keyseq: empty key specification")

	// ErrInvalidSpec indicates a chord that could not be parsed.
	ErrInvalidSpec = errors.New("keyseq: invalid key specification")

	// ErrNotEncodable indicates a chord with no terminal byte encoding,
	// such as a function key or Control on a non-ASCII rune.
	ErrNotEncodable = errors.New("keyseq: chord has no byte encoding")
)
