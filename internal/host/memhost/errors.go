package memhost

import "errors"

var (
	// ErrNoFile indicates a save of a buffer that visits no file.
	ErrNoFile = errors.New("memhost: buffer is not visiting a file")

	// ErrNotMemBuffer indicates a buffer created by another host.
	ErrNotMemBuffer = errors.New("memhost: foreign buffer")
)
