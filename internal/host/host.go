// Package host defines the editor surface the bridge drives: buffers,
// file visiting, key tables, prompts, progress reporters and lifecycle
// hooks.
package host

import (
	"errors"
	"strings"

	"github.com/dshills/ropestorm/internal/hook"
	"github.com/dshills/ropestorm/internal/keymap"
	"github.com/dshills/ropestorm/internal/keyseq"
)

// ErrCancelled is returned by prompts the user quit.
var ErrCancelled = errors.New("host: cancelled")

// Buffer is an editor buffer. Offsets are byte offsets into Text.
type Buffer interface {
	Name() string
	// FileName is the absolute file the buffer visits, or "".
	FileName() string
	Text() string

	Point() int
	SetPoint(offset int)
	// Mark returns the mark, if set.
	Mark() (int, bool)
	// PushMark sets the mark at point.
	PushMark()

	Modified() bool
	ReadOnly() bool

	// Insert inserts text at point and moves point after it.
	Insert(text string)
	// Delete removes [start, end).
	Delete(start, end int)

	// Revert reloads the buffer from its file.
	Revert() error
	// Save writes the buffer to its file, raising the save hooks.
	Save() error
}

// Buffers gives access to the open buffers.
type Buffers interface {
	CurrentBuffer() Buffer
	SetCurrentBuffer(b Buffer)
	Buffers() []Buffer
	// BufferVisiting returns the buffer visiting filename, or nil.
	BufferVisiting(filename string) Buffer
	KillBuffer(b Buffer)
}

// Files visits files.
type Files interface {
	FindFile(filename string) (Buffer, error)
	FindFileReadOnly(filename string) (Buffer, error)
	// FindFileOtherWindow visits filename without taking over the window of
	// the current buffer.
	FindFileOtherWindow(filename string) (Buffer, error)
}

// Listings shows generated, read-only buffers.
type Listings interface {
	// MakeBuffer shows contents in a read-only buffer in another window,
	// replacing an existing buffer of the same name. keys are installed as
	// the buffer's local bindings.
	MakeBuffer(name, contents string, keys ...keymap.Binding) Buffer
	// HideBuffer closes the window showing name and kills the buffer.
	HideBuffer(name string)
	// BuryBuffer hides name without killing it.
	BuryBuffer(name string)
}

// Keys installs key bindings.
type Keys interface {
	GlobalSetKey(keys keyseq.Sequence, command string) error
	LocalSetKey(b Buffer, keys keyseq.Sequence, command string) error
}

// Prompter talks to the user.
type Prompter interface {
	Message(text string)
	// Confirm asks a yes-or-no question.
	Confirm(prompt string) (bool, error)
	Ask(prompt, initial string) (string, error)
	// AskChoice asks for one of choices, completing against them.
	AskChoice(prompt string, choices []string, initial string) (string, error)
	AskDirectory(prompt, initial string) (string, error)
}

// Progress is a running progress reporter.
type Progress interface {
	Update(percent int)
	Done()
}

// Reporter creates progress reporters.
type Reporter interface {
	Progress(name string) Progress
}

// Hooks registers lifecycle callbacks.
type Hooks interface {
	AddHook(ev hook.Event, name string, fn hook.Func)
}

// Host is the complete editor surface.
type Host interface {
	Buffers
	Files
	Listings
	Keys
	Prompter
	Reporter
	Hooks
}

// CurrentLine returns the text of the line holding point.
func CurrentLine(b Buffer) string {
	text := b.Text()
	point := min(max(b.Point(), 0), len(text))
	start := strings.LastIndexByte(text[:point], '\n') + 1
	end := strings.IndexByte(text[point:], '\n')
	if end < 0 {
		return text[start:]
	}
	return text[start : point+end]
}

// GotoLine moves point to the start of the 1-based line.
func GotoLine(b Buffer, line int) {
	text := b.Text()
	offset := 0
	for n := 1; n < line; n++ {
		i := strings.IndexByte(text[offset:], '\n')
		if i < 0 {
			break
		}
		offset += i + 1
	}
	b.SetPoint(offset)
}

// Replace substitutes text for [start, end) and leaves point after it.
func Replace(b Buffer, start, end int, text string) {
	b.Delete(start, end)
	b.SetPoint(start)
	b.Insert(text)
}
