package memhost

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/dshills/ropestorm/internal/hook"
	"github.com/dshills/ropestorm/internal/keymap"
)

// Buffer is an in-memory buffer.
type Buffer struct {
	h     *Host
	local *keymap.Table

	mu       sync.Mutex
	name     string
	file     string
	text     string
	point    int
	marks    []int
	modified bool
	readOnly bool
}

func newBuffer(h *Host, name, file, text string) *Buffer {
	return &Buffer{h: h, name: name, file: file, text: text, local: keymap.NewTable(name)}
}

// Name returns the buffer name.
func (b *Buffer) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

// FileName returns the visited file.
func (b *Buffer) FileName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file
}

// Text returns the contents.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Point returns the cursor offset.
func (b *Buffer) Point() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.point
}

// SetPoint moves the cursor, clamped to the buffer.
func (b *Buffer) SetPoint(offset int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.point = min(max(offset, 0), len(b.text))
}

// Mark returns the most recently pushed mark.
func (b *Buffer) Mark() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.marks) == 0 {
		return 0, false
	}
	return b.marks[len(b.marks)-1], true
}

// PushMark pushes point onto the mark ring.
func (b *Buffer) PushMark() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.marks = append(b.marks, b.point)
}

// Modified reports unsaved changes.
func (b *Buffer) Modified() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.modified
}

// ReadOnly reports whether edits are refused.
func (b *Buffer) ReadOnly() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readOnly
}

// LocalKeys returns the buffer's local key table.
func (b *Buffer) LocalKeys() *keymap.Table {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.local
}

// Insert inserts text at point. Read-only buffers refuse with a message.
func (b *Buffer) Insert(text string) {
	b.mu.Lock()
	if b.readOnly {
		name := b.name
		b.mu.Unlock()
		b.h.Message("Buffer is read-only: " + name)
		return
	}
	b.text = b.text[:b.point] + text + b.text[b.point:]
	b.point += len(text)
	b.modified = true
	b.mu.Unlock()
}

// Delete removes [start, end), adjusting point.
func (b *Buffer) Delete(start, end int) {
	b.mu.Lock()
	if b.readOnly {
		name := b.name
		b.mu.Unlock()
		b.h.Message("Buffer is read-only: " + name)
		return
	}
	defer b.mu.Unlock()
	if start > end {
		start, end = end, start
	}
	start = min(max(start, 0), len(b.text))
	end = min(max(end, 0), len(b.text))
	if start == end {
		return
	}
	b.text = b.text[:start] + b.text[end:]
	switch {
	case b.point >= end:
		b.point -= end - start
	case b.point > start:
		b.point = start
	}
	b.modified = true
}

// SetText replaces the contents as a user edit would.
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	b.point = min(b.point, len(text))
	b.modified = true
}

// Revert reloads the file, keeping point where possible.
func (b *Buffer) Revert() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file == "" {
		return ErrNoFile
	}
	data, err := os.ReadFile(b.file)
	if err != nil {
		return fmt.Errorf("reverting %s: %w", b.name, err)
	}
	b.text = string(data)
	b.point = min(b.point, len(b.text))
	b.modified = false
	return nil
}

// Save writes the buffer, raising before-save and after-save. Hook
// failures are logged and do not prevent the write.
func (b *Buffer) Save() error {
	b.mu.Lock()
	name, file, text := b.name, b.file, b.text
	b.mu.Unlock()
	if file == "" {
		return ErrNoFile
	}

	ctx := context.Background()
	p := hook.Payload{Buffer: name, File: file}
	if err := b.h.hooks.Run(ctx, hook.BeforeSave, p); err != nil {
		b.h.log.Warn("before-save hook failed", "buffer", name, "error", err)
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(file); err == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	if err := os.WriteFile(file, []byte(text), mode); err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}

	b.mu.Lock()
	if b.text == text {
		b.modified = false
	}
	b.mu.Unlock()

	if err := b.h.hooks.Run(ctx, hook.AfterSave, p); err != nil {
		b.h.log.Warn("after-save hook failed", "buffer", name, "error", err)
	}
	return nil
}

func (b *Buffer) reset(text string, readOnly bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	b.point = 0
	b.modified = false
	b.readOnly = readOnly
	b.local = keymap.NewTable(b.name)
}
