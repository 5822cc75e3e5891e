package memhost

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dshills/ropestorm/internal/hook"
	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/keymap"
	"github.com/dshills/ropestorm/internal/keyseq"
)

// Cancel is a scripted answer that quits the prompt, like C-g.
const Cancel = "\a"

// Host is an in-memory host.
type Host struct {
	log    *slog.Logger
	hooks  *hook.Registry
	global *keymap.Table

	mu       sync.Mutex
	buffers  []*Buffer
	current  *Buffer
	other    *Buffer
	messages []string
	prompts  []string
	answers  []string
	console  *Console
	reports  []*Progress
	modes    map[string]string
}

// Option configures a Host.
type Option func(*Host)

// WithConsole answers prompts from c once scripted answers run out.
func WithConsole(c *Console) Option {
	return func(h *Host) { h.console = c }
}

// WithAnswers queues scripted answers.
func WithAnswers(answers ...string) Option {
	return func(h *Host) { h.answers = append(h.answers, answers...) }
}

// WithMode maps a file extension to the major mode entered on visit.
func WithMode(ext, mode string) Option {
	return func(h *Host) { h.modes[ext] = mode }
}

// New creates a host with an empty *scratch* buffer.
func New(logger *slog.Logger, opts ...Option) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Host{
		log:    logger.With("component", "memhost"),
		hooks:  hook.NewRegistry(),
		global: keymap.NewTable("global"),
		modes:  map[string]string{".py": "python-mode"},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.current = h.NewBuffer("*scratch*", "")
	return h
}

// Hooks returns the hook registry.
func (h *Host) Hooks() *hook.Registry { return h.hooks }

// GlobalKeys returns the global key table.
func (h *Host) GlobalKeys() *keymap.Table { return h.global }

// Answer queues scripted answers.
func (h *Host) Answer(answers ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.answers = append(h.answers, answers...)
}

// Pending returns the number of unused scripted answers.
func (h *Host) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.answers)
}

// Messages returns every message shown so far.
func (h *Host) Messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.messages)
}

// LastMessage returns the most recent message, or "".
func (h *Host) LastMessage() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) == 0 {
		return ""
	}
	return h.messages[len(h.messages)-1]
}

// Prompts returns every prompt asked so far.
func (h *Host) Prompts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.prompts)
}

// Reports returns the progress reporters created so far.
func (h *Host) Reports() []*Progress {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.reports)
}

// Other returns the buffer shown in the other window, if any.
func (h *Host) Other() host.Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.other == nil {
		return nil
	}
	return h.other
}

// Buffer returns the buffer named name, or nil.
func (h *Host) Buffer(name string) *Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bufferLocked(name)
}

func (h *Host) bufferLocked(name string) *Buffer {
	for _, b := range h.buffers {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

// NewBuffer creates a buffer visiting no file.
func (h *Host) NewBuffer(name, text string) *Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := newBuffer(h, h.uniqueName(name), "", text)
	h.buffers = append(h.buffers, b)
	return b
}

func (h *Host) uniqueName(name string) string {
	if h.bufferLocked(name) == nil {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s<%d>", name, n)
		if h.bufferLocked(candidate) == nil {
			return candidate
		}
	}
}

// Shutdown raises the shutdown event.
func (h *Host) Shutdown(ctx context.Context) error {
	return h.hooks.Run(ctx, hook.Shutdown, hook.Payload{})
}

// CurrentBuffer returns the selected buffer.
func (h *Host) CurrentBuffer() host.Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// SetCurrentBuffer selects b.
func (h *Host) SetCurrentBuffer(b host.Buffer) {
	mb, ok := b.(*Buffer)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if slices.Contains(h.buffers, mb) {
		h.current = mb
	}
}

// Buffers returns the live buffers in creation order.
func (h *Host) Buffers() []host.Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]host.Buffer, len(h.buffers))
	for i, b := range h.buffers {
		out[i] = b
	}
	return out
}

// BufferVisiting returns the buffer visiting filename.
func (h *Host) BufferVisiting(filename string) host.Buffer {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if b := h.visitingLocked(abs); b != nil {
		return b
	}
	return nil
}

func (h *Host) visitingLocked(abs string) *Buffer {
	for _, b := range h.buffers {
		if b.FileName() == abs {
			return b
		}
	}
	return nil
}

// KillBuffer removes b. The window showing it falls back to another
// buffer.
func (h *Host) KillBuffer(b host.Buffer) {
	mb, ok := b.(*Buffer)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.killLocked(mb)
}

func (h *Host) killLocked(b *Buffer) {
	i := slices.Index(h.buffers, b)
	if i < 0 {
		return
	}
	h.buffers = slices.Delete(h.buffers, i, i+1)
	if h.other == b {
		h.other = nil
	}
	if h.current == b {
		h.current = h.other
		if h.current == nil && len(h.buffers) > 0 {
			h.current = h.buffers[len(h.buffers)-1]
		}
		if h.current == nil {
			h.current = newBuffer(h, "*scratch*", "", "")
			h.buffers = append(h.buffers, h.current)
		}
		if h.other == h.current {
			h.other = nil
		}
	}
}

// FindFile visits filename and selects it.
func (h *Host) FindFile(filename string) (host.Buffer, error) {
	b, err := h.visit(filename, false)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.current = b
	h.mu.Unlock()
	return b, nil
}

// FindFileReadOnly visits filename read-only and selects it.
func (h *Host) FindFileReadOnly(filename string) (host.Buffer, error) {
	b, err := h.visit(filename, true)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.current = b
	h.mu.Unlock()
	return b, nil
}

// FindFileOtherWindow visits filename in the other window and selects it;
// the previously selected buffer stays visible.
func (h *Host) FindFileOtherWindow(filename string) (host.Buffer, error) {
	b, err := h.visit(filename, false)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	if h.current != b {
		h.other = h.current
	}
	h.current = b
	h.mu.Unlock()
	return b, nil
}

// visit returns the buffer visiting filename, creating it and raising
// mode-enter when new. Missing files give an empty buffer.
func (h *Host) visit(filename string, readOnly bool) (*Buffer, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	if b := h.visitingLocked(abs); b != nil {
		h.mu.Unlock()
		if readOnly {
			b.mu.Lock()
			b.readOnly = true
			b.mu.Unlock()
		}
		return b, nil
	}
	h.mu.Unlock()

	text := ""
	data, err := os.ReadFile(abs)
	switch {
	case err == nil:
		text = string(data)
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("visiting %s: %w", abs, err)
	}

	h.mu.Lock()
	b := newBuffer(h, h.uniqueName(filepath.Base(abs)), abs, text)
	b.readOnly = readOnly
	h.buffers = append(h.buffers, b)
	mode := h.modes[filepath.Ext(abs)]
	h.mu.Unlock()

	if mode == "" {
		mode = "fundamental-mode"
	}
	p := hook.Payload{Buffer: b.Name(), File: abs, Mode: mode}
	if err := h.hooks.Run(context.Background(), hook.ModeEnter, p); err != nil {
		h.log.Warn("mode-enter hook failed", "buffer", b.Name(), "error", err)
	}
	return b, nil
}

// MakeBuffer shows contents in a read-only buffer in the other window.
func (h *Host) MakeBuffer(name, contents string, keys ...keymap.Binding) host.Buffer {
	h.mu.Lock()
	b := h.bufferLocked(name)
	if b == nil {
		b = newBuffer(h, name, "", "")
		h.buffers = append(h.buffers, b)
	}
	if h.current != b {
		h.other = b
	}
	h.mu.Unlock()

	b.reset(contents, true)
	for _, k := range keys {
		if err := b.LocalKeys().Bind(k.Keys, k.Command); err != nil {
			h.log.Warn("listing key not bound", "buffer", name, "keys", k.Keys.String(), "error", err)
		}
	}
	return b
}

// HideBuffer kills the named buffer and closes its window.
func (h *Host) HideBuffer(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b := h.bufferLocked(name); b != nil {
		h.killLocked(b)
	}
}

// BuryBuffer removes the named buffer from view but keeps it alive.
func (h *Host) BuryBuffer(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b := h.bufferLocked(name)
	if b == nil {
		return
	}
	if h.other == b {
		h.other = nil
	}
	if h.current == b {
		for i := len(h.buffers) - 1; i >= 0; i-- {
			if h.buffers[i] != b {
				h.current = h.buffers[i]
				break
			}
		}
		if h.other == h.current {
			h.other = nil
		}
	}
}

// GlobalSetKey binds keys in the global table.
func (h *Host) GlobalSetKey(keys keyseq.Sequence, command string) error {
	return h.global.Bind(keys, command)
}

// LocalSetKey binds keys in b's local table.
func (h *Host) LocalSetKey(b host.Buffer, keys keyseq.Sequence, command string) error {
	mb, ok := b.(*Buffer)
	if !ok {
		return ErrNotMemBuffer
	}
	return mb.LocalKeys().Bind(keys, command)
}

// Lookup resolves keys the way an editor would: the current buffer's local
// table first, then the global table.
func (h *Host) Lookup(keys keyseq.Sequence) (string, bool) {
	if b, ok := h.CurrentBuffer().(*Buffer); ok {
		if cmd, ok := b.LocalKeys().Lookup(keys); ok {
			return cmd, true
		}
	}
	return h.global.Lookup(keys)
}

// AddHook subscribes fn to ev.
func (h *Host) AddHook(ev hook.Event, name string, fn hook.Func) {
	h.hooks.Subscribe(ev, name, fn)
}

// Message records text.
func (h *Host) Message(text string) {
	h.mu.Lock()
	h.messages = append(h.messages, text)
	h.mu.Unlock()
	h.log.Debug("message", "text", text)
}

// answer pops the next scripted answer or asks the console.
func (h *Host) answer(prompt string) (string, error) {
	h.mu.Lock()
	h.prompts = append(h.prompts, prompt)
	if len(h.answers) > 0 {
		a := h.answers[0]
		h.answers = h.answers[1:]
		h.mu.Unlock()
		if a == Cancel {
			return "", host.ErrCancelled
		}
		return a, nil
	}
	console := h.console
	h.mu.Unlock()

	if console == nil {
		return "", host.ErrCancelled
	}
	return console.Answer(prompt)
}

// Confirm accepts y/yes and n/no.
func (h *Host) Confirm(prompt string) (bool, error) {
	for {
		a, err := h.answer(prompt + "(y or n) ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(a)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		h.Message("Please answer y or n.")
	}
}

// Ask returns the answer; an empty answer accepts initial.
func (h *Host) Ask(prompt, initial string) (string, error) {
	a, err := h.answer(prompt)
	if err != nil {
		return "", err
	}
	if a == "" {
		return initial, nil
	}
	return a, nil
}

// AskChoice asks with completion over choices. Any text is accepted.
func (h *Host) AskChoice(prompt string, choices []string, initial string) (string, error) {
	return h.Ask(prompt, initial)
}

// AskDirectory asks for a directory.
func (h *Host) AskDirectory(prompt, initial string) (string, error) {
	return h.Ask(prompt, initial)
}

// Progress creates a recording progress reporter.
func (h *Host) Progress(name string) host.Progress {
	p := &Progress{Name: name}
	h.mu.Lock()
	h.reports = append(h.reports, p)
	h.mu.Unlock()
	return p
}

// Progress records the updates of one reporter.
type Progress struct {
	Name string

	mu      sync.Mutex
	updates []int
	done    bool
}

// Update records percent.
func (p *Progress) Update(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, percent)
}

// Done marks the reporter finished.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = true
}

// Updates returns the recorded percentages.
func (p *Progress) Updates() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.updates)
}

// Finished reports whether Done was called.
func (p *Progress) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

var _ host.Host = (*Host)(nil)
var _ host.Buffer = (*Buffer)(nil)
