// Package watcher reports file system changes under a directory tree.
//
// New directories are watched as they appear. Rapid changes to one path
// can be coalesced into a single event with a debounce delay.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var (
	// ErrClosed indicates use of a closed watcher.
	ErrClosed = errors.New("watcher: closed")

	// ErrPathNotExist indicates a watch on a missing path.
	ErrPathNotExist = errors.New("watcher: path does not exist")
)

// Op is a set of file system operations.
type Op uint32

// Operations.
const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// Has reports whether op includes o.
func (op Op) Has(o Op) bool { return op&o == o }

func (op Op) String() string {
	var parts []string
	for _, n := range []struct {
		op   Op
		name string
	}{{OpCreate, "CREATE"}, {OpWrite, "WRITE"}, {OpRemove, "REMOVE"}, {OpRename, "RENAME"}, {OpChmod, "CHMOD"}} {
		if op.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// Event is a change to one path.
type Event struct {
	// Path is absolute.
	Path string
	Op   Op
}

// eventBuffer is the capacity of the event channel.
const eventBuffer = 256

// Option configures a Watcher.
type Option func(*Watcher)

// WithIgnore skips paths with a segment matching one of patterns.
func WithIgnore(patterns ...string) Option {
	return func(w *Watcher) { w.ignore = append(w.ignore, patterns...) }
}

// WithDelay coalesces events per path for d.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) { w.delay = d }
}

type pending struct {
	op    Op
	timer *time.Timer
}

// Watcher watches directory trees with fsnotify.
type Watcher struct {
	fsw    *fsnotify.Watcher
	ignore []string
	delay  time.Duration

	events chan Event
	errors chan error
	stop   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	pending map[string]*pending
	dropped int
}

// New starts a watcher with nothing watched yet.
func New(opts ...Option) (*Watcher, error) {
	w := &Watcher{pending: make(map[string]*pending), stop: make(chan struct{})}
	for _, opt := range opts {
		opt(w)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.fsw = fsw
	w.events = make(chan Event, eventBuffer)
	w.errors = make(chan error, 16)

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// AddTree watches root and every directory below it that is not ignored.
func (w *Watcher) AddTree(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}
	return filepath.WalkDir(abs, func(p string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != abs && w.ignored(p) {
			return filepath.SkipDir
		}
		return w.add(p)
	})
}

func (w *Watcher) add(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.fsw.Add(dir)
}

// Events delivers changes. It is closed by Close.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors delivers watch errors. It is closed by Close.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Dropped returns how many events were lost to a full channel.
func (w *Watcher) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Close stops watching and closes the channels.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, p := range w.pending {
		p.timer.Stop()
	}
	w.pending = nil
	close(w.stop)
	w.mu.Unlock()

	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	op := convertOp(ev.Op)
	if op == 0 || w.ignored(ev.Name) {
		return
	}
	if op.Has(OpCreate) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.AddTree(ev.Name)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.delay <= 0 {
		w.emitLocked(Event{Path: ev.Name, Op: op})
		return
	}
	if p, ok := w.pending[ev.Name]; ok {
		p.op |= op
		p.timer.Reset(w.delay)
		return
	}
	path := ev.Name
	w.pending[path] = &pending{op: op, timer: time.AfterFunc(w.delay, func() { w.flush(path) })}
}

func (w *Watcher) flush(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	p, ok := w.pending[path]
	if !ok {
		return
	}
	delete(w.pending, path)
	w.emitLocked(Event{Path: path, Op: p.op})
}

func (w *Watcher) emitLocked(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.dropped++
	}
}

func (w *Watcher) ignored(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		for _, pattern := range w.ignore {
			if ok, _ := filepath.Match(pattern, seg); ok {
				return true
			}
		}
	}
	return false
}

func convertOp(op fsnotify.Op) Op {
	var out Op
	if op.Has(fsnotify.Create) {
		out |= OpCreate
	}
	if op.Has(fsnotify.Write) {
		out |= OpWrite
	}
	if op.Has(fsnotify.Remove) {
		out |= OpRemove
	}
	if op.Has(fsnotify.Rename) {
		out |= OpRename
	}
	if op.Has(fsnotify.Chmod) {
		out |= OpChmod
	}
	return out
}
