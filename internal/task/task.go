// Package task runs one long operation on its own goroutine with
// cancellation, progress observers and a future-style result.
package task

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("task: already started")

	// ErrCancelled indicates the task was cancelled before it finished.
	ErrCancelled = errors.New("task: cancelled")

	// ErrPanic wraps a panic recovered from the task function.
	ErrPanic = errors.New("task: panic")

	// ErrInterrupted wraps the failure of a task Run already reported to
	// the user.
	ErrInterrupted = errors.New("task: interrupted")
)

// State is the lifecycle state of a task.
type State string

// Task states.
const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Progress is the amount of work done out of a total.
type Progress struct {
	Done  int
	Total int
}

// Percent returns the progress as 0..100. An unknown total reports 0.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return min(100, max(0, p.Done*100/p.Total))
}

// Func is the work of a task.
type Func[T any] func(h *Handle) (T, error)

// Handle is given to the task function to observe cancellation and report
// progress.
type Handle struct {
	ctx    context.Context
	report func(Progress)
}

// Context is cancelled when the task is cancelled.
func (h *Handle) Context() context.Context { return h.ctx }

// Report publishes progress to the task's observers.
func (h *Handle) Report(done, total int) { h.report(Progress{Done: done, Total: total}) }

// Task is a single run of a Func.
type Task[T any] struct {
	id   string
	name string
	fn   Func[T]
	done chan struct{}

	// deliver orders progress delivery; observers see one report at a time.
	deliver sync.Mutex

	mu        sync.Mutex
	state     State
	progress  Progress
	observers []func(Progress)
	cancel    context.CancelFunc
	started   time.Time
	ended     time.Time
	result    T
	err       error
}

// New creates a pending task.
func New[T any](name string, fn Func[T]) *Task[T] {
	return &Task[T]{
		id:    uuid.NewString(),
		name:  name,
		fn:    fn,
		done:  make(chan struct{}),
		state: StatePending,
	}
}

// ID returns the task's unique id.
func (t *Task[T]) ID() string { return t.id }

// Name returns the task name.
func (t *Task[T]) Name() string { return t.name }

// State returns the current state.
func (t *Task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Progress returns the last reported progress.
func (t *Task[T]) Progress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Duration returns how long the task ran, or has been running.
func (t *Task[T]) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.started.IsZero():
		return 0
	case t.ended.IsZero():
		return time.Since(t.started)
	}
	return t.ended.Sub(t.started)
}

// Observe registers fn to receive progress reports. Reports arrive one at
// a time and never move backwards; a report with less work done than the
// last one is dropped.
func (t *Task[T]) Observe(fn func(Progress)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// Start runs the task on a new goroutine. The task stops when ctx or
// Cancel cancels it.
func (t *Task[T]) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.state != StatePending {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.state = StateRunning
	t.started = time.Now()
	t.mu.Unlock()

	h := &Handle{ctx: ctx, report: t.report}
	go t.run(ctx, h)
	return nil
}

func (t *Task[T]) run(ctx context.Context, h *Handle) {
	result, err := t.call(h)

	t.mu.Lock()
	t.ended = time.Now()
	switch {
	case err == nil && ctx.Err() == nil:
		t.state = StateSucceeded
		t.result = result
	case ctx.Err() != nil:
		t.state = StateCancelled
		t.err = fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	default:
		t.state = StateFailed
		t.err = err
	}
	cancel := t.cancel
	t.mu.Unlock()

	cancel()
	close(t.done)
}

func (t *Task[T]) call(h *Handle) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			err = fmt.Errorf("%w in %s: %v\n%s", ErrPanic, t.name, r, stack[:n])
		}
	}()
	return t.fn(h)
}

func (t *Task[T]) report(p Progress) {
	t.deliver.Lock()
	defer t.deliver.Unlock()

	t.mu.Lock()
	if p.Total == t.progress.Total && p.Done < t.progress.Done {
		t.mu.Unlock()
		return
	}
	t.progress = p
	observers := append([]func(Progress){}, t.observers...)
	t.mu.Unlock()
	for _, fn := range observers {
		fn(p)
	}
}

// Cancel asks the task to stop. It is a no-op once the task finished.
func (t *Task[T]) Cancel() {
	t.mu.Lock()
	cancel := t.cancel
	if t.state == StatePending {
		t.state = StateCancelled
		t.err = ErrCancelled
		close(t.done)
	}
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done is closed when the task has finished.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx is done, and returns the
// task's result. Giving up on ctx does not cancel the task.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
