package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dshills/ropestorm/internal/host"
)

// UI is the part of the host a foreground task reports to.
type UI interface {
	host.Reporter
	Message(text string)
}

// Run runs fn as a named task, forwarding its progress to the host and
// waiting for the result. A failed or cancelled task is reported as
// "<name> interrupted!" and its error wrapped in ErrInterrupted. Reports
// made after Run returns are not forwarded.
func Run[T any](ctx context.Context, ui UI, name string, fn Func[T]) (T, error) {
	t := New(name, fn)
	progress := ui.Progress(name)

	var (
		mu       sync.Mutex
		finished bool
	)
	t.Observe(func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		if !finished {
			progress.Update(p.Percent())
		}
	})
	defer func() {
		mu.Lock()
		finished = true
		mu.Unlock()
		progress.Done()
		slog.Debug("task finished", "task", name, "id", t.ID(), "state", t.State(), "duration", t.Duration())
	}()
	defer t.Cancel()

	var zero T
	if err := t.Start(ctx); err != nil {
		return zero, err
	}
	result, err := t.Wait(ctx)
	if err != nil {
		ui.Message(name + " interrupted!")
		return zero, fmt.Errorf("%w: %s: %w", ErrInterrupted, name, err)
	}
	return result, nil
}
