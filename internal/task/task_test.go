package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ropestorm/internal/host/memhost"
)

func TestTaskSucceeds(t *testing.T) {
	tk := New("count", func(h *Handle) (int, error) {
		for i := 1; i <= 4; i++ {
			h.Report(i, 4)
		}
		return 42, nil
	})
	var mu sync.Mutex
	var seen []int
	tk.Observe(func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, p.Percent())
	})
	assert.Equal(t, StatePending, tk.State())
	assert.NotEmpty(t, tk.ID())

	require.NoError(t, tk.Start(context.Background()))
	got, err := tk.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, StateSucceeded, tk.State())
	assert.Equal(t, Progress{Done: 4, Total: 4}, tk.Progress())
	assert.Equal(t, []int{25, 50, 75, 100}, seen)
	assert.ErrorIs(t, tk.Start(context.Background()), ErrAlreadyStarted)
}

func TestTaskFails(t *testing.T) {
	boom := errors.New("boom")
	tk := New("fail", func(*Handle) (string, error) { return "", boom })
	require.NoError(t, tk.Start(context.Background()))
	_, err := tk.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, tk.State())
}

func TestTaskCancel(t *testing.T) {
	started := make(chan struct{})
	tk := New("block", func(h *Handle) (int, error) {
		close(started)
		<-h.Context().Done()
		return 0, h.Context().Err()
	})
	require.NoError(t, tk.Start(context.Background()))
	<-started
	tk.Cancel()

	_, err := tk.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCancelled, tk.State())
	select {
	case <-tk.Done():
	default:
		t.Fatal("done channel still open")
	}
}

func TestCancelBeforeStart(t *testing.T) {
	tk := New("never", func(*Handle) (int, error) { return 1, nil })
	tk.Cancel()
	_, err := tk.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, tk.Start(context.Background()), ErrAlreadyStarted)
}

func TestTaskPanicRecovered(t *testing.T) {
	tk := New("panics", func(*Handle) (int, error) { panic("bad") })
	require.NoError(t, tk.Start(context.Background()))
	_, err := tk.Wait(context.Background())
	assert.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "panics")
}

func TestWaitGivesUpOnContext(t *testing.T) {
	release := make(chan struct{})
	tk := New("slow", func(*Handle) (int, error) {
		<-release
		return 1, nil
	})
	require.NoError(t, tk.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := tk.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateRunning, tk.State())

	close(release)
	got, err := tk.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, Progress{}.Percent())
	assert.Equal(t, 33, Progress{Done: 1, Total: 3}.Percent())
	assert.Equal(t, 100, Progress{Done: 5, Total: 3}.Percent())
}

func TestRunForwardsProgress(t *testing.T) {
	h := memhost.New(nil)
	got, err := Run(context.Background(), h, "Count", func(hd *Handle) (int, error) {
		hd.Report(1, 4)
		hd.Report(4, 4)
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	require.Len(t, h.Reports(), 1)
	assert.Equal(t, []int{25, 100}, h.Reports()[0].Updates())
	assert.True(t, h.Reports()[0].Finished())
}

func TestRunReportsInterruption(t *testing.T) {
	h := memhost.New(nil)
	boom := errors.New("boom")
	_, err := Run(context.Background(), h, "Count", func(*Handle) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Count interrupted!", h.LastMessage())
}

func TestRunProgressNeverMovesBackwards(t *testing.T) {
	const total = 200
	for run := range 20 {
		h := memhost.New(nil)
		_, err := Run(context.Background(), h, "Scan", func(hd *Handle) (int, error) {
			var done atomic.Int64
			var wg sync.WaitGroup
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for done.Load() < total {
						n := done.Add(1)
						if n > total {
							return
						}
						hd.Report(int(n), total)
					}
				}()
			}
			wg.Wait()
			return 0, nil
		})
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		updates := h.Reports()[0].Updates()
		for i := 1; i < len(updates); i++ {
			if updates[i] < updates[i-1] {
				t.Fatalf("run %d: progress went from %d to %d", run, updates[i-1], updates[i])
			}
		}
		if last := updates[len(updates)-1]; last != 100 {
			t.Errorf("run %d: last update %d, want 100", run, last)
		}
	}
}

func TestRunDropsLateReports(t *testing.T) {
	h := memhost.New(nil)
	release := make(chan struct{})
	reported := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, h, "Stubborn", func(hd *Handle) (int, error) {
		<-release
		hd.Report(1, 1)
		close(reported)
		return 1, nil
	})
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("err = %v, want ErrInterrupted", err)
	}

	close(release)
	<-reported
	p := h.Reports()[0]
	if !p.Finished() {
		t.Error("progress not finished")
	}
	if got := p.Updates(); len(got) != 0 {
		t.Errorf("updates after Run returned: %v", got)
	}
}
