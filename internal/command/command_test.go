package command

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/host/memhost"
	"github.com/dshills/ropestorm/internal/keymap"
	"github.com/dshills/ropestorm/internal/keyseq"
	"github.com/dshills/ropestorm/internal/task"
)

func nop(context.Context, Prefix) error { return nil }

func TestKebab(t *testing.T) {
	tests := map[string]string{
		"extract_variable":      "extract-variable",
		"ExtractVariable":       "extract-variable",
		"rename":                "rename",
		"rename_current_module": "rename-current-module",
		"HTTPServer":            "http-server",
		"find2File":             "find2-file",
		"_private_":             "private",
	}
	for in, want := range tests {
		assert.Equal(t, want, Kebab(in), in)
	}
	assert.Equal(t, "rope-open-project", PublicName("open_project"))
	assert.Equal(t, "rope-inline", PublicName("rope-inline"))
}

func TestPrefixValue(t *testing.T) {
	assert.Equal(t, 1, NoPrefix().Value())
	assert.False(t, NoPrefix().IsSet())
	assert.Equal(t, 4, Universal(1).Value())
	assert.Equal(t, 16, Universal(2).Value())
	assert.Equal(t, 0, Numeric(0).Value())
	assert.Equal(t, 7, Numeric(7).Value())
	assert.Equal(t, PrefixNumeric, Numeric(7).Kind())
	assert.True(t, Universal(1).IsSet())
	assert.Equal(t, "C-u(4)", Universal(1).String())
}

func newRegistry(t *testing.T, specs ...Spec) *Registry {
	t.Helper()
	r := NewRegistry(keyseq.MustParse("C-x"))
	for _, s := range specs {
		require.NoError(t, r.Register(s))
	}
	return r
}

func TestRegistryScopes(t *testing.T) {
	r := newRegistry(t,
		Spec{Name: "open_project", Key: "C-x p o", Handler: nop},
		Spec{Name: "code_assist", Key: "M-/", Handler: nop},
		Spec{Name: "rename", Key: "C-c r r", Handler: nop},
		Spec{Name: "occurrences_quit", Handler: nop},
	)

	e, ok := r.Lookup("rope-open-project")
	require.True(t, ok)
	assert.Equal(t, keymap.ScopeGlobal, e.Scope)
	assert.Equal(t, 1, r.Global().Count("rope-open-project"))
	assert.Equal(t, 0, r.Local().Count("rope-open-project"))

	for _, name := range []string{"rope-code-assist", "rope-rename"} {
		e, ok := r.Lookup(name)
		require.True(t, ok)
		assert.Equal(t, keymap.ScopeLocal, e.Scope, name)
		assert.Equal(t, 1, r.Local().Count(name), name)
		assert.Equal(t, 0, r.Global().Count(name), name)
	}

	e, ok = r.Lookup("rope-occurrences-quit")
	require.True(t, ok)
	assert.False(t, e.Bound())
	assert.Equal(t, 1, r.Global().Len())
	assert.Equal(t, 2, r.Local().Len())
	assert.Equal(t, []string{"rope-open-project", "rope-code-assist", "rope-rename", "rope-occurrences-quit"}, r.Names())
}

func TestRegistryCustomPrefix(t *testing.T) {
	r := NewRegistry(keyseq.MustParse("C-c"))
	require.NoError(t, r.Register(Spec{Name: "rename", Key: "C-c r r", Handler: nop}))
	e, _ := r.Lookup("rope-rename")
	assert.Equal(t, keymap.ScopeGlobal, e.Scope)
}

func TestRegistryErrors(t *testing.T) {
	r := newRegistry(t, Spec{Name: "rename", Key: "C-c r r", Handler: nop})

	assert.ErrorIs(t, r.Register(Spec{Name: "rename", Handler: nop}), ErrDuplicateCommand)
	assert.ErrorIs(t, r.Register(Spec{Name: "other", Key: "C-c r r", Handler: nop}), keymap.ErrDuplicateBinding)
	assert.ErrorIs(t, r.Register(Spec{Name: "short", Key: "C-c r", Handler: nop}), keymap.ErrPrefixConflict)
	assert.ErrorIs(t, r.Register(Spec{Name: "nohandler"}), ErrInvalidSpec)
	assert.Error(t, r.Register(Spec{Name: "bad", Key: "C-", Handler: nop}))
	assert.Len(t, r.Entries(), 1)
}

func TestInstall(t *testing.T) {
	r := newRegistry(t,
		Spec{Name: "open_project", Key: "C-x p o", Handler: nop},
		Spec{Name: "rename", Key: "C-c r r", Handler: nop},
	)
	h := memhost.New(nil)
	require.NoError(t, r.InstallGlobal(h))
	cmd, ok := h.GlobalKeys().Lookup(keyseq.MustParse("C-x p o"))
	require.True(t, ok)
	assert.Equal(t, "rope-open-project", cmd)
	_, ok = h.GlobalKeys().Lookup(keyseq.MustParse("C-c r r"))
	assert.False(t, ok)

	b := h.NewBuffer("a.py", "")
	require.NoError(t, r.InstallLocal(h, b))
	cmd, ok = b.LocalKeys().Lookup(keyseq.MustParse("C-c r r"))
	require.True(t, ok)
	assert.Equal(t, "rope-rename", cmd)
}

type fakeProjects struct {
	open     bool
	validate error
}

func (p *fakeProjects) IsOpen() bool    { return p.open }
func (p *fakeProjects) Validate() error { return p.validate }

var (
	errStale = errors.New("stale")
	errShown = errors.New("already shown")
)

type dispatchFixture struct {
	host     *memhost.Host
	projects *fakeProjects
	disp     *Dispatcher
	calls    []string
	metrics  *Metrics
}

func newDispatchFixture(t *testing.T, openErr error, openSucceeds bool, answers ...string) *dispatchFixture {
	t.Helper()
	f := &dispatchFixture{host: memhost.New(nil, memhost.WithAnswers(answers...)), projects: &fakeProjects{}, metrics: NewMetrics()}
	record := func(name string, fn Handler) Handler {
		return func(ctx context.Context, p Prefix) error {
			f.calls = append(f.calls, name)
			return fn(ctx, p)
		}
	}
	r := newRegistry(t,
		Spec{Name: "open_project", Key: "C-x p o", NeedsProject: true, Handler: record("open", func(context.Context, Prefix) error {
			if openErr != nil {
				return openErr
			}
			f.projects.open = openSucceeds
			return nil
		})},
		Spec{Name: "rename", Key: "C-c r r", NeedsProject: true, Handler: record("rename", nop)},
		Spec{Name: "ask", Handler: record("ask", func(context.Context, Prefix) error {
			_, err := f.host.Ask("Name: ", "")
			return err
		})},
		Spec{Name: "explode", Handler: record("explode", func(context.Context, Prefix) error {
			panic("boom")
		})},
		Spec{Name: "fail", Handler: record("fail", func(context.Context, Prefix) error {
			return errors.New("disk on fire")
		})},
		Spec{Name: "stale", Handler: record("stale", func(context.Context, Prefix) error {
			return fmt.Errorf("wrapped: %w", errStale)
		})},
		Spec{Name: "shown", Handler: record("shown", func(context.Context, Prefix) error {
			return errShown
		})},
		Spec{Name: "interrupted", Handler: record("interrupted", func(context.Context, Prefix) error {
			return fmt.Errorf("%w: job: %w", task.ErrInterrupted, errors.New("io"))
		})},
	)
	f.disp = NewDispatcher(r, f.projects, f.host,
		WithUserErrors(
			UserError{Err: errStale, Message: "Project root went away"},
			UserError{Err: errShown, Silent: true},
		),
		WithMetrics(f.metrics))
	return f
}

func TestInvokeOpensProjectOnce(t *testing.T) {
	f := newDispatchFixture(t, nil, true)
	require.NoError(t, f.disp.Invoke(context.Background(), "rope-rename", NoPrefix()))
	assert.Equal(t, []string{"open", "rename"}, f.calls)

	require.NoError(t, f.disp.Invoke(context.Background(), "rope-rename", NoPrefix()))
	assert.Equal(t, []string{"open", "rename", "rename"}, f.calls)
}

func TestInvokeOpenCommandRunsOnce(t *testing.T) {
	f := newDispatchFixture(t, nil, true)
	require.NoError(t, f.disp.Invoke(context.Background(), "rope-open-project", NoPrefix()))
	assert.Equal(t, []string{"open"}, f.calls)
}

func TestInvokeSkipsWhenOpenCancelled(t *testing.T) {
	f := newDispatchFixture(t, host.ErrCancelled, false)
	require.NoError(t, f.disp.Invoke(context.Background(), "rope-rename", NoPrefix()))
	assert.Equal(t, []string{"open"}, f.calls)
	assert.Equal(t, []string{"Quit", "No project open; rope-rename skipped"}, f.host.Messages())
}

func TestInvokeValidatesOpenProject(t *testing.T) {
	f := newDispatchFixture(t, nil, true)
	f.projects.open = true
	f.projects.validate = errStale
	require.NoError(t, f.disp.Invoke(context.Background(), "rope-rename", NoPrefix()))
	assert.Empty(t, f.calls)
	assert.Equal(t, "Project root went away", f.host.LastMessage())
}

func TestInvokeRoutesErrors(t *testing.T) {
	f := newDispatchFixture(t, nil, true, memhost.Cancel)
	ctx := context.Background()

	require.NoError(t, f.disp.Invoke(ctx, "rope-ask", NoPrefix()))
	assert.Equal(t, "Quit", f.host.LastMessage())

	require.NoError(t, f.disp.Invoke(ctx, "rope-stale", NoPrefix()))
	assert.Equal(t, "Project root went away", f.host.LastMessage())

	require.NoError(t, f.disp.Invoke(ctx, "rope-shown", NoPrefix()))
	assert.Equal(t, []string{"Quit", "Project root went away"}, f.host.Messages())

	require.NoError(t, f.disp.Invoke(ctx, "rope-interrupted", NoPrefix()))

	err := f.disp.Invoke(ctx, "rope-fail", NoPrefix())
	var cmdErr *Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "rope-fail", cmdErr.Command)
	assert.EqualError(t, err, "rope-fail: disk on fire")

	assert.ErrorIs(t, f.disp.Invoke(ctx, "rope-missing", NoPrefix()), ErrUnknownCommand)
}

func TestInvokeRecoversPanic(t *testing.T) {
	f := newDispatchFixture(t, nil, true)
	err := f.disp.Invoke(context.Background(), "rope-explode", NoPrefix())
	require.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "goroutine")

	_, _, panics := f.metrics.Totals()
	assert.Equal(t, uint64(1), panics)
}

func TestMetricsRecordInvocations(t *testing.T) {
	f := newDispatchFixture(t, nil, true)
	ctx := context.Background()
	require.NoError(t, f.disp.Invoke(ctx, "rope-rename", NoPrefix()))
	_ = f.disp.Invoke(ctx, "rope-fail", NoPrefix())

	total, failed, _ := f.metrics.Totals()
	assert.Equal(t, uint64(3), total)
	assert.Equal(t, uint64(1), failed)
	cm, ok := f.metrics.Command("rope-rename")
	require.True(t, ok)
	assert.Equal(t, uint64(1), cm.Invocations)
	assert.Len(t, f.metrics.All(), 3)
}
