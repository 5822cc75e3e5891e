package refactor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ropestorm/internal/bufsync"
	"github.com/dshills/ropestorm/internal/engine"
	"github.com/dshills/ropestorm/internal/engine/local"
	"github.com/dshills/ropestorm/internal/host/memhost"
	"github.com/dshills/ropestorm/internal/reconcile"
	"github.com/dshills/ropestorm/internal/task"
)

type recordingSaver struct{ calls []bufsync.Options }

func (s *recordingSaver) SaveAll(_ context.Context, opts bufsync.Options) error {
	s.calls = append(s.calls, opts)
	return nil
}

type fixture struct {
	root   string
	host   *memhost.Host
	saver  *recordingSaver
	runner *Runner
	target Target
}

func newFixture(t *testing.T, source string, answers ...string) *fixture {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte(source), 0o644))
	eng := local.New()
	p, err := eng.Open(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	res, err := p.Resource("a.py")
	require.NoError(t, err)

	h := memhost.New(nil, memhost.WithAnswers(answers...))
	b, err := h.FindFile(filepath.Join(root, "a.py"))
	require.NoError(t, err)
	saver := &recordingSaver{}
	return &fixture{
		root:   root,
		host:   h,
		saver:  saver,
		runner: NewRunner(eng, h, saver, reconcile.New(h, nil), nil),
		target: Target{Project: p, Resource: res, Buffer: b},
	}
}

func (f *fixture) read(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.root, "a.py"))
	require.NoError(t, err)
	return string(data)
}

func definition(t *testing.T, name string) Definition {
	t.Helper()
	for _, d := range Definitions() {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("no definition %q", name)
	return Definition{}
}

func TestDefinitions(t *testing.T) {
	keys := map[string]string{}
	for _, d := range Definitions() {
		keys[d.Name] = d.Key
	}
	assert.Equal(t, map[string]string{
		"rename":                "C-c r r",
		"rename_current_module": "C-c r 1 r",
		"extract_variable":      "C-c r l",
		"inline":                "C-c r i",
	}, keys)
}

func TestRenamePerform(t *testing.T) {
	const source = "value = 1\nprint(value)\n"
	f := newFixture(t, source, "total", "")

	require.NoError(t, f.runner.Run(context.Background(), definition(t, "rename"), f.target, true))
	assert.Equal(t, "total = 1\nprint(total)\n", f.read(t))
	assert.Equal(t, "total = 1\nprint(total)\n", f.target.Buffer.Text())
	assert.Equal(t, "Renaming <value> to <total> finished", f.host.LastMessage())
	assert.Equal(t, []string{"New name: [value] ", "Choose what to do: [perform] "}, f.host.Prompts())
	assert.Equal(t, []bufsync.Options{{OnlyCurrent: false}}, f.saver.calls)
	assert.Equal(t, 1, f.target.Project.History().UndoCount())
}

func TestRenameDeferredAsking(t *testing.T) {
	f := newFixture(t, "value = 1\n", "new_name", "total", "perform")
	require.NoError(t, f.runner.Run(context.Background(), definition(t, "rename"), f.target, false))
	assert.Equal(t, "total = 1\n", f.read(t))
	assert.Equal(t, "Choose what to do: [perform] ", f.host.Prompts()[0])
}

func TestPreviewDeclined(t *testing.T) {
	const source = "value = 1\n"
	f := newFixture(t, source, "total", "preview", "n")
	require.NoError(t, f.runner.Run(context.Background(), definition(t, "rename"), f.target, true))
	assert.Equal(t, source, f.read(t))
	assert.Equal(t, "Thrown away!", f.host.LastMessage())
	assert.Contains(t, f.host.Prompts(), "Do the changes? (y or n) ")
	assert.Nil(t, f.host.Buffer(PreviewBuffer))
}

func TestPreviewAccepted(t *testing.T) {
	f := newFixture(t, "value = 1\n", "total", "preview", "y")
	require.NoError(t, f.runner.Run(context.Background(), definition(t, "rename"), f.target, true))
	assert.Equal(t, "total = 1\n", f.read(t))
}

func TestCancelled(t *testing.T) {
	const source = "value = 1\n"
	f := newFixture(t, source, "total", "cancel")
	require.NoError(t, f.runner.Run(context.Background(), definition(t, "rename"), f.target, true))
	assert.Equal(t, source, f.read(t))
	assert.Equal(t, "Cancelled!", f.host.LastMessage())
}

func TestExtractVariable(t *testing.T) {
	f := newFixture(t, "x = a + b\n", "s", "perform")
	b := f.target.Buffer
	b.SetPoint(9)
	b.PushMark()
	b.SetPoint(4)

	require.NoError(t, f.runner.Run(context.Background(), definition(t, "extract_variable"), f.target, true))
	assert.Equal(t, "s = a + b\nx = s\n", f.read(t))
	assert.Equal(t, []bufsync.Options{{OnlyCurrent: true}}, f.saver.calls)
}

func TestExtractVariableWithoutMark(t *testing.T) {
	f := newFixture(t, "x = a + b\n", "s", "perform")
	err := f.runner.Run(context.Background(), definition(t, "extract_variable"), f.target, true)
	assert.ErrorIs(t, err, ErrNoRegion)
	assert.ErrorIs(t, err, task.ErrInterrupted)
	assert.Equal(t, "Calculating extract_variable changes interrupted!", f.host.LastMessage())
}

func TestRunWithoutResource(t *testing.T) {
	f := newFixture(t, "")
	f.target.Resource = nil
	err := f.runner.Run(context.Background(), definition(t, "inline"), f.target, true)
	assert.ErrorIs(t, err, ErrNoResource)
	assert.Empty(t, f.saver.calls)
}

func TestInline(t *testing.T) {
	f := newFixture(t, "n = 2\nprint(n)\n", "perform")
	f.target.Buffer.SetPoint(len("n = 2\nprint("))
	require.NoError(t, f.runner.Run(context.Background(), definition(t, "inline"), f.target, true))
	assert.Equal(t, "print(2)\n", f.read(t))
}

func TestRenameModuleDefaultName(t *testing.T) {
	f := newFixture(t, "x = 1\n")
	fields := definition(t, "rename_current_module").Fields(f.target)
	require.Len(t, fields, 1)
	assert.Equal(t, "a", fields[0].Data.Default)
}

func TestWordAt(t *testing.T) {
	tests := []struct {
		text   string
		offset int
		want   string
	}{
		{"foo bar", 0, "foo"},
		{"foo bar", 3, "foo"},
		{"foo bar", 5, "bar"},
		{"foo bar", 7, "bar"},
		{"a + b", 2, ""},
		{"x 12", 3, ""},
		{"naïve_x", 2, "naïve_x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wordAt(tt.text, tt.offset), "%q@%d", tt.text, tt.offset)
	}
}

var _ engine.Refactorer = (*local.Engine)(nil)
