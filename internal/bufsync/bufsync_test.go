package bufsync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ropestorm/internal/engine"
	"github.com/dshills/ropestorm/internal/engine/local"
	"github.com/dshills/ropestorm/internal/hook"
	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/host/memhost"
)

type report struct{ path, old string }

type reportingProject struct {
	engine.Project
	reports []report
}

func (p *reportingProject) ReportChange(path, old string) error {
	p.reports = append(p.reports, report{path, old})
	return p.Project.ReportChange(path, old)
}

type fixedProjects struct{ p engine.Project }

func (f fixedProjects) Project() engine.Project { return f.p }

func (f fixedProjects) Resolve(filename string) engine.Resource {
	if f.p == nil {
		return nil
	}
	r, ok := f.p.PathToResource(filename)
	if !ok {
		return nil
	}
	return r
}

type fixture struct {
	root string
	proj *reportingProject
	host *memhost.Host
	sync *Syncer
}

func newFixture(t *testing.T, files map[string]string, answers ...string) *fixture {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	p, err := local.New().Open(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	f := &fixture{root: root, proj: &reportingProject{Project: p}, host: memhost.New(nil, memhost.WithAnswers(answers...))}
	f.sync = New(fixedProjects{f.proj}, f.host, nil)
	f.sync.Init(f.host)
	return f
}

func (f *fixture) path(name string) string { return filepath.Join(f.root, name) }

func (f *fixture) visit(t *testing.T, name string) host.Buffer {
	t.Helper()
	b, err := f.host.FindFile(f.path(name))
	require.NoError(t, err)
	return b
}

func TestSaveNewFileReportsEmptyOldContent(t *testing.T) {
	f := newFixture(t, nil)
	b := f.visit(t, "new.py")
	b.Insert("x = 1\n")
	require.NoError(t, b.Save())

	assert.Equal(t, []report{{"new.py", ""}}, f.proj.reports)
	assert.Equal(t, 0, f.sync.Pending())
}

func TestSaveExistingFileReportsPreviousContent(t *testing.T) {
	f := newFixture(t, map[string]string{"a.py": "old\n"})
	b := f.visit(t, "a.py")
	b.Insert("new ")
	require.NoError(t, b.Save())

	assert.Equal(t, []report{{"a.py", "old\n"}}, f.proj.reports)
}

func TestSaveOutsideProjectIgnored(t *testing.T) {
	f := newFixture(t, nil)
	b, err := f.host.FindFile(filepath.Join(t.TempDir(), "elsewhere.py"))
	require.NoError(t, err)
	b.Insert("x")
	require.NoError(t, b.Save())
	assert.Empty(t, f.proj.reports)
	assert.Equal(t, 0, f.sync.Pending())
}

func TestAfterSaveWithoutSnapshotReportsNothing(t *testing.T) {
	f := newFixture(t, map[string]string{"a.py": "x"})
	require.NoError(t, f.sync.AfterSave(context.Background(), hook.Payload{File: f.path("a.py")}))
	assert.Empty(t, f.proj.reports)
}

func TestNoProjectIsNoop(t *testing.T) {
	h := memhost.New(nil)
	s := New(fixedProjects{}, h, nil)
	ctx := context.Background()
	require.NoError(t, s.BeforeSave(ctx, hook.Payload{File: "/x.py"}))
	require.NoError(t, s.AfterSave(ctx, hook.Payload{File: "/x.py"}))
	require.NoError(t, s.SaveAll(ctx, Options{Ask: true}))
	assert.Equal(t, 0, s.Pending())
}

func TestInterleavedSavesKeepTheirSnapshots(t *testing.T) {
	f := newFixture(t, map[string]string{"a.py": "A", "b.py": "B"})
	ctx := context.Background()
	pa := hook.Payload{File: f.path("a.py")}
	pb := hook.Payload{File: f.path("b.py")}

	require.NoError(t, f.sync.BeforeSave(ctx, pa))
	require.NoError(t, f.sync.BeforeSave(ctx, pb))
	require.NoError(t, f.sync.AfterSave(ctx, pb))
	require.NoError(t, f.sync.AfterSave(ctx, pa))

	assert.Equal(t, []report{{"b.py", "B"}, {"a.py", "A"}}, f.proj.reports)
}

func TestSaveAllAskRestoresCurrentBuffer(t *testing.T) {
	f := newFixture(t, map[string]string{"a.py": "a", "b.py": "b", "notes.txt": "n"}, "n", "y")
	a := f.visit(t, "a.py")
	b := f.visit(t, "b.py")
	notes := f.visit(t, "notes.txt")
	clean := f.host.NewBuffer("clean", "")
	a.Insert("1")
	b.Insert("2")
	notes.Insert("3")
	f.host.SetCurrentBuffer(clean)

	require.NoError(t, f.sync.SaveAll(context.Background(), Options{Ask: true}))

	assert.Equal(t, clean, f.host.CurrentBuffer())
	assert.True(t, a.Modified())
	assert.False(t, b.Modified())
	assert.True(t, notes.Modified())
	assert.Equal(t, []string{
		"Save " + f.path("a.py") + " buffer? (y or n) ",
		"Save " + f.path("b.py") + " buffer? (y or n) ",
	}, f.host.Prompts())
	assert.Equal(t, []report{{"b.py", "b"}}, f.proj.reports)
}

func TestSaveAllCancelledRestoresCurrentBuffer(t *testing.T) {
	f := newFixture(t, map[string]string{"a.py": "a"}, memhost.Cancel)
	a := f.visit(t, "a.py")
	a.Insert("1")
	start := f.host.NewBuffer("start", "")
	f.host.SetCurrentBuffer(start)

	err := f.sync.SaveAll(context.Background(), Options{Ask: true})
	assert.ErrorIs(t, err, host.ErrCancelled)
	assert.Equal(t, start, f.host.CurrentBuffer())
	assert.True(t, a.Modified())
}

func TestSaveAllWithoutAsking(t *testing.T) {
	f := newFixture(t, map[string]string{"a.py": "a", "b.py": "b"})
	a := f.visit(t, "a.py")
	b := f.visit(t, "b.py")
	a.Insert("1")
	b.Insert("2")

	require.NoError(t, f.sync.SaveAll(context.Background(), Options{OnlyCurrent: true}))
	assert.True(t, a.Modified())
	assert.False(t, b.Modified())
	assert.Equal(t, b, f.host.CurrentBuffer())

	require.NoError(t, f.sync.SaveAll(context.Background(), Options{}))
	assert.False(t, a.Modified())
	assert.Empty(t, f.host.Prompts())
}
