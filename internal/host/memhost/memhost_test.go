package memhost

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ropestorm/internal/hook"
	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/keymap"
	"github.com/dshills/ropestorm/internal/keyseq"
)

func TestFindFileRaisesModeEnter(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0o644))

	h := New(nil)
	var got []hook.Payload
	h.AddHook(hook.ModeEnter, "test", func(_ context.Context, p hook.Payload) error {
		got = append(got, p)
		return nil
	})

	b, err := h.FindFile(file)
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", b.Text())
	assert.Equal(t, b, h.CurrentBuffer())
	require.Len(t, got, 1)
	assert.Equal(t, hook.Payload{Buffer: "a.py", File: file, Mode: "python-mode"}, got[0])

	again, err := h.FindFile(file)
	require.NoError(t, err)
	assert.Same(t, b.(*Buffer), again.(*Buffer))
	assert.Len(t, got, 1)
	assert.Equal(t, b, h.BufferVisiting(file))
}

func TestFindFileMissingAndUniqueNames(t *testing.T) {
	h := New(nil)
	b1, err := h.FindFile(filepath.Join(t.TempDir(), "x.py"))
	require.NoError(t, err)
	b2, err := h.FindFile(filepath.Join(t.TempDir(), "x.py"))
	require.NoError(t, err)
	assert.Equal(t, "", b1.Text())
	assert.Equal(t, "x.py", b1.Name())
	assert.Equal(t, "x.py<2>", b2.Name())
}

func TestSaveRunsHooksAroundWrite(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.py")
	h := New(nil)
	var seen []string
	h.AddHook(hook.BeforeSave, "before", func(_ context.Context, p hook.Payload) error {
		_, err := os.Stat(p.File)
		seen = append(seen, "before:"+boolString(err == nil))
		return nil
	})
	h.AddHook(hook.AfterSave, "after", func(_ context.Context, p hook.Payload) error {
		data, err := os.ReadFile(p.File)
		require.NoError(t, err)
		seen = append(seen, "after:"+string(data))
		return nil
	})

	b, err := h.FindFile(file)
	require.NoError(t, err)
	b.Insert("hello")
	assert.True(t, b.Modified())
	require.NoError(t, b.Save())
	assert.False(t, b.Modified())
	assert.Equal(t, []string{"before:false", "after:hello"}, seen)

	scratch := h.NewBuffer("notes", "")
	assert.ErrorIs(t, scratch.Save(), ErrNoFile)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func TestRevert(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.py")
	require.NoError(t, os.WriteFile(file, []byte("abcdef"), 0o644))
	h := New(nil)
	b, err := h.FindFile(file)
	require.NoError(t, err)
	b.SetPoint(5)

	require.NoError(t, os.WriteFile(file, []byte("abc"), 0o644))
	require.NoError(t, b.Revert())
	assert.Equal(t, "abc", b.Text())
	assert.Equal(t, 3, b.Point())
	assert.False(t, b.Modified())
}

func TestInsertDeletePoint(t *testing.T) {
	h := New(nil)
	b := h.NewBuffer("b", "hello world")
	b.SetPoint(11)
	b.Delete(5, 11)
	assert.Equal(t, "hello", b.Text())
	assert.Equal(t, 5, b.Point())
	b.Insert(", you")
	assert.Equal(t, "hello, you", b.Text())
	assert.Equal(t, 10, b.Point())

	b.SetPoint(100)
	assert.Equal(t, 10, b.Point())
	b.PushMark()
	mark, ok := b.Mark()
	assert.True(t, ok)
	assert.Equal(t, 10, mark)
}

func TestReadOnlyRefusesEdits(t *testing.T) {
	h := New(nil)
	listing := h.MakeBuffer("*list*", "a\nb\n")
	listing.Insert("x")
	assert.Equal(t, "a\nb\n", listing.Text())
	assert.Equal(t, "Buffer is read-only: *list*", h.LastMessage())
}

func TestMakeBufferAndWindows(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.py")
	h := New(nil)
	start := h.CurrentBuffer()

	keys := []keymap.Binding{
		{Keys: keyseq.MustParse("RET"), Command: "goto"},
		{Keys: keyseq.MustParse("q"), Command: "quit"},
	}
	listing := h.MakeBuffer("*list*", "one\n", keys...)
	assert.Equal(t, start, h.CurrentBuffer())
	assert.Equal(t, listing, h.Other())
	assert.True(t, listing.ReadOnly())

	h.SetCurrentBuffer(listing)
	cmd, ok := h.Lookup(keyseq.MustParse("RET"))
	require.True(t, ok)
	assert.Equal(t, "goto", cmd)

	b, err := h.FindFileOtherWindow(file)
	require.NoError(t, err)
	assert.Equal(t, b, h.CurrentBuffer())
	assert.Equal(t, listing, h.Other())

	again := h.MakeBuffer("*list*", "two\n")
	assert.Same(t, listing.(*Buffer), again.(*Buffer))
	assert.Equal(t, "two\n", again.Text())
	assert.Equal(t, 0, again.(*Buffer).LocalKeys().Len())

	h.HideBuffer("*list*")
	assert.Nil(t, h.Other())
	assert.Nil(t, h.Buffer("*list*"))
}

func TestBuryBuffer(t *testing.T) {
	h := New(nil)
	first := h.CurrentBuffer()
	doc := h.MakeBuffer("*doc*", "text")
	h.SetCurrentBuffer(doc)
	h.BuryBuffer("*doc*")
	assert.Equal(t, first, h.CurrentBuffer())
	assert.NotNil(t, h.Buffer("*doc*"))
}

func TestKillCurrentFallsBack(t *testing.T) {
	h := New(nil)
	scratch := h.CurrentBuffer()
	other := h.NewBuffer("other", "")
	h.SetCurrentBuffer(other)
	h.KillBuffer(other)
	assert.Equal(t, scratch, h.CurrentBuffer())
	assert.Len(t, h.Buffers(), 1)

	h.KillBuffer(scratch)
	require.NotNil(t, h.CurrentBuffer())
	assert.Equal(t, "*scratch*", h.CurrentBuffer().Name())
}

func TestScriptedAnswers(t *testing.T) {
	h := New(nil, WithAnswers("maybe", "y", "", "typed", Cancel))

	ok, err := h.Confirm("Proceed? ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Please answer y or n.", h.LastMessage())

	got, err := h.Ask("Name: ", "initial")
	require.NoError(t, err)
	assert.Equal(t, "initial", got)

	got, err = h.AskChoice("Pick: ", []string{"a"}, "")
	require.NoError(t, err)
	assert.Equal(t, "typed", got)

	_, err = h.AskDirectory("Dir: ", "")
	assert.ErrorIs(t, err, host.ErrCancelled)

	_, err = h.Ask("Nothing left: ", "")
	assert.ErrorIs(t, err, host.ErrCancelled)
	assert.Equal(t, []string{
		"Proceed? (y or n) ", "Proceed? (y or n) ", "Name: ", "Pick: ", "Dir: ", "Nothing left: ",
	}, h.Prompts())
}

func TestConsoleFallback(t *testing.T) {
	var out bytes.Buffer
	h := New(nil, WithConsole(NewConsole(strings.NewReader("n\nlast"), &out)))

	ok, err := h.Confirm("Save? ")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := h.Ask("Name: ", "")
	require.NoError(t, err)
	assert.Equal(t, "last", got)

	_, err = h.Ask("More: ", "")
	assert.ErrorIs(t, err, host.ErrCancelled)
	assert.Equal(t, "Save? (y or n) Name: More: ", out.String())
}

func TestProgressRecords(t *testing.T) {
	h := New(nil)
	p := h.Progress("Find occurrences")
	p.Update(50)
	p.Update(100)
	p.Done()

	reports := h.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, "Find occurrences", reports[0].Name)
	assert.Equal(t, []int{50, 100}, reports[0].Updates())
	assert.True(t, reports[0].Finished())
}

func TestShutdownRunsHooks(t *testing.T) {
	h := New(nil)
	called := false
	h.AddHook(hook.Shutdown, "close", func(context.Context, hook.Payload) error {
		called = true
		return nil
	})
	require.NoError(t, h.Shutdown(context.Background()))
	assert.True(t, called)
}
