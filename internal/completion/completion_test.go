package completion

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ropestorm/internal/engine"
	"github.com/dshills/ropestorm/internal/engine/local"
	"github.com/dshills/ropestorm/internal/host/memhost"
)

// fakeAssist proposes fixed names starting at the last space before offset.
type fakeAssist struct {
	engine.Assist
	names    []string
	err      error
	maxFixes int
}

func (f *fakeAssist) CodeAssist(_ context.Context, _ engine.Project, _ string, _ int, _ engine.Resource, maxFixes int) ([]engine.Proposal, error) {
	f.maxFixes = maxFixes
	if f.err != nil {
		return nil, f.err
	}
	out := make([]engine.Proposal, len(f.names))
	for i, n := range f.names {
		out[i] = engine.Proposal{Name: n, Rank: i}
	}
	return out, nil
}

func (f *fakeAssist) SortedProposals(p []engine.Proposal) []engine.Proposal { return p }

func (f *fakeAssist) StartingOffset(source string, offset int) int {
	return strings.LastIndexByte(source[:offset], ' ') + 1
}

func setup(t *testing.T, text string, names []string, answers ...string) (*Adapter, *memhost.Host, Target) {
	t.Helper()
	h := memhost.New(nil, memhost.WithAnswers(answers...))
	b := h.NewBuffer("src", text)
	b.SetPoint(len(text))
	a := New(&fakeAssist{names: names}, h, func() int { return 3 }, nil)
	return a, h, Target{Buffer: b}
}

func TestCommonPrefix(t *testing.T) {
	tests := []struct {
		names []string
		want  string
	}{
		{[]string{"foo", "foobar", "foe"}, "fo"},
		{nil, ""},
		{[]string{"x"}, "x"},
		{[]string{"abc", "xyz"}, ""},
		{[]string{"same", "same"}, "same"},
		{[]string{"héllo", "hèllo"}, "h"},
	}
	for _, tt := range tests {
		if got := CommonPrefix(tt.names); got != tt.want {
			t.Errorf("CommonPrefix(%q) = %q, want %q", tt.names, got, tt.want)
		}
	}
}

func TestComputeUsesMaxFixes(t *testing.T) {
	fa := &fakeAssist{names: []string{"b", "a"}}
	a := New(fa, memhost.New(nil), func() int { return 7 }, nil)
	start, names, err := a.Compute(context.Background(), nil, nil, "x ab", 4)
	require.NoError(t, err)
	assert.Equal(t, 2, start)
	assert.Equal(t, []string{"b", "a"}, names)
	assert.Equal(t, 7, fa.maxFixes)
}

func TestLuckyAssist(t *testing.T) {
	a, h, target := setup(t, "x = ", []string{"a", "b", "c"})
	require.NoError(t, a.LuckyAssist(context.Background(), target, 2))
	assert.Equal(t, "x = c", target.Buffer.Text())
	assert.Empty(t, h.Messages())

	a, h, target = setup(t, "x = ", []string{"a", "b", "c"})
	require.NoError(t, a.LuckyAssist(context.Background(), target, 5))
	assert.Equal(t, "x = ", target.Buffer.Text())
	assert.Equal(t, MsgNotEnough, h.LastMessage())
}

func TestLuckyAssistReplacesTypedText(t *testing.T) {
	a, _, target := setup(t, "y = fo", []string{"foo", "format"})
	require.NoError(t, a.LuckyAssist(context.Background(), target, 0))
	assert.Equal(t, "y = foo", target.Buffer.Text())
	assert.Equal(t, len("y = foo"), target.Buffer.Point())
}

func TestCodeAssistPrompts(t *testing.T) {
	a, h, target := setup(t, "y = fo", []string{"foo", "format"}, "format")
	require.NoError(t, a.CodeAssist(context.Background(), target, 0, false))
	assert.Equal(t, "y = format", target.Buffer.Text())
	assert.Equal(t, []string{"Completion for fo: "}, h.Prompts())
}

func TestCodeAssistEmptyAnswerKeepsTyped(t *testing.T) {
	a, _, target := setup(t, "y = fo", []string{"foo"}, "")
	require.NoError(t, a.CodeAssist(context.Background(), target, 0, false))
	assert.Equal(t, "y = fo", target.Buffer.Text())
}

func TestCodeAssistCountInsertsCommonPrefix(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		names   []string
		count   int
		want    string
		message string
	}{
		{"first only", "y = fo", []string{"format", "formal", "fork", "fo"}, 1, "y = format", ""},
		{"first two", "y = fo", []string{"format", "formal", "fork", "fo"}, 2, "y = forma", ""},
		{"first three", "y = fo", []string{"format", "formal", "fork", "fo"}, 3, "y = for", ""},
		{"zero means all", "y = fo", []string{"format", "formal", "fork", "fo"}, 0, "y = fo", ""},
		{"past the end means all", "y = fo", []string{"format", "formal", "fork", "fo"}, 9, "y = fo", ""},
		{"shorter than typed", "y = fox", []string{"foo", "fob"}, 2, "y = fox", MsgNoCommon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, h, target := setup(t, tt.source, tt.names)
			if err := a.CodeAssist(context.Background(), target, tt.count, true); err != nil {
				t.Fatalf("CodeAssist: %v", err)
			}
			if got := target.Buffer.Text(); got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
			if got := h.LastMessage(); got != tt.message {
				t.Errorf("message = %q, want %q", got, tt.message)
			}
			if len(h.Prompts()) != 0 {
				t.Errorf("unexpected prompts %v", h.Prompts())
			}
		})
	}
}

func TestNoProposals(t *testing.T) {
	a, h, target := setup(t, "zz", nil)
	require.NoError(t, a.CodeAssist(context.Background(), target, 0, false))
	assert.Equal(t, MsgNoProposals, h.LastMessage())
	assert.Empty(t, h.Prompts())
	assert.Equal(t, "zz", target.Buffer.Text())

	require.NoError(t, a.LuckyAssist(context.Background(), target, 0))
	assert.Equal(t, "zz", target.Buffer.Text())
}

func TestEngineErrorLeavesBuffer(t *testing.T) {
	h := memhost.New(nil)
	b := h.NewBuffer("src", "(((")
	b.SetPoint(3)
	a := New(&fakeAssist{err: engine.ErrSyntax}, h, nil, nil)
	err := a.CodeAssist(context.Background(), Target{Buffer: b}, 0, false)
	assert.ErrorIs(t, err, engine.ErrSyntax)
	assert.Equal(t, "(((", b.Text())
}

func TestWithLocalEngine(t *testing.T) {
	root := t.TempDir()
	eng := local.New()
	p, err := eng.Open(root)
	require.NoError(t, err)
	defer p.Close()
	r, err := p.File("m.py")
	require.NoError(t, err)

	source := "def value():\n    pass\n\nval"
	a := New(eng, memhost.New(nil), nil, nil)
	start, names, err := a.Compute(context.Background(), p, r, source, len(source))
	require.NoError(t, err)
	assert.Equal(t, len(source)-3, start)
	assert.Contains(t, names, "value")
}
