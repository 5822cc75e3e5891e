package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ropestorm/internal/keyseq"
)

func TestScopeFor(t *testing.T) {
	prefix := keyseq.MustParse("C-x")
	assert.Equal(t, ScopeGlobal, ScopeFor(keyseq.MustParse("C-x p o"), prefix))
	assert.Equal(t, ScopeLocal, ScopeFor(keyseq.MustParse("C-c g"), prefix))
	assert.Equal(t, ScopeLocal, ScopeFor(keyseq.MustParse("M-/"), prefix))
	assert.Equal(t, ScopeLocal, ScopeFor(keyseq.MustParse("C-x p o"), nil))
}

func TestTableBindAndLookup(t *testing.T) {
	table := NewTable("global")
	require.NoError(t, table.Bind(keyseq.MustParse("C-x p o"), "rope-open-project"))
	require.NoError(t, table.Bind(keyseq.MustParse("C-x p k"), "rope-close-project"))

	cmd, ok := table.Lookup(keyseq.MustParse("C-x p o"))
	require.True(t, ok)
	assert.Equal(t, "rope-open-project", cmd)

	_, ok = table.Lookup(keyseq.MustParse("C-x p"))
	assert.False(t, ok)
	assert.True(t, table.IsPrefix(keyseq.MustParse("C-x p")))
	assert.False(t, table.IsPrefix(keyseq.MustParse("C-x p o")))
	assert.Equal(t, 2, table.Len())
}

func TestTableRejectsConflicts(t *testing.T) {
	table := NewTable("local")
	require.NoError(t, table.Bind(keyseq.MustParse("C-c r r"), "rope-rename"))

	// Same binding twice is idempotent.
	require.NoError(t, table.Bind(keyseq.MustParse("C-c r r"), "rope-rename"))
	assert.Equal(t, 1, table.Count("rope-rename"))

	err := table.Bind(keyseq.MustParse("C-c r r"), "rope-inline")
	assert.ErrorIs(t, err, ErrDuplicateBinding)

	err = table.Bind(keyseq.MustParse("C-c r"), "rope-inline")
	assert.ErrorIs(t, err, ErrPrefixConflict)

	err = table.Bind(keyseq.MustParse("C-c r r x"), "rope-inline")
	assert.ErrorIs(t, err, ErrPrefixConflict)
}

func TestTableBindingsSorted(t *testing.T) {
	table := NewTable("local")
	require.NoError(t, table.Bind(keyseq.MustParse("M-/"), "rope-code-assist"))
	require.NoError(t, table.Bind(keyseq.MustParse("C-c g"), "rope-goto-definition"))

	bindings := table.Bindings()
	require.Len(t, bindings, 2)
	assert.Equal(t, "C-c g", bindings[0].Keys.String())
	assert.Equal(t, "M-/", bindings[1].Keys.String())
}
