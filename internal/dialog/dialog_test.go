package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/host/memhost"
)

var (
	nameField   = Field{Name: "name", Data: Data{Prompt: "Module name: "}}
	folderField = Field{Name: "sourcefolder", Data: Data{Prompt: "Sourcefolder Folder: ", Default: "/proj", Kind: KindDirectory}}
	actions     = []string{"perform", "cancel"}
)

func TestAskDefault(t *testing.T) {
	h := memhost.New(nil, memhost.WithAnswers("", "given"))
	d := Data{Prompt: "Folder: ", Default: "/root"}

	v, err := Ask(h, d)
	require.NoError(t, err)
	assert.Equal(t, "/root", v)
	v, err = Ask(h, d)
	require.NoError(t, err)
	assert.Equal(t, "given", v)
	assert.Equal(t, []string{"Folder: [/root] ", "Folder: [/root] "}, h.Prompts())
}

func TestShowPerformWithDefaults(t *testing.T) {
	h := memhost.New(nil, memhost.WithAnswers("mod", ""))
	action, values, err := Show(h, Dialog{Actions: actions, Required: []Field{nameField}, Optional: []Field{folderField}})
	require.NoError(t, err)
	assert.Equal(t, "perform", action)
	assert.Equal(t, map[string]string{"name": "mod", "sourcefolder": "/proj"}, values)
	assert.Equal(t, []string{"Module name: ", "Choose what to do: [perform] "}, h.Prompts())
}

func TestShowVisitsOptional(t *testing.T) {
	h := memhost.New(nil, memhost.WithAnswers("mod", "sourcefolder", "/proj/src", "bogus", "perform"))
	action, values, err := Show(h, Dialog{Actions: actions, Required: []Field{nameField}, Optional: []Field{folderField}})
	require.NoError(t, err)
	assert.Equal(t, "perform", action)
	assert.Equal(t, "/proj/src", values["sourcefolder"])
	assert.Contains(t, h.Messages(), "Unknown action: bogus")
}

func TestShowCancelAction(t *testing.T) {
	h := memhost.New(nil, memhost.WithAnswers("mod", "cancel"))
	action, _, err := Show(h, Dialog{Actions: actions, Required: []Field{nameField}})
	require.NoError(t, err)
	assert.Equal(t, "cancel", action)
}

func TestShowRequired(t *testing.T) {
	h := memhost.New(nil, memhost.WithAnswers(""))
	_, _, err := Show(h, Dialog{Actions: actions, Required: []Field{nameField}})
	assert.ErrorIs(t, err, ErrRequired)
	assert.Equal(t, "name is required", h.LastMessage())
}

func TestShowQuit(t *testing.T) {
	h := memhost.New(nil, memhost.WithAnswers("mod", memhost.Cancel))
	_, _, err := Show(h, Dialog{Actions: actions, Required: []Field{nameField}})
	assert.ErrorIs(t, err, host.ErrCancelled)
}

func TestShowDeferredRequiresFieldsBeforeAction(t *testing.T) {
	h := memhost.New(nil, memhost.WithAnswers("perform", "name", "mod", "perform"))
	action, values, err := Show(h, Dialog{Actions: actions, Required: []Field{nameField}, Deferred: true})
	require.NoError(t, err)
	assert.Equal(t, "perform", action)
	assert.Equal(t, "mod", values["name"])
	assert.Equal(t, []string{"name is required"}, h.Messages())
}

func TestShowDeferredCancelWithoutFields(t *testing.T) {
	h := memhost.New(nil, memhost.WithAnswers("cancel"))
	action, _, err := Show(h, Dialog{Actions: actions, Required: []Field{nameField}, Deferred: true})
	require.NoError(t, err)
	assert.Equal(t, "cancel", action)
}
