package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/host/memhost"
)

func TestCurrentLineAndGotoLine(t *testing.T) {
	h := memhost.New(nil)
	b := h.NewBuffer("scratch", "one\ntwo\nthree")

	host.GotoLine(b, 2)
	assert.Equal(t, 4, b.Point())
	assert.Equal(t, "two", host.CurrentLine(b))

	host.GotoLine(b, 3)
	assert.Equal(t, "three", host.CurrentLine(b))

	host.GotoLine(b, 9)
	assert.Equal(t, 8, b.Point())

	b.SetPoint(0)
	assert.Equal(t, "one", host.CurrentLine(b))
}
