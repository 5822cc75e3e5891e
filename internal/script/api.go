package script

import (
	"context"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/ropestorm/internal/command"
	"github.com/dshills/ropestorm/internal/config"
	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/project"
)

// Session is the bridge surface scripts drive.
type Session interface {
	Invoke(ctx context.Context, name string, prefix command.Prefix) error
	Commands() []command.Entry
	Options() *config.Store
	Projects() *project.Lifecycle
	Host() host.Host
}

// api implements the rope table. failure holds the Go error behind the
// first Lua error a rope function raised during the current run.
type api struct {
	session Session
	ctx     context.Context
	failure error
}

func newAPI(session Session) *api {
	return &api{session: session, ctx: context.Background()}
}

func (a *api) install(L *lua.LState) {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"call":       a.call,
		"commands":   a.commands,
		"option":     a.option,
		"set_option": a.setOption,
		"message":    a.message,
		"visit":      a.visit,
		"goto_char":  a.gotoChar,
		"point":      a.point,
		"text":       a.text,
		"file":       a.file,
	})
	L.SetGlobal("rope", mod)
}

func (a *api) begin(ctx context.Context) {
	a.ctx = ctx
	a.failure = nil
}

func (a *api) end() error {
	err := a.failure
	a.ctx = context.Background()
	a.failure = nil
	return err
}

// raise records err and raises it in Lua.
func (a *api) raise(L *lua.LState, err error) int {
	if a.failure == nil {
		a.failure = err
	}
	L.RaiseError("%s", err.Error())
	return 0
}

// call(name [, prefix])
func (a *api) call(L *lua.LState) int {
	name := command.PublicName(L.CheckString(1))
	prefix := command.NoPrefix()
	switch v := L.Get(2).(type) {
	case lua.LNumber:
		prefix = command.Numeric(int(v))
	case lua.LBool:
		if v {
			prefix = command.Universal(1)
		}
	}
	if err := a.session.Invoke(a.ctx, name, prefix); err != nil {
		return a.raise(L, err)
	}
	return 0
}

// commands() -> {{name=, key=, scope=}, ...}
func (a *api) commands(L *lua.LState) int {
	list := L.NewTable()
	for _, e := range a.session.Commands() {
		entry := L.NewTable()
		entry.RawSetString("name", lua.LString(e.Name))
		if e.Bound() {
			entry.RawSetString("key", lua.LString(e.Keys.String()))
			entry.RawSetString("scope", lua.LString(e.Scope.String()))
		}
		list.Append(entry)
	}
	L.Push(list)
	return 1
}

func (a *api) option(L *lua.LState) int {
	v, err := a.session.Options().Value(L.CheckString(1))
	if err != nil {
		return a.raise(L, err)
	}
	L.Push(lua.LString(v))
	return 1
}

func (a *api) setOption(L *lua.LState) int {
	name := L.CheckString(1)
	value := L.CheckAny(2)
	if err := a.session.Options().Set(name, value.String()); err != nil {
		return a.raise(L, err)
	}
	return 0
}

func (a *api) message(L *lua.LState) int {
	a.session.Host().Message(L.CheckString(1))
	return 0
}

// visit(path) visits path; relative paths resolve against the project
// root.
func (a *api) visit(L *lua.LState) int {
	path := L.CheckString(1)
	if !filepath.IsAbs(path) {
		p := a.session.Projects().Project()
		if p == nil {
			return a.raise(L, ErrNoProject)
		}
		path = filepath.Join(p.Root(), filepath.FromSlash(path))
	}
	if _, err := a.session.Host().FindFile(path); err != nil {
		return a.raise(L, err)
	}
	return 0
}

func (a *api) gotoChar(L *lua.LState) int {
	a.session.Host().CurrentBuffer().SetPoint(L.CheckInt(1))
	return 0
}

func (a *api) point(L *lua.LState) int {
	L.Push(lua.LNumber(a.session.Host().CurrentBuffer().Point()))
	return 1
}

func (a *api) text(L *lua.LState) int {
	L.Push(lua.LString(a.session.Host().CurrentBuffer().Text()))
	return 1
}

func (a *api) file(L *lua.LState) int {
	L.Push(lua.LString(a.session.Host().CurrentBuffer().FileName()))
	return 1
}
