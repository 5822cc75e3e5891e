package script

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds a single run.
const DefaultTimeout = 30 * time.Second

// removed are base functions that load code from outside the script.
var removed = []string{"dofile", "loadfile", "load", "loadstring", "require", "module"}

// Option configures a State.
type Option func(*State)

// WithTimeout bounds each run; zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *State) { s.timeout = d }
}

// WithLogger sets the logger print writes to.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) { s.log = l }
}

// State is a sandboxed Lua state bound to one session. It is not safe for
// concurrent runs; Run serializes them.
type State struct {
	L       *lua.LState
	api     *api
	log     *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// NewState creates a state with the rope table installed.
func NewState(session Session, opts ...Option) *State {
	s := &State{
		log:     slog.Default(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "script")

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range removed {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("print", L.NewFunction(s.print))

	s.L = L
	s.api = newAPI(session)
	s.api.install(L)
	return s
}

// print logs its arguments.
func (s *State) print(L *lua.LState) int {
	args := make([]any, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		args = append(args, L.ToStringMeta(L.Get(i)).String())
	}
	s.log.Info("print", "text", fmt.Sprint(args...))
	return 0
}

// Run executes code under name. An uncaught error raised by a rope function
// is returned as the Go error behind it, so callers can match it.
func (s *State) Run(ctx context.Context, name, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStateClosed
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()
	s.api.begin(ctx)

	fn, err := s.L.Load(strings.NewReader(code), name)
	if err != nil {
		return &Error{Script: name, Err: err}
	}
	s.L.Push(fn)
	err = s.L.PCall(0, lua.MultRet, nil)
	s.L.SetTop(0)
	failure := s.api.end()
	if err != nil {
		switch {
		case failure != nil:
			err = failure
		case ctx.Err() != nil:
			err = ctx.Err()
		}
		return &Error{Script: name, Err: err}
	}
	s.log.Debug("script finished", "script", name)
	return nil
}

// RunFile executes the file at path.
func (s *State) RunFile(ctx context.Context, path string) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return s.Run(ctx, path, string(code))
}

// Close releases the Lua state.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
