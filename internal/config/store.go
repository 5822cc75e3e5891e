package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Store holds the live options.
type Store struct {
	mu        sync.RWMutex
	opts      Options
	observers []func(Options)
}

// NewStore creates a store holding opts.
func NewStore(opts Options) *Store {
	return &Store{opts: opts.clone()}
}

// Get returns a copy of the current options.
func (s *Store) Get() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts.clone()
}

// Replace swaps in opts after validating them.
func (s *Store) Replace(opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.opts = opts.clone()
	observers := append([]func(Options){}, s.observers...)
	s.mu.Unlock()
	s.notify(observers, opts)
	return nil
}

// OnChange registers fn to run after every successful change.
func (s *Store) OnChange(fn func(Options)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) notify(observers []func(Options), opts Options) {
	for _, fn := range observers {
		fn(opts.clone())
	}
}

// Value returns the named option formatted as text. "keys.<command>" reads
// a key override.
func (s *Store) Value(name string) (string, error) {
	o := s.Get()
	switch name {
	case ConfirmSaving:
		return strconv.FormatBool(o.ConfirmSaving), nil
	case CodeAssistMaxFixes:
		return strconv.Itoa(o.CodeAssistMaxFixes), nil
	case GlobalPrefix:
		return o.GlobalPrefix, nil
	case LogLevel:
		return o.LogLevel, nil
	}
	if cmd, ok := strings.CutPrefix(name, keysTable+"."); ok {
		return o.Keys[cmd], nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownOption, name)
}

// Set parses value into the named option.
func (s *Store) Set(name, value string) error {
	o := s.Get()
	switch name {
	case ConfirmSaving:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &ValueError{Option: name, Value: value, Err: err}
		}
		o.ConfirmSaving = b
	case CodeAssistMaxFixes:
		n, err := strconv.Atoi(value)
		if err != nil {
			return &ValueError{Option: name, Value: value, Err: err}
		}
		o.CodeAssistMaxFixes = n
	case GlobalPrefix:
		o.GlobalPrefix = value
	case LogLevel:
		o.LogLevel = value
	default:
		cmd, ok := strings.CutPrefix(name, keysTable+".")
		if !ok || cmd == "" {
			return fmt.Errorf("%w: %s", ErrUnknownOption, name)
		}
		if o.Keys == nil {
			o.Keys = make(map[string]string)
		}
		o.Keys[cmd] = value
	}
	return s.Replace(o)
}
