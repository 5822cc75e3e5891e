package loader

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Kind is the type an environment variable is parsed as.
type Kind uint8

// Variable kinds.
const (
	String Kind = iota
	Bool
	Int
)

// Var maps one environment variable to an option key.
type Var struct {
	Key  string
	Kind Kind
}

// EnvLoader reads a fixed set of environment variables.
type EnvLoader struct {
	vars   map[string]Var
	lookup func(string) (string, bool)
}

// NewEnvLoader reads vars from the process environment.
func NewEnvLoader(vars map[string]Var) *EnvLoader {
	return &EnvLoader{vars: vars, lookup: os.LookupEnv}
}

// NewEnvLoaderWithLookup reads vars through lookup.
func NewEnvLoaderWithLookup(vars map[string]Var, lookup func(string) (string, bool)) *EnvLoader {
	return &EnvLoader{vars: vars, lookup: lookup}
}

// Load returns the set variables keyed by option key. An empty value
// counts as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	m := make(map[string]any)
	for name, v := range l.vars {
		raw, ok := l.lookup(name)
		if !ok {
			continue
		}
		val, err := parseValue(raw, v.Kind)
		if err != nil {
			return nil, fmt.Errorf("environment variable %s: %w", name, err)
		}
		setByPath(m, v.Key, val)
	}
	return m, nil
}

func parseValue(s string, kind Kind) (any, error) {
	switch kind {
	case Bool:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "t", "true", "yes", "on":
			return true, nil
		case "0", "f", "false", "no", "off":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", s)
	case Int:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return n, nil
	}
	return s, nil
}

// setByPath stores value under a dot separated key, creating tables.
func setByPath(m map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}
