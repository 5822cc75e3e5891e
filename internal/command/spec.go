package command

import (
	"context"
	"strings"
	"unicode"
)

// NamePrefix starts every public command name.
const NamePrefix = "rope-"

// Handler runs a command.
type Handler func(ctx context.Context, prefix Prefix) error

// Spec is one entry of the command table.
type Spec struct {
	// Name is the identifier, e.g. "extract_variable" or "OpenProject".
	Name string
	// Key is the default key in Emacs notation; empty leaves the command
	// unbound.
	Key string
	// NeedsProject makes the dispatcher ensure an open, valid project
	// before the handler runs.
	NeedsProject bool
	Handler      Handler
}

// PublicName is the name the host invokes the command by.
func (s Spec) PublicName() string {
	return PublicName(s.Name)
}

// PublicName returns "rope-" followed by the kebab-cased identifier. Names
// already carrying the prefix are returned unchanged.
func PublicName(identifier string) string {
	if strings.HasPrefix(identifier, NamePrefix) {
		return identifier
	}
	return NamePrefix + Kebab(identifier)
}

// Kebab turns snake_case and CamelCase identifiers into kebab-case.
func Kebab(name string) string {
	runes := []rune(name)
	var b strings.Builder
	dash := func() {
		if s := b.String(); s != "" && !strings.HasSuffix(s, "-") {
			b.WriteByte('-')
		}
	}
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			dash()
		case unicode.IsUpper(r):
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			acronymEnd := i > 0 && unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || acronymEnd {
				dash()
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
