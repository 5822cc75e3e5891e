package command

import "strconv"

// PrefixKind is the form of a prefix argument.
type PrefixKind uint8

const (
	PrefixNone PrefixKind = iota
	PrefixUniversal
	PrefixNumeric
)

// Prefix is the argument typed before a command: nothing, C-u pressed
// one or more times, or an explicit number.
type Prefix struct {
	kind PrefixKind
	n    int
}

// NoPrefix is the absent prefix.
func NoPrefix() Prefix { return Prefix{} }

// Universal is C-u pressed presses times.
func Universal(presses int) Prefix {
	return Prefix{kind: PrefixUniversal, n: max(presses, 1)}
}

// Numeric is an explicit numeric prefix.
func Numeric(n int) Prefix { return Prefix{kind: PrefixNumeric, n: n} }

// Kind returns the prefix form.
func (p Prefix) Kind() PrefixKind { return p.kind }

// IsSet reports whether any prefix was given.
func (p Prefix) IsSet() bool { return p.kind != PrefixNone }

// Value is the numeric value: 1 when absent, 4 per C-u press, or the
// number given.
func (p Prefix) Value() int {
	switch p.kind {
	case PrefixUniversal:
		v := 1
		for range p.n {
			v *= 4
		}
		return v
	case PrefixNumeric:
		return p.n
	}
	return 1
}

func (p Prefix) String() string {
	switch p.kind {
	case PrefixUniversal:
		return "C-u(" + strconv.Itoa(p.Value()) + ")"
	case PrefixNumeric:
		return strconv.Itoa(p.n)
	}
	return "none"
}
