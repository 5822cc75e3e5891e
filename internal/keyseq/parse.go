package keyseq

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var namedKeys = map[string]Chord{
	"RET":      KeyChord(KeyEnter, ModNone),
	"<return>": KeyChord(KeyEnter, ModNone),
	"TAB":      KeyChord(KeyTab, ModNone),
	"<tab>":    KeyChord(KeyTab, ModNone),
	"ESC":      KeyChord(KeyEscape, ModNone),
	"<escape>": KeyChord(KeyEscape, ModNone),
	"DEL":      KeyChord(KeyBackspace, ModNone),
	"SPC":      RuneChord(' ', ModNone),
}

// Parse parses a space separated key specification such as "C-x p o".
func Parse(spec string) (Sequence, error) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return nil, ErrEmptySpec
	}

	seq := make(Sequence, 0, len(fields))
	for _, f := range fields {
		c, err := ParseChord(f)
		if err != nil {
			return nil, err
		}
		seq = append(seq, c)
	}
	return seq, nil
}

// MustParse is like Parse but panics on error. It is meant for the static
// key tables compiled into the binary.
func MustParse(spec string) Sequence {
	seq, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return seq
}

// ParseChord parses a single chord such as "C-x", "M-/" or "RET".
func ParseChord(spec string) (Chord, error) {
	if spec == "" {
		return Chord{}, ErrEmptySpec
	}

	var mods Modifier
	rest := spec
	// A modifier prefix is a letter followed by '-', but only while
	// something remains after it: "C--" is Control-minus.
	for len(rest) > 2 && rest[1] == '-' {
		switch rest[0] {
		case 'C':
			mods |= ModCtrl
		case 'M':
			mods |= ModMeta
		case 'S':
			mods |= ModShift
		default:
			return Chord{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidSpec, rest[:1], spec)
		}
		rest = rest[2:]
	}

	if c, ok := namedKeys[rest]; ok {
		c.Mods |= mods
		return c, nil
	}
	if k, ok := parseFunctionKey(rest); ok {
		return KeyChord(k, mods), nil
	}
	if utf8.RuneCountInString(rest) == 1 {
		r, _ := utf8.DecodeRuneInString(rest)
		return RuneChord(r, mods), nil
	}
	return Chord{}, fmt.Errorf("%w: %q", ErrInvalidSpec, spec)
}

// parseFunctionKey parses "<f1>" through "<f12>".
func parseFunctionKey(s string) (Key, bool) {
	if !strings.HasPrefix(s, "<f") || !strings.HasSuffix(s, ">") {
		return 0, false
	}
	n, err := strconv.Atoi(s[2 : len(s)-1])
	if err != nil || n < 1 || n > 12 {
		return 0, false
	}
	return KeyF1 + Key(n-1), true
}
