package keyseq

import (
	"fmt"
	"strings"
)

// Modifier represents modifier keys held with a chord.
type Modifier uint8

const (
	// ModNone indicates no modifiers.
	ModNone Modifier = 0

	// ModCtrl indicates the Control key.
	ModCtrl Modifier = 1 << iota

	// ModMeta indicates the Meta key (Alt on most terminals).
	ModMeta

	// ModShift indicates the Shift key. Only meaningful for named keys;
	// shifted characters are carried by the rune itself.
	ModShift
)

// Has returns true if m contains the specified modifier.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// Key identifies a named (non-character) key.
type Key uint8

const (
	// KeyRune is a character key; the character is in Chord.Rune.
	KeyRune Key = iota
	KeyEnter
	KeyTab
	KeyEscape
	KeyBackspace
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

var keyNames = map[Key]string{
	KeyEnter:     "RET",
	KeyTab:       "TAB",
	KeyEscape:    "ESC",
	KeyBackspace: "DEL",
}

// IsFunctionKey returns true for F1 through F12.
func (k Key) IsFunctionKey() bool {
	return k >= KeyF1 && k <= KeyF12
}

// String returns the Emacs name of the key.
func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	if k.IsFunctionKey() {
		return fmt.Sprintf("<f%d>", int(k-KeyF1)+1)
	}
	if k == KeyRune {
		return "Rune"
	}
	return fmt.Sprintf("Key(%d)", k)
}

// Chord is a single key press with its modifiers.
type Chord struct {
	Key  Key
	Rune rune
	Mods Modifier
}

// RuneChord creates a chord for a character key.
func RuneChord(r rune, mods Modifier) Chord {
	return Chord{Key: KeyRune, Rune: r, Mods: mods}
}

// KeyChord creates a chord for a named key.
func KeyChord(k Key, mods Modifier) Chord {
	return Chord{Key: k, Mods: mods}
}

// String returns the canonical Emacs notation, e.g. "C-M-x" or "RET".
func (c Chord) String() string {
	var sb strings.Builder
	if c.Mods.Has(ModCtrl) {
		sb.WriteString("C-")
	}
	if c.Mods.Has(ModMeta) {
		sb.WriteString("M-")
	}
	if c.Mods.Has(ModShift) {
		sb.WriteString("S-")
	}
	if c.Key == KeyRune {
		if c.Rune == ' ' {
			sb.WriteString("SPC")
		} else {
			sb.WriteRune(c.Rune)
		}
	} else {
		sb.WriteString(c.Key.String())
	}
	return sb.String()
}

// Sequence is an ordered series of chords bound to one command.
type Sequence []Chord

// String returns the chords joined by spaces, e.g. "C-x p o".
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// Equal returns true if both sequences hold the same chords.
func (s Sequence) Equal(other Sequence) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix returns true if s starts with prefix. An empty prefix matches
// every sequence.
func (s Sequence) HasPrefix(prefix Sequence) bool {
	if len(prefix) > len(s) {
		return false
	}
	return s[:len(prefix)].Equal(prefix)
}
