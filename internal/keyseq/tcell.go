package keyseq

import (
	"unicode"

	"github.com/gdamore/tcell/v2"
)

// EventKey converts the chord to the tcell event a terminal host would
// receive for it.
func (c Chord) EventKey() *tcell.EventKey {
	var mods tcell.ModMask
	if c.Mods.Has(ModMeta) {
		mods |= tcell.ModAlt
	}
	if c.Mods.Has(ModShift) {
		mods |= tcell.ModShift
	}

	switch c.Key {
	case KeyEnter:
		return tcell.NewEventKey(tcell.KeyEnter, 0, mods|ctrlMask(c))
	case KeyTab:
		return tcell.NewEventKey(tcell.KeyTab, 0, mods|ctrlMask(c))
	case KeyEscape:
		return tcell.NewEventKey(tcell.KeyEscape, 0, mods|ctrlMask(c))
	case KeyBackspace:
		return tcell.NewEventKey(tcell.KeyBackspace2, 0, mods|ctrlMask(c))
	}
	if c.Key.IsFunctionKey() {
		return tcell.NewEventKey(tcell.KeyF1+tcell.Key(c.Key-KeyF1), 0, mods|ctrlMask(c))
	}

	if c.Mods.Has(ModCtrl) {
		r := unicode.ToLower(c.Rune)
		if r >= 'a' && r <= 'z' {
			return tcell.NewEventKey(tcell.KeyCtrlA+tcell.Key(r-'a'), 0, mods|tcell.ModCtrl)
		}
		if r == ' ' {
			return tcell.NewEventKey(tcell.KeyCtrlSpace, 0, mods|tcell.ModCtrl)
		}
	}
	return tcell.NewEventKey(tcell.KeyRune, c.Rune, mods|ctrlMask(c))
}

func ctrlMask(c Chord) tcell.ModMask {
	if c.Mods.Has(ModCtrl) {
		return tcell.ModCtrl
	}
	return tcell.ModNone
}

// EventKeys converts every chord of the sequence.
func (s Sequence) EventKeys() []*tcell.EventKey {
	out := make([]*tcell.EventKey, len(s))
	for i, c := range s {
		out[i] = c.EventKey()
	}
	return out
}

// FromEventKey converts a tcell key event back into a chord. It returns
// false for keys the command tables never bind (arrows, paging, ...).
func FromEventKey(ev *tcell.EventKey) (Chord, bool) {
	var mods Modifier
	if ev.Modifiers()&tcell.ModAlt != 0 {
		mods |= ModMeta
	}
	if ev.Modifiers()&tcell.ModShift != 0 {
		mods |= ModShift
	}
	if ev.Modifiers()&tcell.ModCtrl != 0 {
		mods |= ModCtrl
	}

	k := ev.Key()
	switch {
	case k == tcell.KeyRune:
		return RuneChord(ev.Rune(), mods&^ModShift), true
	case k == tcell.KeyEnter:
		return KeyChord(KeyEnter, mods), true
	case k == tcell.KeyTab:
		return KeyChord(KeyTab, mods), true
	case k == tcell.KeyEscape:
		return KeyChord(KeyEscape, mods), true
	case k == tcell.KeyBackspace2 || k == tcell.KeyBackspace:
		return KeyChord(KeyBackspace, mods), true
	case k >= tcell.KeyF1 && k <= tcell.KeyF12:
		return KeyChord(KeyF1+Key(k-tcell.KeyF1), mods), true
	case k == tcell.KeyCtrlSpace:
		return RuneChord(' ', mods|ModCtrl), true
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		return RuneChord('a'+rune(k-tcell.KeyCtrlA), mods|ModCtrl), true
	}
	return Chord{}, false
}
