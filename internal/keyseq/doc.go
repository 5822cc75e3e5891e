// Package keyseq parses human-readable key chords and encodes them for the
// editor host.
//
// Key specifications use the Emacs notation the command table is written in:
//
//   - Plain keys: "p", "q", "/"
//   - Modifiers: "C-x" (Control), "M-/" (Meta), "S-<f5>" (Shift), "C-M-x"
//   - Named keys: "RET", "TAB", "SPC", "ESC", "DEL", "<f1>" … "<f12>"
//   - Sequences: space separated chords, "C-x p o", "C-c C-d"
//
// A parsed Sequence can be rendered back to its canonical string, encoded
// as the classic terminal byte string (Control folds into the C0 range and
// Meta sets the eighth bit), or converted to tcell key events for hosts
// built on tcell.
package keyseq
