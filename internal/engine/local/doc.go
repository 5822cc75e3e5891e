// Package local is a small file-system backed implementation of the
// engine boundary.
//
// It understands source code at the identifier level only: proposals,
// definitions and occurrences come from a lexer that tells code apart from
// strings and comments, and refactorings rewrite identifiers in code. That
// is enough to drive every bridge operation against real files: change sets
// with edits, creations, removals and moves, an undo/redo history whose
// inverses restore files byte for byte, and a cancellable occurrence scan
// that reports progress.
//
// Defaults follow Python conventions ("#" comments, quoted strings,
// "__init__" package files), configurable per project in
// .ropeproject/config.yaml.
package local
