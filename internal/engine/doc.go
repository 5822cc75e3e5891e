// Package engine declares the boundary between the bridge and the
// refactoring/analysis engine.
//
// The bridge never looks inside the engine's model. It opens projects,
// resolves resources, asks for proposals, definitions, documentation and
// occurrences, hands change sets back to the engine to apply, and walks the
// engine's history for undo and redo. Everything it needs to know about a
// change set is which resources it touched and, for renames, where they
// went.
//
// internal/engine/local provides a small file-system implementation used
// by the tests and the command-line tool.
package engine
