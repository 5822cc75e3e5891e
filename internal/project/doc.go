// Package project owns the lifecycle of the single open engine project:
// opening, closing, validating before each command, resolving editor file
// names to resources, and keeping the engine informed of changes made
// outside the editor.
package project
