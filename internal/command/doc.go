// Package command holds the static command table and dispatches
// invocations.
//
// A Spec names a command, its default key and whether it needs an open
// project. The Registry derives each command's public name ("rope-" plus
// the kebab-cased identifier) and sorts its key into the global table,
// when the key starts with the global prefix, or the local table
// installed into source buffers.
//
// The Dispatcher invokes commands with a prefix argument. Commands that
// need a project trigger the open command first when none is open and
// re-validate an open one. Errors the user can act on become host
// messages; everything else is logged and returned.
package command
