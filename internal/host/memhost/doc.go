// Package memhost is an in-memory editor host.
//
// Buffers live in memory and are written to disk on Save. Windows are
// reduced to two slots, the current buffer and the buffer shown in the
// other window. Prompts are answered from a queue of scripted answers and,
// when that runs dry, from an optional console. It backs the bridge's
// tests and the ropestorm command line.
package memhost
