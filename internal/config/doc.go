// Package config holds the user options of the bridge.
//
// Options are layered: built-in defaults, then the TOML file
// (~/.config/ropestorm/config.toml by default), then ROPESTORM_*
// environment variables. A Store keeps the live values and is safe for
// concurrent use, so options can be changed at run time from scripts or
// the command line.
package config
