// Package script runs Lua scripts against a bridge session.
//
// Scripts run in a sandboxed gopher-lua state holding only the base,
// table, string and math libraries. The global table rope exposes the
// command surface:
//
//	rope.call(name [, prefix])   -- run a command; prefix is a number or true
//	rope.commands()              -- list of {name, key, scope}
//	rope.option(name)            -- option value as text
//	rope.set_option(name, value) -- parse and set an option
//	rope.message(text)           -- show text in the host
//	rope.visit(path)             -- visit a file, relative to the project root
//	rope.goto_char(offset)       -- move point in the current buffer
//	rope.point(), rope.text(), rope.file()
//
// A script error is returned as an *Error naming the script.
package script
