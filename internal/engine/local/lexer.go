package local

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// region says where an identifier was found.
type region uint8

const (
	inCode region = iota
	inString
	inComment
)

// ident is an identifier occurrence in a source text.
type ident struct {
	Start, End int
	Name       string
	Where      region
}

var keywords = []string{
	"False", "None", "True", "and", "as", "assert", "async", "await",
	"break", "class", "continue", "def", "del", "elif", "else", "except",
	"finally", "for", "from", "global", "if", "import", "in", "is",
	"lambda", "nonlocal", "not", "or", "pass", "raise", "return", "try",
	"while", "with", "yield",
}

func isKeyword(name string) bool {
	for _, k := range keywords {
		if k == name {
			return true
		}
	}
	return false
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// IsIdentifier reports whether s is a valid, non-keyword identifier.
func IsIdentifier(s string) bool {
	if s == "" || isKeyword(s) {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStart(r) {
			return false
		}
		if !isIdentPart(r) {
			return false
		}
	}
	return true
}

// scan returns every identifier in src with its lexical context. Comments
// run from '#' to the end of the line; strings use single, double or
// triple quotes with backslash escapes.
func scan(src string) []ident {
	var out []ident
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case r == '#':
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				end = len(src) - i
			}
			out = append(out, words(src, i, i+end, inComment)...)
			i += end
		case r == '\'' || r == '"':
			end := stringEnd(src, i)
			out = append(out, words(src, i, end, inString)...)
			i = end
		case isIdentStart(r):
			j := i + size
			for j < len(src) {
				r2, s2 := utf8.DecodeRuneInString(src[j:])
				if !isIdentPart(r2) {
					break
				}
				j += s2
			}
			out = append(out, ident{Start: i, End: j, Name: src[i:j], Where: inCode})
			i = j
		default:
			i += size
		}
	}
	return out
}

// stringEnd returns the offset just past the string literal starting at i.
// An unterminated literal runs to the end of its line, or of the text for
// triple quotes.
func stringEnd(src string, i int) int {
	q := src[i]
	if strings.HasPrefix(src[i:], strings.Repeat(string(q), 3)) {
		end := strings.Index(src[i+3:], strings.Repeat(string(q), 3))
		if end < 0 {
			return len(src)
		}
		return i + 3 + end + 3
	}
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j + 1
		case '\n':
			return j
		}
	}
	return len(src)
}

// words extracts identifier-shaped words from src[start:end].
func words(src string, start, end int, where region) []ident {
	var out []ident
	i := start
	for i < end {
		r, size := utf8.DecodeRuneInString(src[i:])
		if !isIdentStart(r) {
			i += size
			continue
		}
		j := i + size
		for j < end {
			r2, s2 := utf8.DecodeRuneInString(src[j:])
			if !isIdentPart(r2) {
				break
			}
			j += s2
		}
		out = append(out, ident{Start: i, End: j, Name: src[i:j], Where: where})
		i = j
	}
	return out
}

// identAt returns the code identifier containing offset, or ending exactly
// at it (cursor just after a name).
func identAt(src string, offset int) (ident, bool) {
	for _, id := range scan(src) {
		if id.Where != inCode {
			continue
		}
		if offset >= id.Start && offset <= id.End {
			return id, true
		}
		if id.Start > offset {
			break
		}
	}
	return ident{}, false
}

// startingOffset walks back from offset over identifier characters.
func startingOffset(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	for offset > 0 {
		r, size := utf8.DecodeLastRuneInString(src[:offset])
		if !isIdentPart(r) {
			break
		}
		offset -= size
	}
	return offset
}

// unbalanced counts the bracket repairs src[:offset] would need: unclosed
// openers plus stray closers, ignoring strings and comments.
func unbalanced(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	text := src[:offset]
	var stack []byte
	stray := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '#':
			nl := strings.IndexByte(text[i:], '\n')
			if nl < 0 {
				i = len(text)
			} else {
				i += nl
			}
		case '\'', '"':
			i = stringEnd(text, i) - 1
		case '(', '[', '{':
			stack = append(stack, c)
		case ')', ']', '}':
			if len(stack) > 0 && stack[len(stack)-1] == opener(c) {
				stack = stack[:len(stack)-1]
			} else {
				stray++
			}
		}
	}
	return len(stack) + stray
}

func opener(c byte) byte {
	switch c {
	case ')':
		return '('
	case ']':
		return '['
	}
	return '{'
}

// lineOf returns the 1-based line number of offset.
func lineOf(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return strings.Count(src[:offset], "\n") + 1
}

// lineBounds returns the start and end (exclusive of the newline) of the
// line containing offset.
func lineBounds(src string, offset int) (int, int) {
	start := strings.LastIndexByte(src[:offset], '\n') + 1
	end := strings.IndexByte(src[offset:], '\n')
	if end < 0 {
		return start, len(src)
	}
	return start, offset + end
}

func indentation(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
