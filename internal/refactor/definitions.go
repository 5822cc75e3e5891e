package refactor

import (
	"context"
	"path"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/ropestorm/internal/dialog"
	"github.com/dshills/ropestorm/internal/engine"
)

// Definition describes one refactoring command.
type Definition struct {
	// Name is the identifier the command name is derived from.
	Name string
	Key  string
	// SaveAll saves every project buffer first; otherwise only the
	// current one.
	SaveAll bool

	fields    func(t Target) []dialog.Field
	calculate func(ctx context.Context, e engine.Refactorer, t Target, values map[string]string) (engine.ChangeSet, error)
}

// Fields returns the dialog fields asked for t.
func (d Definition) Fields(t Target) []dialog.Field {
	if d.fields == nil {
		return nil
	}
	return d.fields(t)
}

// Definitions returns every refactoring, in registration order.
func Definitions() []Definition {
	return []Definition{
		{
			Name:    "rename",
			Key:     "C-c r r",
			SaveAll: true,
			fields: func(t Target) []dialog.Field {
				return []dialog.Field{{Name: "new_name", Data: dialog.Data{
					Prompt:  "New name: ",
					Default: wordAt(t.Buffer.Text(), t.Offset()),
				}}}
			},
			calculate: func(ctx context.Context, e engine.Refactorer, t Target, v map[string]string) (engine.ChangeSet, error) {
				return e.Rename(ctx, t.Project, t.Resource, t.Offset(), v["new_name"])
			},
		},
		{
			Name:    "rename_current_module",
			Key:     "C-c r 1 r",
			SaveAll: true,
			fields: func(t Target) []dialog.Field {
				return []dialog.Field{{Name: "new_name", Data: dialog.Data{
					Prompt:  "New name: ",
					Default: moduleName(t.Resource.Path()),
				}}}
			},
			calculate: func(ctx context.Context, e engine.Refactorer, t Target, v map[string]string) (engine.ChangeSet, error) {
				return e.RenameModule(ctx, t.Project, t.Resource, v["new_name"])
			},
		},
		{
			Name: "extract_variable",
			Key:  "C-c r l",
			fields: func(Target) []dialog.Field {
				return []dialog.Field{{Name: "name", Data: dialog.Data{Prompt: "Extracted variable name: "}}}
			},
			calculate: func(ctx context.Context, e engine.Refactorer, t Target, v map[string]string) (engine.ChangeSet, error) {
				start, end, ok := t.Region()
				if !ok {
					return nil, ErrNoRegion
				}
				return e.ExtractVariable(ctx, t.Project, t.Resource, start, end, v["name"])
			},
		},
		{
			Name:    "inline",
			Key:     "C-c r i",
			SaveAll: true,
			calculate: func(ctx context.Context, e engine.Refactorer, t Target, _ map[string]string) (engine.ChangeSet, error) {
				return e.Inline(ctx, t.Project, t.Resource, t.Offset())
			},
		},
	}
}

func moduleName(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// wordAt returns the identifier around offset, or "".
func wordAt(text string, offset int) string {
	offset = min(max(offset, 0), len(text))
	start := offset
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !isWordRune(r) {
			break
		}
		start -= size
	}
	end := offset
	for end < len(text) {
		r, size := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(r) {
			break
		}
		end += size
	}
	word := text[start:end]
	if word == "" {
		return ""
	}
	if _, err := strconv.Atoi(word[:1]); err == nil {
		return ""
	}
	return word
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
