package local

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/ropestorm/internal/engine"
)

// Proposal kinds and their ranks.
const (
	KindLocal   = "local"
	KindGlobal  = "global"
	KindModule  = "module"
	KindKeyword = "keyword"
)

var kindRank = map[string]int{
	KindLocal:   0,
	KindGlobal:  1,
	KindModule:  1,
	KindKeyword: 2,
}

// definitions returns the identifiers defined in src: names following
// "def" or "class", and names assigned at the start of a line.
func definitions(src string, ids []ident) []ident {
	var defs []ident
	var prev *ident
	for i := range ids {
		id := ids[i]
		if id.Where != inCode {
			continue
		}
		switch {
		case prev != nil && (prev.Name == "def" || prev.Name == "class") &&
			!strings.Contains(src[prev.End:id.Start], "\n"):
			defs = append(defs, id)
		case isAssignment(src, id):
			defs = append(defs, id)
		}
		prev = &ids[i]
	}
	return defs
}

func isAssignment(src string, id ident) bool {
	if isKeyword(id.Name) {
		return false
	}
	start, _ := lineBounds(src, id.Start)
	if strings.TrimSpace(src[start:id.Start]) != "" {
		return false
	}
	rest := strings.TrimLeft(src[id.End:], " \t")
	return strings.HasPrefix(rest, "=") && !strings.HasPrefix(rest, "==")
}

func findDefinition(src string, ids []ident, name string) (ident, bool) {
	for _, d := range definitions(src, ids) {
		if d.Name == name {
			return d, true
		}
	}
	return ident{}, false
}

// CodeAssist proposes completions for the identifier ending at offset.
// Source needing more than maxFixes bracket repairs is rejected with
// engine.ErrSyntax; a negative maxFixes disables the check.
func (e *Engine) CodeAssist(ctx context.Context, p engine.Project, source string, offset int, r engine.Resource, maxFixes int) ([]engine.Proposal, error) {
	lp, err := e.local(p)
	if err != nil {
		return nil, err
	}
	offset = clamp(offset, len(source))
	if maxFixes >= 0 {
		if n := unbalanced(source, offset); n > maxFixes {
			return nil, fmt.Errorf("%w: %d unbalanced brackets", engine.ErrSyntax, n)
		}
	}
	start := startingOffset(source, offset)
	prefix := source[start:offset]

	var out []engine.Proposal
	seen := make(map[string]bool)
	add := func(name, kind string) {
		if seen[name] || name == prefix || !strings.HasPrefix(name, prefix) {
			return
		}
		seen[name] = true
		out = append(out, engine.Proposal{Name: name, Kind: kind, Rank: kindRank[kind]})
	}

	for _, id := range scan(source) {
		if id.Where == inCode && id.Start != start && !isKeyword(id.Name) {
			add(id.Name, KindLocal)
		}
	}

	files, err := lp.Files()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if engine.SameResource(f, r) {
			continue
		}
		content, ids, err := lp.identsOf(f)
		if err != nil {
			continue
		}
		for _, d := range definitions(content, ids) {
			if !strings.HasPrefix(d.Name, "_") {
				add(d.Name, KindGlobal)
			}
		}
		add(moduleName(f.Path()), KindModule)
	}

	for _, k := range keywords {
		add(k, KindKeyword)
	}
	return out, nil
}

// SortedProposals orders proposals by rank, then public before
// underscore names, then alphabetically.
func (e *Engine) SortedProposals(proposals []engine.Proposal) []engine.Proposal {
	out := make([]engine.Proposal, len(proposals))
	copy(out, proposals)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		pa, pb := strings.HasPrefix(a.Name, "_"), strings.HasPrefix(b.Name, "_")
		if pa != pb {
			return pb
		}
		return a.Name < b.Name
	})
	return out
}

// StartingOffset returns where the identifier ending at offset starts.
func (e *Engine) StartingOffset(source string, offset int) int {
	return startingOffset(source, clamp(offset, len(source)))
}

// DefinitionLocation finds where the name at offset is defined, looking in
// source first and then in the project's files. Nothing found yields the
// zero Location.
func (e *Engine) DefinitionLocation(ctx context.Context, p engine.Project, source string, offset int, r engine.Resource) (engine.Location, error) {
	loc, _, _, err := e.definition(ctx, p, source, offset, r)
	return loc, err
}

func (e *Engine) definition(ctx context.Context, p engine.Project, source string, offset int, r engine.Resource) (engine.Location, string, ident, error) {
	lp, err := e.local(p)
	if err != nil {
		return engine.Location{}, "", ident{}, err
	}
	id, ok := identAt(source, clamp(offset, len(source)))
	if !ok {
		return engine.Location{}, "", ident{}, nil
	}
	if d, ok := findDefinition(source, scan(source), id.Name); ok {
		return engine.Location{Resource: r, Line: lineOf(source, d.Start)}, source, d, nil
	}
	files, err := lp.Files()
	if err != nil {
		return engine.Location{}, "", ident{}, err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return engine.Location{}, "", ident{}, err
		}
		if engine.SameResource(f, r) {
			continue
		}
		content, ids, err := lp.identsOf(f)
		if err != nil {
			continue
		}
		if d, ok := findDefinition(content, ids, id.Name); ok {
			return engine.Location{Resource: f, Line: lineOf(content, d.Start)}, content, d, nil
		}
	}
	return engine.Location{}, "", ident{}, nil
}

// Doc returns the definition line of the name at offset followed by its
// docstring, or the comment block above it. It returns "" when there is
// nothing to show.
func (e *Engine) Doc(ctx context.Context, p engine.Project, source string, offset int, r engine.Resource) (string, error) {
	loc, content, def, err := e.definition(ctx, p, source, offset, r)
	if err != nil || !loc.Found() {
		return "", err
	}
	start, end := lineBounds(content, def.Start)
	header := strings.TrimSpace(content[start:end])

	doc := docstringAfter(content, end)
	if doc == "" {
		doc = commentsBefore(content, start)
	}
	if doc == "" {
		return "", nil
	}
	return header + "\n\n" + doc, nil
}

func docstringAfter(src string, lineEnd int) string {
	if lineEnd >= len(src) {
		return ""
	}
	rest := strings.TrimLeft(src[lineEnd:], " \t\r\n")
	for _, q := range []string{`"""`, `'''`} {
		if !strings.HasPrefix(rest, q) {
			continue
		}
		body := rest[len(q):]
		if end := strings.Index(body, q); end >= 0 {
			return dedent(body[:end])
		}
	}
	return ""
}

func commentsBefore(src string, lineStart int) string {
	lines := strings.Split(src[:lineStart], "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	var block []string
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "#") {
			break
		}
		block = append([]string{strings.TrimSpace(strings.TrimPrefix(line, "#"))}, block...)
	}
	return strings.Join(block, "\n")
}

func dedent(text string) string {
	lines := strings.Split(strings.Trim(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func clamp(offset, n int) int {
	if offset < 0 {
		return 0
	}
	if offset > n {
		return n
	}
	return offset
}
