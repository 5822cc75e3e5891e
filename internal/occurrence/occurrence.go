// Package occurrence runs occurrence searches as cancellable tasks and
// presents the result as a navigable listing.
package occurrence

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dshills/ropestorm/internal/engine"
	"github.com/dshills/ropestorm/internal/host"
	"github.com/dshills/ropestorm/internal/keymap"
	"github.com/dshills/ropestorm/internal/keyseq"
	"github.com/dshills/ropestorm/internal/task"
)

// Listing buffer and the commands bound inside it.
const (
	BufferName = "*rope-occurrences*"
	CmdGoto    = "rope-occurrences-goto-occurrence"
	CmdQuit    = "rope-occurrences-quit"
	taskName   = "Find Occurrences"
)

// Editor is the part of the host the runner uses.
type Editor interface {
	host.Buffers
	host.Files
	host.Listings
	host.Reporter
	host.Prompter
}

// Runner finds occurrences and manages the listing.
type Runner struct {
	assist engine.Assist
	editor Editor
	log    *slog.Logger
}

// New creates a runner.
func New(assist engine.Assist, editor Editor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{assist: assist, editor: editor, log: logger.With("component", "occurrence")}
}

// Find searches for occurrences of the name at offset in r. Unsure
// matches are included only when unsure is set.
func (r *Runner) Find(ctx context.Context, p engine.Project, res engine.Resource, offset int, unsure bool) ([]engine.Occurrence, error) {
	occs, err := task.Run(ctx, r.editor, taskName, func(h *task.Handle) ([]engine.Occurrence, error) {
		return r.assist.FindOccurrences(h.Context(), p, res, offset, unsure, h)
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("occurrences found", "resource", res.Path(), "offset", offset, "count", len(occs))
	return occs, nil
}

// Format renders one line per occurrence, marking unsure ones with " ?".
func Format(occs []engine.Occurrence) string {
	var sb strings.Builder
	for _, o := range occs {
		fmt.Fprintf(&sb, "%s : %d", o.Resource.Path(), o.Offset)
		if o.Unsure {
			sb.WriteString(" ?")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Show displays occs in the listing buffer and selects it.
func (r *Runner) Show(occs []engine.Occurrence) host.Buffer {
	b := r.editor.MakeBuffer(BufferName, Format(occs),
		keymap.Binding{Keys: keyseq.MustParse("RET"), Command: CmdGoto},
		keymap.Binding{Keys: keyseq.MustParse("q"), Command: CmdQuit},
	)
	r.editor.SetCurrentBuffer(b)
	return b
}

// GotoOccurrence visits the occurrence on the listing line at point in the
// other window. Lines that do not name an occurrence are ignored.
func (r *Runner) GotoOccurrence(p engine.Project, listing host.Buffer) error {
	path, offset, ok := parseLine(host.CurrentLine(listing))
	if !ok {
		return nil
	}
	res, err := p.Resource(path)
	if err != nil {
		return err
	}
	b, err := r.editor.FindFileOtherWindow(res.RealPath())
	if err != nil {
		return err
	}
	b.SetPoint(offset)
	return nil
}

// Quit dismisses the listing.
func (r *Runner) Quit() {
	r.editor.HideBuffer(BufferName)
}

// parseLine reads a Format line. The path may contain spaces, so the
// offset is taken after the last separator.
func parseLine(line string) (string, int, bool) {
	line = strings.TrimSuffix(line, " ?")
	i := strings.LastIndex(line, " : ")
	if i <= 0 {
		return "", 0, false
	}
	offset, err := strconv.Atoi(line[i+len(" : "):])
	if err != nil {
		return "", 0, false
	}
	return line[:i], offset, true
}
