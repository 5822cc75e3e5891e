// Package completion adapts engine code assist to editor completion
// commands.
package completion

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/dshills/ropestorm/internal/engine"
	"github.com/dshills/ropestorm/internal/host"
)

// Messages shown to the user.
const (
	MsgNoProposals = "No proposals"
	MsgNotEnough   = "Not enough proposals!"
	MsgNoCommon    = "No common prefix"
)

// Target is the buffer position being completed.
type Target struct {
	Project  engine.Project
	Resource engine.Resource
	Buffer   host.Buffer
}

// Adapter computes and inserts completions.
type Adapter struct {
	assist   engine.Assist
	ui       host.Prompter
	maxFixes func() int
	log      *slog.Logger
}

// New creates an adapter. maxFixes is read on every computation so option
// changes apply immediately.
func New(assist engine.Assist, ui host.Prompter, maxFixes func() int, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if maxFixes == nil {
		maxFixes = func() int { return 1 }
	}
	return &Adapter{assist: assist, ui: ui, maxFixes: maxFixes, log: logger.With("component", "completion")}
}

// Compute returns where the completed identifier starts and the proposal
// names in rank order.
func (a *Adapter) Compute(ctx context.Context, p engine.Project, r engine.Resource, source string, offset int) (int, []string, error) {
	proposals, err := a.assist.CodeAssist(ctx, p, source, offset, r, a.maxFixes())
	if err != nil {
		return 0, nil, err
	}
	names := engine.Names(a.assist.SortedProposals(proposals))
	start := a.assist.StartingOffset(source, offset)
	a.log.Debug("proposals computed", "offset", offset, "start", start, "count", len(names))
	return start, names, nil
}

func (a *Adapter) compute(ctx context.Context, t Target) (source string, start, point int, names []string, err error) {
	source = t.Buffer.Text()
	point = min(max(t.Buffer.Point(), 0), len(source))
	start, names, err = a.Compute(ctx, t.Project, t.Resource, source, point)
	if err != nil {
		return "", 0, 0, nil, err
	}
	start = min(max(start, 0), point)
	return source, start, point, names, nil
}

// CodeAssist completes at point. Without a count the user picks a name;
// with a count the common prefix of the first count names is inserted
// instead, where 0 or a count past the end means every name.
func (a *Adapter) CodeAssist(ctx context.Context, t Target, count int, counted bool) error {
	source, start, point, names, err := a.compute(ctx, t)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		a.ui.Message(MsgNoProposals)
		return nil
	}
	typed := source[start:point]

	if counted {
		if count <= 0 || count > len(names) {
			count = len(names)
		}
		common := CommonPrefix(names[:count])
		if len(common) < len(typed) {
			a.ui.Message(MsgNoCommon)
			return nil
		}
		host.Replace(t.Buffer, start, point, common)
		return nil
	}

	result, err := a.ui.AskChoice("Completion for "+typed+": ", names, typed)
	if err != nil {
		return err
	}
	host.Replace(t.Buffer, start, point, result)
	return nil
}

// LuckyAssist inserts the proposal at index, counting from 0.
func (a *Adapter) LuckyAssist(ctx context.Context, t Target, index int) error {
	_, start, point, names, err := a.compute(ctx, t)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		a.ui.Message(MsgNoProposals)
		return nil
	}
	if index < 0 || index >= len(names) {
		a.ui.Message(MsgNotEnough)
		return nil
	}
	host.Replace(t.Buffer, start, point, names[index])
	return nil
}

// CommonPrefix returns the longest prefix every name shares.
func CommonPrefix(names []string) string {
	if len(names) == 0 {
		return ""
	}
	prefix := names[0]
	for _, name := range names[1:] {
		n := 0
		for n < len(prefix) && n < len(name) && prefix[n] == name[n] {
			n++
		}
		prefix = prefix[:n]
	}
	for !utf8.ValidString(prefix) {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}
