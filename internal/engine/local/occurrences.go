package local

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/ropestorm/internal/engine"
)

// FindOccurrences scans every project file for the name at offset in r.
// Matches in code are sure; matches inside strings and comments are only
// reported, as unsure, when unsure is set. Results are ordered by path then
// offset. Progress is reported once per scanned file and the scan stops
// when the handle's context is cancelled.
func (e *Engine) FindOccurrences(ctx context.Context, p engine.Project, r engine.Resource, offset int, unsure bool, h engine.TaskHandle) ([]engine.Occurrence, error) {
	lp, err := e.local(p)
	if err != nil {
		return nil, err
	}
	if h != nil {
		ctx = h.Context()
	}
	source, err := r.Read()
	if err != nil {
		return nil, err
	}
	target, ok := identAt(source, clamp(offset, len(source)))
	if !ok {
		return nil, engine.ErrNoTarget
	}

	files, err := lp.Files()
	if err != nil {
		return nil, err
	}
	if !containsResource(files, r) {
		files = append(files, r)
	}

	total := len(files)
	report := func(done int) {
		if h != nil {
			h.Report(done, total)
		}
	}
	report(0)

	found := make([][]engine.Occurrence, len(files))
	var (
		mu   sync.Mutex
		done int
	)
	step := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		report(done)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, ids, err := lp.identsOf(f)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if id.Name != target.Name {
					continue
				}
				sure := id.Where == inCode
				if !sure && !unsure {
					continue
				}
				found[i] = append(found[i], engine.Occurrence{Resource: f, Offset: id.Start, Unsure: !sure})
			}
			step()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []engine.Occurrence
	for _, occ := range found {
		out = append(out, occ...)
	}
	return out, nil
}

func containsResource(list []engine.Resource, r engine.Resource) bool {
	for _, x := range list {
		if engine.SameResource(x, r) {
			return true
		}
	}
	return false
}
