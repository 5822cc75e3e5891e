package local

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/ropestorm/internal/engine"
)

// Project is a source tree rooted at a local directory.
type Project struct {
	root      string
	cfg       Config
	hasFolder bool
	history   *History
	log       *slog.Logger

	mu     sync.RWMutex
	closed bool
	// idents caches lexer output per path; ReportChange and Refresh
	// invalidate entries.
	idents map[string]cachedIdents
}

type cachedIdents struct {
	content string
	idents  []ident
}

func openProject(root string, createFolder bool, log *slog.Logger) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", engine.ErrInvalidRoot, root, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", engine.ErrInvalidRoot, abs)
	}

	cfg, hasFolder, err := loadConfig(abs, createFolder)
	if err != nil {
		return nil, err
	}

	p := &Project{
		root:      abs,
		cfg:       cfg,
		hasFolder: hasFolder,
		log:       log.With("project", abs),
		idents:    make(map[string]cachedIdents),
	}
	p.history = newHistory(p, cfg.MaxHistory)
	p.log.Debug("project opened", "config_folder", hasFolder)
	return p, nil
}

// Root returns the absolute project root.
func (p *Project) Root() string { return p.root }

// Config returns the project configuration.
func (p *Project) Config() Config { return p.cfg }

// Close releases the project. Later operations fail with
// engine.ErrProjectClosed.
func (p *Project) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.idents = nil
	p.log.Debug("project closed")
	return nil
}

// Validate checks the project is open and its root still a directory.
func (p *Project) Validate() error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	info, err := os.Stat(p.root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", engine.ErrInvalidRoot, p.root)
	}
	return nil
}

func (p *Project) checkOpen() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return engine.ErrProjectClosed
	}
	return nil
}

func (p *Project) resource(rel string) *Resource {
	return &Resource{p: p, path: rel}
}

// Resource returns an existing resource.
func (p *Project) Resource(rel string) (engine.Resource, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	clean := cleanPath(rel)
	r := p.resource(clean)
	if !r.Exists() {
		return nil, fmt.Errorf("%w: %s", engine.ErrNotFound, clean)
	}
	return r, nil
}

// File returns the file at rel whether or not it exists.
func (p *Project) File(rel string) (engine.Resource, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	clean := cleanPath(rel)
	return p.resource(clean), nil
}

// Files walks the project and returns its source files sorted by path.
func (p *Project) Files() ([]engine.Resource, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	var files []engine.Resource
	err := filepath.WalkDir(p.root, func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(p.root, abs)
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if p.cfg.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && p.cfg.sourceExt(path.Ext(rel)) {
			files = append(files, p.resource(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", p.root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path() < files[j].Path() })
	return files, nil
}

// PathToResource maps an absolute path to a resource of this project.
func (p *Project) PathToResource(abs string) (engine.Resource, bool) {
	if p.checkOpen() != nil || abs == "" {
		return nil, false
	}
	abs, err := filepath.Abs(abs)
	if err != nil {
		return nil, false
	}
	rel, err := filepath.Rel(p.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, false
	}
	clean := cleanPath(rel)
	return p.resource(clean), true
}

// IsSourceFile reports whether r is an analysed, non-ignored file.
func (p *Project) IsSourceFile(r engine.Resource) bool {
	if r == nil || r.Project() != engine.Project(p) {
		return false
	}
	return !r.IsFolder() && p.cfg.sourceExt(path.Ext(r.Path())) && !p.cfg.ignored(r.Path())
}

// ConfigFile returns .ropeproject/config.yaml when the project has a
// configuration folder.
func (p *Project) ConfigFile() (engine.Resource, bool) {
	if !p.hasFolder {
		return nil, false
	}
	return p.resource(FolderName + "/" + ConfigName), true
}

// ReportChange records that the editor rewrote path.
func (p *Project) ReportChange(rel, oldContent string) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	clean := cleanPath(rel)
	p.invalidate(clean)
	p.log.Debug("change reported", "path", clean, "old_bytes", len(oldContent))
	return nil
}

// Refresh drops cached analysis for path.
func (p *Project) Refresh(rel string) {
	clean := cleanPath(rel)
	p.invalidate(clean)
}

func (p *Project) invalidate(rel string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rel == "" {
		p.idents = make(map[string]cachedIdents)
		return
	}
	for k := range p.idents {
		if k == rel || strings.HasPrefix(k, rel+"/") {
			delete(p.idents, k)
		}
	}
}

// identsOf returns the lexer output for a file, cached while its content
// is unchanged.
func (p *Project) identsOf(r engine.Resource) (string, []ident, error) {
	content, err := r.Read()
	if err != nil {
		return "", nil, err
	}
	p.mu.RLock()
	c, ok := p.idents[r.Path()]
	p.mu.RUnlock()
	if ok && c.content == content {
		return content, c.idents, nil
	}
	ids := scan(content)
	p.mu.Lock()
	if p.idents != nil {
		p.idents[r.Path()] = cachedIdents{content: content, idents: ids}
	}
	p.mu.Unlock()
	return content, ids, nil
}

// Do applies changes and records them in the history.
func (p *Project) Do(ctx context.Context, cs engine.ChangeSet) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	changes, ok := cs.(*Changes)
	if !ok {
		return fmt.Errorf("local: foreign change set %T", cs)
	}
	if err := changes.apply(ctx, p); err != nil {
		return err
	}
	p.history.record(changes)
	p.log.Debug("changes performed", "id", changes.ID(), "description", changes.description)
	return nil
}

// History returns the undo history.
func (p *Project) History() engine.History { return p.history }

// CreateFile creates an empty file under parent through the history.
func (p *Project) CreateFile(parent engine.Resource, name string) (engine.Resource, error) {
	return p.create(parent, name, false)
}

// CreateFolder creates a folder under parent through the history.
func (p *Project) CreateFolder(parent engine.Resource, name string) (engine.Resource, error) {
	return p.create(parent, name, true)
}

func (p *Project) create(parent engine.Resource, name string, folder bool) (engine.Resource, error) {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return nil, fmt.Errorf("%w: %q", engine.ErrInvalidName, name)
	}
	base := ""
	if parent != nil {
		base = parent.Path()
	}
	rel := joinPath(base, name)
	kind := "file"
	if folder {
		kind = "folder"
	}
	cs := NewChanges(p, fmt.Sprintf("Create %s <%s>", kind, rel))
	cs.Add(createChange{path: rel, folder: folder})
	if err := p.Do(context.Background(), cs); err != nil {
		return nil, err
	}
	return p.resource(rel), nil
}
