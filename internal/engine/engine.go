package engine

import (
	"context"
	"iter"
	"strings"
)

// Resource is a file or folder addressed by its path inside a project.
// Two resources of the same project are the same resource when their paths
// are equal.
type Resource interface {
	// Path is the slash separated path relative to the project root.
	Path() string
	// RealPath is the absolute path on disk.
	RealPath() string
	Exists() bool
	IsFolder() bool
	// Read returns the current on-disk contents of a file.
	Read() (string, error)
	Project() Project
}

// ChangeSet is an opaque, reversible batch of file mutations.
type ChangeSet interface {
	// Description is a human readable summary, or a full preview when the
	// engine provides one.
	Description() string
	// ChangedResources lists every resource the change set touches, using
	// the paths as they were before the change.
	ChangedResources() []Resource
}

// Summarizer is implemented by change sets with a one line summary apart
// from their preview.
type Summarizer interface {
	Summary() string
}

// Summary returns the one line summary of cs: its Summary when it has one,
// otherwise the first line of its Description.
func Summary(cs ChangeSet) string {
	if s, ok := cs.(Summarizer); ok {
		return s.Summary()
	}
	line, _, _ := strings.Cut(cs.Description(), "\n")
	return line
}

// Mover is implemented by change sets that rename or move resources.
type Mover interface {
	// MovedResources maps an old resource path to the resource that
	// replaced it.
	MovedResources() map[string]Resource
}

// History is the project's record of applied change sets.
//
// Undo and Redo return iterators: the engine applies one change set per
// step and yields it, so a caller can reconcile each before the next is
// applied.
type History interface {
	Undo(ctx context.Context) iter.Seq2[ChangeSet, error]
	Redo(ctx context.Context) iter.Seq2[ChangeSet, error]
	UndoCount() int
	RedoCount() int
}

// Project is the engine's rooted view of a source tree.
type Project interface {
	Root() string
	Close() error
	// Validate checks the root is still usable.
	Validate() error

	// Resource returns the resource at a project-relative path.
	Resource(path string) (Resource, error)
	// File returns the file at path; it need not exist yet.
	File(path string) (Resource, error)
	// Files returns every source file in the project.
	Files() ([]Resource, error)
	// PathToResource maps an absolute path to a resource. It returns false
	// for paths outside the project.
	PathToResource(abs string) (Resource, bool)
	// IsSourceFile reports whether r is a file the engine analyses.
	IsSourceFile(r Resource) bool
	// ConfigFile returns the project configuration file, if the project has
	// a configuration folder.
	ConfigFile() (Resource, bool)

	// ReportChange tells the engine a file was written by the editor;
	// oldContent is what it held before.
	ReportChange(path, oldContent string) error
	// Refresh tells the engine a file changed behind its back.
	Refresh(path string)

	// Do applies a change set and records it in the history.
	Do(ctx context.Context, changes ChangeSet) error
	History() History

	CreateFile(parent Resource, name string) (Resource, error)
	CreateFolder(parent Resource, name string) (Resource, error)
}

// Opener opens projects.
type Opener interface {
	Open(root string) (Project, error)
}

// TaskHandle lets a long running engine operation observe cancellation and
// publish progress.
type TaskHandle interface {
	Context() context.Context
	Report(done, total int)
}

// Assist covers completion, navigation and analysis.
type Assist interface {
	CodeAssist(ctx context.Context, p Project, source string, offset int, r Resource, maxFixes int) ([]Proposal, error)
	SortedProposals(proposals []Proposal) []Proposal
	// StartingOffset is where the identifier being completed starts.
	StartingOffset(source string, offset int) int
	DefinitionLocation(ctx context.Context, p Project, source string, offset int, r Resource) (Location, error)
	Doc(ctx context.Context, p Project, source string, offset int, r Resource) (string, error)
	FindOccurrences(ctx context.Context, p Project, r Resource, offset int, unsure bool, h TaskHandle) ([]Occurrence, error)
}

// Generator creates new modules and packages.
type Generator interface {
	CreateModule(p Project, name string, folder Resource) (Resource, error)
	// CreatePackage returns the created package folder.
	CreatePackage(p Project, name string, folder Resource) (Resource, error)
	// PackageInit returns the initialisation file of a package folder.
	PackageInit(pkg Resource) (Resource, error)
}

// Refactorer computes refactoring change sets. It never applies them.
type Refactorer interface {
	Rename(ctx context.Context, p Project, r Resource, offset int, newName string) (ChangeSet, error)
	RenameModule(ctx context.Context, p Project, r Resource, newName string) (ChangeSet, error)
	ExtractVariable(ctx context.Context, p Project, r Resource, start, end int, name string) (ChangeSet, error)
	Inline(ctx context.Context, p Project, r Resource, offset int) (ChangeSet, error)
}

// Engine bundles every capability the bridge consumes.
type Engine interface {
	Opener
	Assist
	Generator
	Refactorer
}
