package engine

// Proposal is a completion candidate.
type Proposal struct {
	Name string
	// Kind is the engine's classification, such as "local", "global" or
	// "keyword". Only the engine interprets it.
	Kind string
	// Rank orders proposals; lower ranks come first.
	Rank int
}

// Names returns the proposal names in order.
func Names(proposals []Proposal) []string {
	names := make([]string, len(proposals))
	for i, p := range proposals {
		names[i] = p.Name
	}
	return names
}

// Occurrence is a located reference to a symbol.
type Occurrence struct {
	Resource Resource
	Offset   int
	// Unsure marks a heuristic match the engine cannot guarantee.
	Unsure bool
}

// Location is a definition site. The zero value means nothing was found.
type Location struct {
	Resource Resource
	// Line is 1-based; 0 means unknown.
	Line int
}

// Found reports whether the location points anywhere.
func (l Location) Found() bool {
	return l.Resource != nil || l.Line != 0
}

// SameResource reports whether a and b name the same resource of the same
// project.
func SameResource(a, b Resource) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Path() == b.Path() && a.Project() == b.Project()
}
