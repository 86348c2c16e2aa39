package model

// ResolvedArtifact pairs a coordinate with its file in the local cache.
type ResolvedArtifact struct {
	Coordinate Coordinate `json:"coordinate" yaml:"coordinate"`
	Path       string     `json:"path" yaml:"path"`
	// Repository is the id of the repository that served the file, or "local"
	// when the cache already held it.
	Repository string `json:"repository,omitempty" yaml:"repository,omitempty"`
	// Depth is the distance from the declared dependencies (0 = declared).
	Depth int `json:"depth" yaml:"depth"`
}

// ResolutionResult is the deduplicated, insertion-ordered outcome of a resolution.
// No two entries share a Coordinate.
type ResolutionResult struct {
	Artifacts []ResolvedArtifact `json:"artifacts" yaml:"artifacts"`
	index     map[Coordinate]int
}

// NewResolutionResult returns an empty result.
func NewResolutionResult() *ResolutionResult {
	return &ResolutionResult{index: make(map[Coordinate]int)}
}

// Add appends the artifact unless its coordinate is already present.
// It reports whether the artifact was added.
func (r *ResolutionResult) Add(a ResolvedArtifact) bool {
	if r.index == nil {
		r.index = make(map[Coordinate]int, len(r.Artifacts))
		for i, existing := range r.Artifacts {
			r.index[existing.Coordinate] = i
		}
	}
	if _, ok := r.index[a.Coordinate]; ok {
		return false
	}
	r.index[a.Coordinate] = len(r.Artifacts)
	r.Artifacts = append(r.Artifacts, a)
	return true
}

// Get returns the entry for a coordinate.
func (r *ResolutionResult) Get(c Coordinate) (ResolvedArtifact, bool) {
	for _, a := range r.Artifacts {
		if a.Coordinate == c {
			return a, true
		}
	}
	return ResolvedArtifact{}, false
}

// Len returns the number of artifacts.
func (r *ResolutionResult) Len() int { return len(r.Artifacts) }

// Paths returns the local file paths in result order.
func (r *ResolutionResult) Paths() []string {
	out := make([]string, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		out = append(out, a.Path)
	}
	return out
}
