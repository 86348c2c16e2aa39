package model

import "strings"

// Scope tells whether a declaration feeds the runtime classpath.
type Scope string

const (
	ScopeCompile  Scope = "compile"
	ScopeRuntime  Scope = "runtime"
	ScopeProvided Scope = "provided"
	ScopeTest     Scope = "test"
	ScopeSystem   Scope = "system"
	ScopeImport   Scope = "import"
)

// ParseScope normalizes a declared scope; an empty scope means compile.
func ParseScope(s string) Scope {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeCompile:
		return ScopeCompile
	case ScopeRuntime:
		return ScopeRuntime
	case ScopeProvided:
		return ScopeProvided
	case ScopeTest:
		return ScopeTest
	case ScopeSystem:
		return ScopeSystem
	case ScopeImport:
		return ScopeImport
	default:
		return Scope(strings.ToLower(s))
	}
}

// IsRuntime reports whether the scope is used at runtime.
func (s Scope) IsRuntime() bool {
	return s == ScopeCompile || s == ScopeRuntime || s == ""
}

// Exclusion names a module (group:name) omitted from a transitive closure.
// A "*" segment matches anything.
type Exclusion struct {
	Group string `json:"group" yaml:"group"`
	Name  string `json:"name" yaml:"name"`
}

// Matches reports whether the exclusion applies to the coordinate.
func (e Exclusion) Matches(c Coordinate) bool {
	return (e.Group == "*" || e.Group == c.Group) && (e.Name == "*" || e.Name == c.Name)
}

func (e Exclusion) String() string {
	return e.Group + ":" + e.Name
}

// Dependency is a declared coordinate plus its scope and exclusion set.
type Dependency struct {
	Coordinate Coordinate  `json:"coordinate" yaml:"coordinate"`
	Scope      Scope       `json:"scope,omitempty" yaml:"scope,omitempty"`
	Optional   bool        `json:"optional,omitempty" yaml:"optional,omitempty"`
	Exclusions []Exclusion `json:"exclusions,omitempty" yaml:"exclusions,omitempty"`
}

// IsRuntime reports whether the declaration contributes to the classpath.
func (d Dependency) IsRuntime() bool {
	return d.Scope.IsRuntime() && !d.Optional
}

// Excludes reports whether any of the declaration's exclusions match c.
func (d Dependency) Excludes(c Coordinate) bool {
	return Excluded(d.Exclusions, c)
}

// Excluded reports whether any exclusion in the list matches c.
func Excluded(exclusions []Exclusion, c Coordinate) bool {
	for _, e := range exclusions {
		if e.Matches(c) {
			return true
		}
	}
	return false
}
