// Package model provides the data structures shared by the resolver pipeline:
// artifact coordinates, dependency declarations, versions and resolution results.
package model

import (
	"fmt"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/errors"
)

// DefaultExtension is the packaging type assumed when a coordinate omits one.
const DefaultExtension = "jar"

// Coordinate identifies one artifact. Two coordinates name the same artifact iff
// all five fields are equal.
type Coordinate struct {
	Group      string `json:"group" yaml:"group"`
	Name       string `json:"name" yaml:"name"`
	Extension  string `json:"extension" yaml:"extension"`
	Classifier string `json:"classifier,omitempty" yaml:"classifier,omitempty"`
	Version    string `json:"version" yaml:"version"`
}

// ParseCoordinate parses group:name[:extension[:classifier]]:version.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return Coordinate{}, fmt.Errorf("%w: %q has an empty segment", errors.ErrInvalidCoordinate, s)
		}
	}
	c := Coordinate{Extension: DefaultExtension}
	switch len(parts) {
	case 3:
		c.Group, c.Name, c.Version = parts[0], parts[1], parts[2]
	case 4:
		c.Group, c.Name, c.Extension, c.Version = parts[0], parts[1], parts[2], parts[3]
	case 5:
		c.Group, c.Name, c.Extension, c.Classifier, c.Version = parts[0], parts[1], parts[2], parts[3], parts[4]
	default:
		return Coordinate{}, fmt.Errorf("%w: %q (expected group:name[:extension[:classifier]]:version)", errors.ErrInvalidCoordinate, s)
	}
	if err := c.CheckPath(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// ParseModule parses group:name, the form used by exclusions.
func ParseModule(s string) (Exclusion, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Exclusion{}, fmt.Errorf("%w: %q (expected group:name)", errors.ErrInvalidCoordinate, s)
	}
	return Exclusion{Group: parts[0], Name: parts[1]}, nil
}

// GetExtension returns the extension, defaulting to jar.
func (c Coordinate) GetExtension() string {
	if c.Extension == "" {
		return DefaultExtension
	}
	return c.Extension
}

// String renders group:name:extension[:classifier]:version, the form used in
// every diagnostic that names an artifact.
func (c Coordinate) String() string {
	var sb strings.Builder
	sb.WriteString(c.Group)
	sb.WriteByte(':')
	sb.WriteString(c.Name)
	sb.WriteByte(':')
	sb.WriteString(c.GetExtension())
	if c.Classifier != "" {
		sb.WriteByte(':')
		sb.WriteString(c.Classifier)
	}
	sb.WriteByte(':')
	sb.WriteString(c.Version)
	return sb.String()
}

// ShortString renders the compact metadata form: the extension is omitted when it
// is the default and there is no classifier.
func (c Coordinate) ShortString() string {
	var sb strings.Builder
	sb.WriteString(c.Group)
	sb.WriteByte(':')
	sb.WriteString(c.Name)
	ext := c.GetExtension()
	if ext != DefaultExtension || c.Classifier != "" {
		sb.WriteByte(':')
		sb.WriteString(ext)
	}
	if c.Classifier != "" {
		sb.WriteByte(':')
		sb.WriteString(c.Classifier)
	}
	sb.WriteByte(':')
	sb.WriteString(c.Version)
	return sb.String()
}

// ModuleKey identifies the artifact regardless of version. Conflict resolution
// picks a single version per module key.
func (c Coordinate) ModuleKey() string {
	key := c.Group + ":" + c.Name + ":" + c.GetExtension()
	if c.Classifier != "" {
		key += ":" + c.Classifier
	}
	return key
}

// Module returns the group:name pair used for exclusion matching.
func (c Coordinate) Module() Exclusion {
	return Exclusion{Group: c.Group, Name: c.Name}
}

// WithVersion returns a copy carrying another version.
func (c Coordinate) WithVersion(v string) Coordinate {
	c.Version = v
	return c
}

// POM returns the coordinate of this artifact's descriptor.
func (c Coordinate) POM() Coordinate {
	return Coordinate{Group: c.Group, Name: c.Name, Extension: "pom", Version: c.Version}
}

// IsSnapshot reports whether the version is a snapshot marker.
func (c Coordinate) IsSnapshot() bool {
	return IsSnapshotVersion(c.Version)
}

// Validate checks that the mandatory segments are present and safe to use
// as repository paths.
func (c Coordinate) Validate() error {
	if c.Group == "" || c.Name == "" || c.Version == "" {
		return fmt.Errorf("%w: %q", errors.ErrInvalidCoordinate, c.String())
	}
	return c.CheckPath()
}

// CheckPath rejects segments that would leave their directory once laid out
// in a repository: separators, "." or ".." and empty group elements.
func (c Coordinate) CheckPath() error {
	for _, seg := range []string{c.Name, c.Extension, c.Classifier, c.Version} {
		if !safeSegment(seg) {
			return fmt.Errorf("%w: %q is not a valid path segment", errors.ErrInvalidCoordinate, seg)
		}
	}
	if c.Group != "" {
		for _, part := range strings.Split(c.Group, ".") {
			if part == "" || !safeSegment(part) {
				return fmt.Errorf("%w: group %q is not a valid path", errors.ErrInvalidCoordinate, c.Group)
			}
		}
	}
	return nil
}

func safeSegment(s string) bool {
	return s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
