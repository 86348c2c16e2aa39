// Package pom reads project descriptors and computes their effective model:
// parent inheritance, property interpolation, dependency management and BOM
// imports.
package pom

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/model"
)

// Project is the raw descriptor as written.
type Project struct {
	XMLName    xml.Name `xml:"project"`
	Parent     *Parent  `xml:"parent"`
	GroupID    string   `xml:"groupId"`
	ArtifactID string   `xml:"artifactId"`
	Version    string   `xml:"version"`
	Packaging  string   `xml:"packaging"`

	Properties           Properties            `xml:"properties"`
	DependencyManagement *DependencyManagement `xml:"dependencyManagement"`
	Dependencies         []Dependency          `xml:"dependencies>dependency"`
	Repositories         []Repository          `xml:"repositories>repository"`
}

// Parent references the descriptor this one inherits from.
type Parent struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

// DependencyManagement pins versions, scopes and exclusions by module.
type DependencyManagement struct {
	Dependencies []Dependency `xml:"dependencies>dependency"`
}

// Dependency is a raw dependency element. Fields stay strings so that management
// can tell "unset" from a default.
type Dependency struct {
	GroupID    string      `xml:"groupId"`
	ArtifactID string      `xml:"artifactId"`
	Version    string      `xml:"version"`
	Type       string      `xml:"type"`
	Classifier string      `xml:"classifier"`
	Scope      string      `xml:"scope"`
	Optional   string      `xml:"optional"`
	Exclusions []Exclusion `xml:"exclusions>exclusion"`
}

// Exclusion removes a module from a dependency's closure.
type Exclusion struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

// Repository is a remote repository declaration.
type Repository struct {
	ID        string  `xml:"id"`
	Name      string  `xml:"name"`
	URL       string  `xml:"url"`
	Layout    string  `xml:"layout"`
	Releases  *Policy `xml:"releases"`
	Snapshots *Policy `xml:"snapshots"`
}

// Policy is a releases/snapshots element.
type Policy struct {
	Enabled        string `xml:"enabled"`
	UpdatePolicy   string `xml:"updatePolicy"`
	ChecksumPolicy string `xml:"checksumPolicy"`
}

// IsEnabled reports the policy state. A missing element or a missing enabled
// flag both mean enabled.
func (p *Policy) IsEnabled() bool {
	if p == nil {
		return true
	}
	return !strings.EqualFold(strings.TrimSpace(p.Enabled), "false")
}

// Parse decodes a descriptor.
func Parse(data []byte) (*Project, error) {
	var p Project
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse project descriptor: %w", err)
	}
	return &p, nil
}

// EffectiveGroupID falls back to the parent's group.
func (p *Project) EffectiveGroupID() string {
	if p.GroupID == "" && p.Parent != nil {
		return p.Parent.GroupID
	}
	return p.GroupID
}

// EffectiveVersion falls back to the parent's version.
func (p *Project) EffectiveVersion() string {
	if p.Version == "" && p.Parent != nil {
		return p.Parent.Version
	}
	return p.Version
}

// Coordinate returns the descriptor's own coordinate, with the packaging as
// extension.
func (p *Project) Coordinate() model.Coordinate {
	ext := p.Packaging
	if ext == "" {
		ext = model.DefaultExtension
	}
	return model.Coordinate{Group: p.EffectiveGroupID(), Name: p.ArtifactID, Extension: ext, Version: p.EffectiveVersion()}
}

// Coordinate returns the parent descriptor's coordinate.
func (p *Parent) Coordinate() model.Coordinate {
	return model.Coordinate{Group: p.GroupID, Name: p.ArtifactID, Extension: "pom", Version: p.Version}
}

var typeExtensions = map[string]string{
	"":             model.DefaultExtension,
	"jar":          model.DefaultExtension,
	"bundle":       model.DefaultExtension,
	"ejb":          model.DefaultExtension,
	"maven-plugin": model.DefaultExtension,
	"test-jar":     model.DefaultExtension,
}

// Coordinate maps the dependency to an artifact coordinate; the type decides
// the extension (test-jar also implies the tests classifier).
func (d Dependency) Coordinate() model.Coordinate {
	ext, ok := typeExtensions[d.Type]
	if !ok {
		ext = d.Type
	}
	classifier := d.Classifier
	if d.Type == "test-jar" && classifier == "" {
		classifier = "tests"
	}
	return model.Coordinate{Group: d.GroupID, Name: d.ArtifactID, Extension: ext, Classifier: classifier, Version: d.Version}
}

// ManagementKey identifies the module a management entry applies to.
func (d Dependency) ManagementKey() string {
	return d.Coordinate().ModuleKey()
}

// IsImport reports whether the entry imports another descriptor's management.
func (d Dependency) IsImport() bool {
	return strings.EqualFold(d.Scope, string(model.ScopeImport)) && d.Type == "pom"
}

// ToModel converts a fully managed dependency.
func (d Dependency) ToModel() (model.Dependency, error) {
	c := d.Coordinate()
	if c.Group == "" || c.Name == "" {
		return model.Dependency{}, fmt.Errorf("%w: dependency without groupId or artifactId", errors.ErrInvalidCoordinate)
	}
	if err := c.CheckPath(); err != nil {
		return model.Dependency{}, err
	}
	dep := model.Dependency{
		Coordinate: c,
		Scope:      model.ParseScope(d.Scope),
		Optional:   strings.EqualFold(strings.TrimSpace(d.Optional), "true"),
	}
	for _, e := range d.Exclusions {
		dep.Exclusions = append(dep.Exclusions, model.Exclusion{Group: e.GroupID, Name: e.ArtifactID})
	}
	return dep, nil
}

// Properties is an ordered property block.
type Properties struct {
	names  []string
	values map[string]string
}

// UnmarshalXML collects every child element as name/value.
func (p *Properties) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var v string
			if err := d.DecodeElement(&v, &t); err != nil {
				return err
			}
			p.Set(t.Name.Local, strings.TrimSpace(v))
		case xml.EndElement:
			return nil
		}
	}
}

// Set assigns a property, keeping the first position of the name.
func (p *Properties) Set(name, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = value
}

// Get returns a property value.
func (p *Properties) Get(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Names returns the names in document order.
func (p *Properties) Names() []string {
	return append([]string(nil), p.names...)
}

// Len returns the number of properties.
func (p *Properties) Len() int { return len(p.names) }
