package pom

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/model"
	"github.com/glorpus-work/thinlaunch/pkg/platform"
)

// maxLineage bounds the parent chain.
const maxLineage = 32

// Fetcher loads the descriptor of a coordinate, typically from a repository.
type Fetcher interface {
	FetchPOM(ctx context.Context, c model.Coordinate) (*Project, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, c model.Coordinate) (*Project, error)

// FetchPOM calls f.
func (f FetcherFunc) FetchPOM(ctx context.Context, c model.Coordinate) (*Project, error) {
	return f(ctx, c)
}

// Model is the effective descriptor after inheritance, interpolation and
// management have been applied.
type Model struct {
	Coordinate   model.Coordinate
	Properties   Properties
	Dependencies []model.Dependency
	// Managed lists dependency management entries, imported BOMs included,
	// in precedence order.
	Managed      []model.Dependency
	Repositories []Repository
}

// ManagedIndex maps module keys to their management entry.
func (m *Model) ManagedIndex() map[string]model.Dependency {
	idx := make(map[string]model.Dependency, len(m.Managed))
	for _, d := range m.Managed {
		if _, ok := idx[d.Coordinate.ModuleKey()]; !ok {
			idx[d.Coordinate.ModuleKey()] = d
		}
	}
	return idx
}

// Builder computes effective models, fetching parents and imported BOMs.
type Builder struct {
	fetcher Fetcher
}

// NewBuilder creates a Builder.
func NewBuilder(f Fetcher) *Builder {
	return &Builder{fetcher: f}
}

// Build computes the effective model of p.
func (b *Builder) Build(ctx context.Context, p *Project) (*Model, error) {
	return b.build(ctx, p, map[string]bool{})
}

// ImportManagement computes the effective model of each BOM and returns their
// management entries in order.
func (b *Builder) ImportManagement(ctx context.Context, boms []model.Coordinate) ([]model.Dependency, error) {
	var out []model.Dependency
	for _, c := range boms {
		m, err := b.fetchModel(ctx, c.POM(), map[string]bool{})
		if err != nil {
			return nil, err
		}
		out = append(out, m.Managed...)
	}
	return out, nil
}

func (b *Builder) fetchModel(ctx context.Context, c model.Coordinate, visiting map[string]bool) (*Model, error) {
	if b.fetcher == nil {
		return nil, fmt.Errorf("%w: no descriptor source for %s", errors.ErrNotFound, c)
	}
	p, err := b.fetcher.FetchPOM(ctx, c)
	if err != nil {
		return nil, err
	}
	return b.build(ctx, p, visiting)
}

func (b *Builder) build(ctx context.Context, p *Project, visiting map[string]bool) (*Model, error) {
	self := p.Coordinate().POM().String()
	if visiting[self] {
		return nil, fmt.Errorf("%w: %s", errors.ErrDependencyCycle, self)
	}
	visiting[self] = true
	defer delete(visiting, self)

	lineage, err := b.lineage(ctx, p)
	if err != nil {
		return nil, err
	}
	merged := mergeLineage(lineage)
	interpolateProject(merged)

	managed, err := b.management(ctx, merged, visiting)
	if err != nil {
		return nil, err
	}
	index := make(map[string]Dependency, len(managed))
	for _, d := range managed {
		if _, ok := index[d.ManagementKey()]; !ok {
			index[d.ManagementKey()] = d
		}
	}

	m := &Model{Coordinate: merged.Coordinate(), Properties: merged.Properties, Repositories: merged.Repositories}
	for _, d := range managed {
		md, err := d.ToModel()
		if err != nil {
			return nil, errors.Wrapf(err, "dependency management of %s", m.Coordinate)
		}
		m.Managed = append(m.Managed, md)
	}
	for _, d := range merged.Dependencies {
		md, err := applyManagement(d, index).ToModel()
		if err != nil {
			return nil, errors.Wrapf(err, "dependencies of %s", m.Coordinate)
		}
		m.Dependencies = append(m.Dependencies, md)
	}
	return m, nil
}

// lineage returns p followed by its ancestors, nearest first.
func (b *Builder) lineage(ctx context.Context, p *Project) ([]*Project, error) {
	lineage := []*Project{p}
	seen := map[string]bool{p.Coordinate().POM().String(): true}
	for cur := p; cur.Parent != nil; {
		if len(lineage) > maxLineage {
			return nil, fmt.Errorf("%w: parent chain of %s is too deep", errors.ErrDependencyCycle, p.Coordinate())
		}
		pc := cur.Parent.Coordinate()
		if seen[pc.String()] {
			return nil, fmt.Errorf("%w: parent %s", errors.ErrDependencyCycle, pc)
		}
		seen[pc.String()] = true
		if b.fetcher == nil {
			return nil, fmt.Errorf("%w: parent %s of %s", errors.ErrNotFound, pc, p.Coordinate())
		}
		parent, err := b.fetcher.FetchPOM(ctx, pc)
		if err != nil {
			return nil, errors.Wrapf(err, "parent of %s", cur.Coordinate())
		}
		lineage = append(lineage, parent)
		cur = parent
	}
	return lineage, nil
}

// mergeLineage folds ancestors into a single project. Children override
// properties, dependencies and management of the same module; repositories are
// listed child first.
func mergeLineage(lineage []*Project) *Project {
	child := lineage[0]
	out := &Project{
		Parent:     child.Parent,
		GroupID:    child.EffectiveGroupID(),
		ArtifactID: child.ArtifactID,
		Version:    child.EffectiveVersion(),
		Packaging:  child.Packaging,
	}

	var deps, managed []Dependency
	depIndex := map[string]int{}
	managedSeen := map[string]bool{}
	repoSeen := map[string]bool{}

	// Properties and dependencies: eldest first so that children override.
	for i := len(lineage) - 1; i >= 0; i-- {
		p := lineage[i]
		for _, name := range p.Properties.Names() {
			v, _ := p.Properties.Get(name)
			out.Properties.Set(name, v)
		}
		for _, d := range p.Dependencies {
			d.Exclusions = append([]Exclusion(nil), d.Exclusions...)
			key := d.ManagementKey()
			if at, ok := depIndex[key]; ok {
				deps[at] = d
				continue
			}
			depIndex[key] = len(deps)
			deps = append(deps, d)
		}
	}
	// Management and repositories: nearest first, first entry wins.
	for _, p := range lineage {
		if p.DependencyManagement != nil {
			for _, d := range p.DependencyManagement.Dependencies {
				key := d.ManagementKey()
				if d.IsImport() {
					key = "import:" + key + ":" + d.Version
				}
				if managedSeen[key] {
					continue
				}
				managedSeen[key] = true
				d.Exclusions = append([]Exclusion(nil), d.Exclusions...)
				managed = append(managed, d)
			}
		}
		for _, r := range p.Repositories {
			if repoSeen[r.ID] {
				continue
			}
			repoSeen[r.ID] = true
			out.Repositories = append(out.Repositories, r)
		}
	}
	out.Dependencies = deps
	out.DependencyManagement = &DependencyManagement{Dependencies: managed}
	return out
}

// management expands imports in place: an imported BOM's entries take the
// position of the import and never override entries declared before it.
func (b *Builder) management(ctx context.Context, p *Project, visiting map[string]bool) ([]Dependency, error) {
	var out []Dependency
	seen := map[string]bool{}
	add := func(d Dependency) {
		if !seen[d.ManagementKey()] {
			seen[d.ManagementKey()] = true
			out = append(out, d)
		}
	}
	for _, d := range p.DependencyManagement.Dependencies {
		if !d.IsImport() {
			add(d)
			continue
		}
		c := d.Coordinate()
		imported, err := b.fetchModel(ctx, model.Coordinate{Group: c.Group, Name: c.Name, Extension: "pom", Version: c.Version}, visiting)
		if err != nil {
			return nil, errors.Wrapf(err, "import of %s", c)
		}
		for _, md := range imported.Managed {
			add(fromModel(md))
		}
	}
	return out, nil
}

func fromModel(d model.Dependency) Dependency {
	out := Dependency{
		GroupID:    d.Coordinate.Group,
		ArtifactID: d.Coordinate.Name,
		Version:    d.Coordinate.Version,
		Type:       d.Coordinate.Extension,
		Classifier: d.Coordinate.Classifier,
		Scope:      string(d.Scope),
	}
	if d.Optional {
		out.Optional = "true"
	}
	for _, e := range d.Exclusions {
		out.Exclusions = append(out.Exclusions, Exclusion{GroupID: e.Group, ArtifactID: e.Name})
	}
	return out
}

func applyManagement(d Dependency, index map[string]Dependency) Dependency {
	m, ok := index[d.ManagementKey()]
	if !ok {
		return d
	}
	if d.Version == "" {
		d.Version = m.Version
	}
	if d.Scope == "" {
		d.Scope = m.Scope
	}
	if d.Optional == "" {
		d.Optional = m.Optional
	}
	d.Exclusions = append(append([]Exclusion(nil), d.Exclusions...), m.Exclusions...)
	return d
}

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// maxInterpolationPasses bounds nested ${...} expansion.
const maxInterpolationPasses = 8

func interpolateProject(p *Project) {
	values := platform.CurrentPlatform().Properties()
	for _, name := range p.Properties.Names() {
		values[name], _ = p.Properties.Get(name)
	}
	builtins := map[string]string{
		"groupId":    p.GroupID,
		"artifactId": p.ArtifactID,
		"version":    p.Version,
		"packaging":  p.Packaging,
	}
	for k, v := range builtins {
		values["project."+k] = v
		values["pom."+k] = v
	}
	if p.Parent != nil {
		values["project.parent.groupId"] = p.Parent.GroupID
		values["project.parent.artifactId"] = p.Parent.ArtifactID
		values["project.parent.version"] = p.Parent.Version
		values["parent.version"] = p.Parent.Version
	}

	expand := func(s string) string { return interpolate(s, values) }
	for _, name := range p.Properties.Names() {
		v, _ := p.Properties.Get(name)
		p.Properties.Set(name, expand(v))
	}
	expandDeps := func(deps []Dependency) {
		for i := range deps {
			d := &deps[i]
			d.GroupID, d.ArtifactID, d.Version = expand(d.GroupID), expand(d.ArtifactID), expand(d.Version)
			d.Type, d.Classifier, d.Scope, d.Optional = expand(d.Type), expand(d.Classifier), expand(d.Scope), expand(d.Optional)
			for j := range d.Exclusions {
				d.Exclusions[j].GroupID = expand(d.Exclusions[j].GroupID)
				d.Exclusions[j].ArtifactID = expand(d.Exclusions[j].ArtifactID)
			}
		}
	}
	expandDeps(p.Dependencies)
	expandDeps(p.DependencyManagement.Dependencies)
	for i := range p.Repositories {
		p.Repositories[i].ID = expand(p.Repositories[i].ID)
		p.Repositories[i].URL = expand(p.Repositories[i].URL)
	}
}

// interpolate replaces ${name} references. Unknown references stay verbatim.
func interpolate(s string, values map[string]string) string {
	for i := 0; i < maxInterpolationPasses && strings.Contains(s, "${"); i++ {
		next := placeholder.ReplaceAllStringFunc(s, func(ref string) string {
			if v, ok := values[ref[2:len(ref)-1]]; ok {
				return v
			}
			return ref
		})
		if next == s {
			break
		}
		s = next
	}
	return s
}
