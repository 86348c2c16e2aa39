// Package store holds what a unit of deployment declares: dependencies,
// exclusions, imported BOMs and repositories, gathered from the effective
// properties and the project descriptor (archive or root override).
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/archive"
	"github.com/glorpus-work/thinlaunch/pkg/config"
	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/model"
	"github.com/glorpus-work/thinlaunch/pkg/pom"
	"github.com/glorpus-work/thinlaunch/pkg/repository"
)

// RootPOM is the descriptor file name looked up in the root override directory.
const RootPOM = "pom.xml"

// PropertyDependency is a dependencies.<key> entry. An empty Coordinate
// (Removed) drops the descriptor dependency named <key>.
type PropertyDependency struct {
	Key        string
	Dependency model.Dependency
	Removed    bool
}

// Store is the declared, not yet expanded, dependency set.
type Store struct {
	// Project is the descriptor, nil when neither the root nor the archive has one.
	Project *pom.Project
	// ProjectSource is "root" or "archive".
	ProjectSource string

	Dependencies []PropertyDependency
	Exclusions   []model.Exclusion
	BOMs         []model.Coordinate
	Computed     bool

	repositories []repository.Declaration
}

// Declarations is the expanded input of a resolution.
type Declarations struct {
	Dependencies []model.Dependency
	Managed      []model.Dependency
	Exclusions   []model.Exclusion
	// Computed means the list is already transitively complete.
	Computed bool
}

// Load collects declarations. arc may be nil; rootDir may be empty.
func Load(cfg *config.Effective, arc *archive.Archive, rootDir string) (*Store, error) {
	s := &Store{Computed: cfg.Bool(config.ComputedKey)}

	if err := s.loadProject(arc, rootDir); err != nil {
		return nil, err
	}
	if err := s.loadProperties(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadProject(arc *archive.Archive, rootDir string) error {
	if rootDir != "" {
		path := filepath.Join(rootDir, RootPOM)
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			p, err := pom.Parse(data)
			if err != nil {
				return errors.NewConfigurationError(path, err)
			}
			s.Project, s.ProjectSource = p, config.SourceRoot
			return nil
		case !os.IsNotExist(err):
			return errors.NewConfigurationError(path, err)
		}
	}
	if arc == nil {
		return nil
	}
	data, ok, err := arc.POM()
	if err != nil {
		return errors.NewConfigurationError(arc.Path, err)
	}
	if !ok {
		return nil
	}
	p, err := pom.Parse(data)
	if err != nil {
		return errors.NewConfigurationError(arc.Path, err)
	}
	s.Project, s.ProjectSource = p, config.SourceArchive
	return nil
}

func (s *Store) loadProperties(cfg *config.Effective) error {
	for _, e := range cfg.WithPrefix(config.DependenciesPrefix) {
		value := strings.TrimSpace(e.Value)
		if value == "" {
			s.Dependencies = append(s.Dependencies, PropertyDependency{Key: e.Key, Removed: true})
			continue
		}
		c, err := parseDeclared(value)
		if err != nil {
			return errors.NewConfigurationError(cfg.Origin(config.DependenciesPrefix+e.Key), err)
		}
		s.Dependencies = append(s.Dependencies, PropertyDependency{
			Key:        e.Key,
			Dependency: model.Dependency{Coordinate: c, Scope: model.ScopeCompile},
		})
	}

	for _, e := range cfg.WithPrefix(config.ExclusionsPrefix) {
		ex, err := model.ParseModule(e.Value)
		if err != nil {
			return errors.NewConfigurationError(cfg.Origin(config.ExclusionsPrefix+e.Key), err)
		}
		s.Exclusions = append(s.Exclusions, ex)
	}

	for _, e := range cfg.WithPrefix(config.BomsPrefix) {
		c, err := model.ParseCoordinate(e.Value)
		if err != nil {
			return errors.NewConfigurationError(cfg.Origin(config.BomsPrefix+e.Key), err)
		}
		s.BOMs = append(s.BOMs, c.POM())
	}

	entries := cfg.WithPrefix(config.RepositoriesPrefix)
	sort.SliceStable(entries, func(i, j int) bool {
		return rank(cfg.Origin(config.RepositoriesPrefix+entries[i].Key)) >
			rank(cfg.Origin(config.RepositoriesPrefix+entries[j].Key))
	})
	s.repositories = repository.FromProperties(entries)
	return nil
}

// parseDeclared accepts a full coordinate or group:name, whose version must
// then come from dependency management.
func parseDeclared(value string) (model.Coordinate, error) {
	c, err := model.ParseCoordinate(value)
	if err == nil {
		return c, nil
	}
	if strings.Count(value, ":") == 1 {
		m, merr := model.ParseModule(value)
		if merr == nil {
			return model.Coordinate{Group: m.Group, Name: m.Name, Extension: model.DefaultExtension}, nil
		}
	}
	return model.Coordinate{}, err
}

// rank orders property origins: higher precedence sources declare first.
func rank(origin string) int {
	switch origin {
	case config.SourceCommandLine:
		return 5
	case config.SourceEnvironment:
		return 4
	case config.SourceUser:
		return 3
	case config.SourceRoot:
		return 2
	case config.SourceArchive:
		return 1
	default:
		return 0
	}
}

// Repositories returns the repository declarations in precedence order:
// property declarations by source precedence, then the descriptor's own.
func (s *Store) Repositories() []repository.Declaration {
	out := append([]repository.Declaration(nil), s.repositories...)
	if s.Project != nil {
		out = append(out, repository.FromPOM(s.Project.Repositories)...)
	}
	return out
}

// Declarations expands the store into resolver input. Unless the list is
// computed, the descriptor's effective model (parents, management, BOMs) is
// built with b.
func (s *Store) Declarations(ctx context.Context, b *pom.Builder) (*Declarations, error) {
	d := &Declarations{Computed: s.Computed, Exclusions: append([]model.Exclusion(nil), s.Exclusions...)}

	if !s.Computed && s.Project != nil {
		m, err := b.Build(ctx, s.Project)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s descriptor", s.ProjectSource)
		}
		d.Dependencies = m.Dependencies
		d.Managed = m.Managed
	}
	if len(s.BOMs) > 0 {
		imported, err := b.ImportManagement(ctx, s.BOMs)
		if err != nil {
			return nil, errors.Wrap(err, "failed to import boms")
		}
		d.Managed = append(d.Managed, imported...)
	}

	for _, pd := range s.Dependencies {
		if pd.Removed {
			d.Dependencies = removeNamed(d.Dependencies, pd.Key)
			continue
		}
		d.Dependencies = override(d.Dependencies, pd.Dependency)
	}

	managed := indexManaged(d.Managed)
	for i, dep := range d.Dependencies {
		if dep.Coordinate.Version != "" {
			continue
		}
		if m, ok := managed[dep.Coordinate.ModuleKey()]; ok && m.Coordinate.Version != "" {
			d.Dependencies[i].Coordinate.Version = m.Coordinate.Version
			continue
		}
		return nil, errors.NewConfigurationError(config.DependenciesPrefix+dep.Coordinate.Name,
			fmt.Errorf("%w: %s:%s has no version", errors.ErrInvalidCoordinate, dep.Coordinate.Group, dep.Coordinate.Name))
	}
	return d, nil
}

func indexManaged(managed []model.Dependency) map[string]model.Dependency {
	idx := make(map[string]model.Dependency, len(managed))
	for _, m := range managed {
		if _, ok := idx[m.Coordinate.ModuleKey()]; !ok {
			idx[m.Coordinate.ModuleKey()] = m
		}
	}
	return idx
}

// override replaces the declaration of the same module or appends a new one.
func override(deps []model.Dependency, d model.Dependency) []model.Dependency {
	for i, existing := range deps {
		if existing.Coordinate.ModuleKey() == d.Coordinate.ModuleKey() {
			d.Exclusions = existing.Exclusions
			deps[i] = d
			return deps
		}
	}
	return append(deps, d)
}

func removeNamed(deps []model.Dependency, name string) []model.Dependency {
	out := deps[:0]
	for _, d := range deps {
		if d.Coordinate.Name != name {
			out = append(out, d)
		}
	}
	return out
}
