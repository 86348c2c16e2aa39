package resolver

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/model"
	"github.com/glorpus-work/thinlaunch/pkg/pom"
	"github.com/glorpus-work/thinlaunch/pkg/repository"
	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"
)

// Version keywords resolved from module metadata.
const (
	VersionLatest  = "LATEST"
	VersionRelease = "RELEASE"
)

type node struct {
	dep        model.Dependency
	depth      int
	exclusions []model.Exclusion
}

type selection struct {
	coordinate model.Coordinate
	depth      int
}

// collect walks the graph breadth first. The first version met for a module
// (nearest to the declarations, then earliest declared) wins; managed versions
// override transitive ones. Descriptors of one level are fetched in parallel
// and expanded in declaration order, so the result is deterministic.
func (s *session) collect(ctx context.Context, req Request) ([]selection, error) {
	managed := make(map[string]model.Dependency, len(req.Managed))
	for _, m := range req.Managed {
		if _, ok := managed[m.Coordinate.ModuleKey()]; !ok {
			managed[m.Coordinate.ModuleKey()] = m
		}
	}

	var level []node
	for _, d := range req.Dependencies {
		if !d.Scope.IsRuntime() || model.Excluded(req.Exclusions, d.Coordinate) {
			continue
		}
		level = append(level, node{dep: d, exclusions: d.Exclusions})
	}

	selected := make(map[string]bool)
	var out []selection
	builder := pom.NewBuilder(s)
	for depth := 0; len(level) > 0; depth++ {
		var picked []node
		for _, n := range level {
			key := n.dep.Coordinate.ModuleKey()
			if selected[key] {
				continue
			}
			c, err := s.pin(ctx, n, managed)
			if err != nil {
				return nil, err
			}
			n.dep.Coordinate = c
			selected[key] = true
			picked = append(picked, n)
			out = append(out, selection{coordinate: c, depth: depth})
		}
		if req.Computed {
			break
		}

		models := make([]*pom.Model, len(picked))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(1, s.r.opts.Concurrency))
		for i, n := range picked {
			g.Go(func() error {
				m, err := s.model(gctx, builder, n.dep.Coordinate)
				models[i] = m
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []node
		for i, n := range picked {
			if models[i] == nil {
				continue
			}
			for _, child := range models[i].Dependencies {
				if !child.IsRuntime() || selected[child.Coordinate.ModuleKey()] {
					continue
				}
				if model.Excluded(n.exclusions, child.Coordinate) || model.Excluded(req.Exclusions, child.Coordinate) {
					continue
				}
				next = append(next, node{
					dep:        child,
					depth:      depth + 1,
					exclusions: append(slices.Clip(n.exclusions), child.Exclusions...),
				})
			}
		}
		level = next
	}
	return out, nil
}

// model returns the effective descriptor of c, or nil when c has none. A
// missing or unreadable descriptor leaves c without transitive dependencies.
func (s *session) model(ctx context.Context, b *pom.Builder, c model.Coordinate) (*pom.Model, error) {
	p, err := s.FetchPOM(ctx, c)
	if err == nil {
		var m *pom.Model
		if m, err = b.Build(ctx, p); err == nil {
			return m, nil
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	slogcontext.FromCtx(ctx).Warn("no dependency information available", "coordinate", c.String(), "error", err)
	return nil, nil
}

// pin applies dependency management and resolves ranges and version keywords.
func (s *session) pin(ctx context.Context, n node, managed map[string]model.Dependency) (model.Coordinate, error) {
	c := n.dep.Coordinate
	if m, ok := managed[c.ModuleKey()]; ok && m.Coordinate.Version != "" && (n.depth > 0 || c.Version == "") {
		c.Version = m.Coordinate.Version
	}
	switch {
	case c.Version == "":
		return c, unresolved(c, fmt.Errorf("%w: missing version", errors.ErrInvalidCoordinate))
	case model.IsVersionRange(c.Version):
		r, err := model.ParseVersionRange(c.Version)
		if err != nil {
			return c, unresolved(c, err)
		}
		highest := func(versions []string) (string, bool) {
			if v, ok := r.Highest(versions, false); ok {
				return v, true
			}
			return r.Highest(versions, true)
		}
		v, ok := highest(s.versions(ctx, c, true))
		if !ok && !s.policy.Offline {
			v, ok = highest(s.versions(ctx, c, false))
		}
		if !ok {
			return c, unresolved(c, fmt.Errorf("%w: %s", errors.ErrNoMatchingVersion, r))
		}
		return c.WithVersion(v), nil
	case c.Version == VersionLatest || c.Version == VersionRelease:
		v := s.keywordVersion(ctx, c, true)
		if v == "" && !s.policy.Offline {
			v = s.keywordVersion(ctx, c, false)
		}
		if v == "" {
			return c, unresolved(c, fmt.Errorf("%w: %s", errors.ErrNoMatchingVersion, c.Version))
		}
		return c.WithVersion(v), nil
	default:
		return c, nil
	}
}

// versions merges the version listings of every repository serving the module.
func (s *session) versions(ctx context.Context, c model.Coordinate, cached bool) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range s.moduleMetadata(ctx, c, cached) {
		for _, v := range m.Versioning.Versions {
			if v = strings.TrimSpace(v); v != "" && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func (s *session) keywordVersion(ctx context.Context, c model.Coordinate, cached bool) string {
	best := ""
	for _, m := range s.moduleMetadata(ctx, c, cached) {
		v := m.Versioning.Release
		if c.Version == VersionLatest && m.Versioning.Latest != "" {
			v = m.Versioning.Latest
		}
		if v != "" && (best == "" || model.CompareVersions(v, best) > 0) {
			best = v
		}
	}
	return best
}

// moduleMetadata returns the version listings of the module. With cached set
// only copies already in the local repository are read; otherwise each listing
// is refreshed once per session.
func (s *session) moduleMetadata(ctx context.Context, c model.Coordinate, cached bool) []*repository.Metadata {
	rel := repository.ModuleMetadataPath(c)
	var out []*repository.Metadata
	for _, repo := range s.policy.Repositories {
		if !repo.ReleasesEnabled && !repo.SnapshotsEnabled {
			continue
		}
		var (
			m   *repository.Metadata
			err error
		)
		if cached {
			m, err = cachedMetadata(repository.LocalMetadataPath(s.policy.LocalRepository, rel, repo.ID))
		} else {
			m, err = s.readMetadata(ctx, repo, rel)
		}
		if err != nil {
			slogcontext.FromCtx(ctx).Debug("no version listing", "repository", repo.ID, "module", c.ModuleKey(), "cached", cached, "error", err)
			continue
		}
		out = append(out, m)
	}
	return out
}
