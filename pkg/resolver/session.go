package resolver

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/glorpus-work/thinlaunch/pkg/download"
	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/fsutil"
	"github.com/glorpus-work/thinlaunch/pkg/model"
	"github.com/glorpus-work/thinlaunch/pkg/pom"
	"github.com/glorpus-work/thinlaunch/pkg/repository"
	slogcontext "github.com/veqryn/slog-context"
)

// session is the state of one resolution call. Snapshot and version metadata
// are read at most once per session, which makes the snapshot re-check happen
// once per resolution.
type session struct {
	r      *Resolver
	policy *repository.Policy

	mu       sync.Mutex
	metadata map[string]*metadataResult
	checked  map[string]model.ResolvedArtifact
}

type metadataResult struct {
	once sync.Once
	meta *repository.Metadata
	err  error
}

func (r *Resolver) newSession(policy *repository.Policy) *session {
	return &session{
		r:        r,
		policy:   policy,
		metadata: make(map[string]*metadataResult),
		checked:  make(map[string]model.ResolvedArtifact),
	}
}

// FetchPOM implements pom.Fetcher.
func (s *session) FetchPOM(ctx context.Context, c model.Coordinate) (*pom.Project, error) {
	pc := c.POM()
	if !pc.IsSnapshot() {
		if p, ok := s.r.poms.Load(pc); ok {
			return p.(*pom.Project), nil
		}
	}
	a, err := s.artifact(ctx, pc)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", a.Path)
	}
	p, err := pom.Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "descriptor of %s", pc)
	}
	if !pc.IsSnapshot() {
		s.r.poms.Store(pc, p)
	}
	return p, nil
}

// artifact places c in the local cache. Concurrent requests for the same file
// share one fetch.
func (s *session) artifact(ctx context.Context, c model.Coordinate) (model.ResolvedArtifact, error) {
	dest := repository.LocalPath(s.policy.LocalRepository, c)

	s.mu.Lock()
	done, ok := s.checked[dest]
	s.mu.Unlock()
	if ok {
		return done, nil
	}

	v, err, _ := s.r.flight.Do(dest, func() (any, error) {
		if c.IsSnapshot() {
			return s.snapshot(ctx, c, dest)
		}
		return s.release(ctx, c, dest)
	})
	if err != nil {
		return model.ResolvedArtifact{}, err
	}
	a := v.(model.ResolvedArtifact)
	a.Coordinate = c
	s.mu.Lock()
	s.checked[dest] = a
	s.mu.Unlock()
	return a, nil
}

// prefetch downloads the uncached release artifacts of the selection as one
// batch and records where each landed. Snapshots and cached files are left to
// artifact.
func (s *session) prefetch(ctx context.Context, selected []selection) error {
	if s.policy.Offline {
		return nil
	}
	var items []download.Item
	byID := map[string]model.Coordinate{}
	for _, sel := range selected {
		c := sel.coordinate
		dest := repository.LocalPath(s.policy.LocalRepository, c)
		if _, dup := byID[c.String()]; dup || c.IsSnapshot() || fsutil.Exists(dest) {
			continue
		}
		sources := s.sources(c, c.Version, nil)
		if len(sources) == 0 {
			return unresolved(c, errors.ErrNoRepositories)
		}
		byID[c.String()] = c
		items = append(items, download.Item{ID: c.String(), Sources: sources, Dest: dest, Sidecars: true})
	}
	if len(items) == 0 {
		return nil
	}

	results, err := s.r.downloads.FetchAll(ctx, items, s.r.opts)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var fe *download.FetchError
		if errors.As(err, &fe) {
			if c, ok := byID[fe.ID]; ok {
				return unresolved(c, err)
			}
		}
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, res := range results {
		c := byID[id]
		repo := res.Repository
		if res.Reused {
			repo = repository.LocalID
		}
		s.checked[repository.LocalPath(s.policy.LocalRepository, c)] = model.ResolvedArtifact{
			Coordinate: c,
			Path:       res.Path,
			Repository: repo,
		}
	}
	return nil
}

// release serves c from the cache or fetches it once. A descriptor that no
// repository publishes is recorded next to its cache path and not asked for
// again until the set of repositories changes.
func (s *session) release(ctx context.Context, c model.Coordinate, dest string) (model.ResolvedArtifact, error) {
	if fsutil.Exists(dest) {
		return model.ResolvedArtifact{Coordinate: c, Path: dest, Repository: repository.LocalID}, nil
	}
	if s.policy.Offline {
		return model.ResolvedArtifact{}, unresolved(c, fmt.Errorf("%w: not in %s", errors.ErrOffline, s.policy.LocalRepository))
	}
	sources := s.sources(c, c.Version, nil)
	if c.GetExtension() != "pom" || len(sources) == 0 {
		return s.fetch(ctx, c, dest, sources, false)
	}

	marker := dest + repository.MissingMarkerSuffix
	asked := sourceKey(sources)
	if readMarker(marker) == asked {
		return model.ResolvedArtifact{}, unresolved(c, fmt.Errorf("%w: recorded in %s", errors.ErrNotFound, marker))
	}
	a, err := s.fetch(ctx, c, dest, sources, false)
	switch {
	case err == nil:
		_ = os.Remove(marker)
	case allNotFound(err):
		if werr := fsutil.WriteFileAtomic(marker, []byte(asked)); werr != nil {
			slogcontext.FromCtx(ctx).Debug("could not record missing descriptor", "coordinate", c.String(), "error", werr)
		}
	}
	return a, err
}

// snapshot re-checks the newest build unless offline. A cached build stays
// valid when it is the newest, when no repository publishes metadata for it,
// or when the newer build cannot be fetched.
func (s *session) snapshot(ctx context.Context, c model.Coordinate, dest string) (model.ResolvedArtifact, error) {
	logger := slogcontext.FromCtx(ctx)
	cached := fsutil.Exists(dest)
	local := model.ResolvedArtifact{Coordinate: c, Path: dest, Repository: repository.LocalID}
	if s.policy.Offline {
		if cached {
			return local, nil
		}
		return model.ResolvedArtifact{}, unresolved(c, fmt.Errorf("%w: not in %s", errors.ErrOffline, s.policy.LocalRepository))
	}

	build, repo, ok := s.latestBuild(ctx, c)
	if !ok {
		if cached {
			return local, nil
		}
		return s.fetch(ctx, c, dest, s.sources(c, c.Version, nil), false)
	}

	marker := dest + repository.BuildMarkerSuffix
	if cached && readMarker(marker) == build {
		return local, nil
	}
	a, err := s.fetch(ctx, c, dest, s.sources(c, build, &repo), true)
	if err != nil {
		if cached {
			logger.Warn("using cached snapshot", "coordinate", c.String(), "error", err)
			return local, nil
		}
		return model.ResolvedArtifact{}, err
	}
	if err := fsutil.WriteFileAtomic(marker, []byte(build)); err != nil {
		return model.ResolvedArtifact{}, errors.Wrap(err, "failed to record snapshot build")
	}
	logger.Debug("snapshot updated", "coordinate", c.String(), "build", build, "repository", repo.ID)
	return a, nil
}

// latestBuild asks the snapshot-enabled repositories in order; the first one
// publishing metadata for c's version decides the build.
func (s *session) latestBuild(ctx context.Context, c model.Coordinate) (string, repository.Descriptor, bool) {
	rel := repository.VersionMetadataPath(c)
	for _, repo := range s.policy.Repositories {
		if !repo.SnapshotsEnabled {
			continue
		}
		m, err := s.readMetadata(ctx, repo, rel)
		if err != nil {
			slogcontext.FromCtx(ctx).Debug("no snapshot metadata", "repository", repo.ID, "error", err)
			continue
		}
		if build, ok := m.SnapshotBuild(c); ok {
			return build, repo, true
		}
		return c.Version, repo, true
	}
	return "", repository.Descriptor{}, false
}

func (s *session) fetch(ctx context.Context, c model.Coordinate, dest string, sources []download.Source, refresh bool) (model.ResolvedArtifact, error) {
	if len(sources) == 0 {
		return model.ResolvedArtifact{}, unresolved(c, errors.ErrNoRepositories)
	}
	res, err := s.r.downloads.Fetch(ctx, download.Item{
		ID:       c.String(),
		Sources:  sources,
		Dest:     dest,
		Refresh:  refresh,
		Sidecars: true,
	}, s.r.opts)
	if err != nil {
		if ctx.Err() != nil {
			return model.ResolvedArtifact{}, ctx.Err()
		}
		return model.ResolvedArtifact{}, unresolved(c, err)
	}
	repo := res.Repository
	if res.Reused {
		repo = repository.LocalID
	}
	return model.ResolvedArtifact{Coordinate: c, Path: res.Path, Repository: repo}, nil
}

// sources lists the repositories that may serve c, in policy order, or only
// the given one.
func (s *session) sources(c model.Coordinate, version string, only *repository.Descriptor) []download.Source {
	repos := s.policy.Repositories
	if only != nil {
		repos = []repository.Descriptor{*only}
	}
	out := make([]download.Source, 0, len(repos))
	for _, repo := range repos {
		if !repo.Serves(c) {
			continue
		}
		if src, ok := toSource(repo, repo.ArtifactURL(c, version)); ok {
			out = append(out, src)
		}
	}
	return out
}

func toSource(repo repository.Descriptor, raw string) (download.Source, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return download.Source{}, false
	}
	return download.Source{Repository: repo.ID, URL: u, Proxy: repo.Proxy, Credentials: repo.Credentials}, true
}

// readMetadata returns the metadata of rel in repo: refreshed once per session
// when online, the cached copy when offline.
func (s *session) readMetadata(ctx context.Context, repo repository.Descriptor, rel string) (*repository.Metadata, error) {
	dest := repository.LocalMetadataPath(s.policy.LocalRepository, rel, repo.ID)
	s.mu.Lock()
	entry, ok := s.metadata[dest]
	if !ok {
		entry = &metadataResult{}
		s.metadata[dest] = entry
	}
	s.mu.Unlock()

	entry.once.Do(func() {
		if !s.policy.Offline {
			src, ok := toSource(repo, repo.MetadataURL(rel))
			if !ok {
				entry.err = errors.ErrRepositoryURLInvalid
				return
			}
			if _, err := s.r.downloads.Fetch(ctx, download.Item{
				ID:      repo.ID + ":" + rel,
				Sources: []download.Source{src},
				Dest:    dest,
				Refresh: true,
			}, s.r.opts); err != nil {
				entry.err = err
				return
			}
		}
		entry.meta, entry.err = cachedMetadata(dest)
	})
	return entry.meta, entry.err
}

// cachedMetadata parses a metadata copy already in the local repository.
func cachedMetadata(path string) (*repository.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return repository.ParseMetadata(data)
}

func readMarker(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func sourceKey(sources []download.Source) string {
	ids := make([]string, len(sources))
	for i, src := range sources {
		ids[i] = src.Repository
	}
	return strings.Join(ids, ",")
}

// allNotFound reports whether every repository answered that c does not exist,
// as opposed to being unreachable.
func allNotFound(err error) bool {
	var ue *errors.UnresolvedArtifactError
	if !errors.As(err, &ue) || len(ue.Causes) == 0 {
		return false
	}
	for _, cause := range ue.Causes {
		if !errors.Is(cause, errors.ErrNotFound) {
			return false
		}
	}
	return true
}
