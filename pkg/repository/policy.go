package repository

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/thinlaunch/pkg/auth"
	"github.com/glorpus-work/thinlaunch/pkg/config"
	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/fsutil"
	"github.com/glorpus-work/thinlaunch/pkg/pom"
	"github.com/glorpus-work/thinlaunch/pkg/settings"
)

// Policy is everything the resolver needs to know about where artifacts come from.
type Policy struct {
	Repositories    []Descriptor  `json:"repositories" yaml:"repositories"`
	LocalRepository string        `json:"localRepository" yaml:"localRepository"`
	Offline         bool          `json:"offline" yaml:"offline"`
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`
	Concurrency     int           `json:"concurrency" yaml:"concurrency"`
	Checksums       string        `json:"checksums" yaml:"checksums"`
}

// WithProxy returns the repositories that are reached through a proxy.
func (p *Policy) WithProxy() []Descriptor {
	var out []Descriptor
	for _, d := range p.Repositories {
		if d.HasProxy() {
			out = append(out, d)
		}
	}
	return out
}

// Get returns the repository with the given id.
func (p *Policy) Get(id string) (Descriptor, bool) {
	for _, d := range p.Repositories {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Declaration is a repository as declared by one configuration source, before
// settings (mirrors, proxies, servers) are applied.
type Declaration struct {
	ID          string
	URL         string
	Releases    *bool
	Snapshots   *bool
	Credentials auth.Authenticator
}

// FromPOM converts descriptor repositories.
func FromPOM(repos []pom.Repository) []Declaration {
	out := make([]Declaration, 0, len(repos))
	for _, r := range repos {
		releases, snapshots := r.Releases.IsEnabled(), r.Snapshots.IsEnabled()
		out = append(out, Declaration{ID: r.ID, URL: r.URL, Releases: &releases, Snapshots: &snapshots})
	}
	return out
}

// FromProperties converts repositories.<id>=<url> entries (prefix already
// stripped). <id>.snapshots=false and <id>.releases=false adjust the policy.
func FromProperties(entries []config.Entry) []Declaration {
	var out []Declaration
	index := map[string]int{}
	at := func(id string) *Declaration {
		if i, ok := index[id]; ok {
			return &out[i]
		}
		index[id] = len(out)
		out = append(out, Declaration{ID: id})
		return &out[len(out)-1]
	}
	for _, e := range entries {
		id, attr, _ := strings.Cut(e.Key, ".")
		d := at(id)
		enabled := !strings.EqualFold(strings.TrimSpace(e.Value), "false")
		switch attr {
		case "", "url":
			d.URL = strings.TrimSpace(e.Value)
		case "snapshots":
			d.Snapshots = &enabled
		case "releases":
			d.Releases = &enabled
		}
	}
	filtered := out[:0]
	for _, d := range out {
		if d.URL != "" {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// FromConfig converts repositories of the launcher settings file.
func FromConfig(repos []*config.RepositoryConfig) []Declaration {
	out := make([]Declaration, 0, len(repos))
	for _, r := range repos {
		releases, snapshots := r.ReleasesEnabled(), r.SnapshotsEnabled()
		out = append(out, Declaration{
			ID:          r.ID,
			URL:         r.URL,
			Releases:    &releases,
			Snapshots:   &snapshots,
			Credentials: r.Auth.ToAuthenticator(),
		})
	}
	return out
}

// Builder assembles a Policy. Declarations are kept in the order they are
// added; the first declaration of an id wins.
type Builder struct {
	cfg      *config.Effective
	settings *settings.Settings
	decls    []Declaration
}

// NewBuilder starts a policy from the effective configuration and user settings.
func NewBuilder(cfg *config.Effective, st *settings.Settings) *Builder {
	if st == nil {
		st = settings.Empty()
	}
	return &Builder{cfg: cfg, settings: st}
}

// Add appends declarations.
func (b *Builder) Add(decls ...Declaration) *Builder {
	b.decls = append(b.decls, decls...)
	return b
}

// Build applies mirrors, credentials and proxies, appends the default
// repository and resolves the local cache location.
func (b *Builder) Build() (*Policy, error) {
	p := &Policy{
		LocalRepository: b.localRepository(),
		Offline:         b.cfg.Bool(config.KeyOffline) || b.settings.IsOffline(),
		Timeout:         b.cfg.Timeout(),
		Concurrency:     b.cfg.Int(config.KeyConcurrency, config.DefaultConcurrency),
		Checksums:       b.checksums(),
	}

	all := append(append([]Declaration(nil), b.decls...), Declaration{
		ID:  config.DefaultRepoID,
		URL: b.cfg.Value(config.KeyRepo, config.DefaultRepoURL),
	})

	seen := map[string]int{}
	for _, decl := range all {
		if decl.ID == "" {
			return nil, errors.NewConfigurationError("repositories", errors.ErrEmptyRepositoryID)
		}
		if _, dup := seen[decl.ID]; dup {
			continue
		}
		d, err := b.descriptor(decl)
		if err != nil {
			return nil, err
		}
		seen[decl.ID] = len(p.Repositories)
		if d.Mirror != "" {
			if at, ok := seen["mirror:"+d.Mirror]; ok {
				merged := &p.Repositories[at]
				merged.ReleasesEnabled = merged.ReleasesEnabled || d.ReleasesEnabled
				merged.SnapshotsEnabled = merged.SnapshotsEnabled || d.SnapshotsEnabled
				continue
			}
			seen["mirror:"+d.Mirror] = len(p.Repositories)
		}
		p.Repositories = append(p.Repositories, d)
	}
	return p, nil
}

func (b *Builder) descriptor(decl Declaration) (Descriptor, error) {
	raw := strings.TrimSpace(decl.URL)
	u, err := url.Parse(raw)
	if raw == "" {
		return Descriptor{}, errors.NewConfigurationError("repository "+decl.ID, errors.ErrRepositoryURLEmpty)
	}
	if err != nil || u.Scheme == "" {
		return Descriptor{}, errors.NewConfigurationError("repository "+decl.ID,
			fmt.Errorf("%w: %s", errors.ErrRepositoryURLInvalid, raw))
	}

	d := Descriptor{
		ID:               decl.ID,
		URL:              raw,
		ReleasesEnabled:  decl.Releases == nil || *decl.Releases,
		SnapshotsEnabled: decl.Snapshots == nil || *decl.Snapshots,
		Credentials:      decl.Credentials,
	}
	credentialsID := decl.ID
	if m := b.settings.MirrorFor(decl.ID, raw); m != nil && m.URL != "" {
		d.URL = strings.TrimSpace(m.URL)
		d.Mirror = m.ID
		credentialsID = m.ID
	}
	if d.Credentials == nil {
		d.Credentials = b.settings.Authenticator(credentialsID)
	}
	if proxy := b.settings.ProxyFor(d.URL); proxy != nil {
		d.Proxy = proxy.URL()
	}
	return d, nil
}

// localRepository: <thin.root>/repository, then the settings localRepository,
// then <home>/.m2/repository. The result is absolute.
func (b *Builder) localRepository() string {
	dir := fsutil.DefaultLocalRepository(fsutil.UserHome(b.cfg.Value(config.KeyHome, "")))
	if root := b.cfg.Value(config.KeyRoot, ""); root != "" {
		dir = filepath.Join(fsutil.ExpandHome(root), "repository")
	} else if local := b.settings.LocalRepository; local != "" {
		dir = fsutil.ExpandHome(local)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

func (b *Builder) checksums() string {
	switch v := strings.ToLower(b.cfg.Value(config.KeyChecksums, config.DefaultChecksums)); v {
	case config.ChecksumIgnore, config.ChecksumWarn, config.ChecksumFail:
		return v
	default:
		return config.DefaultChecksums
	}
}
