package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glorpus-work/thinlaunch/pkg/auth"
	"github.com/glorpus-work/thinlaunch/pkg/config"
	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/pom"
	"github.com/glorpus-work/thinlaunch/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settingsXML = `<settings>
  <localRepository>/opt/m2</localRepository>
  <proxies>
    <proxy>
      <id>corp</id>
      <protocol>https</protocol>
      <host>proxy.corp</host>
      <port>3128</port>
      <nonProxyHosts>*.internal</nonProxyHosts>
    </proxy>
  </proxies>
  <servers>
    <server>
      <id>internal</id>
      <username>deploy</username>
      <password>secret</password>
    </server>
  </servers>
</settings>`

func effective(t *testing.T, kv ...string) *config.Effective {
	t.Helper()
	p := config.NewProperties()
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	eff, err := config.Merge(config.Defaults(), config.Static("test", p))
	require.NoError(t, err)
	return eff
}

func parseSettings(t *testing.T, data string) *settings.Settings {
	t.Helper()
	s, err := settings.Parse([]byte(data))
	require.NoError(t, err)
	return s
}

func TestBuild_DefaultRepository(t *testing.T) {
	p, err := NewBuilder(effective(t, config.KeyHome, "/home/me"), nil).Build()
	require.NoError(t, err)

	require.Len(t, p.Repositories, 1)
	central := p.Repositories[0]
	assert.Equal(t, config.DefaultRepoID, central.ID)
	assert.Equal(t, config.DefaultRepoURL, central.URL)
	assert.True(t, central.ReleasesEnabled)
	assert.True(t, central.SnapshotsEnabled)
	assert.Nil(t, central.Proxy)
	assert.Equal(t, filepath.Join("/home/me", ".m2", "repository"), p.LocalRepository)
	assert.Equal(t, config.DefaultConcurrency, p.Concurrency)
	assert.Equal(t, config.DefaultTimeout, p.Timeout)
	assert.Equal(t, config.ChecksumWarn, p.Checksums)
	assert.False(t, p.Offline)
}

func TestBuild_FirstIDWins(t *testing.T) {
	p, err := NewBuilder(effective(t), nil).
		Add(Declaration{ID: "internal", URL: "https://root.example/repo"}).
		Add(Declaration{ID: "internal", URL: "https://archive.example/repo"}).
		Add(Declaration{ID: "central", URL: "https://central.mirror/maven2"}).
		Build()
	require.NoError(t, err)

	require.Len(t, p.Repositories, 2)
	assert.Equal(t, "https://root.example/repo", p.Repositories[0].URL)
	assert.Equal(t, "https://central.mirror/maven2", p.Repositories[1].URL)
}

func TestBuild_ProxyPerRepository(t *testing.T) {
	st := parseSettings(t, settingsXML)
	p, err := NewBuilder(effective(t), st).
		Add(Declaration{ID: "internal", URL: "https://repo.internal/maven"}).
		Build()
	require.NoError(t, err)

	internal, ok := p.Get("internal")
	require.True(t, ok)
	assert.False(t, internal.HasProxy(), "nonProxyHosts bypasses the proxy")

	central, ok := p.Get(config.DefaultRepoID)
	require.True(t, ok)
	require.True(t, central.HasProxy())
	assert.Equal(t, "proxy.corp:3128", central.Proxy.Host)
	assert.Equal(t, "http", central.Proxy.Scheme, "an https proxy entry is still dialled over plain http")
	assert.Len(t, p.WithProxy(), 1)
}

func TestBuild_CredentialsFromServers(t *testing.T) {
	st := parseSettings(t, settingsXML)
	p, err := NewBuilder(effective(t), st).
		Add(Declaration{ID: "internal", URL: "https://repo.internal/maven"}).
		Add(Declaration{ID: "own", URL: "https://own.example", Credentials: auth.BearerAuth{Token: "t"}}).
		Build()
	require.NoError(t, err)

	internal, _ := p.Get("internal")
	require.NotNil(t, internal.Credentials)
	assert.Equal(t, auth.BasicAuthType, internal.Credentials.Type())

	own, _ := p.Get("own")
	assert.Equal(t, auth.BearerAuthType, own.Credentials.Type())

	central, _ := p.Get(config.DefaultRepoID)
	assert.Nil(t, central.Credentials)
}

func TestBuild_LocalRepositoryPrecedence(t *testing.T) {
	st := parseSettings(t, settingsXML)

	p, err := NewBuilder(effective(t, config.KeyRoot, "/work/thin"), st).Build()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/work/thin", "repository"), p.LocalRepository)

	p, err = NewBuilder(effective(t), st).Build()
	require.NoError(t, err)
	assert.Equal(t, "/opt/m2", p.LocalRepository)
}

func TestBuild_Mirror(t *testing.T) {
	st := parseSettings(t, `<settings>
  <mirrors>
    <mirror>
      <id>nexus</id>
      <url>https://nexus.example/all</url>
      <mirrorOf>*,!local-only</mirrorOf>
    </mirror>
  </mirrors>
</settings>`)
	releasesOnly := false
	p, err := NewBuilder(effective(t), st).
		Add(Declaration{ID: "spring", URL: "https://repo.spring.io/release", Snapshots: &releasesOnly}).
		Add(Declaration{ID: "local-only", URL: "https://other.example/repo"}).
		Build()
	require.NoError(t, err)

	require.Len(t, p.Repositories, 2, "repositories behind one mirror collapse")
	assert.Equal(t, "https://nexus.example/all", p.Repositories[0].URL)
	assert.Equal(t, "nexus", p.Repositories[0].Mirror)
	assert.True(t, p.Repositories[0].SnapshotsEnabled, "central behind the same mirror enables snapshots")
	assert.Equal(t, "https://other.example/repo", p.Repositories[1].URL)
}

func TestBuild_OfflineAndTuning(t *testing.T) {
	p, err := NewBuilder(effective(t,
		config.KeyOffline, "true",
		config.KeyTimeout, "5",
		config.KeyConcurrency, "2",
		config.KeyChecksums, "FAIL",
		config.KeyRepo, "https://override.example/maven2",
	), nil).Build()
	require.NoError(t, err)

	assert.True(t, p.Offline)
	assert.Equal(t, 5*time.Second, p.Timeout)
	assert.Equal(t, 2, p.Concurrency)
	assert.Equal(t, config.ChecksumFail, p.Checksums)
	assert.Equal(t, "https://override.example/maven2", p.Repositories[0].URL)

	p, err = NewBuilder(effective(t), parseSettings(t, `<settings><offline>true</offline></settings>`)).Build()
	require.NoError(t, err)
	assert.True(t, p.Offline)
}

func TestBuild_InvalidDeclarations(t *testing.T) {
	tests := []struct {
		name     string
		decl     Declaration
		expected error
	}{
		{name: "empty id", decl: Declaration{URL: "https://x"}, expected: errors.ErrEmptyRepositoryID},
		{name: "empty url", decl: Declaration{ID: "x"}, expected: errors.ErrRepositoryURLEmpty},
		{name: "relative url", decl: Declaration{ID: "x", URL: "not a url"}, expected: errors.ErrRepositoryURLInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder(effective(t), nil).Add(tt.decl).Build()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
			assert.ErrorIs(t, err, errors.ErrConfiguration)
		})
	}
}

func TestDeclarationSources(t *testing.T) {
	props := FromProperties([]config.Entry{
		{Key: "spring", Value: "https://repo.spring.io/snapshot"},
		{Key: "spring.releases", Value: "false"},
		{Key: "dangling.snapshots", Value: "false"},
	})
	require.Len(t, props, 1)
	assert.Equal(t, "spring", props[0].ID)
	assert.False(t, *props[0].Releases)
	assert.Nil(t, props[0].Snapshots)

	fromPOM := FromPOM([]pom.Repository{{
		ID:        "jboss",
		URL:       "https://repository.jboss.org/nexus/content/groups/public",
		Snapshots: &pom.Policy{Enabled: "false"},
	}})
	require.Len(t, fromPOM, 1)
	assert.True(t, *fromPOM[0].Releases)
	assert.False(t, *fromPOM[0].Snapshots)

	disabled := false
	fromConfig := FromConfig([]*config.RepositoryConfig{{
		ID:        "company",
		URL:       "https://repo.company/maven",
		Snapshots: &disabled,
		Auth:      &config.AuthConfig{BearerAuth: &config.BearerAuth{Token: "abc"}},
	}})
	require.Len(t, fromConfig, 1)
	assert.False(t, *fromConfig[0].Snapshots)
	assert.Equal(t, auth.BearerAuthType, fromConfig[0].Credentials.Type())
}
