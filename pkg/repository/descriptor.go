// Package repository builds the repository policy used for resolution (remote
// repositories with their proxy, credentials and snapshot policy, local cache
// location, offline flag) and knows the remote directory layout.
package repository

import (
	"net/url"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/auth"
	"github.com/glorpus-work/thinlaunch/pkg/model"
)

// LocalID is reported as the repository of artifacts found in the local cache.
const LocalID = "local"

// Descriptor is one remote repository with its access policy attached.
type Descriptor struct {
	ID               string `json:"id" yaml:"id"`
	URL              string `json:"url" yaml:"url"`
	ReleasesEnabled  bool   `json:"releases" yaml:"releases"`
	SnapshotsEnabled bool   `json:"snapshots" yaml:"snapshots"`
	// Mirror is the id of the mirror that replaced the declared URL, if any.
	Mirror string `json:"mirror,omitempty" yaml:"mirror,omitempty"`
	// Proxy is nil for a direct connection.
	Proxy       *url.URL           `json:"-" yaml:"-"`
	Credentials auth.Authenticator `json:"-" yaml:"-"`
}

// Serves reports whether the repository may be asked for the coordinate.
func (d Descriptor) Serves(c model.Coordinate) bool {
	if c.IsSnapshot() {
		return d.SnapshotsEnabled
	}
	return d.ReleasesEnabled
}

// HasProxy reports whether requests go through a proxy.
func (d Descriptor) HasProxy() bool {
	return d.Proxy != nil
}

// ArtifactURL returns the remote location of a file of c. version is the
// concrete file version, which differs from c.Version for snapshot builds.
func (d Descriptor) ArtifactURL(c model.Coordinate, version string) string {
	return d.resolve(RemotePath(c, version))
}

// MetadataURL returns the location of a repository metadata file.
func (d Descriptor) MetadataURL(relPath string) string {
	return d.resolve(relPath)
}

func (d Descriptor) resolve(rel string) string {
	return strings.TrimRight(d.URL, "/") + "/" + rel
}
