package repository

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/model"
)

// MetadataFile is the per-directory repository metadata name.
const MetadataFile = "maven-metadata.xml"

// BuildMarkerSuffix names the sidecar recording which timestamped build a cached
// snapshot file holds.
const BuildMarkerSuffix = ".build"

// MissingMarkerSuffix names the sidecar recording that no repository published
// a release descriptor. It holds the repository ids that were asked.
const MissingMarkerSuffix = ".lastUpdated"

// fileName renders <name>-<version>[-<classifier>].<extension>.
func fileName(c model.Coordinate, version string) string {
	name := c.Name + "-" + version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return name + "." + c.GetExtension()
}

// moduleDir is <group as path>/<name>.
func moduleDir(c model.Coordinate) string {
	return path.Join(strings.ReplaceAll(c.Group, ".", "/"), c.Name)
}

// RemotePath is the repository-relative path of c's file for a concrete version.
// The directory always uses the base version.
func RemotePath(c model.Coordinate, version string) string {
	if version == "" {
		version = c.Version
	}
	return path.Join(moduleDir(c), model.BaseVersion(c.Version), fileName(c, version))
}

// VersionMetadataPath locates the snapshot metadata of c's version directory.
func VersionMetadataPath(c model.Coordinate) string {
	return path.Join(moduleDir(c), model.BaseVersion(c.Version), MetadataFile)
}

// ModuleMetadataPath locates the version listing of c's module.
func ModuleMetadataPath(c model.Coordinate) string {
	return path.Join(moduleDir(c), MetadataFile)
}

// LocalPath is where c lives in the local cache. Snapshot builds are stored
// under their base version name.
func LocalPath(localRepo string, c model.Coordinate) string {
	base := model.BaseVersion(c.Version)
	return filepath.Join(localRepo, filepath.FromSlash(path.Join(moduleDir(c), base, fileName(c, base))))
}

// LocalMetadataPath is the cached copy of a remote metadata file, kept per
// repository id.
func LocalMetadataPath(localRepo, relPath, repoID string) string {
	rel := strings.TrimSuffix(relPath, MetadataFile) + "maven-metadata-" + repoID + ".xml"
	return filepath.Join(localRepo, filepath.FromSlash(rel))
}
