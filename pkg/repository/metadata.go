package repository

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/model"
)

// Metadata is a maven-metadata.xml document: either a module version listing
// or the build listing of a snapshot version directory.
type Metadata struct {
	XMLName    xml.Name   `xml:"metadata"`
	GroupID    string     `xml:"groupId"`
	ArtifactID string     `xml:"artifactId"`
	Version    string     `xml:"version"`
	Versioning Versioning `xml:"versioning"`
}

// Versioning holds the listing.
type Versioning struct {
	Latest           string            `xml:"latest"`
	Release          string            `xml:"release"`
	Versions         []string          `xml:"versions>version"`
	Snapshot         *Snapshot         `xml:"snapshot"`
	SnapshotVersions []SnapshotVersion `xml:"snapshotVersions>snapshotVersion"`
	LastUpdated      string            `xml:"lastUpdated"`
}

// Snapshot identifies the newest build of a snapshot version.
type Snapshot struct {
	Timestamp   string `xml:"timestamp"`
	BuildNumber int    `xml:"buildNumber"`
	LocalCopy   bool   `xml:"localCopy"`
}

// SnapshotVersion maps one file (extension/classifier) to its build version.
type SnapshotVersion struct {
	Extension  string `xml:"extension"`
	Classifier string `xml:"classifier"`
	Value      string `xml:"value"`
	Updated    string `xml:"updated"`
}

// ParseMetadata decodes a metadata document.
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse repository metadata: %w", err)
	}
	return &m, nil
}

// SnapshotBuild returns the timestamped version of c's file. The boolean is
// false when the metadata names no remote build (e.g. a locally installed one).
func (m *Metadata) SnapshotBuild(c model.Coordinate) (string, bool) {
	for _, sv := range m.Versioning.SnapshotVersions {
		if sv.Extension == c.GetExtension() && sv.Classifier == c.Classifier && sv.Value != "" {
			return sv.Value, true
		}
	}
	s := m.Versioning.Snapshot
	if s == nil || s.Timestamp == "" || s.BuildNumber == 0 {
		return "", false
	}
	base := strings.TrimSuffix(model.BaseVersion(c.Version), model.SnapshotSuffix)
	return base + "-" + s.Timestamp + "-" + strconv.Itoa(s.BuildNumber), true
}

// UpdatedMarker is a comparable stamp of the newest build the metadata names.
func (m *Metadata) UpdatedMarker(c model.Coordinate) string {
	if build, ok := m.SnapshotBuild(c); ok {
		return build
	}
	return m.Versioning.LastUpdated
}
