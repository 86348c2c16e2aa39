// Package testutil provides an on-disk remote repository served over HTTP for
// tests, with helpers to publish artifacts and count requests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/glorpus-work/thinlaunch/internal/logger"
)

// RepoServer serves a repository directory and records every request path.
type RepoServer struct {
	*httptest.Server
	Root string

	hits atomic.Int64
	mu   sync.Mutex
	log  []string
}

// NewRepoServer starts a server backed by a fresh temporary directory.
func NewRepoServer(t *testing.T) *RepoServer {
	t.Helper()
	rs := &RepoServer{Root: t.TempDir()}
	files := http.FileServer(http.Dir(rs.Root))
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.hits.Add(1)
		rs.mu.Lock()
		rs.log = append(rs.log, r.URL.Path)
		rs.mu.Unlock()
		info, err := os.Stat(filepath.Join(rs.Root, filepath.FromSlash(r.URL.Path)))
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}))
	t.Cleanup(rs.Close)
	return rs
}

// Requests returns the number of requests served so far.
func (rs *RepoServer) Requests() int64 { return rs.hits.Load() }

// Paths returns the requested paths in order.
func (rs *RepoServer) Paths() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.log...)
}

// Reset clears the request counters.
func (rs *RepoServer) Reset() {
	rs.hits.Store(0)
	rs.mu.Lock()
	rs.log = nil
	rs.mu.Unlock()
}

// Artifact describes what Publish writes.
type Artifact struct {
	Group, Name, Version string
	// Dependencies are group:name:version[:scope] entries of the generated descriptor.
	Dependencies []string
	// Content of the jar; defaults to the coordinate.
	Content string
	// Parent as group:name:version, optional.
	Parent string
	// Packaging defaults to jar; "pom" publishes the descriptor only.
	Packaging string
	// NoDescriptor publishes the jar without its .pom.
	NoDescriptor bool
}

// Publish writes the descriptor and jar of a release into the repository.
func (rs *RepoServer) Publish(t *testing.T, a Artifact) {
	t.Helper()
	dir := rs.versionDir(a.Group, a.Name, a.Version)
	base := a.Name + "-" + a.Version
	if !a.NoDescriptor {
		WriteFile(t, filepath.Join(dir, base+".pom"), POM(a))
	}
	if a.Packaging != "pom" {
		WriteFile(t, filepath.Join(dir, base+".jar"), content(a))
	}
	logger.Debugf("published %s:%s:%s", a.Group, a.Name, a.Version)
}

// PublishSnapshot writes a timestamped build of a -SNAPSHOT version and the
// version metadata naming it.
func (rs *RepoServer) PublishSnapshot(t *testing.T, a Artifact, timestamp string, build int) {
	t.Helper()
	dir := rs.versionDir(a.Group, a.Name, a.Version)
	stamped := strings.TrimSuffix(a.Version, "-SNAPSHOT") + "-" + timestamp + fmt.Sprintf("-%d", build)
	WriteFile(t, filepath.Join(dir, a.Name+"-"+stamped+".pom"), POM(a))
	WriteFile(t, filepath.Join(dir, a.Name+"-"+stamped+".jar"), content(a))
	WriteFile(t, filepath.Join(dir, "maven-metadata.xml"), fmt.Sprintf(`<metadata>
  <groupId>%s</groupId>
  <artifactId>%s</artifactId>
  <version>%s</version>
  <versioning>
    <snapshot><timestamp>%s</timestamp><buildNumber>%d</buildNumber></snapshot>
    <snapshotVersions>
      <snapshotVersion><extension>jar</extension><value>%s</value></snapshotVersion>
      <snapshotVersion><extension>pom</extension><value>%s</value></snapshotVersion>
    </snapshotVersions>
  </versioning>
</metadata>`, a.Group, a.Name, a.Version, timestamp, build, stamped, stamped))
}

// PublishVersions writes the module version listing.
func (rs *RepoServer) PublishVersions(t *testing.T, group, name string, versions ...string) {
	t.Helper()
	var sb strings.Builder
	for _, v := range versions {
		sb.WriteString("<version>" + v + "</version>")
	}
	latest := ""
	if len(versions) > 0 {
		latest = versions[len(versions)-1]
	}
	WriteFile(t, filepath.Join(rs.Root, filepath.FromSlash(strings.ReplaceAll(group, ".", "/")), name, "maven-metadata.xml"),
		fmt.Sprintf(`<metadata><groupId>%s</groupId><artifactId>%s</artifactId><versioning><latest>%s</latest><release>%s</release><versions>%s</versions></versioning></metadata>`,
			group, name, latest, latest, sb.String()))
}

func (rs *RepoServer) versionDir(group, name, version string) string {
	return filepath.Join(rs.Root, filepath.FromSlash(strings.ReplaceAll(group, ".", "/")), name, version)
}

func content(a Artifact) string {
	if a.Content != "" {
		return a.Content
	}
	return a.Group + ":" + a.Name + ":" + a.Version
}

// POM renders a minimal descriptor for a.
func POM(a Artifact) string {
	var sb strings.Builder
	sb.WriteString("<project>\n")
	if a.Parent != "" {
		p := strings.Split(a.Parent, ":")
		fmt.Fprintf(&sb, "  <parent><groupId>%s</groupId><artifactId>%s</artifactId><version>%s</version></parent>\n", p[0], p[1], p[2])
	}
	fmt.Fprintf(&sb, "  <groupId>%s</groupId>\n  <artifactId>%s</artifactId>\n  <version>%s</version>\n", a.Group, a.Name, a.Version)
	if a.Packaging != "" {
		fmt.Fprintf(&sb, "  <packaging>%s</packaging>\n", a.Packaging)
	}
	if len(a.Dependencies) > 0 {
		sb.WriteString("  <dependencies>\n")
		for _, d := range a.Dependencies {
			parts := strings.Split(d, ":")
			fmt.Fprintf(&sb, "    <dependency><groupId>%s</groupId><artifactId>%s</artifactId><version>%s</version>", parts[0], parts[1], parts[2])
			if len(parts) > 3 {
				fmt.Fprintf(&sb, "<scope>%s</scope>", parts[3])
			}
			sb.WriteString("</dependency>\n")
		}
		sb.WriteString("  </dependencies>\n")
	}
	sb.WriteString("</project>\n")
	return sb.String()
}

// WriteFile creates parent directories and writes content.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
