// Package settings reads user build settings (the settings.xml schema): local
// repository, offline flag, proxies, servers, mirrors and profiles.
package settings

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/auth"
	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/fsutil"
	"github.com/glorpus-work/thinlaunch/pkg/pom"
	"github.com/gobwas/glob"
)

// FileName is the settings file name inside a .m2 directory.
const FileName = "settings.xml"

// Settings is a parsed settings file.
type Settings struct {
	XMLName         xml.Name  `xml:"settings"`
	LocalRepository string    `xml:"localRepository"`
	Offline         string    `xml:"offline"`
	Proxies         []Proxy   `xml:"proxies>proxy"`
	Servers         []Server  `xml:"servers>server"`
	Mirrors         []Mirror  `xml:"mirrors>mirror"`
	Profiles        []Profile `xml:"profiles>profile"`
	ActiveProfiles  []string  `xml:"activeProfiles>activeProfile"`

	// Path is the file the settings were read from, empty for defaults.
	Path string `xml:"-"`
}

// Proxy routes requests for one protocol through a proxy host.
type Proxy struct {
	ID            string `xml:"id"`
	Active        string `xml:"active"`
	Protocol      string `xml:"protocol"`
	Host          string `xml:"host"`
	Port          int    `xml:"port"`
	Username      string `xml:"username"`
	Password      string `xml:"password"`
	NonProxyHosts string `xml:"nonProxyHosts"`
}

// Server holds credentials for the repository or mirror with the same id.
type Server struct {
	ID            string               `xml:"id"`
	Username      string               `xml:"username"`
	Password      string               `xml:"password"`
	Configuration *ServerConfiguration `xml:"configuration"`
}

// ServerConfiguration carries extra request headers.
type ServerConfiguration struct {
	HTTPHeaders []Header `xml:"httpHeaders>property"`
}

// Header is a single httpHeaders property.
type Header struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

// Mirror replaces the URL of the repositories matched by MirrorOf.
type Mirror struct {
	ID       string `xml:"id"`
	Name     string `xml:"name"`
	URL      string `xml:"url"`
	MirrorOf string `xml:"mirrorOf"`
}

// Profile contributes properties and repositories when active.
type Profile struct {
	ID           string           `xml:"id"`
	Activation   *Activation      `xml:"activation"`
	Properties   pom.Properties   `xml:"properties"`
	Repositories []pom.Repository `xml:"repositories>repository"`
}

// Activation holds the activeByDefault flag; other triggers are ignored.
type Activation struct {
	ActiveByDefault string `xml:"activeByDefault"`
}

// Empty returns settings with nothing configured.
func Empty() *Settings {
	return &Settings{}
}

// Parse decodes settings content.
func Parse(data []byte) (*Settings, error) {
	var s Settings
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	s.LocalRepository = strings.TrimSpace(s.LocalRepository)
	return &s, nil
}

// Load reads the settings file at path. An empty path or a missing file yields
// empty settings; a malformed file is a ConfigurationError.
func Load(path string) (*Settings, error) {
	if path == "" {
		return Empty(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, errors.NewConfigurationError(path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errors.NewConfigurationError(path, err)
	}
	s.Path = path
	return s, nil
}

// Locate returns the first settings file that exists: explicit, then
// <root>/.m2/settings.xml, then <home>/.m2/settings.xml. Empty if none does.
func Locate(explicit, root, home string) string {
	var candidates []string
	if explicit != "" {
		candidates = append(candidates, fsutil.ExpandHome(explicit))
	}
	if root != "" {
		candidates = append(candidates, filepath.Join(fsutil.ExpandHome(root), ".m2", FileName))
	}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, ".m2", FileName))
	}
	for _, c := range candidates {
		if fsutil.Exists(c) {
			return c
		}
	}
	return ""
}

// IsOffline reports the offline flag.
func (s *Settings) IsOffline() bool {
	return strings.EqualFold(strings.TrimSpace(s.Offline), "true")
}

// Active returns the profiles listed in activeProfiles, or the
// activeByDefault profiles when none is listed explicitly.
func (s *Settings) Active() []Profile {
	listed := map[string]bool{}
	for _, id := range s.ActiveProfiles {
		listed[strings.TrimSpace(id)] = true
	}
	var explicit, byDefault []Profile
	for _, p := range s.Profiles {
		if listed[p.ID] {
			explicit = append(explicit, p)
			continue
		}
		if p.Activation != nil && strings.EqualFold(strings.TrimSpace(p.Activation.ActiveByDefault), "true") {
			byDefault = append(byDefault, p)
		}
	}
	if len(explicit) > 0 {
		return explicit
	}
	return byDefault
}

// Properties returns the merged properties of the active profiles, later
// profiles overriding earlier ones.
func (s *Settings) Properties() map[string]string {
	out := map[string]string{}
	for _, p := range s.Active() {
		for _, name := range p.Properties.Names() {
			out[name], _ = p.Properties.Get(name)
		}
	}
	return out
}

// Repositories returns the repositories of the active profiles in order.
func (s *Settings) Repositories() []pom.Repository {
	var out []pom.Repository
	for _, p := range s.Active() {
		out = append(out, p.Repositories...)
	}
	return out
}

// Server returns the server entry with the given id.
func (s *Settings) Server(id string) *Server {
	for i := range s.Servers {
		if s.Servers[i].ID == id {
			return &s.Servers[i]
		}
	}
	return nil
}

// Authenticator returns the credentials for a repository or mirror id, or nil.
func (s *Settings) Authenticator(id string) auth.Authenticator {
	srv := s.Server(id)
	if srv == nil {
		return nil
	}
	var headers map[string]string
	if srv.Configuration != nil && len(srv.Configuration.HTTPHeaders) > 0 {
		headers = make(map[string]string, len(srv.Configuration.HTTPHeaders))
		for _, h := range srv.Configuration.HTTPHeaders {
			headers[h.Name] = h.Value
		}
	}
	return auth.FromServer(srv.Username, srv.Password, headers)
}

// IsActive reports whether the proxy is enabled; a missing flag means enabled.
func (p *Proxy) IsActive() bool {
	return !strings.EqualFold(strings.TrimSpace(p.Active), "false")
}

// URL renders the proxy address for an http.Transport. The proxy is always
// reached over plain HTTP; Protocol only selects the repositories it serves.
func (p *Proxy) URL() *url.URL {
	host := p.Host
	if p.Port > 0 {
		host = fmt.Sprintf("%s:%d", p.Host, p.Port)
	}
	u := &url.URL{Scheme: "http", Host: host}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// Bypasses reports whether host matches one of the nonProxyHosts patterns
// (separated by '|' or ',', '*' wildcards, case-insensitive).
func (p *Proxy) Bypasses(host string) bool {
	host = strings.ToLower(host)
	for _, pattern := range strings.FieldsFunc(p.NonProxyHosts, func(r rune) bool { return r == '|' || r == ',' }) {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}
		if g.Match(host) {
			return true
		}
	}
	return false
}

// ProxyFor returns the first active proxy whose protocol matches the URL scheme
// and whose nonProxyHosts do not exclude its host. Nil means a direct connection.
func (s *Settings) ProxyFor(rawURL string) *Proxy {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	for i := range s.Proxies {
		p := &s.Proxies[i]
		if !p.IsActive() || p.Host == "" {
			continue
		}
		protocol := p.Protocol
		if protocol == "" {
			protocol = "http"
		}
		if !strings.EqualFold(protocol, u.Scheme) {
			continue
		}
		if p.Bypasses(u.Hostname()) {
			continue
		}
		return p
	}
	return nil
}

// MirrorFor returns the first mirror whose mirrorOf matches the repository.
func (s *Settings) MirrorFor(repoID, repoURL string) *Mirror {
	for i := range s.Mirrors {
		if s.Mirrors[i].Matches(repoID, repoURL) {
			return &s.Mirrors[i]
		}
	}
	return nil
}

// Matches evaluates mirrorOf: a comma separated list of ids or wildcards, where
// "external:*" matches every non-local repository and "!id" excludes one.
func (m *Mirror) Matches(repoID, repoURL string) bool {
	matched := false
	for _, token := range strings.Split(m.MirrorOf, ",") {
		token = strings.TrimSpace(token)
		switch {
		case token == "":
			continue
		case strings.HasPrefix(token, "!"):
			if strings.TrimPrefix(token, "!") == repoID {
				return false
			}
		case token == "external:*":
			if !isLocal(repoURL) {
				matched = true
			}
		case token == "external:http:*":
			if !isLocal(repoURL) && strings.HasPrefix(strings.ToLower(repoURL), "http:") {
				matched = true
			}
		default:
			g, err := glob.Compile(token)
			if err == nil && g.Match(repoID) {
				matched = true
			}
		}
	}
	return matched
}

func isLocal(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme == "file" {
		return true
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
