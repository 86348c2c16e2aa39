package download

import (
	"context"
	"crypto/sha1" //nolint:gosec
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glorpus-work/thinlaunch/pkg/auth"
	pkgerrors "github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func sha1Hex(s string) string {
	h := sha1.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(h[:])
}

func source(t *testing.T, id, raw string) Source {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return Source{Repository: id, URL: u}
}

// fileServer serves a fixed set of paths and counts requests.
func fileServer(t *testing.T, files map[string]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		content, ok := files[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(content))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestNewManager(t *testing.T) {
	tests := []struct {
		name       string
		userAgent  string
		expectedUA string
	}{
		{name: "default user agent", expectedUA: DefaultUserAgent},
		{name: "custom user agent", userAgent: "test-agent/1.0", expectedUA: "test-agent/1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(tt.userAgent)
			require.NotNil(t, m)
			assert.Equal(t, tt.expectedUA, m.userAgent)
		})
	}
}

func TestFetch_SingleFile(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		expectErr error
		expectMsg string
	}{
		{name: "successful download", status: http.StatusOK},
		{name: "not found", status: http.StatusNotFound, expectErr: pkgerrors.ErrNotFound},
		{name: "bad request", status: http.StatusBadRequest, expectErr: pkgerrors.ErrDownloadFailed, expectMsg: "unexpected status code: 400"},
		{name: "server error", status: http.StatusInternalServerError, expectErr: pkgerrors.ErrDownloadFailed, expectMsg: "unexpected status code: 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var agent string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				agent = r.Header.Get("User-Agent")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("test content"))
			}))
			defer srv.Close()

			dest := filepath.Join(t.TempDir(), "a", "b", "file.jar")
			item := Item{ID: "test", Sources: []Source{source(t, "central", srv.URL+"/file.jar")}, Dest: dest}
			res, err := NewManager("test").Fetch(context.Background(), item, Options{Timeout: time.Second})

			assert.Equal(t, "test", agent)
			if tt.expectErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectErr)
				assert.ErrorIs(t, err, pkgerrors.ErrRepositoryUnavailable)
				assert.Contains(t, err.Error(), tt.expectMsg)
				assert.NoFileExists(t, dest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, dest, res.Path)
			assert.Equal(t, "central", res.Repository)
			content, err := os.ReadFile(dest)
			require.NoError(t, err)
			assert.Equal(t, "test content", string(content))
		})
	}
}

func TestFetch_FallsThroughSources(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	empty, _ := fileServer(t, nil)
	good, _ := fileServer(t, map[string]string{"/lib.jar": "bytes"})

	item := Item{
		ID: "lib",
		Sources: []Source{
			source(t, "slow", slow.URL+"/lib.jar"),
			source(t, "empty", empty.URL+"/lib.jar"),
			source(t, "unreachable", "http://127.0.0.1:1/lib.jar"),
			source(t, "good", good.URL+"/lib.jar"),
		},
		Dest: filepath.Join(t.TempDir(), "lib.jar"),
	}
	res, err := NewManager("").Fetch(context.Background(), item, Options{Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "good", res.Repository)
}

func TestFetch_AllSourcesFail(t *testing.T) {
	empty, _ := fileServer(t, nil)
	item := Item{
		ID:      "lib",
		Sources: []Source{source(t, "a", empty.URL+"/x.jar"), source(t, "b", empty.URL+"/y.jar")},
		Dest:    filepath.Join(t.TempDir(), "lib.jar"),
	}
	_, err := NewManager("").Fetch(context.Background(), item, Options{})
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Len(t, fe.Attempts, 2)
	var unavailable *pkgerrors.RepositoryUnavailableError
	require.ErrorAs(t, fe.Attempts[1], &unavailable)
	assert.Equal(t, "b", unavailable.Repository)
}

func TestFetch_ReusesExistingFile(t *testing.T) {
	srv, hits := fileServer(t, map[string]string{"/f": "fresh"})
	dest := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(dest, []byte("cached"), 0o644))

	m := NewManager("")
	item := Item{ID: "f", Sources: []Source{source(t, "r", srv.URL+"/f")}, Dest: dest}
	res, err := m.Fetch(context.Background(), item, Options{})
	require.NoError(t, err)
	assert.True(t, res.Reused)
	assert.Equal(t, int32(0), hits.Load())

	item.Refresh = true
	res, err = m.Fetch(context.Background(), item, Options{})
	require.NoError(t, err)
	assert.False(t, res.Reused)
	content, _ := os.ReadFile(dest)
	assert.Equal(t, "fresh", string(content))
}

func TestFetch_WithChecksum(t *testing.T) {
	srv, _ := fileServer(t, map[string]string{"/f": "test content"})

	tests := []struct {
		name        string
		checksum    string
		expectError bool
	}{
		{name: "valid checksum", checksum: sha256Hex("test content")},
		{name: "invalid checksum", checksum: sha256Hex("other"), expectError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := Item{ID: "f", Sources: []Source{source(t, "r", srv.URL+"/f")}, Dest: filepath.Join(t.TempDir(), "f"), Checksum: tt.checksum}
			_, err := NewManager("").Fetch(context.Background(), item, Options{})
			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, pkgerrors.ErrFileHashMismatch)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFetch_Sidecars(t *testing.T) {
	tests := []struct {
		name        string
		files       map[string]string
		policy      string
		expectError bool
	}{
		{
			name:   "matching sha256",
			files:  map[string]string{"/f.jar": "data", "/f.jar.sha256": sha256Hex("data") + "  f.jar\n"},
			policy: ChecksumFail,
		},
		{
			name:   "sha1 fallback",
			files:  map[string]string{"/f.jar": "data", "/f.jar.sha1": sha1Hex("data")},
			policy: ChecksumFail,
		},
		{
			name:        "sha256 mismatch fails",
			files:       map[string]string{"/f.jar": "data", "/f.jar.sha256": sha256Hex("tampered")},
			policy:      ChecksumFail,
			expectError: true,
		},
		{
			name:        "sha1 mismatch fails",
			files:       map[string]string{"/f.jar": "data", "/f.jar.sha1": sha1Hex("tampered")},
			policy:      ChecksumFail,
			expectError: true,
		},
		{
			name:   "mismatch only warns",
			files:  map[string]string{"/f.jar": "data", "/f.jar.sha256": sha256Hex("tampered")},
			policy: ChecksumWarn,
		},
		{
			name:   "ignored",
			files:  map[string]string{"/f.jar": "data", "/f.jar.sha256": sha256Hex("tampered")},
			policy: ChecksumIgnore,
		},
		{
			name:   "no sidecar",
			files:  map[string]string{"/f.jar": "data"},
			policy: ChecksumFail,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := fileServer(t, tt.files)
			dest := filepath.Join(t.TempDir(), "f.jar")
			item := Item{ID: "f", Sources: []Source{source(t, "r", srv.URL+"/f.jar")}, Dest: dest, Sidecars: true}
			_, err := NewManager("").Fetch(context.Background(), item, Options{Checksums: tt.policy})
			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, pkgerrors.ErrFileHashMismatch)
				assert.NoFileExists(t, dest)
				return
			}
			require.NoError(t, err)
			assert.FileExists(t, dest)
		})
	}
}

func TestFetch_FileURL(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "lib.jar"), []byte("local bytes"), 0o644))
	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(repo)}

	dest := filepath.Join(t.TempDir(), "lib.jar")
	item := Item{ID: "lib", Sources: []Source{{Repository: "disk", URL: u.JoinPath("lib.jar")}}, Dest: dest}
	res, err := NewManager("").Fetch(context.Background(), item, Options{})
	require.NoError(t, err)
	assert.Equal(t, "disk", res.Repository)
	content, _ := os.ReadFile(dest)
	assert.Equal(t, "local bytes", string(content))

	item.Sources = []Source{{Repository: "disk", URL: u.JoinPath("missing.jar")}}
	item.Dest = filepath.Join(t.TempDir(), "missing.jar")
	_, err = NewManager("").Fetch(context.Background(), item, Options{})
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestFetch_CredentialsAndProxy(t *testing.T) {
	var gotAuth, gotURI string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotURI = r.RequestURI
		_, _ = w.Write([]byte("via proxy"))
	}))
	defer proxy.Close()
	proxyURL, err := url.Parse(proxy.URL)
	require.NoError(t, err)

	src := source(t, "corp", "http://repo.invalid/lib.jar")
	src.Proxy = proxyURL
	src.Credentials = auth.BearerAuth{Token: "tok"}

	item := Item{ID: "lib", Sources: []Source{src}, Dest: filepath.Join(t.TempDir(), "lib.jar")}
	_, err = NewManager("").Fetch(context.Background(), item, Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "http://repo.invalid/lib.jar", gotURI, "proxied requests carry the absolute URL")
}

func TestFetch_RelativeDestination(t *testing.T) {
	_, err := NewManager("").Fetch(context.Background(), Item{ID: "x", Dest: "relative"}, Options{})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidPath)
}

func TestFetchAll_Concurrent(t *testing.T) {
	const numItems = 5
	files := map[string]string{}
	var items []Item
	dir := t.TempDir()
	for i := 0; i < numItems; i++ {
		id := string(rune('a' + i))
		files["/"+id] = "content for " + id
		items = append(items, Item{ID: id, Dest: filepath.Join(dir, id)})
	}
	srv, _ := fileServer(t, files)
	for i := range items {
		items[i].Sources = []Source{source(t, "r", srv.URL+"/"+items[i].ID)}
	}

	tests := []struct {
		name        string
		concurrency int
	}{
		{name: "default", concurrency: 0},
		{name: "concurrent", concurrency: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := NewManager("test").FetchAll(context.Background(), items, Options{Concurrency: tt.concurrency})
			require.NoError(t, err)
			require.Len(t, results, numItems)
			for _, item := range items {
				res, ok := results[item.ID]
				require.True(t, ok, "missing result for item %s", item.ID)
				content, err := os.ReadFile(res.Path)
				require.NoError(t, err)
				assert.Equal(t, files["/"+item.ID], string(content))
			}
		})
	}
}

func TestFetchAll_FirstErrorWins(t *testing.T) {
	srv, _ := fileServer(t, map[string]string{"/ok": "ok"})
	dir := t.TempDir()
	items := []Item{
		{ID: "ok", Sources: []Source{source(t, "r", srv.URL+"/ok")}, Dest: filepath.Join(dir, "ok")},
		{ID: "missing", Sources: []Source{source(t, "r", srv.URL+"/missing")}, Dest: filepath.Join(dir, "missing")},
	}
	_, err := NewManager("").FetchAll(context.Background(), items, Options{Concurrency: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}
