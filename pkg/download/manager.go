package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	pkgerrors "github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/fsutil"
	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"
)

// DefaultUserAgent identifies the launcher to repositories.
const DefaultUserAgent = "thinlaunch/1.0"

// ManagerImpl is an HTTP and file URL download manager. Sources are tried in
// order; a failing source (error status, transport error, timeout, checksum
// mismatch under the fail policy) falls through to the next one.
type ManagerImpl struct {
	userAgent string

	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewManager creates a new download manager with the given user agent.
func NewManager(userAgent string) *ManagerImpl {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &ManagerImpl{
		userAgent: userAgent,
		clients:   make(map[string]*http.Client),
	}
}

// FetchAll downloads multiple items concurrently and returns a map of item IDs to results.
// The first failure cancels the remaining downloads.
func (m *ManagerImpl) FetchAll(ctx context.Context, items []Item, opts Options) (map[string]Result, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = max(2, runtime.NumCPU()/2)
	}
	results := make([]Result, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i := range items {
		g.Go(func() error {
			res, err := m.Fetch(gctx, items[i], opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]Result, len(items))
	for i, it := range items {
		out[it.ID] = results[i]
	}
	return out, nil
}

// Fetch downloads a single item and returns where it was placed.
func (m *ManagerImpl) Fetch(ctx context.Context, item Item, opts Options) (Result, error) {
	if item.Dest == "" || !filepath.IsAbs(item.Dest) {
		return Result{}, fmt.Errorf("download destination must be absolute: %s: %w", item.Dest, pkgerrors.ErrInvalidPath)
	}
	if !item.Refresh {
		if reuse, ok := tryReuseExisting(item.Dest, item.Checksum); ok {
			return Result{Path: reuse, Reused: true}, nil
		}
	}
	if err := fsutil.EnsureFileDir(item.Dest); err != nil {
		return Result{}, pkgerrors.Wrap(err, "could not create download dir")
	}

	fe := &FetchError{ID: item.ID}
	for _, src := range item.Sources {
		if src.URL == nil {
			fe.Attempts = append(fe.Attempts, fmt.Errorf("nil URL: %w", pkgerrors.ErrDownloadFailed))
			continue
		}
		start := time.Now()
		err := m.fetchFrom(ctx, src, item, opts)
		if err == nil {
			slogcontext.FromCtx(ctx).Debug("fetched", "item", item.ID, "repository", src.Repository, "took", since(start))
			return Result{Path: item.Dest, Repository: src.Repository}, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		slogcontext.FromCtx(ctx).Debug("source failed", "item", item.ID, "repository", src.Repository, "error", err)
		fe.Attempts = append(fe.Attempts, &pkgerrors.RepositoryUnavailableError{
			Repository: src.Repository,
			URL:        src.URL.Redacted(),
			Err:        err,
		})
	}
	return Result{}, fe
}

// fetchFrom performs one attempt, bounded by the per-attempt timeout.
func (m *ManagerImpl) fetchFrom(ctx context.Context, src Source, item Item, opts Options) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	body, err := m.open(ctx, src, src.URL)
	if err != nil {
		return err
	}
	tmpPath, err := writeToTemp(body, item.Dest)
	_ = body.Close()
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	if item.Checksum != "" {
		ok, err := verifySHA256(tmpPath, item.Checksum)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("checksum mismatch for %s: %w", src.URL.Redacted(), pkgerrors.ErrFileHashMismatch)
		}
	} else if item.Sidecars {
		if err := m.verifySidecars(ctx, src, tmpPath, opts.Checksums); err != nil {
			return err
		}
	}
	return finalizeFile(tmpPath, item.Dest)
}

// open returns the content at u, from disk for file URLs.
func (m *ManagerImpl) open(ctx context.Context, src Source, u *url.URL) (io.ReadCloser, error) {
	if u.Scheme == "file" {
		f, err := os.Open(filepath.FromSlash(u.Path))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%s: %w", u.Path, pkgerrors.ErrNotFound)
			}
			return nil, pkgerrors.Wrap(err, "open failed")
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.userAgent)
	if src.Credentials != nil {
		if err := src.Credentials.Apply(req); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to apply credentials")
		}
	}
	resp, err := m.client(src.Proxy).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrDownloadFailed, err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", u.Redacted(), pkgerrors.ErrNotFound)
	default:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d: %w", resp.StatusCode, pkgerrors.ErrDownloadFailed)
	}
}

// client returns the shared client for a proxy, nil meaning direct.
func (m *ManagerImpl) client(proxy *url.URL) *http.Client {
	key := ""
	if proxy != nil {
		key = proxy.String()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[key]; ok {
		return c
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	c := &http.Client{Transport: transport}
	m.clients[key] = c
	return c
}

func tryReuseExisting(absPath, checksum string) (string, bool) {
	if st, err := os.Stat(absPath); err == nil && st.Mode().IsRegular() {
		if checksum == "" {
			return absPath, true
		}
		ok, err := verifySHA256(absPath, checksum)
		if err == nil && ok {
			return absPath, true
		}
	}
	return "", false
}

func writeToTemp(body io.Reader, absPath string) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(absPath), "dl-*"+fsutil.TempSuffix)
	if err != nil {
		return "", pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("could not write file: %w: %w", pkgerrors.ErrDownloadFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Wrap(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Wrap(err, "could not close file")
	}
	return tmpPath, nil
}

func finalizeFile(tmpPath, absPath string) error {
	if err := os.Chmod(tmpPath, fsutil.FileModeDefault); err != nil {
		return pkgerrors.Wrap(err, "could not set permissions")
	}
	if err := fsutil.Move(tmpPath, absPath); err != nil {
		return pkgerrors.Wrap(err, "could not finalize file")
	}
	return nil
}

func since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
