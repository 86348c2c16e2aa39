package download

import (
	"context"
	"net/url"
	"time"

	"github.com/glorpus-work/thinlaunch/pkg/auth"
)

// Manager fetches files from an ordered list of remote sources into the local
// artifact cache.
type Manager interface {
	// Fetch places one item at Item.Dest, trying each source in order.
	Fetch(ctx context.Context, item Item, opts Options) (Result, error)

	// FetchAll fetches items concurrently, bounded by Options.Concurrency.
	// It returns a map from Item.ID to its result.
	FetchAll(ctx context.Context, items []Item, opts Options) (map[string]Result, error)
}

// Source is one location an item may be fetched from.
type Source struct {
	Repository  string             // repository id, reported in results and errors
	URL         *url.URL           // http(s) or file URL of the file
	Proxy       *url.URL           // nil for a direct connection
	Credentials auth.Authenticator // nil for anonymous access
}

// Item represents one file to fetch.
type Item struct {
	ID       string   // stable identifier. Must be unique within a batch.
	Sources  []Source // candidates, tried in order
	Dest     string   // absolute destination path
	Checksum string   // optional hex-encoded SHA-256 checksum; if provided, will be verified
	// Refresh re-fetches even when Dest already exists.
	Refresh bool
	// Sidecars verifies the file against .sha256/.sha1 files published next to it.
	Sidecars bool
}

// Result reports where an item was placed and which source served it.
type Result struct {
	Path       string
	Repository string
	// Reused is set when an existing file satisfied the request.
	Reused bool
}

// Options control the behavior of the download manager.
type Options struct {
	Concurrency int           // number of parallel downloads; if <=0, a sane default is used
	Timeout     time.Duration // per source attempt; zero means no limit
	Checksums   string        // ignore, warn or fail
}
