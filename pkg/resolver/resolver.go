// Package resolver turns dependency declarations into a deduplicated, ordered
// set of artifact files in the local cache, consulting remote repositories in
// policy order when the cache does not hold an artifact.
package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/glorpus-work/thinlaunch/pkg/download"
	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/fsutil"
	"github.com/glorpus-work/thinlaunch/pkg/model"
	"github.com/glorpus-work/thinlaunch/pkg/pom"
	"github.com/glorpus-work/thinlaunch/pkg/repository"
	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle of a resolver.
type State int

// Resolver states.
const (
	StateUninitialized State = iota
	StateInitialized
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Request is the input of one resolution.
type Request struct {
	Dependencies []model.Dependency
	// Managed pins versions of transitive dependencies.
	Managed []model.Dependency
	// Exclusions apply to the whole closure.
	Exclusions []model.Exclusion
	// Computed means Dependencies is already the complete closure.
	Computed bool
}

// Resolver holds a repository policy and a local cache handle. It is safe for
// concurrent use.
type Resolver struct {
	mu        sync.RWMutex
	state     State
	policy    *repository.Policy
	downloads download.Manager
	opts      download.Options

	flight singleflight.Group
	poms   sync.Map // POM coordinate -> *pom.Project, releases only
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDownloader replaces the default HTTP download manager.
func WithDownloader(m download.Manager) Option {
	return func(r *Resolver) { r.downloads = m }
}

// New creates an initialized resolver and ensures the local cache exists.
func New(policy *repository.Policy, opts ...Option) (*Resolver, error) {
	if policy == nil {
		return nil, errors.ErrNoPolicy
	}
	if policy.LocalRepository == "" {
		return nil, errors.ErrCacheDirectory
	}
	if err := fsutil.EnsureDir(policy.LocalRepository); err != nil {
		return nil, errors.Wrapf(err, "failed to create local repository %s", policy.LocalRepository)
	}
	r := &Resolver{
		state:  StateInitialized,
		policy: policy,
		opts: download.Options{
			Concurrency: policy.Concurrency,
			Timeout:     policy.Timeout,
			Checksums:   policy.Checksums,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.downloads == nil {
		r.downloads = download.NewManager("")
	}
	return r, nil
}

// Policy returns the repository policy the resolver was initialized with.
func (r *Resolver) Policy() *repository.Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

// State reports the lifecycle state.
func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Close discards cached state. A closed resolver rejects further work.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateClosed
	r.policy = nil
	r.poms.Clear()
	return nil
}

func (r *Resolver) acquire() (*repository.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.state != StateInitialized {
		return nil, errors.ErrResolverClosed
	}
	return r.policy, nil
}

// FetchPOM loads the descriptor of c through the cache and repositories.
func (r *Resolver) FetchPOM(ctx context.Context, c model.Coordinate) (*pom.Project, error) {
	policy, err := r.acquire()
	if err != nil {
		return nil, err
	}
	return r.newSession(policy).FetchPOM(ctx, c)
}

// Resolve computes the closure of req and places every artifact in the local
// cache. Any artifact that cannot be obtained fails the whole resolution with
// an UnresolvedArtifactError; no partial result is returned.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*model.ResolutionResult, error) {
	policy, err := r.acquire()
	if err != nil {
		return nil, err
	}
	s := r.newSession(policy)
	logger := slogcontext.FromCtx(ctx)

	collected, err := s.collect(ctx, req)
	if err != nil {
		return nil, err
	}
	selected := collected[:0]
	for _, sel := range collected {
		if sel.coordinate.GetExtension() != "pom" {
			selected = append(selected, sel)
		}
	}
	logger.Debug("dependency graph collected", "artifacts", len(selected), "offline", policy.Offline)

	if err := s.prefetch(ctx, selected); err != nil {
		return nil, err
	}

	artifacts := make([]model.ResolvedArtifact, len(selected))
	errs := make([]error, len(selected))
	var g errgroup.Group
	g.SetLimit(max(1, r.opts.Concurrency))
	for i, sel := range selected {
		g.Go(func() error {
			a, err := s.artifact(slogcontext.With(ctx, "coordinate", sel.coordinate.String()), sel.coordinate)
			a.Depth = sel.depth
			artifacts[i], errs[i] = a, err
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	result := model.NewResolutionResult()
	for _, a := range artifacts {
		result.Add(a)
	}
	return result, nil
}

// unresolved builds the fatal error for c, keeping every per-repository cause.
func unresolved(c model.Coordinate, err error) error {
	var fe *download.FetchError
	if errors.As(err, &fe) {
		return &errors.UnresolvedArtifactError{Coordinate: c.String(), Causes: fe.Attempts}
	}
	return &errors.UnresolvedArtifactError{Coordinate: c.String(), Causes: []error{err}}
}
