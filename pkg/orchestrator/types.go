//go:generate mockgen -destination=./mocks/orchestrator.go -package=mocks . Resolver,Launcher

package orchestrator

import (
	"context"

	"github.com/glorpus-work/thinlaunch/pkg/archive"
	"github.com/glorpus-work/thinlaunch/pkg/config"
	"github.com/glorpus-work/thinlaunch/pkg/launcher"
	"github.com/glorpus-work/thinlaunch/pkg/model"
	"github.com/glorpus-work/thinlaunch/pkg/pom"
	"github.com/glorpus-work/thinlaunch/pkg/repository"
	"github.com/glorpus-work/thinlaunch/pkg/resolver"
)

// Resolver is the subset of the resolver used by the orchestrator. Descriptors
// of BOMs and parents are fetched through it as well.
type Resolver interface {
	pom.Fetcher
	Resolve(ctx context.Context, req resolver.Request) (*model.ResolutionResult, error)
}

// Launcher runs or reports an assembled classpath.
type Launcher interface {
	Launch(ctx context.Context, plan launcher.Plan) error
}

// ResolverFactory returns the resolver for a policy.
type ResolverFactory func(policy *repository.Policy) (Resolver, error)

// Orchestrator ties configuration, resolution and launching together.
type Orchestrator struct {
	Archives    *archive.Manager
	NewResolver ResolverFactory
	Launcher    Launcher
	Hooks       Hooks // Hooks for progress and event notifications
}

// Event represents a simple progress notification.
type Event struct {
	Phase string // configuring|resolving|assembling|launching|done|error
	ID    string // coordinate or archive
	Msg   string
}

// Event phases.
const (
	PhaseConfiguring = "configuring"
	PhaseResolving   = "resolving"
	PhaseAssembling  = "assembling"
	PhaseLaunching   = "launching"
	PhaseDone        = "done"
	PhaseError       = "error"
)

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// Inputs are what the command line gathered.
type Inputs struct {
	// Archive is the explicit archive path; thin.archive is used when empty.
	Archive string
	// Args are the program arguments; --thin.* entries are extracted as
	// command-line properties and the rest reach the application.
	Args []string
	// Flags are command flags already mapped to thin.* keys. They win over Args.
	Flags map[string]string
	// Config is the launcher settings file; nil means defaults.
	Config *config.Config
	// Environ is the process environment in os.Environ form.
	Environ []string
}
