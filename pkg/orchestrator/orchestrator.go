package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/thinlaunch/internal/logger"
	"github.com/glorpus-work/thinlaunch/pkg/archive"
	"github.com/glorpus-work/thinlaunch/pkg/classpath"
	"github.com/glorpus-work/thinlaunch/pkg/config"
	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/fsutil"
	"github.com/glorpus-work/thinlaunch/pkg/launcher"
	"github.com/glorpus-work/thinlaunch/pkg/model"
	"github.com/glorpus-work/thinlaunch/pkg/pom"
	"github.com/glorpus-work/thinlaunch/pkg/repository"
	"github.com/glorpus-work/thinlaunch/pkg/resolver"
	"github.com/glorpus-work/thinlaunch/pkg/settings"
	"github.com/glorpus-work/thinlaunch/pkg/store"
	slogcontext "github.com/veqryn/slog-context"
)

// Environment is the configuration of one launch: the merged properties, the
// opened archive, user settings, declared coordinates and repository policy.
type Environment struct {
	Config   *config.Effective
	Archive  *archive.Archive
	Settings *settings.Settings
	Store    *store.Store
	Policy   *repository.Policy
	// Root is the root override directory, empty when none is set.
	Root string
	// Args are the program arguments left for the application.
	Args []string
}

// Close releases the archive.
func (e *Environment) Close() error {
	if e == nil || e.Archive == nil {
		return nil
	}
	return e.Archive.Close()
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// Load merges the configuration sources, opens the archive and builds the
// repository policy. Sources that do not exist are skipped; a malformed one is
// a ConfigurationError.
func (o *Orchestrator) Load(ctx context.Context, in Inputs) (*Environment, error) {
	boot, layers, rest, err := bootstrap(in)
	if err != nil {
		return nil, err
	}
	archivePath := in.Archive
	if archivePath == "" {
		archivePath = boot.Value(config.KeyArchive, "")
	}
	if archivePath == "" {
		return nil, errors.NewConfigurationError(config.KeyArchive, errors.ErrArchiveNotFound)
	}
	emit(o.Hooks, Event{Phase: PhaseConfiguring, ID: archivePath})

	arc, err := o.archives().Open(ctx, archivePath)
	if err != nil {
		return nil, err
	}
	env := &Environment{Archive: arc, Args: rest}
	if err := o.configure(env, in.Config, boot, layers); err != nil {
		_ = arc.Close()
		return nil, err
	}
	if env.Config.Bool(config.KeyDebug) {
		logger.SetLevel("debug")
	}
	slogcontext.FromCtx(ctx).Debug("configuration loaded",
		"archive", arc.Path, "root", env.Root, "repositories", len(env.Policy.Repositories),
		"local", env.Policy.LocalRepository, "offline", env.Policy.Offline)
	return env, nil
}

// bootstrap merges the layers that are known before the archive is opened.
func bootstrap(in Inputs) (*config.Effective, config.Layers, []string, error) {
	cli, rest := config.SplitArgs(in.Args)
	for k, v := range in.Flags {
		cli.Set(k, v)
	}
	layers := config.Layers{
		Defaults:    config.Defaults(),
		User:        config.Static(config.SourceUser, nil),
		Environment: config.Environment(in.Environ),
		CommandLine: config.CommandLine(cli),
	}
	if in.Config != nil {
		layers.Defaults, layers.User = in.Config.DefaultsSource(), in.Config.PropertiesSource()
	}
	boot, err := config.Bootstrap(layers.Defaults, layers.User, layers.Environment, layers.CommandLine)
	if err != nil {
		return nil, layers, nil, err
	}
	return boot, layers, rest, nil
}

// LocalRepository returns the local artifact cache the inputs select without
// opening an archive. Only the bootstrap layers and user settings are read.
func LocalRepository(in Inputs) (string, error) {
	boot, _, _, err := bootstrap(in)
	if err != nil {
		return "", err
	}
	root := boot.Value(config.KeyRoot, "")
	if root != "" {
		if root, err = filepath.Abs(fsutil.ExpandHome(root)); err != nil {
			return "", errors.NewConfigurationError(config.KeyRoot, err)
		}
	}
	home := fsutil.UserHome(boot.Value(config.KeyHome, ""))
	st, err := settings.Load(settings.Locate(boot.Value(config.KeySettings, ""), root, home))
	if err != nil {
		return "", err
	}
	policy, err := repository.NewBuilder(boot, st).Build()
	if err != nil {
		return "", err
	}
	return policy.LocalRepository, nil
}

// configure completes the bootstrap layers with the archive, root and settings
// sources, which can only be located once the bootstrap values are known.
func (o *Orchestrator) configure(env *Environment, file *config.Config, boot *config.Effective, layers config.Layers) error {
	if root := boot.Value(config.KeyRoot, ""); root != "" {
		abs, err := filepath.Abs(fsutil.ExpandHome(root))
		if err != nil {
			return errors.NewConfigurationError(config.KeyRoot, err)
		}
		env.Root = abs
	}
	name := boot.Value(config.KeyName, config.DefaultName)
	profile := boot.Value(config.KeyProfile, "")
	home := fsutil.UserHome(boot.Value(config.KeyHome, ""))

	st, err := settings.Load(settings.Locate(boot.Value(config.KeySettings, ""), env.Root, home))
	if err != nil {
		return err
	}
	env.Settings = st

	var rootParts []config.Source
	if env.Root != "" {
		rootParts = append(rootParts, config.ProfiledFile(config.SourceRoot, os.DirFS(env.Root), ".", name, profile))
	}
	for _, loc := range boot.List(config.KeyLocation) {
		dir := fsutil.ExpandHome(loc)
		rootParts = append(rootParts, config.ProfiledFile(config.SourceRoot, os.DirFS(dir), ".", name, profile))
	}

	layers.Archive = config.ProfiledFile(config.SourceArchive, env.Archive.FS, archive.MetadataDir, name, profile)
	layers.Root = config.Composite(config.SourceRoot, rootParts...)
	layers.User = config.Composite(config.SourceUser,
		config.Static(config.SourceUser, config.FromMap(st.Properties())), layers.User)
	if env.Config, err = layers.Merge(); err != nil {
		return err
	}

	if env.Store, err = store.Load(env.Config, env.Archive, env.Root); err != nil {
		return err
	}
	b := repository.NewBuilder(env.Config, st).
		Add(env.Store.Repositories()...).
		Add(repository.FromPOM(st.Repositories())...)
	if file != nil {
		b.Add(repository.FromConfig(file.Repositories)...)
	}
	env.Policy, err = b.Build()
	return err
}

func (o *Orchestrator) archives() *archive.Manager {
	if o.Archives == nil {
		return archive.NewManager()
	}
	return o.Archives
}

func (o *Orchestrator) resolver(policy *repository.Policy) (Resolver, error) {
	if o.NewResolver != nil {
		return o.NewResolver(policy)
	}
	return resolver.New(policy)
}

// Resolve computes the resolution result of env.
func (o *Orchestrator) Resolve(ctx context.Context, env *Environment) (*model.ResolutionResult, error) {
	r, err := o.resolver(env.Policy)
	if err != nil {
		return nil, err
	}
	decl, err := env.Store.Declarations(ctx, pom.NewBuilder(r))
	if err != nil {
		return nil, err
	}
	emit(o.Hooks, Event{Phase: PhaseResolving, ID: env.Archive.Path, Msg: fmt.Sprintf("%d declared", len(decl.Dependencies))})
	res, err := r.Resolve(ctx, resolver.Request{
		Dependencies: decl.Dependencies,
		Managed:      decl.Managed,
		Exclusions:   decl.Exclusions,
		Computed:     decl.Computed,
	})
	if err != nil {
		emit(o.Hooks, Event{Phase: PhaseError, ID: env.Archive.Path, Msg: err.Error()})
		return nil, err
	}
	for _, a := range res.Artifacts {
		emit(o.Hooks, Event{Phase: PhaseResolving, ID: a.Coordinate.String(), Msg: a.Path})
	}
	return res, nil
}

// Plan assembles the classpath and picks the launch mode and entry point.
func (o *Orchestrator) Plan(env *Environment, res *model.ResolutionResult) (launcher.Plan, error) {
	cp := classpath.Assemble(res)
	emit(o.Hooks, Event{Phase: PhaseAssembling, Msg: fmt.Sprintf("%d entries", cp.Len())})
	manifest, err := env.Archive.Manifest()
	if err != nil {
		return launcher.Plan{}, err
	}
	return launcher.Plan{
		Mode:      launcher.ModeFrom(env.Config),
		Archive:   env.Archive.Path,
		Classpath: cp,
		MainClass: launcher.EntryPoint(env.Config, manifest),
		Args:      env.Args,
		Java:      env.Config.Value(config.KeyJava, config.DefaultJava),
		JVMArgs:   strings.Fields(env.Config.Value(config.KeyJVMArgs, "")),
	}, nil
}

// Run loads, resolves and launches. A resolution failure aborts before the
// launcher is reached.
func (o *Orchestrator) Run(ctx context.Context, in Inputs) error {
	if o.Launcher == nil {
		return fmt.Errorf("launcher is not configured")
	}
	env, err := o.Load(ctx, in)
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := o.Resolve(ctx, env)
	if err != nil {
		return err
	}
	plan, err := o.Plan(env, res)
	if err != nil {
		return err
	}
	emit(o.Hooks, Event{Phase: PhaseLaunching, ID: plan.MainClass, Msg: plan.Mode.String()})
	if err := o.Launcher.Launch(ctx, plan); err != nil {
		return err
	}
	emit(o.Hooks, Event{Phase: PhaseDone, Msg: plan.Mode.String()})
	return nil
}
