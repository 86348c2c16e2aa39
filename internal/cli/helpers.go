package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/glorpus-work/thinlaunch/internal/logger"
	"github.com/glorpus-work/thinlaunch/pkg/config"
	"github.com/glorpus-work/thinlaunch/pkg/orchestrator"
	"github.com/glorpus-work/thinlaunch/pkg/repository"
	"github.com/glorpus-work/thinlaunch/pkg/resolver"
	"github.com/spf13/cobra"
)

// These variables will be set by the main package
var (
	ConfigPath   *string
	Verbose      *bool
	OutputFormat *string
)

// LoadConfig loads the launcher settings file, applying global flag overrides.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if OutputFormat != nil && *OutputFormat != "" {
		cfg.Settings.OutputFormat = *OutputFormat
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}
	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// launchFlags are the command flags that map onto thin.* properties.
type launchFlags struct {
	archive   string
	root      string
	repo      string
	profile   string
	name      string
	main      string
	home      string
	settings  string
	locations []string
	offline   bool
	dryRun    bool
}

// flagKeys maps a flag name to the property it sets.
var flagKeys = map[string]string{
	"root":     config.KeyRoot,
	"repo":     config.KeyRepo,
	"profile":  config.KeyProfile,
	"name":     config.KeyName,
	"main":     config.KeyMain,
	"home":     config.KeyHome,
	"settings": config.KeySettings,
	"location": config.KeyLocation,
	"offline":  config.KeyOffline,
	"dry-run":  config.KeyDryRun,
}

func (f *launchFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.archive, "archive", "", "Thin archive (jar or exploded directory); defaults to thin.archive")
	flags.StringVar(&f.root, "root", "", "Root directory with overrides and the local repository")
	flags.StringVar(&f.repo, "repo", "", "Default remote repository URL")
	flags.StringVar(&f.profile, "profile", "", "Profile selecting <name>-<profile>.properties")
	flags.StringVar(&f.name, "name", "", "Base name of the properties files (default thin)")
	flags.StringVar(&f.main, "main", "", "Entry point overriding the archive manifest")
	flags.StringVar(&f.home, "home", "", "Home directory used to locate user settings")
	flags.StringVar(&f.settings, "settings", "", "Explicit user settings file")
	flags.StringSliceVar(&f.locations, "location", nil, "Extra directories searched for properties files")
	flags.BoolVar(&f.offline, "offline", false, "Never contact remote repositories")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Resolve but do not launch")
}

// properties returns the changed flags as thin.* properties.
func (f *launchFlags) properties(cmd *cobra.Command) map[string]string {
	values := map[string]string{
		"root":     f.root,
		"repo":     f.repo,
		"profile":  f.profile,
		"name":     f.name,
		"main":     f.main,
		"home":     f.home,
		"settings": f.settings,
		"location": strings.Join(f.locations, ","),
		"offline":  strconv.FormatBool(f.offline),
		"dry-run":  strconv.FormatBool(f.dryRun),
	}
	out := make(map[string]string)
	for flag, key := range flagKeys {
		if cmd.Flags().Changed(flag) {
			out[key] = values[flag]
		}
	}
	return out
}

// inputs collects what the orchestrator needs from a command invocation.
// The first positional argument is the archive unless --archive is given.
func (f *launchFlags) inputs(cmd *cobra.Command, cfg *config.Config, args []string) orchestrator.Inputs {
	archive := f.archive
	if archive == "" && len(args) > 0 && !strings.HasPrefix(args[0], "--") {
		archive, args = args[0], args[1:]
	}
	return orchestrator.Inputs{
		Archive: archive,
		Args:    args,
		Flags:   f.properties(cmd),
		Config:  cfg,
		Environ: os.Environ(),
	}
}

// newOrchestrator wires the process-wide resolver and logs progress events.
func newOrchestrator(launch orchestrator.Launcher) *orchestrator.Orchestrator {
	return &orchestrator.Orchestrator{
		Launcher: launch,
		NewResolver: func(policy *repository.Policy) (orchestrator.Resolver, error) {
			return resolver.Instance(func() (*repository.Policy, error) { return policy, nil })
		},
		Hooks: orchestrator.Hooks{OnEvent: func(e orchestrator.Event) {
			logger.Debug(e.Msg, logger.Fields{"phase": e.Phase, "id": e.ID})
		}},
	}
}
