package cli

import (
	"fmt"
	"os"

	"github.com/glorpus-work/thinlaunch/internal/logger"
	"github.com/glorpus-work/thinlaunch/pkg/cache"
	"github.com/glorpus-work/thinlaunch/pkg/orchestrator"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command with subcommands
func NewCacheCmd() *cobra.Command {
	var flags launchFlags

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local repository",
		Long: `Show information about, clean, export and import the local repository that
holds resolved artifacts. The repository is selected as for a launch: --root,
then the user settings, then ~/.m2/repository.`,
	}
	flags.registerLocation(cmd)

	cmd.AddCommand(
		newCacheCleanCmd(&flags),
		newCacheInfoCmd(&flags),
		newCacheDirCmd(&flags),
		newCacheExportCmd(&flags),
		newCacheImportCmd(&flags),
	)

	return cmd
}

// registerLocation registers the flags that select the local repository on
// cmd and its subcommands.
func (f *launchFlags) registerLocation(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&f.root, "root", "", "Root directory whose repository/ folder is the cache")
	flags.StringVar(&f.home, "home", "", "Home directory used to locate user settings")
	flags.StringVar(&f.settings, "settings", "", "Explicit user settings file")
}

func newCacheCleanCmd(flags *launchFlags) *cobra.Command {
	var options cache.CleanOptions

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the local repository",
		Long:  "Remove cached files to free up disk space. Without flags everything is removed.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			op, err := cacheOperation(cmd, flags)
			if err != nil {
				return err
			}
			msg, err := op.Clean(cmd.Context(), options)
			if err != nil {
				return err
			}
			logger.Success(msg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&options.All, "all", false, "Clean all cached files")
	cmd.Flags().BoolVar(&options.Snapshots, "snapshots", false, "Clean only snapshot versions")
	cmd.Flags().BoolVar(&options.Partial, "partial", false, "Clean only interrupted downloads")

	return cmd
}

func newCacheInfoCmd(flags *launchFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show cache information",
		Long:  "Display sizes and file counts of the local repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			op, err := cacheOperation(cmd, flags)
			if err != nil {
				return err
			}
			info, err := op.GetInfo()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), info)
			return err
		},
	}

	return cmd
}

func newCacheDirCmd(flags *launchFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dir",
		Short: "Show cache directory path",
		Long:  "Display the path to the local repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			op, err := cacheOperation(cmd, flags)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), op.GetDirectory())
			return err
		},
	}

	return cmd
}

func newCacheExportCmd(flags *launchFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export the local repository",
		Long: `Pack the local repository into a tar.gz file. Extracted below a root
directory's repository/ folder it lets launches with --root run offline.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := cacheOperation(cmd, flags)
			if err != nil {
				return err
			}
			msg, err := op.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			logger.Success(msg)
			return nil
		},
	}

	return cmd
}

func newCacheImportCmd(flags *launchFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import an exported repository",
		Long:  "Unpack a file written by cache export into the local repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := cacheOperation(cmd, flags)
			if err != nil {
				return err
			}
			msg, err := op.Import(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			logger.Success(msg)
			return nil
		},
	}

	return cmd
}

func cacheOperation(cmd *cobra.Command, flags *launchFlags) (*cache.Operation, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	in := orchestrator.Inputs{Flags: flags.properties(cmd), Config: cfg, Environ: os.Environ()}
	dir, err := orchestrator.LocalRepository(in)
	if err != nil {
		return nil, err
	}
	return cache.NewOperation(cache.NewManager(dir)), nil
}
