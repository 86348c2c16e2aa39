package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/glorpus-work/thinlaunch/internal/cli"
	"github.com/glorpus-work/thinlaunch/internal/logger"
	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/resolver"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	verbose      bool
	outputFormat string
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the command line and returns the process exit code. An
// application that exits non-zero passes its code through.
func execute(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer func() { _ = resolver.CloseInstance() }()

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *errors.ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func newRootCmd() *cobra.Command {
	run := cli.NewRunCmd()

	cmd := &cobra.Command{
		Use:   "thinlaunch [ARCHIVE] [ARGS...]",
		Short: "Launch thin archives with dependencies resolved on demand",
		Long: `thinlaunch starts applications packaged as thin archives:
- resolves the declared dependencies from remote repositories into a local cache
- assembles the classpath and launches the entry point
- reports the classpath or a pre-computed dependency list instead of launching`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE:          run.RunE,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.LoadConfig()
			if err != nil {
				return err
			}
			cli.InitLogger(cfg)
			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
	}
	cmd.Flags().AddFlagSet(run.Flags())
	cmd.Flags().SetInterspersed(false)

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format (table, json, yaml)")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.OutputFormat = &outputFormat

	cmd.AddCommand(
		run,
		cli.NewResolveCmd(),
		cli.NewClasspathCmd(),
		cli.NewConfigCmd(),
		cli.NewCacheCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
