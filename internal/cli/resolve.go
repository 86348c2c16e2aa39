package cli

import (
	"fmt"

	"github.com/glorpus-work/thinlaunch/pkg/classpath"
	"github.com/spf13/cobra"
)

// NewResolveCmd creates the resolve command.
func NewResolveCmd() *cobra.Command {
	var flags launchFlags

	cmd := &cobra.Command{
		Use:   "resolve [ARCHIVE]",
		Short: "Resolve dependencies without launching",
		Long:  "Resolve the dependencies of a thin archive into the local repository and list them (-o table, json or yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, &flags, args)
		},
	}
	flags.register(cmd)

	return cmd
}

func runResolve(cmd *cobra.Command, flags *launchFlags, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	o := newOrchestrator(nil)
	env, err := o.Load(cmd.Context(), flags.inputs(cmd, cfg, args))
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	res, err := o.Resolve(cmd.Context(), env)
	if err != nil {
		return err
	}
	data, err := encodeResult(EncodingType(cfg.Settings.OutputFormat), res)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// NewClasspathCmd creates the classpath command.
func NewClasspathCmd() *cobra.Command {
	var (
		flags      launchFlags
		properties bool
		lines      bool
	)

	cmd := &cobra.Command{
		Use:   "classpath [ARCHIVE]",
		Short: "Print the resolved classpath",
		Long: `Print the classpath the application would be launched with, or with
--properties a pre-computed dependency list that can be embedded in the archive.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasspath(cmd, &flags, args, properties, lines)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&properties, "properties", false, "Print the dependency list as properties")
	cmd.Flags().BoolVar(&lines, "lines", false, "Print one classpath entry per line")

	return cmd
}

func runClasspath(cmd *cobra.Command, flags *launchFlags, args []string, properties, lines bool) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	o := newOrchestrator(nil)
	env, err := o.Load(cmd.Context(), flags.inputs(cmd, cfg, args))
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	res, err := o.Resolve(cmd.Context(), env)
	if err != nil {
		return err
	}
	cp := classpath.Assemble(res)
	out := cmd.OutOrStdout()
	switch {
	case properties:
		return cp.WriteManifest(out)
	case lines:
		for _, p := range append([]string{env.Archive.Path}, cp.Paths()...) {
			if _, err := fmt.Fprintln(out, p); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintln(out, cp.Join(env.Archive.Path))
		return err
	}
}
