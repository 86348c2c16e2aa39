package cli

import (
	"github.com/glorpus-work/thinlaunch/pkg/launcher"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command. Arguments after the archive go to the
// application, except --thin.<key>[=<value>] entries which set properties.
func NewRunCmd() *cobra.Command {
	var flags launchFlags

	cmd := &cobra.Command{
		Use:   "run [ARCHIVE] [ARGS...]",
		Short: "Resolve dependencies and launch an archive",
		Long: `Resolve the dependencies declared by a thin archive, assemble the classpath
and start the application with it.

Properties can be given as --thin.<key>[=<value>] after the archive, for example
--thin.dryrun or --thin.classpath=properties.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, &flags, args)
		},
	}
	cmd.Flags().SetInterspersed(false)
	flags.register(cmd)

	return cmd
}

func runLaunch(cmd *cobra.Command, flags *launchFlags, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	l := launcher.New()
	l.Stdout = cmd.OutOrStdout()
	return newOrchestrator(l).Run(cmd.Context(), flags.inputs(cmd, cfg, args))
}
