// Package launcher starts the application in a fresh process whose classpath is
// exactly the archive plus the resolved artifacts, or prints that classpath
// instead when a report mode is selected.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/archive"
	"github.com/glorpus-work/thinlaunch/pkg/classpath"
	"github.com/glorpus-work/thinlaunch/pkg/config"
	"github.com/glorpus-work/thinlaunch/pkg/errors"
	slogcontext "github.com/veqryn/slog-context"
)

// Mode selects what the launcher does with an assembled classpath.
type Mode int

// Launch modes. Everything but ModeRun leaves the application alone.
const (
	ModeRun Mode = iota
	ModeDryRun
	ModeClasspath
	ModeProperties
)

func (m Mode) String() string {
	switch m {
	case ModeRun:
		return "run"
	case ModeDryRun:
		return "dry-run"
	case ModeClasspath:
		return "classpath"
	case ModeProperties:
		return "properties"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// InterruptedExitCode is what a JVM stopped by SIGINT exits with; it counts as
// a normal end of the application.
const InterruptedExitCode = 130

// ModeFrom reads the mode from thin.classpath and thin.dryrun. A report mode wins
// over dry-run.
func ModeFrom(cfg *config.Effective) Mode {
	if v, ok := cfg.Get(config.KeyClasspath); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "properties":
			return ModeProperties
		case "", "true", "path":
			return ModeClasspath
		}
	}
	if cfg.Bool(config.KeyDryRun) {
		return ModeDryRun
	}
	return ModeRun
}

// EntryPoint picks the class to run: thin.main, then the manifest's
// Start-Class, then its Main-Class.
func EntryPoint(cfg *config.Effective, m archive.Manifest) string {
	if v := cfg.Value(config.KeyMain, ""); v != "" {
		return v
	}
	return m.EntryPoint()
}

// Plan is everything needed to launch or report.
type Plan struct {
	Mode      Mode
	Archive   string
	Classpath *classpath.Classpath
	MainClass string
	Args      []string
	Java      string
	JVMArgs   []string
	// Env of the child; nil inherits the launcher's environment.
	Env []string
}

// Command returns the java command line of a run.
func (p Plan) Command() []string {
	java := p.Java
	if java == "" {
		java = config.DefaultJava
	}
	cp := p.Classpath
	if cp == nil {
		cp = &classpath.Classpath{}
	}
	var prefix []string
	if p.Archive != "" {
		prefix = append(prefix, p.Archive)
	}
	cmd := append([]string{java}, p.JVMArgs...)
	cmd = append(cmd, "-cp", cp.Join(prefix...), p.MainClass)
	return append(cmd, p.Args...)
}

// Launcher executes plans.
type Launcher struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New returns a launcher attached to the process's standard streams.
func New() *Launcher {
	return &Launcher{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Launch runs or reports according to plan.Mode. A run that starts and exits
// non-zero returns an *errors.ExitError carrying the code; failing to start
// returns an *errors.LaunchError.
func (l *Launcher) Launch(ctx context.Context, plan Plan) error {
	logger := slogcontext.FromCtx(ctx)
	switch plan.Mode {
	case ModeDryRun:
		logger.Info("dry run complete", "artifacts", plan.Classpath.Len())
		return nil
	case ModeClasspath:
		var prefix []string
		if plan.Archive != "" {
			prefix = append(prefix, plan.Archive)
		}
		_, err := fmt.Fprintln(l.Stdout, plan.Classpath.Join(prefix...))
		return err
	case ModeProperties:
		return plan.Classpath.WriteManifest(l.Stdout)
	case ModeRun:
		return l.run(ctx, plan)
	default:
		return fmt.Errorf("unknown launch mode %s", plan.Mode)
	}
}

func (l *Launcher) run(ctx context.Context, plan Plan) error {
	if plan.MainClass == "" {
		return &errors.LaunchError{Err: fmt.Errorf("%w in %s", errors.ErrMainClassNotFound, plan.Archive)}
	}
	argv := plan.Command()
	java, err := exec.LookPath(argv[0])
	if err != nil {
		return &errors.LaunchError{MainClass: plan.MainClass, Err: err}
	}

	cmd := exec.CommandContext(ctx, java, argv[1:]...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = l.Stdin, l.Stdout, l.Stderr
	cmd.Env = plan.Env
	slogcontext.FromCtx(ctx).Debug("launching", "main", plan.MainClass, "java", java, "classpath_entries", plan.Classpath.Len()+1)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
			if exitErr.ExitCode() == InterruptedExitCode {
				return nil
			}
			return &errors.ExitError{Code: exitErr.ExitCode()}
		}
		return &errors.LaunchError{MainClass: plan.MainClass, Err: err}
	}
	return nil
}
