// Package errors defines the error taxonomy shared by the thin launcher packages.
// Sentinel values are meant for errors.Is checks; the typed errors carry the
// details (coordinate, repository, entry point) needed for diagnostics.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Common error types.
var (
	// Taxonomy roots.
	ErrConfiguration         = fmt.Errorf("configuration error")
	ErrUnresolvedArtifact    = fmt.Errorf("unresolved artifact")
	ErrRepositoryUnavailable = fmt.Errorf("repository unavailable")
	ErrLaunch                = fmt.Errorf("launch failed")

	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigMarshal     = fmt.Errorf("failed to marshal config")
	ErrConfigFileExists  = fmt.Errorf("config file already exists")

	// Settings validation.
	ErrHTTPTimeoutNegative  = fmt.Errorf("http_timeout cannot be negative")
	ErrMaxConcurrentInvalid = fmt.Errorf("max_concurrent must be at least 1")
	ErrInvalidOutputFormat  = fmt.Errorf("invalid output format")
	ErrInvalidLogLevel      = fmt.Errorf("invalid log level")
	ErrInvalidBoolValue     = fmt.Errorf("invalid boolean value")
	ErrUnknownConfigKey     = fmt.Errorf("unknown configuration key")

	// Coordinate and descriptor errors.
	ErrInvalidCoordinate   = fmt.Errorf("invalid coordinate")
	ErrInvalidVersionRange = fmt.Errorf("invalid version range")
	ErrDependencyCycle     = fmt.Errorf("dependency cycle detected")
	ErrNoMatchingVersion   = fmt.Errorf("no version matches")

	// Resolver lifecycle.
	ErrResolverClosed = fmt.Errorf("resolver is closed")
	ErrNoPolicy       = fmt.Errorf("no repository policy")

	// Repository errors.
	ErrEmptyRepositoryID    = fmt.Errorf("repository id cannot be empty")
	ErrRepositoryURLEmpty   = fmt.Errorf("repository URL cannot be empty")
	ErrRepositoryURLInvalid = fmt.Errorf("invalid repository URL")
	ErrNoRepositories       = fmt.Errorf("no repositories configured")
	ErrRepositoryExists     = fmt.Errorf("repository already exists")

	// Download errors.
	ErrNotFound          = fmt.Errorf("not found")
	ErrDownloadFailed    = fmt.Errorf("download failed")
	ErrFileHashMismatch  = fmt.Errorf("file hash mismatch")
	ErrOffline           = fmt.Errorf("offline mode: remote access disabled")
	ErrInvalidPath       = fmt.Errorf("invalid path")
	ErrArchiveNotFound   = fmt.Errorf("archive not found")
	ErrMainClassNotFound = fmt.Errorf("no entry point declared")

	// Cache errors.
	ErrCacheDirectory = fmt.Errorf("cache directory cannot be empty")
	ErrCacheClean     = fmt.Errorf("failed to clean cache")
	ErrCacheInfo      = fmt.Errorf("failed to get cache info")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Join returns an error wrapping the given errors, or nil if all are nil.
func Join(errs ...error) error { return stderrors.Join(errs...) }

// ConfigurationError reports a malformed settings, properties or config source.
// Resolution never starts when one is returned.
type ConfigurationError struct {
	Source string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%v: %v", ErrConfiguration, e.Err)
	}
	return fmt.Sprintf("%v in %s: %v", ErrConfiguration, e.Source, e.Err)
}

// Unwrap exposes both the taxonomy root and the underlying cause.
func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

// NewConfigurationError wraps err as a ConfigurationError for the named source.
func NewConfigurationError(source string, err error) error {
	if err == nil {
		return nil
	}
	return &ConfigurationError{Source: source, Err: err}
}

// UnresolvedArtifactError is fatal for a whole resolution: no partial classpath is produced.
type UnresolvedArtifactError struct {
	// Coordinate in group:artifact:extension[:classifier]:version form.
	Coordinate string
	Causes     []error
}

func (e *UnresolvedArtifactError) Error() string {
	msg := fmt.Sprintf("could not resolve %s", e.Coordinate)
	if len(e.Causes) == 0 {
		return msg
	}
	parts := make([]string, 0, len(e.Causes))
	for _, c := range e.Causes {
		parts = append(parts, c.Error())
	}
	return msg + ": " + strings.Join(parts, "; ")
}

// Unwrap exposes the taxonomy root and every per-repository cause.
func (e *UnresolvedArtifactError) Unwrap() []error {
	return append([]error{ErrUnresolvedArtifact}, e.Causes...)
}

// RepositoryUnavailableError is a recoverable failure of a single repository candidate.
type RepositoryUnavailableError struct {
	Repository string
	URL        string
	Err        error
}

func (e *RepositoryUnavailableError) Error() string {
	return fmt.Sprintf("repository %s (%s): %v", e.Repository, e.URL, e.Err)
}

// Unwrap exposes the taxonomy root and the transport cause.
func (e *RepositoryUnavailableError) Unwrap() []error {
	return []error{ErrRepositoryUnavailable, e.Err}
}

// LaunchError reports a missing, non-invokable or failing entry point.
type LaunchError struct {
	MainClass string
	Err       error
}

func (e *LaunchError) Error() string {
	if e.MainClass == "" {
		return fmt.Sprintf("%v: %v", ErrLaunch, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrLaunch, e.MainClass, e.Err)
}

// Unwrap exposes the taxonomy root and the original cause.
func (e *LaunchError) Unwrap() []error { return []error{ErrLaunch, e.Err} }

// ExitError carries a non-zero exit code of a successfully launched application.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("application exited with code %d", e.Code)
}
