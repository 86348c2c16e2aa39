package config

import (
	"errors"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"time"
)

// Source names as reported by Effective.Origin.
const (
	SourceDefaults    = "defaults"
	SourceArchive     = "archive"
	SourceRoot        = "root"
	SourceUser        = "user"
	SourceEnvironment = "environment"
	SourceCommandLine = "command-line"
)

type staticSource struct {
	name  string
	props *Properties
}

// Static wraps a fixed property set.
func Static(name string, props *Properties) Source {
	if props == nil {
		props = NewProperties()
	}
	return staticSource{name: name, props: props}
}

func (s staticSource) Name() string               { return s.name }
func (s staticSource) Load() (*Properties, error) { return s.props, nil }

// Defaults returns the built-in defaults.
func Defaults() Source {
	return Static(SourceDefaults, defaultProperties(DefaultJava, DefaultTimeout, DefaultConcurrency))
}

func defaultProperties(java string, timeout time.Duration, concurrency int) *Properties {
	p := NewProperties()
	p.Set(KeyName, DefaultName)
	p.Set(KeyJava, java)
	p.Set(KeyChecksums, DefaultChecksums)
	p.Set(KeyTimeout, timeout.String())
	p.Set(KeyConcurrency, strconv.Itoa(concurrency))
	return p
}

type profiledSource struct {
	name    string
	fsys    fs.FS
	dir     string
	base    string
	profile string
}

// ProfiledFile reads <dir>/<base>.properties from fsys. When profile is set and
// <dir>/<base>-<profile>.properties exists, that file is read instead. A nil
// fsys or a missing file yields an empty set.
func ProfiledFile(name string, fsys fs.FS, dir, base, profile string) Source {
	return profiledSource{name: name, fsys: fsys, dir: dir, base: base, profile: profile}
}

func (s profiledSource) Name() string { return s.name }

func (s profiledSource) Load() (*Properties, error) {
	if s.fsys == nil {
		return NewProperties(), nil
	}
	candidates := []string{path.Join(s.dir, s.base+".properties")}
	if s.profile != "" {
		candidates = append([]string{path.Join(s.dir, s.base+"-"+s.profile+".properties")}, candidates...)
	}
	for _, file := range candidates {
		data, err := fs.ReadFile(s.fsys, file)
		if err != nil {
			if isNotExist(err) {
				continue
			}
			return nil, err
		}
		return ParseProperties(data)
	}
	return NewProperties(), nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || strings.Contains(err.Error(), "not a directory")
}

type compositeSource struct {
	name  string
	parts []Source
}

// Composite merges several sources into one named layer, later parts winning.
func Composite(name string, parts ...Source) Source {
	return compositeSource{name: name, parts: parts}
}

func (s compositeSource) Name() string { return s.name }

func (s compositeSource) Load() (*Properties, error) {
	out := NewProperties()
	for _, part := range s.parts {
		if part == nil {
			continue
		}
		props, err := part.Load()
		if err != nil {
			return nil, err
		}
		for _, e := range props.Entries() {
			out.Set(e.Key, e.Value)
		}
	}
	return out, nil
}

// EnvPrefix marks environment variables that map onto thin.* keys.
const EnvPrefix = "THIN_"

// Environment maps THIN_<X> variables onto thin.<x>, lower-cased with '_'
// turned into '.'. environ is in os.Environ form.
func Environment(environ []string) Source {
	p := NewProperties()
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, EnvPrefix) || len(k) == len(EnvPrefix) {
			continue
		}
		key := KeyPrefix + strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, EnvPrefix)), "_", ".")
		p.Set(key, v)
	}
	return Static(SourceEnvironment, p)
}

// SplitArgs extracts --thin.<key>[=<value>] arguments. A bare flag means true.
// The remaining arguments keep their order and are meant for the application.
func SplitArgs(args []string) (*Properties, []string) {
	props := NewProperties()
	rest := make([]string, 0, len(args))
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--"+KeyPrefix) {
			rest = append(rest, arg)
			continue
		}
		k, v, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !hasValue {
			v = "true"
		}
		props.Set(k, v)
	}
	return props, rest
}

// CommandLine wraps properties extracted from the program arguments and flags.
func CommandLine(props *Properties) Source {
	return Static(SourceCommandLine, props)
}

// Bootstrap merges the sources that do not depend on any other configuration
// value. Its result locates the archive, root directory, profile and settings
// file needed to build the full layer set.
func Bootstrap(defaults, user, environment, commandLine Source) (*Effective, error) {
	return Layers{Defaults: defaults, User: user, Environment: environment, CommandLine: commandLine}.Merge()
}

// Timeout is a convenience for the per-repository attempt timeout.
func (e *Effective) Timeout() time.Duration {
	return e.Duration(KeyTimeout, DefaultTimeout)
}
