package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/thinlaunch/pkg/errors"
)

// Source produces one partial property mapping. A source whose backing file or
// directory does not exist returns an empty set and no error; a malformed source
// returns an error.
type Source interface {
	Name() string
	Load() (*Properties, error)
}

// Layers lists the sources in ascending precedence. A nil layer is skipped.
type Layers struct {
	Defaults    Source
	Archive     Source
	Root        Source
	User        Source
	Environment Source
	CommandLine Source
}

// Sources returns the non-nil layers, lowest precedence first.
func (l Layers) Sources() []Source {
	all := []Source{l.Defaults, l.Archive, l.Root, l.User, l.Environment, l.CommandLine}
	out := make([]Source, 0, len(all))
	for _, s := range all {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Merge merges the layers in declared order.
func (l Layers) Merge() (*Effective, error) {
	return Merge(l.Sources()...)
}

// Effective is the merged configuration. It remembers which source supplied the
// winning value of every key.
type Effective struct {
	*Properties
	origin map[string]string
}

// Merge applies sources left to right; a later source overrides an earlier one
// for the same key. A failing source aborts the merge with a ConfigurationError.
func Merge(sources ...Source) (*Effective, error) {
	eff := &Effective{Properties: NewProperties(), origin: make(map[string]string)}
	for _, src := range sources {
		if src == nil {
			continue
		}
		props, err := src.Load()
		if err != nil {
			return nil, errors.NewConfigurationError(src.Name(), err)
		}
		for _, e := range props.Entries() {
			eff.Set(e.Key, e.Value)
			eff.origin[e.Key] = src.Name()
		}
	}
	if err := validateBooleans(eff.Properties); err != nil {
		return nil, errors.NewConfigurationError(eff.origin[firstInvalidBool(eff.Properties)], err)
	}
	return eff, nil
}

func firstInvalidBool(p *Properties) string {
	for _, key := range booleanKeys {
		if v, ok := p.Get(key); ok {
			if _, err := parseBool(v); err != nil {
				return key
			}
		}
	}
	return ""
}

// Origin returns the name of the source that supplied key.
func (e *Effective) Origin(key string) string {
	return e.origin[key]
}

// Value returns the value of key or def when unset or blank.
func (e *Effective) Value(key, def string) string {
	if v, ok := e.Get(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// Bool reports whether key is set to a true value. A key present with an empty
// value counts as true, as for a bare --thin.dryrun flag.
func (e *Effective) Bool(key string) bool {
	v, ok := e.Get(key)
	if !ok {
		return false
	}
	b, err := parseBool(v)
	return err == nil && b
}

// Duration parses key as a Go duration or a number of seconds.
func (e *Effective) Duration(key string, def time.Duration) time.Duration {
	v := e.Value(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

// Int parses key as a positive integer.
func (e *Effective) Int(key string, def int) int {
	if n, err := strconv.Atoi(e.Value(key, "")); err == nil && n > 0 {
		return n
	}
	return def
}

// List splits a comma separated value, dropping blanks.
func (e *Effective) List(key string) []string {
	var out []string
	for _, part := range strings.Split(e.Value(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
