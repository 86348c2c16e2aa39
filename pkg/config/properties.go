package config

import (
	"sort"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/magiconair/properties"
)

// Properties is an insertion-ordered string map. Setting an existing key keeps its
// original position and replaces the value.
type Properties struct {
	keys   []string
	values map[string]string
}

// Entry is a single key/value pair.
type Entry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// NewProperties returns an empty property set.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// FromMap builds a property set from m with keys in sorted order.
func FromMap(m map[string]string) *Properties {
	p := NewProperties()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// ParseProperties reads .properties content (escapes, continuations and
// unicode sequences included). Variable expansion is disabled.
func ParseProperties(data []byte) (*Properties, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	parsed, err := loader.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	p := NewProperties()
	for _, k := range parsed.Keys() {
		v, _ := parsed.Get(k)
		p.Set(k, v)
	}
	return p, nil
}

// Set assigns key.
func (p *Properties) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value of key.
func (p *Properties) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

// Len returns the number of keys.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Entries returns the pairs in insertion order.
func (p *Properties) Entries() []Entry {
	out := make([]Entry, 0, p.Len())
	for _, k := range p.Keys() {
		out = append(out, Entry{Key: k, Value: p.values[k]})
	}
	return out
}

// WithPrefix returns the entries whose key starts with prefix, with the prefix
// stripped, in insertion order.
func (p *Properties) WithPrefix(prefix string) []Entry {
	var out []Entry
	for _, k := range p.Keys() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Entry{Key: strings.TrimPrefix(k, prefix), Value: p.values[k]})
		}
	}
	return out
}

// ToMap copies the properties into a plain map.
func (p *Properties) ToMap() map[string]string {
	out := make(map[string]string, p.Len())
	for _, k := range p.Keys() {
		out[k] = p.values[k]
	}
	return out
}

// validateBooleans rejects values of known boolean keys that do not parse.
func validateBooleans(p *Properties) error {
	for _, key := range booleanKeys {
		v, ok := p.Get(key)
		if !ok {
			continue
		}
		if _, err := parseBool(v); err != nil {
			return errors.Wrapf(errors.ErrInvalidBoolValue, "%s=%q", key, v)
		}
	}
	return nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	default:
		return false, errors.ErrInvalidBoolValue
	}
}
