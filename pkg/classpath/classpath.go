// Package classpath turns a resolution result into the runtime classpath and
// the dependency manifest that describes it.
package classpath

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/glorpus-work/thinlaunch/pkg/config"
	"github.com/glorpus-work/thinlaunch/pkg/model"
	"github.com/magiconair/properties"
)

// Entry is one classpath element with its manifest key.
type Entry struct {
	Key      string
	Artifact model.ResolvedArtifact
}

// Value is the manifest value: group:name[:extension][:classifier]:version,
// with the jar extension left out when there is no classifier.
func (e Entry) Value() string {
	return e.Artifact.Coordinate.ShortString()
}

// Classpath is the ordered runtime classpath.
type Classpath struct {
	Entries []Entry
}

// Assemble keeps the order of res. Keys are the artifact name, plus
// ".<classifier>" when one is set; a key already taken gets ".1", ".2", ...
// appended until it is unique, so no artifact is ever dropped.
func Assemble(res *model.ResolutionResult) *Classpath {
	cp := &Classpath{}
	if res == nil {
		return cp
	}
	used := make(map[string]bool, res.Len())
	for _, a := range res.Artifacts {
		base := a.Coordinate.Name
		if a.Coordinate.Classifier != "" {
			base += "." + a.Coordinate.Classifier
		}
		key := base
		for n := 1; used[key]; n++ {
			key = fmt.Sprintf("%s.%d", base, n)
		}
		used[key] = true
		cp.Entries = append(cp.Entries, Entry{Key: key, Artifact: a})
	}
	return cp
}

// Paths returns the local files in classpath order.
func (c *Classpath) Paths() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		out = append(out, e.Artifact.Path)
	}
	return out
}

// Len returns the number of entries.
func (c *Classpath) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}

// Join returns the path-separator-joined classpath, with prefix elements (such
// as the application archive itself) first.
func (c *Classpath) Join(prefix ...string) string {
	all := append(append([]string{}, prefix...), c.Paths()...)
	return strings.Join(all, string(os.PathListSeparator))
}

func (c *Classpath) String() string { return c.Join() }

// Manifest returns computed=true followed by one dependencies.<key> entry per
// element. The result is valid pre-computed archive metadata.
func (c *Classpath) Manifest() *properties.Properties {
	p := properties.NewProperties()
	p.DisableExpansion = true
	p.MustSet(config.ComputedKey, "true")
	if c == nil {
		return p
	}
	for _, e := range c.Entries {
		p.MustSet(config.DependenciesPrefix+e.Key, e.Value())
	}
	return p
}

// WriteManifest writes the manifest in .properties format.
func (c *Classpath) WriteManifest(w io.Writer) error {
	_, err := c.Manifest().Write(w, properties.UTF8)
	return err
}
