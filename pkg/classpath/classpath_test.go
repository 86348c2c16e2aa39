package classpath

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/glorpus-work/thinlaunch/pkg/config"
	"github.com/glorpus-work/thinlaunch/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(t *testing.T, coords ...string) *model.ResolutionResult {
	t.Helper()
	res := model.NewResolutionResult()
	for _, s := range coords {
		c, err := model.ParseCoordinate(s)
		require.NoError(t, err)
		res.Add(model.ResolvedArtifact{Coordinate: c, Path: "/cache/" + c.Name + ".jar"})
	}
	return res
}

func keys(cp *Classpath) []string {
	var out []string
	for _, e := range cp.Entries {
		out = append(out, e.Key+"="+e.Value())
	}
	return out
}

func TestAssemble_Keys(t *testing.T) {
	tests := []struct {
		name     string
		coords   []string
		expected []string
	}{
		{
			name:     "plain name",
			coords:   []string{"group:web:1.0"},
			expected: []string{"web=group:web:1.0"},
		},
		{
			name:     "same name in another group",
			coords:   []string{"group:web:1.0", "other:web:2.0"},
			expected: []string{"web=group:web:1.0", "web.1=other:web:2.0"},
		},
		{
			name:     "counter keeps increasing",
			coords:   []string{"a:web:1.0", "b:web:1.0", "c:web:1.0"},
			expected: []string{"web=a:web:1.0", "web.1=b:web:1.0", "web.2=c:web:1.0"},
		},
		{
			name:   "classifier is part of the key",
			coords: []string{"io.netty:epoll:4.1", "io.netty:epoll:jar:linux-x86_64:4.1"},
			expected: []string{
				"epoll=io.netty:epoll:4.1",
				"epoll.linux-x86_64=io.netty:epoll:jar:linux-x86_64:4.1",
			},
		},
		{
			name:     "non-jar extension kept in value",
			coords:   []string{"org.example:dist:zip:1.0"},
			expected: []string{"dist=org.example:dist:zip:1.0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, keys(Assemble(result(t, tt.coords...))))
		})
	}
}

func TestAssemble_Order(t *testing.T) {
	cp := Assemble(result(t, "org.b:b:1.0", "org.a:a:1.0"))
	assert.Equal(t, []string{"/cache/b.jar", "/cache/a.jar"}, cp.Paths())

	sep := string(os.PathListSeparator)
	assert.Equal(t, "/cache/b.jar"+sep+"/cache/a.jar", cp.String())
	assert.Equal(t, "/app.jar"+sep+"/cache/b.jar"+sep+"/cache/a.jar", cp.Join("/app.jar"))

	empty := Assemble(nil)
	assert.Zero(t, empty.Len())
	assert.Equal(t, "/app.jar", empty.Join("/app.jar"))
}

func TestWriteManifest(t *testing.T) {
	cp := Assemble(result(t, "group:web:1.0", "other:web:2.0"))

	var buf bytes.Buffer
	require.NoError(t, cp.WriteManifest(&buf))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), config.ComputedKey), buf.String())

	parsed, err := config.ParseProperties(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"computed", "dependencies.web", "dependencies.web.1"}, parsed.Keys())
	v, _ := parsed.Get("dependencies.web")
	assert.Equal(t, "group:web:1.0", v)
	v, _ = parsed.Get("dependencies.web.1")
	assert.Equal(t, "other:web:2.0", v)
}
