package launcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/glorpus-work/thinlaunch/pkg/archive"
	"github.com/glorpus-work/thinlaunch/pkg/classpath"
	"github.com/glorpus-work/thinlaunch/pkg/config"
	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func effective(t *testing.T, kv ...string) *config.Effective {
	t.Helper()
	p := config.NewProperties()
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	eff, err := config.Merge(config.Static(config.SourceCommandLine, p))
	require.NoError(t, err)
	return eff
}

func testClasspath(t *testing.T) *classpath.Classpath {
	t.Helper()
	res := model.NewResolutionResult()
	for _, s := range []string{"group:web:1.0", "other:web:2.0"} {
		c, err := model.ParseCoordinate(s)
		require.NoError(t, err)
		res.Add(model.ResolvedArtifact{Coordinate: c, Path: "/cache/" + c.Group + "/web.jar"})
	}
	return classpath.Assemble(res)
}

// fakeJava writes a script that records its arguments and exits with $FAKE_EXIT.
func fakeJava(t *testing.T) (java, record string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for java")
	}
	dir := t.TempDir()
	record = filepath.Join(dir, "args")
	java = filepath.Join(dir, "java")
	script := "#!/bin/sh\nfor a in \"$@\"; do echo \"$a\" >> '" + record + "'; done\necho started\nexit ${FAKE_EXIT:-0}\n"
	require.NoError(t, os.WriteFile(java, []byte(script), 0o755))
	return java, record
}

func TestModeFrom(t *testing.T) {
	tests := []struct {
		kv       []string
		expected Mode
	}{
		{kv: nil, expected: ModeRun},
		{kv: []string{config.KeyDryRun, "true"}, expected: ModeDryRun},
		{kv: []string{config.KeyDryRun, ""}, expected: ModeDryRun},
		{kv: []string{config.KeyClasspath, "true"}, expected: ModeClasspath},
		{kv: []string{config.KeyClasspath, "path"}, expected: ModeClasspath},
		{kv: []string{config.KeyClasspath, ""}, expected: ModeClasspath},
		{kv: []string{config.KeyClasspath, "properties", config.KeyDryRun, "true"}, expected: ModeProperties},
		{kv: []string{config.KeyClasspath, "false"}, expected: ModeRun},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.kv, "_"), func(t *testing.T) {
			assert.Equal(t, tt.expected, ModeFrom(effective(t, tt.kv...)))
		})
	}
}

func TestEntryPoint(t *testing.T) {
	m := archive.Manifest{archive.AttrMainClass: "org.launcher.Main", archive.AttrStartClass: "com.example.App"}
	assert.Equal(t, "com.example.Override", EntryPoint(effective(t, config.KeyMain, "com.example.Override"), m))
	assert.Equal(t, "com.example.App", EntryPoint(effective(t), m))
	assert.Equal(t, "org.launcher.Main", EntryPoint(effective(t), archive.Manifest{archive.AttrMainClass: "org.launcher.Main"}))
	assert.Empty(t, EntryPoint(effective(t), archive.Manifest{}))
}

func TestPlan_Command(t *testing.T) {
	sep := string(os.PathListSeparator)
	p := Plan{
		Archive:   "/apps/app.jar",
		Classpath: testClasspath(t),
		MainClass: "com.example.App",
		Args:      []string{"--server.port=0"},
		JVMArgs:   []string{"-Xmx64m"},
	}
	assert.Equal(t, []string{
		"java", "-Xmx64m", "-cp", "/apps/app.jar" + sep + "/cache/group/web.jar" + sep + "/cache/other/web.jar",
		"com.example.App", "--server.port=0",
	}, p.Command())
}

func TestLaunch_Reports(t *testing.T) {
	cp := testClasspath(t)
	tests := []struct {
		mode     Mode
		contains []string
	}{
		{mode: ModeClasspath, contains: []string{"/apps/app.jar" + string(os.PathListSeparator) + "/cache/group/web.jar"}},
		{mode: ModeProperties, contains: []string{"computed", "dependencies.web", "dependencies.web.1"}},
		{mode: ModeDryRun},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			var out bytes.Buffer
			l := &Launcher{Stdout: &out, Stderr: &out}
			err := l.Launch(context.Background(), Plan{
				Mode: tt.mode, Archive: "/apps/app.jar", Classpath: cp, Java: "/nonexistent/java",
			})
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out.String(), want)
			}
			if tt.mode == ModeDryRun {
				assert.Empty(t, out.String())
			}
		})
	}
}

func TestLaunch_Run(t *testing.T) {
	java, record := fakeJava(t)
	var out bytes.Buffer
	l := &Launcher{Stdout: &out, Stderr: &out}

	err := l.Launch(context.Background(), Plan{
		Mode: ModeRun, Archive: "/apps/app.jar", Classpath: testClasspath(t),
		MainClass: "com.example.App", Args: []string{"one", "two"}, Java: java,
	})
	require.NoError(t, err)
	assert.Equal(t, "started\n", out.String())

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "-cp", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "/apps/app.jar"))
	assert.Equal(t, []string{"com.example.App", "one", "two"}, lines[2:])
}

func TestLaunch_ExitCodes(t *testing.T) {
	java, _ := fakeJava(t)
	tests := []struct {
		code     string
		expected int
	}{
		{code: "0"},
		{code: "3", expected: 3},
		{code: "130"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			l := &Launcher{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
			err := l.Launch(context.Background(), Plan{
				Mode: ModeRun, MainClass: "com.example.App", Java: java,
				Env: append(os.Environ(), "FAKE_EXIT="+tt.code),
			})
			if tt.expected == 0 {
				assert.NoError(t, err)
				return
			}
			var exitErr *errors.ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, tt.expected, exitErr.Code)
		})
	}
}

func TestLaunch_Failures(t *testing.T) {
	l := &Launcher{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	err := l.Launch(context.Background(), Plan{Mode: ModeRun, Archive: "/apps/app.jar", Java: "java"})
	assert.ErrorIs(t, err, errors.ErrLaunch)
	assert.ErrorIs(t, err, errors.ErrMainClassNotFound)

	err = l.Launch(context.Background(), Plan{Mode: ModeRun, MainClass: "com.example.App", Java: filepath.Join(t.TempDir(), "missing-java")})
	var launchErr *errors.LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, "com.example.App", launchErr.MainClass)
}
