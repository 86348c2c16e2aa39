package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// populate writes a small local repository and returns its directory.
func populate(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "repository")
	files := map[string]string{
		"org/a/a/1.0/a-1.0.jar":                             "aaaa",
		"org/a/a/1.0/a-1.0.pom":                             "<project/>",
		"org/a/a/maven-metadata-central.xml":                "<metadata/>",
		"org/b/b/1.0-SNAPSHOT/b-1.0-SNAPSHOT.jar":           "bbbbbbbb",
		"org/b/b/1.0-SNAPSHOT/b-1.0-SNAPSHOT.jar.build":     "1.0-20240101.101010-1",
		"org/b/b/1.0-SNAPSHOT/maven-metadata-central.xml":   "<metadata/>",
		"org/c/c/2.0/dl-123.part":                           "partial",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestGetInfo(t *testing.T) {
	dir := populate(t)
	info, err := NewManager(dir).GetInfo()
	require.NoError(t, err)

	assert.Equal(t, dir, info.Directory)
	assert.Equal(t, 2, info.ReleaseFiles)
	assert.Equal(t, int64(len("aaaa")+len("<project/>")), info.ReleaseSize)
	assert.Equal(t, 2, info.SnapshotFiles)
	assert.Equal(t, 2, info.MetadataFiles)
	assert.Equal(t, 1, info.PartialFiles)
	assert.Equal(t, 2, info.Modules)
}

func TestGetInfo_EmptyCache(t *testing.T) {
	info, err := NewManager(filepath.Join(t.TempDir(), "missing")).GetInfo()
	require.NoError(t, err)
	assert.Zero(t, info.TotalSize)
	assert.Zero(t, info.Modules)
}

func TestClean(t *testing.T) {
	tests := []struct {
		name    string
		options CleanOptions
		gone    []string
		kept    []string
	}{
		{
			name:    "default cleans everything",
			options: CleanOptions{},
			gone:    []string{"org/a/a/1.0/a-1.0.jar", "org/b/b/1.0-SNAPSHOT"},
		},
		{
			name:    "snapshots only",
			options: CleanOptions{Snapshots: true},
			gone:    []string{"org/b/b/1.0-SNAPSHOT"},
			kept:    []string{"org/a/a/1.0/a-1.0.jar", "org/a/a/maven-metadata-central.xml", "org/c/c/2.0/dl-123.part"},
		},
		{
			name:    "partial downloads only",
			options: CleanOptions{Partial: true},
			gone:    []string{"org/c/c/2.0/dl-123.part"},
			kept:    []string{"org/a/a/1.0/a-1.0.jar", "org/b/b/1.0-SNAPSHOT/b-1.0-SNAPSHOT.jar"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := populate(t)
			result, err := NewManager(dir).Clean(context.Background(), tt.options)
			require.NoError(t, err)
			assert.Positive(t, result.TotalFreed)
			assert.Positive(t, result.Files)
			assert.DirExists(t, dir)
			for _, p := range tt.gone {
				assert.NoFileExists(t, filepath.Join(dir, filepath.FromSlash(p)))
				assert.NoDirExists(t, filepath.Join(dir, filepath.FromSlash(p)))
			}
			for _, p := range tt.kept {
				assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(p)))
			}
		})
	}
}

func TestClean_SnapshotsReportsFreedSpace(t *testing.T) {
	dir := populate(t)
	result, err := NewManager(dir).Clean(context.Background(), CleanOptions{Snapshots: true})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Files)
	assert.Equal(t, result.SnapshotFreed, result.TotalFreed)
	assert.Zero(t, result.PartialFreed)
}

func TestSetDirectory(t *testing.T) {
	mgr := NewManager(t.TempDir())
	assert.ErrorIs(t, mgr.SetDirectory(""), errors.ErrCacheDirectory)

	dir := filepath.Join(t.TempDir(), "nonexistent")
	require.NoError(t, mgr.SetDirectory(dir))
	assert.Equal(t, dir, mgr.GetDirectory())
}

func TestExportImport(t *testing.T) {
	src := populate(t)
	out := filepath.Join(t.TempDir(), "export", "cache.tar.gz")
	require.NoError(t, NewManager(src).Export(context.Background(), out))
	assert.FileExists(t, out)

	dest := filepath.Join(t.TempDir(), "root", "repository")
	require.NoError(t, NewManager(dest).Import(context.Background(), out))
	data, err := os.ReadFile(filepath.Join(dest, "org", "a", "a", "1.0", "a-1.0.jar"))
	require.NoError(t, err)
	assert.Equal(t, "aaaa", string(data))

	err = NewManager(filepath.Join(t.TempDir(), "missing")).Export(context.Background(), out)
	assert.ErrorIs(t, err, errors.ErrCacheDirectory)
}

func TestOperation(t *testing.T) {
	dir := populate(t)
	op := NewOperation(NewManager(dir))
	assert.Equal(t, dir, op.GetDirectory())

	info, err := op.GetInfo()
	require.NoError(t, err)
	assert.Contains(t, info, "releases")
	assert.Contains(t, strings.ToLower(info), "2 modules")

	msg, err := op.Clean(context.Background(), CleanOptions{Snapshots: true})
	require.NoError(t, err)
	assert.Contains(t, msg, "Snapshots:")

	msg, err = op.Clean(context.Background(), CleanOptions{Snapshots: true})
	require.NoError(t, err)
	assert.Equal(t, "No files were removed from the cache.", msg)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in       int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatBytes(tt.in))
	}
}

func TestClassify(t *testing.T) {
	dir := populate(t)
	tests := []struct {
		rel      string
		expected kind
	}{
		{rel: "org/a/a/1.0/a-1.0.jar", expected: kindRelease},
		{rel: "org/a/a/1.0/a-1.0.pom.lastUpdated", expected: kindMetadata},
		{rel: "org/a/a/maven-metadata-central.xml", expected: kindMetadata},
		{rel: "org/b/b/1.0-SNAPSHOT/b-1.0-SNAPSHOT.jar", expected: kindSnapshot},
		{rel: "org/c/c/2.0/dl-123.part", expected: kindPartial},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			path := filepath.Join(dir, filepath.FromSlash(tt.rel))
			require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, classify(path, info))
		})
	}
}
