package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glorpus-work/thinlaunch/pkg/auth"
	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Settings.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Settings.HTTPTimeout)
	assert.Equal(t, 5, cfg.Settings.MaxConcurrent)
	assert.Equal(t, "java", cfg.Settings.Java)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `repositories:
  - id: internal
    url: https://repo.example.com/maven
    snapshots: false
    auth:
      basic:
        username: user
        password: secret
settings:
  log_level: debug
  max_concurrent: 8
properties:
  thin.offline: "true"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), fsutil.FileModeDefault))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	require.Len(t, cfg.Repositories, 1)
	assert.Equal(t, "internal", cfg.Repositories[0].ID)
	assert.False(t, cfg.Repositories[0].SnapshotsEnabled())
	assert.True(t, cfg.Repositories[0].ReleasesEnabled())
	assert.Equal(t, "debug", cfg.Settings.LogLevel)
	assert.Equal(t, 8, cfg.Settings.MaxConcurrent)
	assert.Equal(t, 30*time.Second, cfg.Settings.HTTPTimeout, "defaults fill unset fields")
	assert.Equal(t, "true", cfg.Properties["thin.offline"])
	assert.Equal(t, &auth.BasicAuth{Username: "user", Password: "secret"}, cfg.Repositories[0].Auth.ToAuthenticator())
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		target  error
	}{
		{name: "broken yaml", content: "settings: [", target: errors.ErrConfigParse},
		{name: "bad level", content: "settings:\n  log_level: loud\n", target: errors.ErrInvalidLogLevel},
		{name: "bad format", content: "settings:\n  output_format: xml\n", target: errors.ErrInvalidOutputFormat},
		{name: "duplicate repo", content: "repositories:\n  - {id: a, url: 'http://x'}\n  - {id: a, url: 'http://y'}\n", target: errors.ErrRepositoryExists},
		{name: "repo without url", content: "repositories:\n  - {id: a}\n", target: errors.ErrRepositoryURLEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), fsutil.FileModeDefault))

			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.ErrorIs(t, err, errors.ErrConfiguration)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.SetValue("log_level", "debug"))
	require.NoError(t, cfg.SetValue("thin.root", "/srv/thin"))

	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.SaveConfig(configPath))

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.Settings.LogLevel)
	assert.Equal(t, "/srv/thin", loaded.Properties["thin.root"])
}

func TestSetValue(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    error
	}{
		{key: "http_timeout", value: "5s"},
		{key: "http_timeout", value: "soon", wantErr: errors.ErrConfigValidation},
		{key: "max_concurrent", value: "0", wantErr: errors.ErrMaxConcurrentInvalid},
		{key: "output_format", value: "json"},
		{key: "output_format", value: "xml", wantErr: errors.ErrInvalidOutputFormat},
		{key: "thin.offline", value: "true"},
		{key: "colour", value: "red", wantErr: errors.ErrUnknownConfigKey},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.SetValue(tt.key, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			got, err := cfg.GetValue(tt.key)
			require.NoError(t, err)
			if strings.HasSuffix(tt.key, "timeout") {
				assert.Equal(t, "5s", got)
			} else {
				assert.Equal(t, tt.value, got)
			}
		})
	}
}

func TestDefaultsSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.HTTPTimeout = 2 * time.Second
	cfg.Settings.Java = "/opt/jdk/bin/java"

	eff, err := Merge(cfg.DefaultsSource())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, eff.Timeout())
	assert.Equal(t, "/opt/jdk/bin/java", eff.Value(KeyJava, ""))
	assert.Equal(t, DefaultName, eff.Value(KeyName, ""))
}
