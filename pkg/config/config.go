// Package config implements the launcher's layered configuration: named property
// sources merged in a fixed precedence order, plus the launcher's own YAML
// settings file.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/thinlaunch/pkg/errors"
	"github.com/glorpus-work/thinlaunch/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config is the launcher settings file.
type Config struct {
	// Extra remote repositories, consulted after those declared by the archive.
	Repositories []*RepositoryConfig `yaml:"repositories,omitempty"`

	Settings Settings `yaml:"settings"`

	// Properties join the user configuration layer.
	Properties map[string]string `yaml:"properties,omitempty"`
}

// RepositoryConfig declares one remote repository.
type RepositoryConfig struct {
	ID        string      `yaml:"id"`
	URL       string      `yaml:"url"`
	Releases  *bool       `yaml:"releases,omitempty"`
	Snapshots *bool       `yaml:"snapshots,omitempty"`
	Auth      *AuthConfig `yaml:"auth,omitempty"`
}

// Settings are the launcher's own knobs.
type Settings struct {
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	Java          string        `yaml:"java,omitempty"`

	OutputFormat string `yaml:"output_format"` // text, table, json, yaml
	LogLevel     string `yaml:"log_level"`     // debug, info, warn, error
}

// YAMLIndent is the number of spaces used when writing the settings file.
const YAMLIndent = 2

var (
	validFormats = map[string]bool{"text": true, "table": true, "json": true, "yaml": true}
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// DefaultConfig returns a configuration with the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			HTTPTimeout:   DefaultTimeout,
			MaxConcurrent: DefaultConcurrency,
			Java:          DefaultJava,
			OutputFormat:  "text",
			LogLevel:      "info",
		},
	}
}

// LoadConfig loads the settings file at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	cfg, err := LoadConfigFromReader(file)
	if err != nil {
		return nil, errors.NewConfigurationError(path, err)
	}
	return cfg, nil
}

// LoadConfigFromReader parses, completes and validates a settings document.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigValidation, err)
	}
	return &config, nil
}

// SaveConfig writes the configuration to path through a temporary file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateRepositories(c.Repositories); err != nil {
		return err
	}
	return validateSettings(c.Settings)
}

func validateRepositories(repos []*RepositoryConfig) error {
	seen := make(map[string]bool)
	for i, repo := range repos {
		if repo.ID == "" {
			return errors.Wrapf(errors.ErrEmptyRepositoryID, "repository at index %d", i)
		}
		if repo.URL == "" {
			return errors.Wrapf(errors.ErrRepositoryURLEmpty, "repository %s", repo.ID)
		}
		if u := repo.GetURL(); u == nil || u.Scheme == "" {
			return errors.Wrapf(errors.ErrRepositoryURLInvalid, "repository %s: %s", repo.ID, repo.URL)
		}
		if seen[repo.ID] {
			return errors.Wrapf(errors.ErrRepositoryExists, "%s", repo.ID)
		}
		seen[repo.ID] = true
	}
	return nil
}

func validateSettings(s Settings) error {
	if s.HTTPTimeout < 0 {
		return errors.ErrHTTPTimeoutNegative
	}
	if s.MaxConcurrent < 1 {
		return errors.ErrMaxConcurrentInvalid
	}
	if !validFormats[s.OutputFormat] {
		return fmt.Errorf("%w: %s (valid: text, table, json, yaml)", errors.ErrInvalidOutputFormat, s.OutputFormat)
	}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return fmt.Errorf("%w: %s (valid: debug, info, warn, error)", errors.ErrInvalidLogLevel, s.LogLevel)
	}
	return nil
}

// GetDefaultConfigPath returns the default settings file path.
func GetDefaultConfigPath() (string, error) {
	dir, err := fsutil.ConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// GetURL parses the repository URL.
func (rc *RepositoryConfig) GetURL() *url.URL {
	parsed, err := url.Parse(rc.URL)
	if err != nil {
		return nil
	}
	return parsed
}

// SnapshotsEnabled defaults to true when the entry does not say otherwise.
func (rc *RepositoryConfig) SnapshotsEnabled() bool {
	return rc.Snapshots == nil || *rc.Snapshots
}

// ReleasesEnabled defaults to true when the entry does not say otherwise.
func (rc *RepositoryConfig) ReleasesEnabled() bool {
	return rc.Releases == nil || *rc.Releases
}

// DefaultsSource returns the defaults layer with the settings file's network and
// executable choices applied.
func (c *Config) DefaultsSource() Source {
	return Static(SourceDefaults, defaultProperties(c.Settings.Java, c.Settings.HTTPTimeout, c.Settings.MaxConcurrent))
}

// PropertiesSource returns the settings file's properties map as a source.
func (c *Config) PropertiesSource() Source {
	return Static("config file", FromMap(c.Properties))
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.MaxConcurrent == 0 {
		c.Settings.MaxConcurrent = defaults.Settings.MaxConcurrent
	}
	if c.Settings.Java == "" {
		c.Settings.Java = defaults.Settings.Java
	}
	if c.Settings.OutputFormat == "" {
		c.Settings.OutputFormat = defaults.Settings.OutputFormat
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}
