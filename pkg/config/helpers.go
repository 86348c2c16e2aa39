package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/thinlaunch/pkg/errors"
)

// SetValue sets a settings field or, for thin.* keys, a user property.
// Supported settings keys: http_timeout, max_concurrent, java, output_format, log_level.
func (c *Config) SetValue(key, value string) error {
	if strings.HasPrefix(key, KeyPrefix) {
		if c.Properties == nil {
			c.Properties = make(map[string]string)
		}
		c.Properties[key] = value
		return nil
	}
	switch key {
	case "http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return errors.Wrapf(errors.ErrConfigValidation, "invalid duration for %s: %s", key, value)
		}
		c.Settings.HTTPTimeout = d
	case "max_concurrent":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return errors.ErrMaxConcurrentInvalid
		}
		c.Settings.MaxConcurrent = n
	case "java":
		c.Settings.Java = value
	case "output_format":
		if !validFormats[value] {
			return errors.Wrapf(errors.ErrInvalidOutputFormat, "%s", value)
		}
		c.Settings.OutputFormat = value
	case "log_level":
		if !validLevels[strings.ToLower(value)] {
			return errors.Wrapf(errors.ErrInvalidLogLevel, "%s", value)
		}
		c.Settings.LogLevel = value
	default:
		return errors.Wrapf(errors.ErrUnknownConfigKey, "%s", key)
	}
	return nil
}

// GetValue returns a settings field or a thin.* property as a string.
func (c *Config) GetValue(key string) (string, error) {
	if strings.HasPrefix(key, KeyPrefix) {
		v, ok := c.Properties[key]
		if !ok {
			return "", errors.Wrapf(errors.ErrUnknownConfigKey, "%s", key)
		}
		return v, nil
	}
	v, ok := c.ToMap()[key]
	if !ok {
		return "", errors.Wrapf(errors.ErrUnknownConfigKey, "%s", key)
	}
	return v, nil
}

// ToMap flattens the settings and properties for display.
func (c *Config) ToMap() map[string]string {
	result := map[string]string{
		"http_timeout":   c.Settings.HTTPTimeout.String(),
		"max_concurrent": strconv.Itoa(c.Settings.MaxConcurrent),
		"java":           c.Settings.Java,
		"output_format":  c.Settings.OutputFormat,
		"log_level":      c.Settings.LogLevel,
	}
	for k, v := range c.Properties {
		result[k] = v
	}
	return result
}
