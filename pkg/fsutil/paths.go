package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName is used for the config directory.
const AppName = "thinlaunch"

// ConfigDir returns the launcher's configuration directory
// ($XDG_CONFIG_HOME/thinlaunch or the OS equivalent).
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// UserHome returns override when set, otherwise the OS user home.
func UserHome(override string) string {
	if override != "" {
		return ExpandHome(override)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// ExpandHome replaces a leading ~ with the user's home directory and strips a
// file: URL prefix.
func ExpandHome(path string) string {
	path = strings.TrimPrefix(path, "file://")
	path = strings.TrimPrefix(path, "file:")
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// DefaultLocalRepository is the cache used when neither a root directory nor a
// settings file names one.
func DefaultLocalRepository(home string) string {
	return filepath.Join(home, ".m2", "repository")
}
