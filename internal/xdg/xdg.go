// Package xdg resolves XDG Base Directory paths for authz-middleware's
// on-disk configuration file.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "authz-middleware"

// homeDir returns the user's home directory, preferring $HOME and falling
// back to os.UserHomeDir for platforms that don't set it.
func homeDir() (string, error) {
	if home := os.Getenv("HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return home, nil
}

// ConfigDir returns the XDG config directory for authz-middleware, checking
// XDG_CONFIG_HOME first and falling back to ~/.config.
func ConfigDir() (string, error) {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// EnsureDir creates a directory and all parent directories if they don't
// exist. Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
