package fs

import (
	"os"
	"path/filepath"
)

// DefaultConfigDir returns the directory holding differ's config file and
// annotation database. Uses XDG_CONFIG_HOME if set, otherwise falls back
// to ~/.config/differ.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "differ")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "differ")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.toml")
}

// DefaultDatabasePath returns the default annotation database location.
func DefaultDatabasePath() string {
	return filepath.Join(DefaultConfigDir(), "annotations.db")
}
