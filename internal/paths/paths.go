// Package paths resolves configuration directory and store file locations
// for the shelf CLI.
package paths

import (
	"os"
	"path/filepath"
)

// CWD-relative directory and file names used when no override is active.
const (
	DefaultConfigDirName = ".shelf"
	DefaultStoreFileName = "shelf.db"
)

// Environment variable names for location overrides.
const (
	EnvConfigDir = "SHELF_CONFIG_DIR"
	EnvStorePath = "SHELF_DB_PATH"
)

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > SHELF_CONFIG_DIR env > $(CWD)/.shelf.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultConfigDirName), nil
}

// ResolveStorePath returns the store file path following the precedence
// chain: flag > config.yaml value > SHELF_DB_PATH env > $(CWD)/shelf.db.
func ResolveStorePath(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvStorePath); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultStoreFileName), nil
}
