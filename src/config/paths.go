package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName names the XDG subdirectories and the project config directory.
const AppName = "procurebot"

// StoragePaths contains paths for application storage
type StoragePaths struct {
	DatabasePath string
	LogPath      string
}

// GetDefaultStoragePaths returns default storage paths using XDG base directories
func GetDefaultStoragePaths() StoragePaths {
	// XDG_STATE_HOME holds the audit database and the TUI log
	return StoragePaths{
		DatabasePath: filepath.Join(xdg.StateHome, AppName, "procurebot.db"),
		LogPath:      filepath.Join(xdg.StateHome, AppName, "procurebot.log"),
	}
}

// DatabasePath returns the configured database path or the XDG default.
func (c *Config) DatabasePath() string {
	if c.Data.DatabasePath != "" {
		return c.Data.DatabasePath
	}
	return GetDefaultStoragePaths().DatabasePath
}

// GetDefaultCachePath returns the default cache directory path
func GetDefaultCachePath() string {
	return filepath.Join(xdg.CacheHome, AppName)
}
