package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigLocation represents a found configuration file
type ConfigLocation struct {
	Path   string
	Source ConfigSource
}

// ConfigInfo describes the active configuration
type ConfigInfo struct {
	ActiveConfig string
	Locations    []ConfigLocation
	Provider     string
	Model        string
	Warnings     []string
	Errors       []string
}

// FindConfigs lists the configuration files that exist, lowest precedence first.
func FindConfigs(precedence ConfigPrecedence) []ConfigLocation {
	candidates := []ConfigLocation{
		{precedence.SystemConfig, SourceSystem},
		{precedence.UserConfig, SourceUser},
		{precedence.ProjectConfig, SourceProject},
		{precedence.LocalConfig, SourceLocal},
	}

	var found []ConfigLocation
	for _, c := range candidates {
		if c.Path == "" {
			continue
		}
		if info, err := os.Stat(c.Path); err == nil && !info.IsDir() {
			found = append(found, c)
		}
	}
	return found
}

// FindProjectConfig walks up from startDir looking for a project
// configuration directory and returns the directory containing it.
func FindProjectConfig(startDir string) (string, error) {
	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	home, _ := os.UserHomeDir()
	currentDir := startDir
	for {
		for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
			if _, err := os.Stat(filepath.Join(currentDir, projectDir, name)); err == nil {
				return currentDir, nil
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir || currentDir == home {
			break
		}
		currentDir = parentDir
	}

	return "", ErrNoConfigFile
}

// ProjectPaths returns the precedence with the project and local entries
// rooted at root.
func ProjectPaths(root string) ConfigPrecedence {
	p := GetConfigPaths()
	p.ProjectConfig = firstExisting(filepath.Join(root, projectDir, "config.yaml"))
	p.LocalConfig = firstExisting(filepath.Join(root, projectDir, "config.local.yaml"))
	return p
}

// CreateDefaultConfig writes the default configuration to path unless a
// file already exists there.
func CreateDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration already exists at %s", path)
	}
	return NewLoader(ConfigPrecedence{}).SaveFile(DefaultConfig(), path)
}
