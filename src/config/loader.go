package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// EnvironmentPrefix prefixes every environment override.
const EnvironmentPrefix = "PROCUREBOT"

// Loader handles loading and merging configurations from multiple sources
type Loader struct {
	precedence ConfigPrecedence
	validator  *Validator
	getenv     func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader(precedence ConfigPrecedence) *Loader {
	return &Loader{
		precedence: precedence,
		validator:  NewValidator(),
		getenv:     os.Getenv,
	}
}

// Load loads configuration from all sources and merges them. Each file is
// decoded on top of the result of the previous ones, so a file only
// overrides the keys it sets.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	sources := []struct {
		path   string
		source ConfigSource
	}{
		{l.precedence.SystemConfig, SourceSystem},
		{l.precedence.UserConfig, SourceUser},
		{l.precedence.ProjectConfig, SourceProject},
		{l.precedence.LocalConfig, SourceLocal},
	}

	for _, src := range sources {
		if src.path == "" {
			continue
		}
		if err := l.decodeFile(src.path, config); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to load %s config from %s: %w", src.source, src.path, err)
		}
	}

	if l.precedence.EnvironmentPrefix != "" {
		if err := l.applyEnvironmentOverrides(config); err != nil {
			return nil, err
		}
	}

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadFile decodes a single file over the defaults without validating it.
func (l *Loader) LoadFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := l.decodeFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// decodeFile reads path and decodes it into config. The format follows the
// extension: .yaml and .yml are YAML, anything else is JSON.
func (l *Loader) decodeFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if isYAML(path) {
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
		return nil
	}
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Marshal encodes the configuration in the format the path's extension names.
func Marshal(config *Config, path string) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(config)
	}
	return json.MarshalIndent(config, "", "  ")
}

// SaveFile saves configuration to a file
func (l *Loader) SaveFile(config *Config, path string) error {
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := Marshal(config, path)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides applies environment variable overrides to config.
// Fields tagged env:"NAME" read PREFIX_NAME; the provider keys also fall back
// to their conventional unprefixed variables.
func (l *Loader) applyEnvironmentOverrides(config *Config) error {
	env := NewConfigEnvironment(l.precedence.EnvironmentPrefix)
	env.getenv = l.getenv
	if err := env.LoadFromEnv(config); err != nil {
		return err
	}

	fallbacks := []struct {
		target *string
		name   string
	}{
		{&config.API.APIKey, "OPENROUTER_API_KEY"},
		{&config.API.GeminiAPIKey, "GEMINI_API_KEY"},
		{&config.API.GeminiAPIKey, "GOOGLE_API_KEY"},
		{&config.Voice.APIKey, "ELEVENLABS_API_KEY"},
	}
	for _, f := range fallbacks {
		if *f.target != "" {
			continue
		}
		if v := l.getenv(f.name); v != "" {
			*f.target = v
		}
	}
	return nil
}

// GetConfigPaths returns the configuration file paths to check
func GetConfigPaths() ConfigPrecedence {
	systemConfigPath := filepath.Join("/etc", AppName, "config.yaml")
	if runtime.GOOS == "windows" {
		systemConfigPath = filepath.Join(os.Getenv("PROGRAMDATA"), AppName, "config.yaml")
	}

	return ConfigPrecedence{
		SystemConfig:      firstExisting(systemConfigPath),
		UserConfig:        firstExisting(filepath.Join(xdg.ConfigHome, AppName, "config.yaml")),
		ProjectConfig:     firstExisting(filepath.Join(projectDir, "config.yaml")),
		LocalConfig:       firstExisting(filepath.Join(projectDir, "config.local.yaml")),
		EnvironmentPrefix: EnvironmentPrefix,
	}
}

// projectDir is the per-project configuration directory.
const projectDir = "." + AppName

// firstExisting returns the first of path and its sibling extensions that
// exists, or path itself when none does.
func firstExisting(path string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext
		}
	}
	return path
}

// FindConfigFile searches for a configuration file in standard locations
func FindConfigFile() (string, error) {
	paths := GetConfigPaths()

	checkPaths := []string{
		paths.LocalConfig,
		paths.ProjectConfig,
		paths.UserConfig,
		paths.SystemConfig,
	}

	for _, path := range checkPaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", ErrNoConfigFile
}
