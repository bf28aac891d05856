package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// Manager manages configuration loading, validation, and access
type Manager struct {
	config     *Config
	loader     *Loader
	validator  *Validator
	configPath string
	mu         sync.RWMutex
}

// NewManager loads the configuration from the standard locations. An
// explicit path, when given, replaces the project entry.
func NewManager(path string) (*Manager, error) {
	precedence := GetConfigPaths()
	if root, err := FindProjectConfig(""); err == nil {
		precedence = ProjectPaths(root)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		precedence.ProjectConfig = path
		precedence.LocalConfig = ""
	}
	return NewManagerWithPrecedence(precedence)
}

// NewManagerWithPrecedence loads the configuration from explicit locations.
func NewManagerWithPrecedence(precedence ConfigPrecedence) (*Manager, error) {
	loader := NewLoader(precedence)
	config, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var active string
	if found := FindConfigs(precedence); len(found) > 0 {
		active = found[len(found)-1].Path
	}

	return &Manager{
		config:     config,
		loader:     loader,
		validator:  NewValidator(),
		configPath: active,
	}, nil
}

// NewManagerWithConfig creates a manager with a specific configuration
func NewManagerWithConfig(config *Config) (*Manager, error) {
	validator := NewValidator()
	if err := validator.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Manager{
		config:    config,
		loader:    NewLoader(ConfigPrecedence{}),
		validator: validator,
	}, nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Reload reloads the configuration from disk
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	config, err := m.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	m.config = config
	return nil
}

// SaveTo saves the configuration to a specific path
func (m *Manager) SaveTo(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.loader.SaveFile(m.config, path)
}

// Apply merges the non-zero fields of override (typically CLI flags) into
// the configuration and validates the result.
func (m *Manager) Apply(override *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := NewConfigMerger().Merge(m.config, override)
	if err := m.validator.Validate(merged); err != nil {
		return fmt.Errorf("invalid configuration after update: %w", err)
	}
	m.config = merged
	return nil
}

// GetConfigPath returns the path of the highest-precedence file loaded
func (m *Manager) GetConfigPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configPath
}

// GetInfo returns configuration information
func (m *Manager) GetInfo() *ConfigInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info := &ConfigInfo{
		ActiveConfig: m.configPath,
		Locations:    FindConfigs(m.loader.precedence),
		Provider:     m.config.API.Provider,
		Model:        m.config.API.Model,
	}

	switch m.config.API.Provider {
	case ProviderGemini:
		if m.config.API.GeminiAPIKey == "" {
			info.Warnings = append(info.Warnings, "GEMINI_API_KEY is not set")
		}
	default:
		if m.config.API.APIKey == "" {
			info.Warnings = append(info.Warnings, "OPENROUTER_API_KEY is not set")
		}
	}
	if m.config.Voice.APIKey == "" {
		info.Warnings = append(info.Warnings, "ELEVENLABS_API_KEY is not set; voice input and calls are disabled")
	}
	if !m.config.Email.Enabled() {
		info.Warnings = append(info.Warnings, "SMTP is not configured; send_order_email is disabled")
	}

	if err := m.validator.Validate(m.config); err != nil {
		var ve ValidationError
		if errors.As(err, &ve) {
			info.Errors = append(info.Errors, ve.Message)
		} else {
			info.Errors = append(info.Errors, err.Error())
		}
	}

	return info
}

// ExportConfig encodes the configuration for path's format. Secrets are
// masked unless includeSecrets is set.
func (m *Manager) ExportConfig(path string, includeSecrets bool) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	config := m.config
	if !includeSecrets {
		config = Redacted(config)
	}
	return Marshal(config, path)
}
