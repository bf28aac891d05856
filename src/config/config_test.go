package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, NewValidator().Validate(cfg))

	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, 0.05, cfg.Ledger.LowThreshold)
	assert.Equal(t, 0.90, cfg.Ledger.HighThreshold)
	assert.Equal(t, "enforce", cfg.Confirmation.Mode)
	assert.Equal(t, time.Second, cfg.Voice.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.Voice.Timeout)
	assert.Equal(t, 1000, cfg.Stores.Radius)
	assert.False(t, cfg.Email.Enabled())
}

func TestLoader_LayersFiles(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, filepath.Join(dir, "user", "config.json"), `{
  "api": {"model": "openai/gpt-4o-mini", "max_tokens": 2048},
  "ledger": {"contracts_path": "/srv/contracts.csv"}
}`)
	project := writeFile(t, filepath.Join(dir, "project", "config.yaml"), `
agent:
  max_iterations: 3
  precheck_on_start: false
voice:
  timeout: 2s
`)

	l := NewLoader(ConfigPrecedence{UserConfig: user, ProjectConfig: project, LocalConfig: filepath.Join(dir, "missing.yaml")})
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "openai/gpt-4o-mini", cfg.API.Model)
	assert.Equal(t, 2048, cfg.API.MaxTokens)
	assert.Equal(t, "/srv/contracts.csv", cfg.Ledger.ContractsPath)
	assert.Equal(t, DefaultInventoryFile, cfg.Ledger.InventoryPath)
	assert.Equal(t, 3, cfg.Agent.MaxIterations)
	assert.False(t, cfg.Agent.PrecheckOnStart)
	assert.True(t, cfg.Agent.Stream, "keys a file does not set keep their value")
	assert.Equal(t, 2*time.Second, cfg.Voice.Timeout)
	assert.Equal(t, time.Second, cfg.Voice.PollInterval)
}

func TestLoader_ParseError(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "config.yaml"), "agent: [unterminated")
	_, err := NewLoader(ConfigPrecedence{ProjectConfig: path}).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project config")
}

func TestLoader_EnvironmentOverrides(t *testing.T) {
	l := NewLoader(ConfigPrecedence{EnvironmentPrefix: EnvironmentPrefix})
	l.getenv = envMap(map[string]string{
		"PROCUREBOT_MODEL":          "gemini-2.5-pro",
		"PROCUREBOT_PROVIDER":       "gemini",
		"PROCUREBOT_MAX_ITERATIONS": "7",
		"PROCUREBOT_STREAM":         "false",
		"PROCUREBOT_TIMEOUT":        "45s",
		"PROCUREBOT_SITE_ADDRESS":   "Baustelle 1, 81669 München",
		"OPENROUTER_API_KEY":        "sk-or-123",
		"GEMINI_API_KEY":            "gm-456",
		"ELEVENLABS_API_KEY":        "el-789",
	})

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", cfg.API.Model)
	assert.Equal(t, ProviderGemini, cfg.API.Provider)
	assert.Equal(t, 7, cfg.Agent.MaxIterations)
	assert.False(t, cfg.Agent.Stream)
	assert.Equal(t, 45*time.Second, cfg.API.Timeout)
	assert.Equal(t, "Baustelle 1, 81669 München", cfg.Voice.SiteAddress)
	assert.Equal(t, "sk-or-123", cfg.API.APIKey)
	assert.Equal(t, "gm-456", cfg.API.GeminiAPIKey)
	assert.Equal(t, "el-789", cfg.Voice.APIKey)
}

func TestLoader_PrefixedKeyWins(t *testing.T) {
	l := NewLoader(ConfigPrecedence{EnvironmentPrefix: EnvironmentPrefix})
	l.getenv = envMap(map[string]string{
		"PROCUREBOT_API_KEY": "prefixed",
		"OPENROUTER_API_KEY": "plain",
	})
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.API.APIKey)
}

func TestLoader_BadEnvironmentValue(t *testing.T) {
	l := NewLoader(ConfigPrecedence{EnvironmentPrefix: EnvironmentPrefix})
	l.getenv = envMap(map[string]string{"PROCUREBOT_MAX_ITERATIONS": "many"})
	_, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROCUREBOT_MAX_ITERATIONS")
}

func TestValidator(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown provider", func(c *Config) { c.API.Provider = "anthropic" }, "API.Provider"},
		{"fraction above one", func(c *Config) { c.Confirmation.LowCapacity = 1.5 }, "Confirmation.LowCapacity"},
		{"thresholds inverted", func(c *Config) { c.Ledger.HighThreshold = 0.01 }, "Ledger.HighThreshold"},
		{"dataset not csv", func(c *Config) { c.Ledger.InventoryPath = "inventory.xlsx" }, "Ledger.InventoryPath"},
		{"missing contracts", func(c *Config) { c.Ledger.ContractsPath = "" }, "Ledger.ContractsPath"},
		{"bad cron", func(c *Config) { c.Watch.Schedule = "every morning" }, "Watch.Schedule"},
		{"confirmation mode", func(c *Config) { c.Confirmation.Mode = "off" }, "Confirmation.Mode"},
		{"zero iterations", func(c *Config) { c.Agent.MaxIterations = 0 }, "Agent.MaxIterations"},
		{"bad sender address", func(c *Config) { c.Email.From = "purchasing" }, "Email.From"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := NewValidator().Validate(cfg)
			require.Error(t, err)
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidator_CronDescriptors(t *testing.T) {
	for _, spec := range []string{"@hourly", "@every 30m", "*/15 6-18 * * 1-5", ""} {
		cfg := DefaultConfig()
		cfg.Watch.Schedule = spec
		assert.NoError(t, NewValidator().Validate(cfg), spec)
	}
}

func TestConfigMerger(t *testing.T) {
	base := DefaultConfig()
	base.API.Headers = map[string]string{"X-Title": "procurebot"}
	temp := 0.2

	merged := NewConfigMerger().Merge(base, &Config{
		API: APIConfig{
			Model:       "openai/gpt-4o",
			Temperature: &temp,
			Headers:     map[string]string{"HTTP-Referer": "https://example.com"},
		},
		Agent: AgentConfig{MaxIterations: 2},
	})

	assert.Equal(t, "openai/gpt-4o", merged.API.Model)
	assert.Equal(t, ProviderOpenRouter, merged.API.Provider)
	require.NotNil(t, merged.API.Temperature)
	assert.Equal(t, 0.2, *merged.API.Temperature)
	assert.Equal(t, map[string]string{"X-Title": "procurebot", "HTTP-Referer": "https://example.com"}, merged.API.Headers)
	assert.Equal(t, 2, merged.Agent.MaxIterations)
	assert.True(t, merged.Agent.Stream)
	assert.Equal(t, DefaultModel, base.API.Model, "base is not modified")
	assert.Len(t, base.API.Headers, 1)
}

func TestManager_ApplyAndExport(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.APIKey = "sk-or-v1-abcdefghijkl"
	cfg.Email.Password = "hunter2"
	m, err := NewManagerWithConfig(cfg)
	require.NoError(t, err)

	require.NoError(t, m.Apply(&Config{API: APIConfig{Model: "x/y"}}))
	assert.Equal(t, "x/y", m.GetConfig().API.Model)

	err = m.Apply(&Config{API: APIConfig{Provider: "bogus"}})
	require.Error(t, err)
	assert.Equal(t, ProviderOpenRouter, m.GetConfig().API.Provider, "rejected update is not applied")

	out, err := m.ExportConfig("config.yaml", false)
	require.NoError(t, err)
	assert.Contains(t, string(out), "sk-o...ijkl")
	assert.NotContains(t, string(out), "hunter2")
	assert.Equal(t, "sk-or-v1-abcdefghijkl", m.GetConfig().API.APIKey)

	out, err = m.ExportConfig("config.json", true)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"api_key": "sk-or-v1-abcdefghijkl"`)
}

func TestManager_Info(t *testing.T) {
	m, err := NewManagerWithConfig(DefaultConfig())
	require.NoError(t, err)
	info := m.GetInfo()
	assert.Contains(t, info.Warnings, "OPENROUTER_API_KEY is not set")
	assert.Empty(t, info.Errors)
}

func TestFindProjectConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".procurebot", "config.yaml"), "agent:\n  stream: false\n")
	nested := filepath.Join(root, "sites", "munich")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := FindProjectConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)

	p := ProjectPaths(found)
	assert.Equal(t, filepath.Join(root, ".procurebot", "config.yaml"), p.ProjectConfig)
	assert.Equal(t, []ConfigLocation{{Path: p.ProjectConfig, Source: SourceProject}}, FindConfigs(ConfigPrecedence{ProjectConfig: p.ProjectConfig}))
}

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	require.NoError(t, CreateDefaultConfig(path))
	require.Error(t, CreateDefaultConfig(path))

	cfg, err := NewLoader(ConfigPrecedence{}).LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
