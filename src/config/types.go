package config

import (
	"time"
)

// Config represents the complete configuration for procurebot
type Config struct {
	// Version of the configuration format
	Version string `json:"version" yaml:"version"`

	// API configuration for the model provider
	API APIConfig `json:"api" yaml:"api"`

	// Agent configuration for the orchestration loop
	Agent AgentConfig `json:"agent" yaml:"agent"`

	// Ledger locates the procurement datasets
	Ledger LedgerConfig `json:"ledger" yaml:"ledger"`

	// Confirmation configures the runtime confirmation gate
	Confirmation ConfirmationConfig `json:"confirmation" yaml:"confirmation"`

	// Voice configures speech-to-text and outbound calls
	Voice VoiceConfig `json:"voice" yaml:"voice"`

	// Stores configures the nearby store lookup
	Stores StoresConfig `json:"stores" yaml:"stores"`

	// Email configures order mail delivery
	Email EmailConfig `json:"email" yaml:"email"`

	// Notify configures chat notifications
	Notify NotifyConfig `json:"notify" yaml:"notify"`

	// Watch configures the background stock watcher
	Watch WatchConfig `json:"watch" yaml:"watch"`

	// Server configures the HTTP API
	Server ServerConfig `json:"server" yaml:"server"`

	// Data directory configuration
	Data DataConfig `json:"data,omitempty" yaml:"data,omitempty"`
}

// DataConfig defines data directory configuration
type DataConfig struct {
	// DatabasePath overrides the audit database location
	DatabasePath string `json:"database_path,omitempty" yaml:"database_path,omitempty" env:"DATABASE"`
}

// APIConfig holds API-related configuration
type APIConfig struct {
	// Provider specifies the model provider ("openrouter" or "gemini")
	Provider string `json:"provider" yaml:"provider" validate:"provider" env:"PROVIDER"`

	// BaseURL overrides the default API endpoint
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url" env:"BASE_URL"`

	// APIKey for OpenRouter (can be omitted if using env vars)
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" env:"API_KEY" secret:"true"`

	// GeminiAPIKey for the Gemini provider
	GeminiAPIKey string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty" env:"GEMINI_API_KEY" secret:"true"`

	// Model is the provider model id
	Model string `json:"model" yaml:"model" validate:"required" env:"MODEL"`

	// MaxTokens bounds one model response
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" validate:"min=1" env:"MAX_TOKENS"`

	// Temperature for sampling; nil leaves the provider default
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"omitempty,min=0,max=2"`

	// Headers for additional API headers
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Timeout for API requests
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"min=0" env:"TIMEOUT"`
}

// AgentConfig holds orchestration loop settings
type AgentConfig struct {
	// MaxIterations is the ceiling on tool-requesting model responses per input
	MaxIterations int `json:"max_iterations" yaml:"max_iterations" validate:"min=1,max=50" env:"MAX_ITERATIONS"`

	// PrecheckOnStart runs the hidden stock check before the first answer
	PrecheckOnStart bool `json:"precheck_on_start" yaml:"precheck_on_start" env:"PRECHECK"`

	// Stream selects streaming model calls
	Stream bool `json:"stream" yaml:"stream" env:"STREAM"`

	// SystemPrompt replaces the generated system prompt when set
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`

	// LegacyToolNames registers the ledger reader as read_csv
	LegacyToolNames bool `json:"legacy_tool_names,omitempty" yaml:"legacy_tool_names,omitempty"`
}

// LedgerConfig locates the datasets and sets the summary policy
type LedgerConfig struct {
	ContractsPath string  `json:"contracts_path" yaml:"contracts_path" validate:"required,dataset_path" env:"CONTRACTS"`
	InventoryPath string  `json:"inventory_path" yaml:"inventory_path" validate:"dataset_path" env:"INVENTORY"`
	SuppliersPath string  `json:"suppliers_path" yaml:"suppliers_path" validate:"dataset_path" env:"SUPPLIERS"`
	LowThreshold  float64 `json:"low_threshold" yaml:"low_threshold" validate:"fraction"`
	HighThreshold float64 `json:"high_threshold" yaml:"high_threshold" validate:"fraction,gtfield=LowThreshold"`
	PreviewRows   int     `json:"preview_rows" yaml:"preview_rows" validate:"min=1"`
}

// ConfirmationConfig configures the confirmation gate
type ConfirmationConfig struct {
	// Mode is "enforce" (block unconfirmed mutations) or "advisory" (log only)
	Mode string `json:"mode" yaml:"mode" validate:"oneof=enforce advisory" env:"CONFIRMATION_MODE"`

	// LowCapacity is the remaining contract fraction at which an order is high risk
	LowCapacity float64 `json:"low_capacity" yaml:"low_capacity" validate:"fraction"`

	// HighStorage is the storage fraction above which an order is high risk
	HighStorage float64 `json:"high_storage" yaml:"high_storage" validate:"fraction"`
}

// VoiceConfig configures ElevenLabs speech-to-text and outbound calls
type VoiceConfig struct {
	APIKey        string        `json:"api_key,omitempty" yaml:"api_key,omitempty" env:"ELEVENLABS_API_KEY" secret:"true"`
	BaseURL       string        `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	AgentID       string        `json:"agent_id,omitempty" yaml:"agent_id,omitempty" env:"VOICE_AGENT_ID"`
	PhoneNumberID string        `json:"phone_number_id,omitempty" yaml:"phone_number_id,omitempty" env:"VOICE_PHONE_NUMBER_ID"`
	ToNumber      string        `json:"to_number,omitempty" yaml:"to_number,omitempty" env:"VOICE_TO_NUMBER"`
	PollInterval  time.Duration `json:"poll_interval" yaml:"poll_interval" validate:"min=0"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout" validate:"min=0"`

	// SiteAddress is the delivery address spoken on calls and printed on orders
	SiteAddress   string `json:"site_address,omitempty" yaml:"site_address,omitempty" env:"SITE_ADDRESS"`
	TargetPrice   string `json:"target_price,omitempty" yaml:"target_price,omitempty"`
	DefaultVendor string `json:"default_vendor,omitempty" yaml:"default_vendor,omitempty"`
}

// StoresConfig configures the Overpass store lookup
type StoresConfig struct {
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	OverpassURL string   `json:"overpass_url,omitempty" yaml:"overpass_url,omitempty" validate:"omitempty,url"`
	Lat         float64  `json:"lat" yaml:"lat" validate:"min=-90,max=90"`
	Lon         float64  `json:"lon" yaml:"lon" validate:"min=-180,max=180"`
	Radius      int      `json:"radius" yaml:"radius" validate:"min=0"`
	ShopKinds   []string `json:"shop_kinds,omitempty" yaml:"shop_kinds,omitempty"`
}

// EmailConfig configures SMTP delivery of order emails
type EmailConfig struct {
	SMTPHost          string `json:"smtp_host,omitempty" yaml:"smtp_host,omitempty" env:"SMTP_HOST"`
	SMTPPort          int    `json:"smtp_port,omitempty" yaml:"smtp_port,omitempty" validate:"min=0,max=65535"`
	Username          string `json:"username,omitempty" yaml:"username,omitempty" env:"SMTP_USER"`
	Password          string `json:"password,omitempty" yaml:"password,omitempty" env:"SMTP_PASSWORD" secret:"true"`
	From              string `json:"from,omitempty" yaml:"from,omitempty" validate:"omitempty,email"`
	FallbackRecipient string `json:"fallback_recipient,omitempty" yaml:"fallback_recipient,omitempty" validate:"omitempty,email"`
}

// Enabled reports whether order emails can be sent.
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != "" && e.From != ""
}

// NotifyConfig configures Slack and Discord notifications
type NotifyConfig struct {
	SlackToken      string   `json:"slack_token,omitempty" yaml:"slack_token,omitempty" env:"SLACK_TOKEN" secret:"true"`
	SlackChannel    string   `json:"slack_channel,omitempty" yaml:"slack_channel,omitempty" env:"SLACK_CHANNEL"`
	SlackWebhookURL string   `json:"slack_webhook_url,omitempty" yaml:"slack_webhook_url,omitempty" validate:"omitempty,url" env:"SLACK_WEBHOOK_URL" secret:"true"`
	DiscordToken    string   `json:"discord_token,omitempty" yaml:"discord_token,omitempty" env:"DISCORD_TOKEN" secret:"true"`
	DiscordChannel  string   `json:"discord_channel,omitempty" yaml:"discord_channel,omitempty" env:"DISCORD_CHANNEL"`
	EmailRecipients []string `json:"email_recipients,omitempty" yaml:"email_recipients,omitempty" validate:"dive,email"`
}

// WatchConfig configures procurebot watch
type WatchConfig struct {
	// Schedule is a cron spec for the periodic stock check
	Schedule string `json:"schedule" yaml:"schedule" validate:"cron_spec" env:"WATCH_SCHEDULE"`

	// WatchInventory also runs the check when the inventory file changes
	WatchInventory bool `json:"watch_inventory" yaml:"watch_inventory"`

	// Debounce coalesces bursts of file events
	Debounce time.Duration `json:"debounce" yaml:"debounce" validate:"min=0"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" validate:"required" env:"SERVER_ADDR"`
}

// ConfigPrecedence defines the order of configuration loading
type ConfigPrecedence struct {
	// SystemConfig path
	SystemConfig string

	// UserConfig path
	UserConfig string

	// ProjectConfig path
	ProjectConfig string

	// LocalConfig path
	LocalConfig string

	// EnvironmentPrefix for env var overrides
	EnvironmentPrefix string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	return e.Message
}

// ConfigSource indicates where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"
	SourceUser        ConfigSource = "user"
	SourceProject     ConfigSource = "project"
	SourceLocal       ConfigSource = "local"
	SourceEnvironment ConfigSource = "environment"
	SourceCLI         ConfigSource = "cli"
)

// Provider names
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)
