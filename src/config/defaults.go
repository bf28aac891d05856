package config

import (
	"time"
)

// Default values referenced outside the package.
const (
	DefaultModel          = "google/gemini-2.5-flash"
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultMaxIterations  = 5
	DefaultLowThreshold   = 0.05
	DefaultHighThreshold  = 0.90
	DefaultLowCapacity    = 0.10
	DefaultSiteLat        = 48.12364444691372
	DefaultSiteLon        = 11.600215507421492
	DefaultWatchSchedule  = "0 7 * * 1-5"
	DefaultServerAddr     = "127.0.0.1:8080"
	DefaultOverpassURL    = "https://overpass-api.de/api/interpreter"
	DefaultSearchRadius   = 1000
	DefaultSMTPPort       = 587
	DefaultVoiceTimeout   = 5 * time.Minute
	DefaultVoicePoll      = time.Second
	DefaultPreviewRows    = 10
	DefaultMaxTokens      = 4096
	DefaultAPITimeout     = 2 * time.Minute
	DefaultWatchDebounce  = 2 * time.Second
	DefaultConfigVersion  = "1.0"
	DefaultConfirmMode    = "enforce"
	DefaultContractsFile  = "data/contracts.csv"
	DefaultInventoryFile  = "data/inventory.csv"
	DefaultSuppliersFile  = "data/suppliers.csv"
)

// DefaultConfig returns a default configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: DefaultConfigVersion,
		API: APIConfig{
			Provider:  ProviderOpenRouter,
			Model:     DefaultModel,
			MaxTokens: DefaultMaxTokens,
			Timeout:   DefaultAPITimeout,
		},

		Agent: AgentConfig{
			MaxIterations:   DefaultMaxIterations,
			PrecheckOnStart: true,
			Stream:          true,
		},

		Ledger: LedgerConfig{
			ContractsPath: DefaultContractsFile,
			InventoryPath: DefaultInventoryFile,
			SuppliersPath: DefaultSuppliersFile,
			LowThreshold:  DefaultLowThreshold,
			HighThreshold: DefaultHighThreshold,
			PreviewRows:   DefaultPreviewRows,
		},

		Confirmation: ConfirmationConfig{
			Mode:        DefaultConfirmMode,
			LowCapacity: DefaultLowCapacity,
			HighStorage: DefaultHighThreshold,
		},

		Voice: VoiceConfig{
			PollInterval: DefaultVoicePoll,
			Timeout:      DefaultVoiceTimeout,
		},

		Stores: StoresConfig{
			Enabled:     true,
			OverpassURL: DefaultOverpassURL,
			Lat:         DefaultSiteLat,
			Lon:         DefaultSiteLon,
			Radius:      DefaultSearchRadius,
		},

		Email: EmailConfig{
			SMTPPort: DefaultSMTPPort,
		},

		Watch: WatchConfig{
			Schedule:       DefaultWatchSchedule,
			WatchInventory: true,
			Debounce:       DefaultWatchDebounce,
		},

		Server: ServerConfig{
			Addr: DefaultServerAddr,
		},
	}
}
