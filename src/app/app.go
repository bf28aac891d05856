// Package app wires the configuration into the running assistant: model
// provider, ledger, integrations, toolbox, gate, and orchestration service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/elee1766/procurebot/src/agent"
	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/config"
	"github.com/elee1766/procurebot/src/confirm"
	"github.com/elee1766/procurebot/src/executor"
	"github.com/elee1766/procurebot/src/gemini"
	"github.com/elee1766/procurebot/src/ledger"
	"github.com/elee1766/procurebot/src/notify"
	"github.com/elee1766/procurebot/src/orclient"
	"github.com/elee1766/procurebot/src/procureagent"
	"github.com/elee1766/procurebot/src/procureagent/tools"
	"github.com/elee1766/procurebot/src/session"
	"github.com/elee1766/procurebot/src/storage"
	"github.com/elee1766/procurebot/src/storelocator"
	"github.com/elee1766/procurebot/src/voicecall"
	"github.com/spf13/afero"
)

// App represents the main application with all services
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   *storage.DB
	Ledger  *ledger.Store
	Model   aisdk.ModelClient
	Toolbox *agent.DefaultToolbox
	Gate    *confirm.Gate
	Service *executor.Service

	// Optional integrations; nil when not configured.
	Voice    *voicecall.Client
	Locator  *storelocator.Locator
	Mailer   *notify.Mailer
	Notifier *notify.Multi
}

// Options holds what New needs beyond the configuration.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	// Fs backs the ledger. Defaults to the OS filesystem.
	Fs afero.Fs

	// NoDatabase skips the audit store.
	NoDatabase bool

	// Model replaces the configured provider.
	Model aisdk.ModelClient

	// NoModel skips the model provider for commands that only touch the
	// ledger or the integrations.
	NoModel bool
}

// New creates a new App instance with all services initialized
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Ledger: ledger.NewStore(fs, ledger.Config{
			ContractsPath: cfg.Ledger.ContractsPath,
			InventoryPath: cfg.Ledger.InventoryPath,
			SuppliersPath: cfg.Ledger.SuppliersPath,
			LowThreshold:  cfg.Ledger.LowThreshold,
			HighThreshold: cfg.Ledger.HighThreshold,
			PreviewRows:   cfg.Ledger.PreviewRows,
		}, logger),
	}

	if !opts.NoDatabase {
		store, err := OpenStore(ctx, cfg.DatabasePath(), logger)
		if err != nil {
			return nil, err
		}
		a.Store = store
	}

	a.initIntegrations()

	if err := a.initAgent(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// OpenStore opens and migrates the audit database, creating its directory.
func OpenStore(ctx context.Context, path string, logger *slog.Logger) (*storage.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	store, err := storage.Open(ctx, path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return store, nil
}

func (a *App) initIntegrations() {
	cfg := a.Config

	if cfg.Voice.APIKey != "" {
		a.Voice = voicecall.NewClient(voicecall.Config{
			APIKey:        cfg.Voice.APIKey,
			BaseURL:       cfg.Voice.BaseURL,
			AgentID:       cfg.Voice.AgentID,
			PhoneNumberID: cfg.Voice.PhoneNumberID,
			PollInterval:  cfg.Voice.PollInterval,
			CallTimeout:   cfg.Voice.Timeout,
			Logger:        a.Logger,
		})
	}

	if cfg.Stores.Enabled {
		a.Locator = storelocator.New(storelocator.Config{
			OverpassURL: cfg.Stores.OverpassURL,
			Lat:         cfg.Stores.Lat,
			Lon:         cfg.Stores.Lon,
			Radius:      cfg.Stores.Radius,
			ShopKinds:   cfg.Stores.ShopKinds,
			Logger:      a.Logger,
		})
	}

	if cfg.Email.Enabled() {
		mailer, err := notify.NewMailer(notify.MailerOpts{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
		if err != nil {
			a.Logger.Warn("order email disabled", "error", err)
		} else {
			a.Mailer = mailer
		}
	}

	a.Notifier = BuildNotifier(cfg.Notify, a.Mailer, a.Logger)
}

// BuildNotifier assembles every configured notification channel. Channels
// that fail to initialize are logged and skipped.
func BuildNotifier(cfg config.NotifyConfig, mailer *notify.Mailer, logger *slog.Logger) *notify.Multi {
	multi := &notify.Multi{Logger: logger}

	if cfg.SlackWebhookURL != "" || (cfg.SlackToken != "" && cfg.SlackChannel != "") {
		slack, err := notify.NewSlack(notify.SlackOpts{
			BotToken:   cfg.SlackToken,
			ChannelID:  cfg.SlackChannel,
			WebhookURL: cfg.SlackWebhookURL,
		})
		if err != nil {
			logger.Warn("slack notifications disabled", "error", err)
		} else {
			multi.Notifiers = append(multi.Notifiers, slack)
		}
	}

	if cfg.DiscordToken != "" && cfg.DiscordChannel != "" {
		discord, err := notify.NewDiscord(notify.DiscordOpts{
			BotToken:  cfg.DiscordToken,
			ChannelID: cfg.DiscordChannel,
		})
		if err != nil {
			logger.Warn("discord notifications disabled", "error", err)
		} else {
			multi.Notifiers = append(multi.Notifiers, discord)
		}
	}

	if mailer != nil && len(cfg.EmailRecipients) > 0 {
		multi.Notifiers = append(multi.Notifiers, &notify.Recipient{Mailer: mailer, To: cfg.EmailRecipients})
	}

	return multi
}

// NewProvider returns the model provider the configuration selects.
func NewProvider(ctx context.Context, cfg config.APIConfig, logger *slog.Logger) (aisdk.Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
		}
		client, err := gemini.NewRealClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return gemini.New(client, logger), nil
	default:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openrouter: %w", ErrMissingAPIKey)
		}
		return orclient.NewClient(orclient.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Logger:   logger,
			Timeout:  cfg.Timeout,
			SiteName: config.AppName,
		}), nil
	}
}

func (a *App) initAgent(ctx context.Context, opts Options) error {
	cfg := a.Config

	toolCfg := procureagent.Config{
		Ledger:         a.Ledger,
		LegacyReadName: cfg.Agent.LegacyToolNames,
		LocalStore: tools.CallLocalStoreOptions{
			VendorName:  cfg.Voice.DefaultVendor,
			ToNumber:    cfg.Voice.ToNumber,
			SiteAddress: cfg.Voice.SiteAddress,
			TargetPrice: cfg.Voice.TargetPrice,
			Timeout:     cfg.Voice.Timeout + cfg.Voice.PollInterval,
		},
		OrderEmail: tools.SendOrderEmailOptions{
			FallbackRecipient: cfg.Email.FallbackRecipient,
			SiteAddress:       cfg.Voice.SiteAddress,
		},
		Logger: a.Logger,
	}
	if a.Voice != nil {
		toolCfg.LocalStore.Caller = a.Voice
	}
	if a.Locator != nil {
		toolCfg.LocalStore.Finder = a.Locator
	}
	if a.Mailer != nil {
		toolCfg.OrderEmail.Sender = a.Mailer
	}
	if a.Notifier.Len() > 0 {
		toolCfg.OrderEmail.Notifier = a.Notifier
	}
	if a.Store != nil {
		toolCfg.Database = a.Store.DB()
	}

	toolbox, err := procureagent.NewToolbox(toolCfg)
	if err != nil {
		return err
	}
	a.Toolbox = toolbox

	a.Gate = confirm.NewGate(confirm.Mode(cfg.Confirmation.Mode),
		confirm.WithRiskAssessor(&confirm.LedgerRisk{
			Ledger:      a.Ledger,
			LowCapacity: cfg.Confirmation.LowCapacity,
			HighStorage: cfg.Confirmation.HighStorage,
		}),
		confirm.WithLogger(a.Logger),
	)

	if opts.NoModel {
		return nil
	}

	model := opts.Model
	if model == nil {
		provider, err := NewProvider(ctx, cfg.API, a.Logger)
		if err != nil {
			return err
		}
		model, err = provider.Model(ctx, cfg.API.Model)
		if err != nil {
			return fmt.Errorf("failed to get model %s: %w", cfg.API.Model, err)
		}
	}
	a.Model = model

	systemPrompt := cfg.Agent.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = procureagent.GenerateSystemPrompt(toolbox, procureagent.PromptOptions{
			SiteAddress: cfg.Voice.SiteAddress,
			LowCapacity: cfg.Confirmation.LowCapacity,
			HighStorage: cfg.Confirmation.HighStorage,
			LowStock:    cfg.Ledger.LowThreshold,
		})
	}

	maxTokens := cfg.API.MaxTokens
	svcCfg := executor.ServiceConfig{
		Model:         model,
		Toolbox:       toolbox,
		Gate:          a.Gate,
		SystemPrompt:  systemPrompt,
		MaxIterations: cfg.Agent.MaxIterations,
		MaxTokens:     &maxTokens,
		Temperature:   cfg.API.Temperature,
		Stream:        cfg.Agent.Stream,
		Provider:      cfg.API.Provider,
		Logger:        a.Logger,
	}
	if a.Store != nil {
		svcCfg.Database = a.Store.DB()
	}
	a.Service, err = executor.NewService(svcCfg)
	return err
}

// PrecheckPrompt is the hidden stock-check prompt for this configuration.
func (a *App) PrecheckPrompt() string {
	return procureagent.PrecheckPrompt(a.Config.Ledger.LowThreshold)
}

// StockCheck runs the precheck in a fresh throwaway session and returns the
// answer. It is what the background watcher posts.
func (a *App) StockCheck(ctx context.Context, sink executor.EventSink) (string, error) {
	if a.Service == nil {
		return "", fmt.Errorf("app has no model configured")
	}
	sess := session.New()
	result, err := a.Service.RunPrecheck(ctx, &executor.PrecheckRequest{
		Session:        sess,
		ConversationID: sess.ID,
		Prompt:         a.PrecheckPrompt(),
		EventSink:      sink,
	})
	if err != nil {
		return "", err
	}
	if result.Err != nil {
		return "", result.Err
	}
	return result.Final, nil
}

// Close closes all resources held by the app
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
