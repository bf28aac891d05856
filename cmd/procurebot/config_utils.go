package main

import (
	"context"
	"log/slog"

	"github.com/elee1766/procurebot/src/app"
	"github.com/elee1766/procurebot/src/config"
)

// loadConfig loads the layered configuration and applies the global flags.
func loadConfig(cli *CLI) (*config.Manager, error) {
	manager, err := config.NewManager(cli.Config)
	if err != nil {
		return nil, err
	}
	if err := manager.Apply(cliOverrides(cli)); err != nil {
		return nil, err
	}
	return manager, nil
}

// cliOverrides builds a sparse configuration holding only the values set on
// the command line.
func cliOverrides(cli *CLI) *config.Config {
	override := &config.Config{}
	override.API.Provider = cli.Provider
	override.API.Model = cli.Model
	override.API.APIKey = cli.APIKey
	override.API.BaseURL = cli.BaseURL
	if cli.Temp != 0 {
		t := cli.Temp
		override.API.Temperature = &t
	}
	override.Data.DatabasePath = cli.Database
	if cli.Advisory {
		override.Confirmation.Mode = "advisory"
	}
	return override
}

// newApp loads the configuration and builds the application.
func newApp(ctx context.Context, cli *CLI, logger *slog.Logger, opts app.Options) (*app.App, error) {
	manager, err := loadConfig(cli)
	if err != nil {
		return nil, err
	}
	opts.Config = manager.GetConfig()
	opts.Logger = logger
	return app.New(ctx, opts)
}
