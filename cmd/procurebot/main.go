package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	Config   string  `short:"c" help:"Configuration file (overrides the project config)" type:"path"`
	Provider string  `help:"Model provider (openrouter, gemini)"`
	Model    string  `short:"m" help:"Model to use"`
	APIKey   string  `help:"OpenRouter API key" env:"OPENROUTER_API_KEY"`
	BaseURL  string  `help:"Custom API base URL"`
	Database string  `help:"Audit database path"`
	Advisory bool    `help:"Log unconfirmed ledger changes instead of blocking them"`
	LogLevel string  `default:"warn" enum:"debug,info,warn,error" help:"Log level"`
	Temp     float64 `name:"temperature" help:"Override sampling temperature"`

	Chat       ChatCmd       `cmd:"" default:"1" help:"Start the interactive chat (default)"`
	Prompt     PromptCmd     `cmd:"" help:"Answer a single prompt and exit"`
	Ledger     LedgerCmd     `cmd:"" help:"Inspect and update the ledger"`
	Serve      ServeCmd      `cmd:"" help:"Serve the HTTP API"`
	Watch      WatchCmd      `cmd:"" help:"Run the stock check on a schedule and on inventory changes"`
	Transcribe TranscribeCmd `cmd:"" help:"Transcribe a voice memo"`
	Stores     StoresCmd     `cmd:"" help:"List stores near the site"`
	Tools      ToolsCmd      `cmd:"" help:"Inspect the assistant's tools"`
	Migrate    MigrateCmd    `cmd:"" help:"Database migrations"`
	ConfigCmd  ConfigCmd     `cmd:"" name:"config" help:"Show and create configuration"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("procurebot"),
		kong.Description("Procurement assistant for construction-site consumables"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	err := kctx.Run(&cli)
	stop()
	if err != nil {
		NewErrorHandler(createCLILogger(cli.LogLevel)).HandleError(err)
	}
}
