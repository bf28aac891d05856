package main

import (
	"context"

	"github.com/elee1766/procurebot/src/app"
	"github.com/elee1766/procurebot/src/tui"
)

// ChatCmd is the interactive chat
type ChatCmd struct {
	Resume     bool   `short:"r" help:"Resume the last session"`
	SessionID  string `name:"session" help:"Resume a specific session by ID"`
	Dev        bool   `help:"Start in developer mode (tool calls and hidden turns visible)"`
	NoPrecheck bool   `help:"Skip the startup stock check"`
	NoDatabase bool   `help:"Do not record the session"`
}

// Run executes the chat command
func (c *ChatCmd) Run(ctx context.Context, cli *CLI) error {
	logger := createTUILogger(cli.LogLevel)

	a, err := newApp(ctx, cli, logger, app.Options{NoDatabase: c.NoDatabase})
	if err != nil {
		return err
	}
	defer a.Close()
	if c.NoPrecheck {
		a.Config.Agent.PrecheckOnStart = false
	}

	chat, err := a.OpenChat(ctx, app.ChatOptions{SessionID: c.SessionID, Resume: c.Resume})
	if err != nil {
		return err
	}

	return tui.Run(ctx, chat, tui.Options{
		SessionID: chat.ID(),
		Dev:       c.Dev,
		Precheck:  a.Config.Agent.PrecheckOnStart && !chat.Session().PrecheckDone(),
		Logger:    logger,
	})
}
