package main

import (
	"context"

	"github.com/elee1766/procurebot/src/app"
	"github.com/elee1766/procurebot/src/server"
)

// ServeCmd serves the HTTP API
type ServeCmd struct {
	Addr       string `help:"Listen address (overrides server.addr)"`
	NoDatabase bool   `help:"Do not record sessions"`
}

func (c *ServeCmd) Run(ctx context.Context, cli *CLI) error {
	logger := createCLILogger(cli.LogLevel)

	a, err := newApp(ctx, cli, logger, app.Options{NoDatabase: c.NoDatabase})
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.Config.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}
	return server.Start(ctx, server.Opts{
		Addr:   addr,
		Open:   server.AppOpener(a),
		Ledger: a.Ledger,
		Logger: logger,
	})
}
