package main

import (
	"context"
	"errors"

	"github.com/elee1766/procurebot/src/app"
	"github.com/elee1766/procurebot/src/config"
	"github.com/elee1766/procurebot/src/executor"
	"github.com/elee1766/procurebot/src/procureagent"
	"github.com/elee1766/procurebot/src/watch"
)

// WatchCmd runs the stock check in the background
type WatchCmd struct {
	Schedule string `help:"Cron schedule (overrides watch.schedule)"`
	Once     bool   `help:"Run the check once and exit"`
}

func (c *WatchCmd) Run(ctx context.Context, cli *CLI) error {
	logger := createCLILogger(cli.LogLevel)

	a, err := newApp(ctx, cli, logger, app.Options{NoDatabase: true})
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.Config.Watch
	schedule := cfg.Schedule
	if c.Schedule != "" {
		schedule = c.Schedule
	}
	inventory := ""
	if cfg.WatchInventory {
		inventory = a.Config.Ledger.InventoryPath
	}
	if a.Notifier.Len() == 0 {
		logger.Warn("no notification channels configured; alerts are only logged")
	}

	w, err := watch.New(watch.Opts{
		Schedule:      schedule,
		Parser:        config.CronParser,
		InventoryPath: inventory,
		Debounce:      cfg.Debounce,
		Check: func(ctx context.Context) (string, error) {
			sink := executor.NewChannelEventSink(logger, 16)
			defer sink.Close()
			return a.StockCheck(ctx, sink)
		},
		Notifier: a.Notifier,
		Quiet: func(answer string) bool {
			return answer == procureagent.AllClear
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	if c.Once {
		w.RunOnce(ctx, "manual")
		return nil
	}

	logger.Info("watching", "schedule", schedule, "inventory", inventory)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
