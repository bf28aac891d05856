package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/elee1766/procurebot/src/app"
)

// StoresCmd lists hardware stores near the site
type StoresCmd struct {
	Limit int `short:"n" default:"10" help:"Maximum number of stores to list"`
}

func (c *StoresCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := newApp(ctx, cli, createCLILogger(cli.LogLevel), app.Options{NoModel: true, NoDatabase: true})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Locator == nil {
		return errors.New("store lookup is disabled; set stores.enabled and the site coordinates")
	}

	stores, err := a.Locator.Find(ctx)
	if err != nil {
		return err
	}
	if len(stores) == 0 {
		fmt.Println("No stores found near the site.")
		return nil
	}
	if c.Limit > 0 && len(stores) > c.Limit {
		stores = stores[:c.Limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tDISTANCE\tPHONE\tADDRESS\tLINK")
	for _, s := range stores {
		fmt.Fprintf(w, "%s\t%s\t%.1f km\t%s\t%s\t%s\n",
			s.Name, s.Kind, s.Distance/1000, dash(s.Phone), dash(s.Address), s.URL())
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
