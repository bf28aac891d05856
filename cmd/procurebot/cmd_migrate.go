package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/elee1766/procurebot/src/storage"
)

// MigrateCmd manages the audit database schema
type MigrateCmd struct {
	Up     MigrateUpCmd     `cmd:"" default:"1" help:"Apply pending migrations"`
	Status MigrateStatusCmd `cmd:"" help:"Show migration status"`
}

// MigrateUpCmd applies pending migrations
type MigrateUpCmd struct{}

func (c *MigrateUpCmd) Run(ctx context.Context, cli *CLI) error {
	db, err := openAuditDB(cli)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := db.Migrate(ctx)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("Database is up to date.")
		return nil
	}
	for _, r := range results {
		fmt.Printf("applied %s (%s)\n", r.Source.Path, r.Duration)
	}
	return nil
}

// MigrateStatusCmd prints each migration and whether it is applied
type MigrateStatusCmd struct{}

func (c *MigrateStatusCmd) Run(ctx context.Context, cli *CLI) error {
	db, err := openAuditDB(cli)
	if err != nil {
		return err
	}
	defer db.Close()

	statuses, err := db.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	version, err := db.Version(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("database: %s\nversion:  %d\n\n", db.Path(), version)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED\tFILE")
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, filepath.Base(s.Source.Path))
	}
	return w.Flush()
}

// openAuditDB opens the configured database without migrating it.
func openAuditDB(cli *CLI) (*storage.DB, error) {
	manager, err := loadConfig(cli)
	if err != nil {
		return nil, err
	}
	path := manager.GetConfig().DatabasePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return storage.OpenRaw(path, createCLILogger(cli.LogLevel))
}
