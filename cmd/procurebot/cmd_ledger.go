package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/elee1766/procurebot/src/app"
	"github.com/elee1766/procurebot/src/ledger"
	"github.com/elee1766/procurebot/src/procureagent"
	"github.com/elee1766/procurebot/src/storage"
	"github.com/elee1766/procurebot/src/theme"
)

// LedgerCmd groups the ledger commands
type LedgerCmd struct {
	Show    LedgerShowCmd    `cmd:"" help:"Print a dataset"`
	Summary LedgerSummaryCmd `cmd:"" help:"Print the summary the assistant sees"`
	Low     LedgerLowCmd     `cmd:"" help:"List items below the low-stock threshold"`
	Use     LedgerUseCmd     `cmd:"" help:"Record consumption against a contract"`
	History LedgerHistoryCmd `cmd:"" help:"Show recorded ledger changes"`
}

// LedgerShowCmd prints a dataset as a table
type LedgerShowCmd struct {
	Dataset string `arg:"" optional:"" enum:"contracts,inventory,suppliers" default:"contracts" help:"Dataset to print"`
}

func (c *LedgerShowCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := newApp(ctx, cli, createCLILogger(cli.LogLevel), app.Options{NoModel: true, NoDatabase: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ds, err := ledger.ParseDataset(c.Dataset)
	if err != nil {
		return err
	}
	t, err := a.Ledger.Load(ds)
	if err != nil {
		return err
	}
	fmt.Println(renderTable(t.Header, t.Rows))
	return nil
}

// LedgerSummaryCmd prints a dataset summary
type LedgerSummaryCmd struct {
	Dataset string `arg:"" optional:"" enum:"contracts,inventory,suppliers" default:"contracts" help:"Dataset to summarize"`
}

func (c *LedgerSummaryCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := newApp(ctx, cli, createCLILogger(cli.LogLevel), app.Options{NoModel: true, NoDatabase: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ds, err := ledger.ParseDataset(c.Dataset)
	if err != nil {
		return err
	}
	summary, err := a.Ledger.Summary(ds)
	if err != nil {
		return err
	}
	fmt.Println(summary)
	return nil
}

// LedgerLowCmd lists low stock
type LedgerLowCmd struct{}

func (c *LedgerLowCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := newApp(ctx, cli, createCLILogger(cli.LogLevel), app.Options{NoModel: true, NoDatabase: true})
	if err != nil {
		return err
	}
	defer a.Close()

	items, err := a.Ledger.LowStock()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println(procureagent.AllClear)
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.ProductID, it.ProductName, fmt.Sprintf("%.0f%%", it.Storage*100)})
	}
	fmt.Println(renderTable([]string{"product_id", "product_name", "storage"}, rows))
	return nil
}

// LedgerUseCmd records consumption
type LedgerUseCmd struct {
	Product  string `arg:"" help:"Product ID, e.g. C001"`
	Quantity int64  `arg:"" help:"Units consumed"`
	DryRun   bool   `short:"n" help:"Show the change as a diff without writing it"`
}

func (c *LedgerUseCmd) Run(ctx context.Context, cli *CLI) error {
	logger := createCLILogger(cli.LogLevel)
	a, err := newApp(ctx, cli, logger, app.Options{NoModel: true, NoDatabase: c.DryRun})
	if err != nil {
		return err
	}
	defer a.Close()

	if c.DryRun {
		preview, err := a.Ledger.PreviewUpdate(c.Product, c.Quantity)
		if err != nil {
			return err
		}
		fmt.Print(preview.Diff())
		fmt.Println(preview.Update.Message())
		return nil
	}

	update, err := a.Ledger.UpdateUsed(ctx, c.Product, c.Quantity)
	if err != nil {
		return err
	}
	if a.Store != nil {
		if record := procureagent.LedgerRecorder(a.Store.DB(), logger); record != nil {
			record(ctx, update)
		}
	}
	fmt.Println(update.Message())
	return nil
}

// LedgerHistoryCmd lists recorded mutations
type LedgerHistoryCmd struct {
	Limit int `short:"n" default:"20" help:"Number of changes to show (0 for all)"`
}

func (c *LedgerHistoryCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := newApp(ctx, cli, createCLILogger(cli.LogLevel), app.Options{NoModel: true})
	if err != nil {
		return err
	}
	defer a.Close()

	mutations, err := storage.GetLedgerMutations(ctx, a.Store.DB(), string(ledger.Contracts), c.Limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tPRODUCT\tDELTA\tUSED\tCONVERSATION")
	for _, m := range mutations {
		conv := m.ConversationID
		if conv == "" {
			conv = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%+.0f\t%.0f -> %.0f / %.0f\t%s\n",
			m.CreatedAt.Local().Format("2006-01-02 15:04"), m.ProductID, m.Delta, m.UsedBefore, m.UsedAfter, m.Total, conv)
	}
	return w.Flush()
}

// renderTable draws rows with the theme's border color.
func renderTable(header []string, rows [][]string) string {
	t := theme.CurrentTheme
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.TextMuted)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(header...).
		Rows(rows...).
		String()
}
