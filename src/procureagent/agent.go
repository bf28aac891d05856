// Package procureagent assembles the procurement assistant: its system
// prompt and the toolbox the orchestration loop dispatches to.
package procureagent

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/elee1766/procurebot/src/agent"
	"github.com/elee1766/procurebot/src/ledger"
	"github.com/elee1766/procurebot/src/procureagent/tools"
	"github.com/elee1766/procurebot/src/procureagent/toolsutil"
	"github.com/elee1766/procurebot/src/storage"
)

// Config holds the collaborators the tools need. Only Ledger is required.
type Config struct {
	Ledger *ledger.Store

	// LegacyReadName registers the ledger reader as read_csv instead of read_ledger.
	LegacyReadName bool

	LocalStore tools.CallLocalStoreOptions
	// OrderEmail enables send_order_email when its Sender is set.
	OrderEmail tools.SendOrderEmailOptions

	// Database receives a ledger_mutations row for every committed update. Optional.
	Database *sql.DB

	Logger *slog.Logger
}

// NewToolbox registers every procurement tool.
func NewToolbox(cfg Config) (*agent.DefaultToolbox, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("procureagent: ledger store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	toolsutil.SetLogger(logger.With("component", "tools"))

	toolbox := agent.NewToolbox[agent.Tool]()
	toolbox.RegisterMiddleware(agent.LoggingMiddleware(logger))

	read := tools.ReadLedgerTool
	if cfg.LegacyReadName {
		read = tools.ReadCSVTool
	}

	constructors := []func() (agent.Tool, error){
		tools.CalculateTool,
		func() (agent.Tool, error) { return read(cfg.Ledger) },
		func() (agent.Tool, error) {
			return tools.UpdateUsedTool(cfg.Ledger, tools.UpdateUsedOptions{OnUpdate: LedgerRecorder(cfg.Database, logger)})
		},
		func() (agent.Tool, error) { return tools.CallLocalStoreTool(cfg.LocalStore) },
	}
	if cfg.OrderEmail.Sender != nil {
		constructors = append(constructors, func() (agent.Tool, error) {
			return tools.SendOrderEmailTool(cfg.Ledger, cfg.OrderEmail)
		})
	}

	for _, newTool := range constructors {
		tool, err := newTool()
		if err != nil {
			return nil, fmt.Errorf("failed to create tool: %w", err)
		}
		if err := toolbox.RegisterTool(tool); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", tool.GetName(), err)
		}
	}
	return toolbox, nil
}

// LedgerRecorder returns an update hook writing to the ledger_mutations
// table, or nil without a database.
func LedgerRecorder(db *sql.DB, logger *slog.Logger) func(context.Context, *ledger.UsageUpdate) {
	if db == nil {
		return nil
	}
	return func(ctx context.Context, u *ledger.UsageUpdate) {
		m := &storage.LedgerMutation{
			Dataset:    string(ledger.Contracts),
			ProductID:  u.Contract.ProductID,
			Delta:      float64(u.Delta),
			UsedBefore: float64(u.UsedBefore),
			UsedAfter:  float64(u.UsedAfter),
			Total:      float64(u.Contract.Quantity),
		}
		if info, ok := agent.CallInfoFrom(ctx); ok {
			m.ConversationID = info.ConversationID
		}
		if err := storage.CreateLedgerMutation(ctx, db, m); err != nil {
			logger.Warn("failed to record ledger mutation", "product_id", m.ProductID, "error", err)
		}
	}
}
