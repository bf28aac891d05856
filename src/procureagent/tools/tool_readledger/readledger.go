package tool_readledger

import (
	"context"

	"github.com/elee1766/procurebot/src/agent"
	"github.com/elee1766/procurebot/src/ledger"
	"github.com/elee1766/procurebot/src/procureagent/toolsutil"
)

// Tool name constants
const (
	Name = "read_ledger"
	// LegacyName is the name older prompts and transcripts use.
	LegacyName = "read_csv"
)

const readLedgerPrompt = `Reads and analyzes a procurement dataset. Returns column names, shape, the first rows, data types, and basic statistics.
The "contracts" dataset lists contracted products with quantity, used, unit_price_eur, and supplier_id.
The "inventory" dataset lists the storage level of each product as a fraction of capacity, and additionally reports items below the low-stock threshold and above the high-stock threshold.`

// ReadLedgerInput represents the input for reading a dataset
type ReadLedgerInput struct {
	Dataset string `json:"dataset,omitempty" enum:"contracts,inventory" default:"contracts" description:"Dataset to read. Defaults to contracts."`
}

func makeReadLedgerHandler(store *ledger.Store) agent.GenericToolHandler[ReadLedgerInput] {
	return func(ctx context.Context, input ReadLedgerInput) (string, error) {
		logger := toolsutil.GetLogger()

		ds, err := ledger.ParseDataset(input.Dataset)
		if err != nil || ds == ledger.Suppliers {
			return "", toolsutil.NewToolError(toolsutil.NotFound,
				(&ledger.DatasetNotFoundError{Name: input.Dataset}).Error(), err)
		}

		summary, err := store.Summary(ds)
		if err != nil {
			logger.Warn("failed to summarize dataset", "dataset", ds, "error", err)
			return "", toolsutil.FromLedger(err)
		}
		logger.Debug("dataset summarized", "dataset", ds, "bytes", len(summary))
		return summary, nil
	}
}

// Tool returns the read_ledger tool definition
func Tool(store *ledger.Store) (agent.Tool, error) {
	return ToolNamed(Name, store)
}

// ToolNamed returns the same tool registered under another name.
func ToolNamed(name string, store *ledger.Store) (agent.Tool, error) {
	return agent.NewGenericTool(name, readLedgerPrompt, agent.EffectRead, makeReadLedgerHandler(store))
}
