package tool_updateused

import (
	"context"

	"github.com/elee1766/procurebot/src/agent"
	"github.com/elee1766/procurebot/src/ledger"
	"github.com/elee1766/procurebot/src/procureagent/toolsutil"
)

// Tool name constant
const Name = "update_used"

const updateUsedPrompt = `Updates the 'used' column for a product in the contracts ledger. Validates that the requested quantity doesn't exceed the remaining contracted quantity. Use this when a user orders or consumes items, and only after the user has explicitly confirmed the order.`

// UpdateUsedInput represents the input for updating a contract
type UpdateUsedInput struct {
	ProductID    string `json:"product_id" required:"true" description:"The product ID (e.g., 'C001', 'C013')" validate:"required"`
	UsedQuantity int64  `json:"used_quantity" required:"true" minimum:"1" description:"The quantity to add to the 'used' column (positive number)" validate:"gt=0"`
}

// Recorder is notified after a committed update.
type Recorder func(ctx context.Context, update *ledger.UsageUpdate)

// Options configures the tool.
type Options struct {
	// OnUpdate runs after the ledger file has been rewritten.
	OnUpdate Recorder
}

func makeUpdateUsedHandler(store *ledger.Store, opts Options) agent.GenericToolHandler[UpdateUsedInput] {
	return func(ctx context.Context, input UpdateUsedInput) (string, error) {
		logger := toolsutil.GetLogger()

		update, err := store.UpdateUsed(ctx, input.ProductID, input.UsedQuantity)
		if err != nil {
			logger.Info("ledger update rejected", "product_id", input.ProductID, "quantity", input.UsedQuantity, "error", err)
			return "", toolsutil.FromLedger(err)
		}

		logger.Info("ledger updated",
			"product_id", input.ProductID,
			"used_before", update.UsedBefore,
			"used_after", update.UsedAfter,
		)
		if opts.OnUpdate != nil {
			opts.OnUpdate(ctx, update)
		}
		return update.Message(), nil
	}
}

// Tool returns the update_used tool definition
func Tool(store *ledger.Store, opts Options) (agent.Tool, error) {
	return agent.NewGenericTool(Name, updateUsedPrompt, agent.EffectMutate, makeUpdateUsedHandler(store, opts))
}
