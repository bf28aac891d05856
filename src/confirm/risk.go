package confirm

import (
	"context"
	"fmt"
	"math"

	"github.com/elee1766/procurebot/src/agent"
	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/ledger"
)

// LedgerReader is the subset of the ledger store the risk assessor reads.
type LedgerReader interface {
	Contract(productID string) (ledger.Contract, error)
	InventoryItem(productID string) (ledger.InventoryItem, error)
}

// LedgerRisk rates calls that name a product. A call is high risk when the
// contract would be left with little capacity or the destination storage is
// already nearly full.
type LedgerRisk struct {
	Ledger LedgerReader
	// LowCapacity is the remaining contract fraction at or below which a call is high risk.
	LowCapacity float64
	// HighStorage is the storage fraction above which a call is high risk.
	HighStorage float64
}

type productArgs struct {
	ProductID    string `json:"product_id"`
	UsedQuantity int64  `json:"used_quantity"`
	Quantity     int64  `json:"quantity"`
}

// Assess implements RiskAssessor. Lookup failures rate as standard; the tool
// itself reports them.
func (r *LedgerRisk) Assess(ctx context.Context, call *aisdk.ToolCall) Risk {
	var args productArgs
	if err := agent.DecodeArguments(call.Function.Arguments, &args); err != nil || args.ProductID == "" {
		return Risk{Tier: TierStandard}
	}
	qty := args.UsedQuantity
	if qty == 0 {
		qty = args.Quantity
	}

	var reasons []string
	if c, err := r.Ledger.Contract(args.ProductID); err == nil && c.Quantity > 0 {
		left := -1.0
		if qty <= c.Remaining() {
			left = float64(c.Remaining()-qty) / float64(c.Quantity)
		}
		if left <= r.LowCapacity {
			reasons = append(reasons, fmt.Sprintf("contract %s would have %.0f%% capacity left", c.ProductID, math.Max(left, 0)*100))
		}
	}
	if it, err := r.Ledger.InventoryItem(args.ProductID); err == nil && it.Storage > r.HighStorage {
		reasons = append(reasons, fmt.Sprintf("storage for %s is already at %.0f%%", it.ProductID, it.Storage*100))
	}

	if len(reasons) > 0 {
		return Risk{Tier: TierHigh, Reasons: reasons}
	}
	return Risk{Tier: TierStandard}
}
