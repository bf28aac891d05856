package storage

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

// CreateLedgerMutation records an applied usage update
func CreateLedgerMutation(ctx context.Context, db Execer, m *LedgerMutation) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	query := `INSERT INTO ledger_mutations (id, conversation_id, dataset, product_id, delta, used_before, used_after, total, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, m.ID, m.ConversationID, m.Dataset, m.ProductID, m.Delta, m.UsedBefore, m.UsedAfter, m.Total, m.CreatedAt)
	return err
}

// GetLedgerMutations returns the most recent mutations of a dataset, newest first.
// A limit of zero returns all of them.
func GetLedgerMutations(ctx context.Context, db sqlscan.Querier, dataset string, limit int) ([]LedgerMutation, error) {
	query := `SELECT id, conversation_id, dataset, product_id, delta, used_before, used_after, total, created_at FROM ledger_mutations WHERE dataset = ? ORDER BY created_at DESC`
	args := []any{dataset}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var out []LedgerMutation
	if err := sqlscan.Select(ctx, db, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}
