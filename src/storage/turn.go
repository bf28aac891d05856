package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

// GetTurnsByConversationID retrieves all turns for a conversation in log order
func GetTurnsByConversationID(ctx context.Context, db sqlscan.Querier, conversationID string) ([]Turn, error) {
	query := `SELECT id, conversation_id, position, role, content, parts, name, tool_call_id, tool_calls, visible, created_at FROM turns WHERE conversation_id = ? ORDER BY position`
	var turns []Turn
	err := sqlscan.Select(ctx, db, &turns, query, conversationID)
	if err != nil {
		return nil, err
	}
	return turns, nil
}

// SaveTurn inserts a turn, or updates its visibility if it already exists.
// Content of a stored turn never changes.
func SaveTurn(ctx context.Context, db Execer, turn *Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	query := `INSERT INTO turns (id, conversation_id, position, role, content, parts, name, tool_call_id, tool_calls, visible, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET visible = excluded.visible`
	_, err := db.ExecContext(ctx, query,
		turn.ID,
		turn.ConversationID,
		turn.Position,
		turn.Role,
		turn.Content,
		turn.Parts,
		turn.Name,
		turn.ToolCallID,
		turn.ToolCalls,
		turn.Visible,
		turn.CreatedAt,
	)
	return err
}

// DeleteTurns removes every turn of a conversation.
func DeleteTurns(ctx context.Context, db Execer, conversationID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM turns WHERE conversation_id = ?`, conversationID)
	return err
}

// CreateToolExecution creates a new tool execution record in the database
func CreateToolExecution(ctx context.Context, db Execer, execution *ToolExecution) error {
	if execution.ID == "" {
		execution.ID = uuid.New().String()
	}
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now()
	}

	query := `INSERT INTO tool_executions (id, turn_id, conversation_id, provider, model, tool_name, tool_call_id, input, output, is_error, gate, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		execution.ID,
		execution.TurnID,
		execution.ConversationID,
		execution.Provider,
		execution.Model,
		execution.ToolName,
		execution.ToolCallID,
		execution.Input,
		execution.Output,
		execution.IsError,
		execution.Gate,
		execution.DurationMs,
		execution.CreatedAt,
	)
	return err
}

// GetToolExecutions retrieves the tool executions of a conversation, oldest first
func GetToolExecutions(ctx context.Context, db sqlscan.Querier, conversationID string) ([]ToolExecution, error) {
	query := `SELECT id, turn_id, conversation_id, provider, model, tool_name, tool_call_id, input, output, is_error, gate, duration_ms, created_at FROM tool_executions WHERE conversation_id = ? ORDER BY created_at`
	var out []ToolExecution
	if err := sqlscan.Select(ctx, db, &out, query, conversationID); err != nil {
		return nil, err
	}
	return out, nil
}

// TurnFromMessage builds a storable turn from a chat message.
func TurnFromMessage(id, conversationID string, position int, msg aisdk.Message, visible bool, createdAt time.Time) (*Turn, error) {
	t := &Turn{
		ID:             id,
		ConversationID: conversationID,
		Position:       position,
		Role:           msg.Role,
		Content:        msg.Content,
		Name:           msg.Name,
		ToolCallID:     msg.ToolCallID,
		Visible:        visible,
		CreatedAt:      createdAt,
	}
	if len(msg.Parts) > 0 {
		b, err := json.Marshal(msg.Parts)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal parts: %w", err)
		}
		s := string(b)
		t.Parts = &s
	}
	if len(msg.ToolCalls) > 0 {
		b, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool calls: %w", err)
		}
		s := string(b)
		t.ToolCalls = &s
	}
	return t, nil
}

// Message converts the stored turn back into a chat message.
func (t *Turn) Message() (aisdk.Message, error) {
	msg := aisdk.Message{
		Role:       t.Role,
		Content:    t.Content,
		Name:       t.Name,
		ToolCallID: t.ToolCallID,
	}
	if t.Parts != nil && *t.Parts != "" {
		if err := json.Unmarshal([]byte(*t.Parts), &msg.Parts); err != nil {
			return msg, fmt.Errorf("failed to unmarshal parts of turn %s: %w", t.ID, err)
		}
	}
	if t.ToolCalls != nil && *t.ToolCalls != "" {
		if err := json.Unmarshal([]byte(*t.ToolCalls), &msg.ToolCalls); err != nil {
			return msg, fmt.Errorf("failed to unmarshal tool calls of turn %s: %w", t.ID, err)
		}
	}
	return msg, nil
}
