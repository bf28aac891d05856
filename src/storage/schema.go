package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// IDList is a list of ids stored as a JSON array in a text column.
type IDList []string

func (l *IDList) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into IDList", value)
	}
	*l = IDList{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(l))
}

func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		l = IDList{}
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

type Session struct {
	ID                    string    `json:"id" db:"id"`
	CurrentConversationID *string   `json:"current_conversation_id,omitempty" db:"current_conversation_id"`
	ConversationIDs       IDList    `json:"conversation_ids" db:"conversation_ids"`
	PrecheckDone          bool      `json:"precheck_done" db:"precheck_done"`
	MediaInputID          int       `json:"media_input_id" db:"media_input_id"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// Conversation is one cleared-or-not run of turns inside a session.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Turn struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Position       int       `json:"position" db:"position"`
	Role           string    `json:"role" db:"role"`
	Content        string    `json:"content" db:"content"`
	Parts          *string   `json:"parts,omitempty" db:"parts"`           // JSON array of content parts
	Name           string    `json:"name" db:"name"`
	ToolCallID     string    `json:"tool_call_id" db:"tool_call_id"`
	ToolCalls      *string   `json:"tool_calls,omitempty" db:"tool_calls"` // JSON array of tool calls
	Visible        bool      `json:"visible" db:"visible"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type ToolExecution struct {
	ID             string    `json:"id" db:"id"`
	TurnID         string    `json:"turn_id" db:"turn_id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Provider       string    `json:"provider" db:"provider"`
	Model          string    `json:"model" db:"model"`
	ToolName       string    `json:"tool_name" db:"tool_name"`
	ToolCallID     string    `json:"tool_call_id" db:"tool_call_id"`
	Input          string    `json:"input" db:"input"`
	Output         string    `json:"output" db:"output"`
	IsError        bool      `json:"is_error" db:"is_error"`
	Gate           string    `json:"gate" db:"gate"`
	DurationMs     int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// LedgerMutation records one applied usage update.
type LedgerMutation struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Dataset        string    `json:"dataset" db:"dataset"`
	ProductID      string    `json:"product_id" db:"product_id"`
	Delta          float64   `json:"delta" db:"delta"`
	UsedBefore     float64   `json:"used_before" db:"used_before"`
	UsedAfter      float64   `json:"used_after" db:"used_after"`
	Total          float64   `json:"total" db:"total"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
