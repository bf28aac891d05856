package agent

import (
	"context"

	"github.com/elee1766/procurebot/src/aisdk"
	jsonschema "github.com/swaggest/jsonschema-go"
)

// Effect classifies what a tool does to the world.
type Effect int

const (
	// EffectRead tools only compute or read. They never need confirmation.
	EffectRead Effect = iota
	// EffectMutate tools change the ledger, contact a supplier, or commit spend.
	EffectMutate
)

func (e Effect) String() string {
	if e == EffectMutate {
		return "mutate"
	}
	return "read"
}

// Tool is the interface that all tools must implement
type Tool interface {
	// GetType returns the tool type (always "function" for now)
	GetType() string

	// GetName returns the tool's name
	GetName() string

	// GetDescription returns the tool's description
	GetDescription() string

	// GetParameters returns the JSON schema for the tool's parameters
	GetParameters() *jsonschema.Schema

	// GetEffect reports whether the tool mutates state.
	GetEffect() Effect

	// Execute runs the tool with the given parameters
	Execute(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error)
}
