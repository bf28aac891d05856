package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/elee1766/procurebot/src/aisdk"
)

// scriptedModel replays one response per call.
type scriptedModel struct {
	mu        sync.Mutex
	responses []func(req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error)
	requests  []*aisdk.ChatCompletionRequest
	// repeat is used once responses run out.
	repeat func(req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error)
}

func (m *scriptedModel) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.responses) == 0 {
		if m.repeat != nil {
			return m.repeat(req)
		}
		return nil, fmt.Errorf("no scripted response left")
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	return next(req)
}

func (m *scriptedModel) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	resp, err := m.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	return aisdk.StreamFromResponse(resp), nil
}

func (m *scriptedModel) GetModelInfo() *aisdk.ModelInfo {
	return &aisdk.ModelInfo{ID: "test/model"}
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func textReply(text string) func(*aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	return func(*aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
		return &aisdk.ChatCompletionResponse{
			Choices: []aisdk.Choice{{Message: aisdk.Message{Role: aisdk.RoleAssistant, Content: text}, FinishReason: "stop"}},
		}, nil
	}
}

type call struct {
	id, name, args string
}

func toolReply(text string, calls ...call) func(*aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	return func(*aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
		msg := aisdk.Message{Role: aisdk.RoleAssistant, Content: text}
		for _, c := range calls {
			msg.ToolCalls = append(msg.ToolCalls, aisdk.ToolCall{
				ID:       c.id,
				Type:     "function",
				Function: aisdk.FunctionCall{Name: c.name, Arguments: json.RawMessage(c.args)},
			})
		}
		return &aisdk.ChatCompletionResponse{
			Choices: []aisdk.Choice{{Message: msg, FinishReason: "tool_calls"}},
		}, nil
	}
}

func failReply(err error) func(*aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	return func(*aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
		return nil, err
	}
}
