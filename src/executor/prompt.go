package executor

import (
	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/session"
)

// Response represents a response from the model
type Response struct {
	Content   string
	ToolCalls []aisdk.ToolCall
	Usage     *aisdk.Usage
}

// buildRequest assembles the model request: system prompt, then every turn
// in the log whether visible or internal, then the tool schemas.
func (s *Service) buildRequest(sess *session.Session) *aisdk.ChatCompletionRequest {
	history := sess.ModelHistory()
	messages := make([]*aisdk.Message, 0, len(history)+1)
	if s.systemPrompt != "" {
		messages = append(messages, &aisdk.Message{Role: aisdk.RoleSystem, Content: s.systemPrompt})
	}
	messages = append(messages, history...)

	req := &aisdk.ChatCompletionRequest{
		Model:       s.model.GetModelInfo().ID,
		Messages:    messages,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}
	if tools := s.toolbox.ChatTools(); len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}
	return req
}
