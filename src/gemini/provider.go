package gemini

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/elee1766/procurebot/src/aisdk"
)

var (
	_ aisdk.Provider    = (*Provider)(nil)
	_ aisdk.ModelClient = (*ModelClient)(nil)
)

// Provider serves Gemini models.
type Provider struct {
	client GenerativeClient
	logger *slog.Logger
}

// New creates a Provider over client.
func New(client GenerativeClient, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{client: client, logger: logger.With("component", "gemini_client")}
}

// Model returns a client bound to model. A "models/" or "google/" prefix is
// accepted and stripped.
func (p *Provider) Model(ctx context.Context, model string) (aisdk.ModelClient, error) {
	name := strings.TrimPrefix(strings.TrimPrefix(model, "models/"), "google/")
	return &ModelClient{
		provider: p,
		info: &aisdk.ModelInfo{
			ID:           name,
			Name:         name,
			Architecture: &aisdk.Architecture{InputModalities: []string{"text", "image"}, OutputModalities: []string{"text"}},
		},
	}, nil
}

// ModelClient is a Provider bound to one model.
type ModelClient struct {
	provider *Provider
	info     *aisdk.ModelInfo
}

// GetModelInfo returns the model information.
func (mc *ModelClient) GetModelInfo() *aisdk.ModelInfo { return mc.info }

// CreateChatCompletion sends the conversation and returns one assistant turn.
func (mc *ModelClient) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	contents, config, err := toGeminiRequest(req)
	if err != nil {
		return nil, err
	}
	logger := mc.provider.logger.With("method", "CreateChatCompletion", "model", mc.info.ID)
	logger.Debug("sending generate content request", "contents", len(contents), "tools", len(req.Tools))

	resp, err := mc.provider.client.GenerateContent(ctx, mc.info.ID, contents, config)
	if err != nil {
		return nil, mapError(err)
	}
	msg, finish, usage, err := fromGeminiResponse(resp)
	if err != nil {
		return nil, err
	}

	out := &aisdk.ChatCompletionResponse{
		ID:      resp.ResponseID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   mc.info.ID,
		Choices: []aisdk.Choice{{Message: msg, FinishReason: finish}},
	}
	if usage != nil {
		out.Usage = *usage
	}
	return out, nil
}

// CreateChatCompletionStream streams one assistant turn. Gemini sends whole
// function calls, so each call is emitted as a single delta with its own index.
func (mc *ModelClient) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	contents, config, err := toGeminiRequest(req)
	if err != nil {
		return nil, err
	}
	mc.provider.logger.Debug("opening generate content stream", "model", mc.info.ID, "contents", len(contents))

	next, stop := iter.Pull2(mc.provider.client.GenerateContentStream(ctx, mc.info.ID, contents, config))
	return &stream{model: mc.info.ID, next: next, stop: stop}, nil
}

type stream struct {
	model     string
	next      func() (*genai.GenerateContentResponse, error, bool)
	stop      func()
	callIndex int
	done      bool
}

// Read implements aisdk.StreamInterface.
func (s *stream) Read() (*aisdk.StreamChunk, error) {
	if s.done {
		return nil, io.EOF
	}
	resp, err, ok := s.next()
	if !ok {
		s.done = true
		return nil, io.EOF
	}
	if err != nil {
		s.done = true
		return nil, mapError(err)
	}

	if len(resp.Candidates) == 0 && resp.PromptFeedback == nil {
		// usage-only trailer
		_, _, usage, _ := fromGeminiResponse(resp)
		return &aisdk.StreamChunk{ID: resp.ResponseID, Object: "chat.completion.chunk", Model: s.model, Usage: usage}, nil
	}

	msg, finish, usage, err := fromGeminiResponse(resp)
	if err != nil {
		s.done = true
		return nil, err
	}
	for i := range msg.ToolCalls {
		idx := s.callIndex
		s.callIndex++
		msg.ToolCalls[i].Index = &idx
	}
	if len(msg.ToolCalls) == 0 && finish == "tool_calls" {
		finish = "stop"
	}

	return &aisdk.StreamChunk{
		ID:      resp.ResponseID,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   s.model,
		Choices: []aisdk.Choice{{Delta: &msg, FinishReason: finish}},
		Usage:   usage,
	}, nil
}

// Close implements aisdk.StreamInterface.
func (s *stream) Close() error {
	s.done = true
	s.stop()
	return nil
}
