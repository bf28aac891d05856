package orclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/procurebot/src/aisdk"
)

const testModel = "openai/gpt-4o-mini"

func newTestServer(t *testing.T, chat http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":[{"id":%q,"name":"GPT-4o mini","context_length":128000,
			"architecture":{"input_modalities":["text","image"]}}]}`, testModel)
	})
	if chat != nil {
		mux.HandleFunc("/chat/completions", chat)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		RetryCount: 3,
		RetryDelay: time.Millisecond,
		SiteName:   "procurebot",
	})
}

func TestModelRequiresAPIKey(t *testing.T) {
	c := NewClient(Config{})
	_, err := c.Model(context.Background(), testModel)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestModelUnknown(t *testing.T) {
	srv := newTestServer(t, nil)
	_, err := newTestClient(srv).Model(context.Background(), "nope/none")
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestCreateChatCompletion(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "procurebot", r.Header.Get("X-Title"))
		var req aisdk.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, testModel, req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "100 screws", req.Messages[0].TextContent())

		fmt.Fprint(w, `{"id":"c1","choices":[{"index":0,"finish_reason":"tool_calls","message":{
			"role":"assistant","content":null,"tool_calls":[{"id":"call_1","type":"function",
			"function":{"name":"read_ledger","arguments":"{\"dataset\":\"contracts\"}"}}]}}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`)
	})

	mc, err := newTestClient(srv).Model(context.Background(), testModel)
	require.NoError(t, err)
	assert.True(t, mc.GetModelInfo().SupportsImages())

	resp, err := mc.CreateChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{
		Messages: []*aisdk.Message{{Role: aisdk.RoleUser, Content: "100 screws"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	calls := resp.Choices[0].Message.ToolCalls
	require.Len(t, calls, 1)
	assert.Equal(t, "read_ledger", calls[0].Function.Name)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestCreateChatCompletionRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"error":{"message":"upstream down"}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	})

	mc, err := newTestClient(srv).Model(context.Background(), testModel)
	require.NoError(t, err)
	resp, err := mc.CreateChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Choices[0].Message.TextContent())
	assert.EqualValues(t, 3, attempts.Load())
}

func TestCreateChatCompletionClientErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","code":429}}`)
	})

	mc, err := newTestClient(srv).Model(context.Background(), testModel)
	require.NoError(t, err)
	_, err = mc.CreateChatCompletion(context.Background(), &aisdk.ChatCompletionRequest{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRateLimit())
	assert.Equal(t, "slow down", apiErr.Message)
	assert.Equal(t, "2", apiErr.Details["retry_after"])
	assert.EqualValues(t, 1, attempts.Load())
}

func TestCreateChatCompletionStream(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req aisdk.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		lines := []string{
			`: OPENROUTER PROCESSING`,
			`data: {"choices":[{"index":0,"delta":{"role":"assistant","content":"Let me "}}]}`,
			`data: {"choices":[{"index":0,"delta":{"content":"check."}}]}`,
			`data: {"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_9","type":"function","function":{"name":"calculate","arguments":""}}]}}]}`,
			`data: {"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"expression\":"}}]}}]}`,
			`data: {"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"100*0.5\"}"}}]}}]}`,
			`data: [DONE]`,
		}
		for _, l := range lines {
			fmt.Fprintf(w, "%s\n\n", l)
		}
	})

	mc, err := newTestClient(srv).Model(context.Background(), testModel)
	require.NoError(t, err)
	stream, err := mc.CreateChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{})
	require.NoError(t, err)

	agg := aisdk.NewStreamAggregator()
	var deltas []string
	err = aisdk.StreamToCallback(stream, func(chunk *aisdk.StreamChunk) error {
		if d := agg.AddChunk(chunk); d != "" {
			deltas = append(deltas, d)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Let me ", "check."}, deltas)

	msg := agg.ToResponse().Choices[0].Message
	assert.Equal(t, "Let me check.", msg.TextContent())
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call_9", msg.ToolCalls[0].ID)
	assert.Equal(t, "calculate", msg.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"expression":"100*0.5"}`, string(msg.ToolCalls[0].Function.Arguments))

	_, err = stream.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamMidStreamError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"provider crashed\"}}\n\n")
	})

	mc, err := newTestClient(srv).Model(context.Background(), testModel)
	require.NoError(t, err)
	stream, err := mc.CreateChatCompletionStream(context.Background(), &aisdk.ChatCompletionRequest{})
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Read()
	require.NoError(t, err)
	assert.Equal(t, "a", chunk.Choices[0].Delta.TextContent())

	_, err = stream.Read()
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "provider crashed", apiErr.Message)
}
