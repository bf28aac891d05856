package aisdk

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestStreamAggregator_ToolCallDeltas(t *testing.T) {
	chunks := []*StreamChunk{
		{ID: "gen-1", Model: "m", Choices: []Choice{{Delta: &Message{Content: "Let me "}}}},
		{Choices: []Choice{{Delta: &Message{Content: "check."}}}},
		{Choices: []Choice{{Delta: &Message{ToolCalls: []ToolCall{
			{Index: intPtr(0), ID: "call_a", Type: "function", Function: FunctionCall{Name: "read_ledger", Arguments: json.RawMessage(`"{\"data"`)}},
		}}}}},
		{Choices: []Choice{{Delta: &Message{ToolCalls: []ToolCall{
			{Index: intPtr(0), Function: FunctionCall{Arguments: json.RawMessage(`"set\":\"inventory\"}"`)}},
			{Index: intPtr(1), ID: "call_b", Function: FunctionCall{Name: "calculate", Arguments: json.RawMessage(`"{\"expression\":\"2*3\"}"`)}},
		}}}}},
		{Choices: []Choice{{FinishReason: "tool_calls"}}},
	}

	agg := NewStreamAggregator()
	var deltas []string
	for _, c := range chunks {
		if d := agg.AddChunk(c); d != "" {
			deltas = append(deltas, d)
		}
	}

	assert.Equal(t, []string{"Let me ", "check."}, deltas)
	resp := agg.ToResponse()
	require.Len(t, resp.Choices, 1)
	msg := resp.Choices[0].Message
	assert.Equal(t, "Let me check.", msg.Content)
	assert.Equal(t, "tool_calls", resp.Choices[0].FinishReason)
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, "call_a", msg.ToolCalls[0].ID)
	assert.Equal(t, "function", msg.ToolCalls[0].Type)
	assert.JSONEq(t, `{"dataset":"inventory"}`, string(msg.ToolCalls[0].Function.Arguments))
	assert.Equal(t, "calculate", msg.ToolCalls[1].Function.Name)
	assert.JSONEq(t, `{"expression":"2*3"}`, string(msg.ToolCalls[1].Function.Arguments))
}

func TestStreamFromResponse_RoundTrip(t *testing.T) {
	resp := &ChatCompletionResponse{
		ID: "x",
		Choices: []Choice{{Message: Message{
			Role:    RoleAssistant,
			Content: "hi",
			ToolCalls: []ToolCall{
				{ID: "1", Type: "function", Function: FunctionCall{Name: "a", Arguments: json.RawMessage(`{"k":1}`)}},
				{ID: "2", Type: "function", Function: FunctionCall{Name: "b", Arguments: json.RawMessage(`{}`)}},
			},
		}}},
	}

	out, err := AggregateStream(StreamFromResponse(resp))
	require.NoError(t, err)
	msg := out.Choices[0].Message
	assert.Equal(t, "hi", msg.Content)
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, "a", msg.ToolCalls[0].Function.Name)
	assert.Equal(t, "b", msg.ToolCalls[1].Function.Name)
	assert.JSONEq(t, `{"k":1}`, string(msg.ToolCalls[0].Function.Arguments))
}

func TestAggregateStream_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := AggregateStream(&SliceStream{Err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestMessage_JSONContentForms(t *testing.T) {
	plain, err := json.Marshal(Message{Role: RoleUser, Content: "hello"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"hello"}`, string(plain))

	multi := Message{Role: RoleUser, Parts: []ContentPart{TextPart("what is this?"), ImagePart("image/png", []byte{1, 2, 3})}}
	data, err := json.Marshal(multi)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":[{"type":"text","text":"what is this?"},{"type":"image_url","image_url":{"url":"data:image/png;base64,AQID"}}]}`, string(data))

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.HasImages())
	assert.Equal(t, "what is this?", decoded.TextContent())

	var nullContent Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":null,"tool_calls":[{"id":"c","type":"function","function":{"name":"f","arguments":"{}"}}]}`), &nullContent))
	assert.Empty(t, nullContent.Content)
	assert.Len(t, nullContent.ToolCalls, 1)

	mime, raw, err := DecodeDataURL("data:image/png;base64,AQID")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, []byte{1, 2, 3}, raw)
}
