package aisdk

import (
	"errors"
	"io"
	"sort"
	"strings"
)

// StreamCallback is a function called for each chunk in a stream.
type StreamCallback func(chunk *StreamChunk) error

// StreamToCallback reads a stream and calls the callback for each chunk.
func StreamToCallback(stream StreamInterface, callback StreamCallback) error {
	defer stream.Close()

	for {
		chunk, err := stream.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if chunk == nil {
			return nil
		}
		if err := callback(chunk); err != nil {
			return err
		}
	}
}

// StreamAggregator folds streamed deltas into a single assistant message.
// Tool call fragments are merged by their index; the id and name arrive on the
// first fragment and the arguments are concatenated.
type StreamAggregator struct {
	ID      string
	Created int64
	Model   string
	Content strings.Builder

	FinishReason string
	Usage        *Usage

	calls map[int]*toolCallBuilder
	order []int
}

type toolCallBuilder struct {
	id   string
	typ  string
	name string
	args strings.Builder
}

// NewStreamAggregator creates a new stream aggregator.
func NewStreamAggregator() *StreamAggregator {
	return &StreamAggregator{calls: make(map[int]*toolCallBuilder)}
}

// AddChunk processes a stream chunk and updates the aggregated state. It
// returns the text delta carried by the chunk, if any.
func (a *StreamAggregator) AddChunk(chunk *StreamChunk) string {
	if a.ID == "" {
		a.ID = chunk.ID
	}
	if a.Created == 0 {
		a.Created = chunk.Created
	}
	if a.Model == "" {
		a.Model = chunk.Model
	}
	if chunk.Usage != nil {
		a.Usage = chunk.Usage
	}
	if len(chunk.Choices) == 0 {
		return ""
	}

	choice := chunk.Choices[0]
	if choice.FinishReason != "" {
		a.FinishReason = choice.FinishReason
	}
	if choice.Delta == nil {
		return ""
	}

	for pos, tc := range choice.Delta.ToolCalls {
		idx := pos
		if tc.Index != nil {
			idx = *tc.Index
		}
		b, ok := a.calls[idx]
		if !ok {
			b = &toolCallBuilder{}
			a.calls[idx] = b
			a.order = append(a.order, idx)
		}
		if tc.ID != "" {
			b.id = tc.ID
		}
		if tc.Type != "" {
			b.typ = tc.Type
		}
		if tc.Function.Name != "" {
			b.name = tc.Function.Name
		}
		b.args.Write(rawArgumentText(tc.Function.Arguments))
	}

	text := choice.Delta.TextContent()
	a.Content.WriteString(text)
	return text
}

// rawArgumentText unwraps a JSON string fragment. Streaming APIs send the
// arguments as a string that is split across chunks.
func rawArgumentText(raw []byte) []byte {
	if len(raw) >= 2 && raw[0] == '"' {
		var s string
		if err := jsonUnmarshalString(raw, &s); err == nil {
			return []byte(s)
		}
	}
	return raw
}

// ToolCalls returns the merged tool calls ordered by stream index.
func (a *StreamAggregator) ToolCalls() []ToolCall {
	if len(a.order) == 0 {
		return nil
	}
	idxs := append([]int(nil), a.order...)
	sort.Ints(idxs)
	calls := make([]ToolCall, 0, len(idxs))
	for _, idx := range idxs {
		b := a.calls[idx]
		typ := b.typ
		if typ == "" {
			typ = "function"
		}
		args := b.args.String()
		if strings.TrimSpace(args) == "" {
			args = "{}"
		}
		calls = append(calls, ToolCall{
			ID:   b.id,
			Type: typ,
			Function: FunctionCall{
				Name:      b.name,
				Arguments: []byte(args),
			},
		})
	}
	return calls
}

// ToResponse converts the aggregated stream into a ChatCompletionResponse.
func (a *StreamAggregator) ToResponse() *ChatCompletionResponse {
	response := &ChatCompletionResponse{
		ID:      a.ID,
		Object:  "chat.completion",
		Created: a.Created,
		Model:   a.Model,
		Choices: []Choice{
			{
				Message: Message{
					Role:      RoleAssistant,
					Content:   a.Content.String(),
					ToolCalls: a.ToolCalls(),
				},
				FinishReason: a.FinishReason,
			},
		},
	}
	if a.Usage != nil {
		response.Usage = *a.Usage
	}
	return response
}

// AggregateStream reads a stream and returns the aggregated response.
func AggregateStream(stream StreamInterface) (*ChatCompletionResponse, error) {
	aggregator := NewStreamAggregator()
	err := StreamToCallback(stream, func(chunk *StreamChunk) error {
		aggregator.AddChunk(chunk)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return aggregator.ToResponse(), nil
}

// SliceStream replays a fixed list of chunks. It backs non-streaming
// providers and tests.
type SliceStream struct {
	Chunks []*StreamChunk
	Err    error
	pos    int
}

func (s *SliceStream) Read() (*StreamChunk, error) {
	if s.pos >= len(s.Chunks) {
		if s.Err != nil {
			return nil, s.Err
		}
		return nil, io.EOF
	}
	c := s.Chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *SliceStream) Close() error { return nil }

// StreamFromResponse turns a complete response into a single-chunk stream.
func StreamFromResponse(resp *ChatCompletionResponse) *SliceStream {
	chunk := &StreamChunk{
		ID:      resp.ID,
		Created: resp.Created,
		Model:   resp.Model,
		Usage:   &resp.Usage,
	}
	for _, c := range resp.Choices {
		msg := c.Message
		calls := make([]ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			idx := i
			tc.Index = &idx
			calls[i] = tc
		}
		msg.ToolCalls = calls
		chunk.Choices = append(chunk.Choices, Choice{Index: c.Index, Delta: &msg, FinishReason: c.FinishReason})
	}
	return &SliceStream{Chunks: []*StreamChunk{chunk}}
}
