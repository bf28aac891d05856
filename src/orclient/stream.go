package orclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elee1766/procurebot/src/aisdk"
)

// createChatCompletionStream opens a server-sent events stream.
func (c *Client) createChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	c.logger.Debug("opening chat completion stream", "model", req.Model, "messages", len(req.Messages))

	req.Stream = true
	resp, err := c.post(ctx, "/chat/completions", req)
	if err != nil {
		return nil, err
	}
	return newSSEStream(resp, c.logger), nil
}

// sseStream decodes "data:" lines into chunks. Comment lines (OpenRouter
// sends ": OPENROUTER PROCESSING" keepalives) and blank lines are skipped.
type sseStream struct {
	resp    *http.Response
	scanner *bufio.Scanner
	logger  *slog.Logger
	done    bool
}

func newSSEStream(resp *http.Response, logger *slog.Logger) *sseStream {
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &sseStream{resp: resp, scanner: sc, logger: logger}
}

// Read implements aisdk.StreamInterface.
func (s *sseStream) Read() (*aisdk.StreamChunk, error) {
	if s.done {
		return nil, io.EOF
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			s.done = true
			return nil, io.EOF
		}

		var chunk aisdk.StreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			var errResp aisdk.ErrorResponse
			if json.Unmarshal([]byte(data), &errResp) == nil && errResp.Error.Message != "" {
				return nil, &APIError{StatusCode: s.resp.StatusCode, Message: errResp.Error.Message}
			}
			s.logger.Warn("skipping malformed stream chunk", "error", err)
			continue
		}
		if raw := errorField(data); raw != "" {
			return nil, &APIError{StatusCode: s.resp.StatusCode, Message: raw}
		}
		return &chunk, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("stream read failed: %w", err)
	}
	s.done = true
	return nil, io.EOF
}

// errorField extracts a mid-stream error payload, which OpenRouter sends as a
// chunk with a top-level "error" object.
func errorField(data string) string {
	if !strings.Contains(data, `"error"`) {
		return ""
	}
	var envelope struct {
		Error *aisdk.Error `json:"error"`
	}
	if json.Unmarshal([]byte(data), &envelope) != nil || envelope.Error == nil {
		return ""
	}
	return envelope.Error.Message
}

// Close implements aisdk.StreamInterface.
func (s *sseStream) Close() error {
	s.done = true
	return s.resp.Body.Close()
}
