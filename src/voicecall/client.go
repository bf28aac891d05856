// Package voicecall is a client for the ElevenLabs speech-to-text and
// conversational agent APIs: voice memo transcription and outbound calls to
// local stores.
package voicecall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Client talks to ElevenLabs.
type Client struct {
	config Config
	logger *slog.Logger
}

// NewClient creates a new ElevenLabs client.
func NewClient(config Config) *Client {
	config.setDefaults()
	return &Client{
		config: config,
		logger: config.Logger.With("component", "elevenlabs_client"),
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	if c.config.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// handleError decodes either {"detail":{"status":..,"message":..}} or
// {"detail":"..."} bodies.
func handleError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(body))}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &envelope) != nil || len(envelope.Detail) == 0 {
		return apiErr
	}
	var detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if json.Unmarshal(envelope.Detail, &detail) == nil {
		apiErr.Status = detail.Status
		if detail.Message != "" {
			apiErr.Message = detail.Message
		}
		return apiErr
	}
	var text string
	if json.Unmarshal(envelope.Detail, &text) == nil && text != "" {
		apiErr.Message = text
	}
	return apiErr
}
