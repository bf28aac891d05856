// Package orclient is an OpenRouter chat completions client implementing
// aisdk.Provider and aisdk.ModelClient.
package orclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elee1766/procurebot/src/aisdk"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = 2 * time.Minute
)

var (
	_ aisdk.Provider    = (*Client)(nil)
	_ aisdk.ModelClient = (*boundModel)(nil)
)

// Client is the OpenRouter API client.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	modelCache *ModelCache
}

// NewClient creates a new OpenRouter API client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.RetryCount == 0 {
		config.RetryCount = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := &Client{
		config: config,
		// Streams can outlive any fixed timeout; deadlines come from the context.
		httpClient: &http.Client{},
		logger:     logger.With("component", "openrouter_client"),
	}
	client.modelCache = NewModelCache(client, time.Hour)
	return client
}

// Model looks name up in the cached model list and returns a client that
// sends every request to that model.
func (c *Client) Model(ctx context.Context, name string) (aisdk.ModelClient, error) {
	if c.config.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	info, err := c.modelCache.GetModel(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get model info for %s: %w", name, err)
	}
	return &boundModel{client: c, info: info}, nil
}

type boundModel struct {
	client *Client
	info   *aisdk.ModelInfo
}

func (m *boundModel) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	req.Model = m.info.ID
	return m.client.createChatCompletion(ctx, req)
}

func (m *boundModel) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest) (aisdk.StreamInterface, error) {
	req.Model = m.info.ID
	return m.client.createChatCompletionStream(ctx, req)
}

func (m *boundModel) GetModelInfo() *aisdk.ModelInfo { return m.info }

// createChatCompletion sends a chat completion request to OpenRouter.
func (c *Client) createChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	logger := c.logger.With("method", "CreateChatCompletion", "model", req.Model)
	logger.Debug("sending chat completion request", "messages", len(req.Messages), "tools", len(req.Tools))

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req.Stream = false
	resp, err := c.post(ctx, "/chat/completions", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result aisdk.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.Error("failed to decode response", "error", err)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	logger.Info("chat completion successful", "usage_total", result.Usage.TotalTokens)
	return &result, nil
}

// post marshals body and sends it with retries. A non-2xx response is
// converted into an *APIError.
func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if c.logger.Enabled(ctx, slog.LevelDebug) {
		c.logger.Debug("request body", "path", path, "bytes", len(data))
	}

	resp, err := c.doRequestWithRetry(ctx, http.MethodPost, path, data)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		apiErr := c.handleError(resp)
		c.logger.Error("received error response", "status_code", resp.StatusCode, "error", apiErr)
		return nil, apiErr
	}
	return resp, nil
}

// newRequest creates a new HTTP request with the appropriate headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.config.SiteURL != "" {
		req.Header.Set("HTTP-Referer", c.config.SiteURL)
	}
	if c.config.SiteName != "" {
		req.Header.Set("X-Title", c.config.SiteName)
	}
	return req, nil
}

// doRequestWithRetry performs an HTTP request, retrying transport failures and
// 5xx responses with linear backoff. 4xx responses are returned immediately.
func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	logger := c.logger.With("method", "doRequestWithRetry", "path", path)

	var lastErr error
	for i := 0; i < c.config.RetryCount; i++ {
		if i > 0 {
			delay := c.config.RetryDelay * time.Duration(i)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = err
			logger.Debug("request attempt failed", "attempt", i+1, "error", err)
			continue
		}

		if resp.StatusCode < 500 {
			return resp, nil
		}

		apiErr := c.handleError(resp)
		resp.Body.Close()
		lastErr = apiErr
		logger.Debug("server error, retrying", "attempt", i+1, "status_code", resp.StatusCode)
	}

	logger.Error("request failed after all retries", "retry_count", c.config.RetryCount, "error", lastErr)
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.RetryCount, lastErr)
}

// handleError processes error responses from the API.
func (c *Client) handleError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
		RequestID:  resp.Header.Get("X-Request-ID"),
	}

	var errResp aisdk.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Type = errResp.Error.Type
		apiErr.Message = errResp.Error.Message
		apiErr.Param = errResp.Error.Param
		apiErr.Details = errResp.Error.Details
		if errResp.Error.Code != nil {
			apiErr.Code = fmt.Sprint(errResp.Error.Code)
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if apiErr.Details == nil {
				apiErr.Details = make(map[string]any)
			}
			apiErr.Details["retry_after"] = retryAfter
		}
	}

	return apiErr
}
