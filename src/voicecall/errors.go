package voicecall

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoAPIKey indicates the ElevenLabs API key is missing.
	ErrNoAPIKey = errors.New("ElevenLabs API key is required")

	// ErrServiceBusy is returned once speech-to-text retries are exhausted.
	ErrServiceBusy = errors.New("ElevenLabs API is busy. Please try again in a moment.")

	// ErrCallTimeout is returned when a call does not complete in time.
	ErrCallTimeout = errors.New("call did not complete before the timeout")

	// ErrNoConversation is returned when an outbound call yields no conversation id.
	ErrNoConversation = errors.New("outbound call returned no conversation id")
)

// APIError represents an error response from the ElevenLabs API.
type APIError struct {
	StatusCode int
	Status     string // detail.status, e.g. "system_busy"
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("elevenlabs error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("elevenlabs error %d: %s", e.StatusCode, e.Message)
}

// IsBusy reports whether the request was rejected for load and may be retried.
func (e *APIError) IsBusy() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.Status == "system_busy" ||
		strings.Contains(e.Message, "system_busy")
}

// IsRetryable reports whether a later identical request may succeed.
func (e *APIError) IsRetryable() bool {
	return e.IsBusy() || e.StatusCode >= 500
}

func isBusy(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsBusy()
}

func isRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsRetryable()
}
