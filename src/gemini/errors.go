package gemini

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

var (
	// ErrNoAPIKey indicates the API key is missing.
	ErrNoAPIKey = errors.New("gemini API key is required")

	// ErrNoCandidates indicates the response carried no candidates.
	ErrNoCandidates = errors.New("no candidates in response")

	// ErrContentBlocked indicates the response was stopped by safety filters.
	ErrContentBlocked = errors.New("content blocked by safety filters")
)

// Error codes for ProviderError.
const (
	CodeAuth           = "auth"
	CodeRateLimit      = "rate_limit"
	CodeInvalidRequest = "invalid_request"
	CodeUnavailable    = "unavailable"
	CodeNetwork        = "network"
)

// ProviderError is a Gemini failure classified for the caller.
type ProviderError struct {
	Code       string
	StatusCode int
	Message    string
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gemini %s error %d: %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gemini %s error: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRetryable reports whether the request may succeed if repeated.
func (e *ProviderError) IsRetryable() bool { return e.Retryable }

// mapError maps SDK errors to ProviderError.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		return &ProviderError{Code: CodeNetwork, Message: err.Error(), Retryable: true, Err: err}
	}

	pe := &ProviderError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
	switch {
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		pe.Code = CodeAuth
	case apiErr.Code == http.StatusTooManyRequests:
		pe.Code, pe.Retryable = CodeRateLimit, true
	case apiErr.Code >= 500:
		pe.Code, pe.Retryable = CodeUnavailable, true
	case apiErr.Code >= 400:
		pe.Code = CodeInvalidRequest
	default:
		pe.Code, pe.Retryable = CodeNetwork, true
	}
	return pe
}
