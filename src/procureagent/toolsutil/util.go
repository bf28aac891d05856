package toolsutil

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/elee1766/procurebot/src/ledger"
)

// Package-level logger for tools
var logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
	Level: slog.LevelError,
}))

// SetLogger allows setting a custom logger for the tools package
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// GetLogger returns the current logger for the tools package
func GetLogger() *slog.Logger {
	return logger
}

// Error classes surfaced to the model.
const (
	InvalidInput         = "InvalidInput"
	NotFound             = "NotFound"
	ConstraintViolation  = "ConstraintViolation"
	ConfirmationRequired = "ConfirmationRequired"
	ExternalServiceError = "ExternalServiceError"
	UnknownTool          = "UnknownTool"
)

// ToolError represents an error with additional context
type ToolError struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

// Error returns the message alone. The class is for callers and the audit
// log; the model only sees the text.
func (e *ToolError) Error() string {
	return e.Message
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// NewToolError creates a new tool error with context
func NewToolError(errorType, message string, cause error) *ToolError {
	return &ToolError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// With records a detail and returns e.
func (e *ToolError) With(key string, value any) *ToolError {
	e.Details[key] = value
	return e
}

// ClassOf returns the error class of err, or "" for unclassified errors.
func ClassOf(err error) string {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Type
	}
	return ""
}

// FromLedger classifies an error returned by the ledger package.
func FromLedger(err error) *ToolError {
	if err == nil {
		return nil
	}
	var exceeded *ledger.QuantityExceededError
	var unreadable *ledger.StoreUnreadableError
	switch {
	case errors.As(err, &exceeded):
		return NewToolError(ConstraintViolation, err.Error(), err).
			With("available", exceeded.Available).
			With("requested", exceeded.Requested)
	case ledger.IsNotFound(err):
		return NewToolError(NotFound, err.Error(), err)
	case errors.Is(err, ledger.ErrInvalidQuantity):
		return NewToolError(InvalidInput, err.Error(), err)
	case errors.As(err, &unreadable):
		return NewToolError(ExternalServiceError, err.Error(), err)
	}
	return NewToolError(ExternalServiceError, fmt.Sprintf("ledger: %v", err), err)
}
