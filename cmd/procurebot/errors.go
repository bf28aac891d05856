package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/elee1766/procurebot/src/app"
	"github.com/elee1766/procurebot/src/config"
	"github.com/elee1766/procurebot/src/ledger"
	"github.com/elee1766/procurebot/src/orclient"
	"github.com/elee1766/procurebot/src/voicecall"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error
	ExitUsage       = 2 // Usage error
	ExitConfig      = 3 // Configuration error
	ExitAuth        = 4 // Authentication error
	ExitNotFound    = 5 // Missing product, dataset, or session
	ExitNetwork     = 6 // Network error
	ExitTimeout     = 7 // Timeout error
	ExitInterrupted = 8 // Interrupted by user
)

// ErrorHandler handles different types of errors and exits with appropriate codes
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError handles an error and exits with the appropriate code
func (h *ErrorHandler) HandleError(err error) {
	if err == nil {
		return
	}
	h.logger.Debug("command failed", "error", err)
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
	os.Exit(exitCode(err))
}

// exitCode determines the appropriate exit code for an error
func exitCode(err error) int {
	var validation config.ValidationError
	var apiErr *orclient.APIError
	var voiceErr *voicecall.APIError

	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.As(err, &validation), errors.Is(err, config.ErrNoConfigFile):
		return ExitConfig
	case errors.Is(err, app.ErrMissingAPIKey):
		return ExitAuth
	case errors.As(err, &apiErr) && (apiErr.StatusCode == 401 || apiErr.StatusCode == 403):
		return ExitAuth
	case ledger.IsNotFound(err):
		return ExitNotFound
	case errors.Is(err, app.ErrEmptyInput), errors.Is(err, app.ErrUnsupportedFile):
		return ExitUsage
	case errors.As(err, &apiErr), errors.As(err, &voiceErr), errors.Is(err, voicecall.ErrServiceBusy):
		return ExitNetwork
	default:
		return ExitError
	}
}
