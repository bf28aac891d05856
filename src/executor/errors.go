package executor

import "errors"

var (
	// Config validation errors
	ErrModelClientRequired = errors.New("model client is required")
	ErrSessionRequired     = errors.New("session is required")
	ErrDatabaseRequired    = errors.New("database is required")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrPrecheckDone    = errors.New("precheck already ran for this session")
)

// IterationLimitWarning is the visible warning shown when the loop stops at the ceiling.
const IterationLimitWarning = "Maximum tool use iterations reached."
