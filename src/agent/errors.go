package agent

import "errors"

var (
	ErrUnknownTool = errors.New("unknown tool")
)
