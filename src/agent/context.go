package agent

import "context"

// CallInfo identifies the conversation a tool call runs in.
type CallInfo struct {
	SessionID      string
	ConversationID string
	ToolCallID     string
}

type callInfoKey struct{}

// WithCallInfo attaches info to ctx for tool handlers.
func WithCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey{}, info)
}

// CallInfoFrom returns the info attached by WithCallInfo, if any.
func CallInfoFrom(ctx context.Context) (CallInfo, bool) {
	info, ok := ctx.Value(callInfoKey{}).(CallInfo)
	return info, ok
}
