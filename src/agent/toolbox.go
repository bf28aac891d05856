package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/elee1766/procurebot/src/aisdk"
)

// ToolExecutor is a function type for tool execution
type ToolExecutor func(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error)

// DefaultToolbox is the toolbox over the Tool interface.
type DefaultToolbox = Toolbox[Tool]

// Toolbox is the registry mapping tool names to handlers. Registration order
// is preserved so the schema list sent to the model is stable.
type Toolbox[T Tool] struct {
	tools      map[string]T
	order      []string
	middleware []ToolMiddleware
}

// ToolMiddleware is a function that wraps a ToolExecutor to add functionality.
type ToolMiddleware func(next ToolExecutor) ToolExecutor

// NewToolbox creates a new tool manager.
func NewToolbox[T Tool]() *Toolbox[T] {
	return &Toolbox[T]{
		tools: make(map[string]T),
	}
}

// RegisterTool registers a tool.
func (tm *Toolbox[T]) RegisterTool(tool T) error {
	if tool.GetName() == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := tm.tools[tool.GetName()]; exists {
		return fmt.Errorf("tool %s is already registered", tool.GetName())
	}

	tm.tools[tool.GetName()] = tool
	tm.order = append(tm.order, tool.GetName())
	return nil
}

// RegisterMiddleware registers middleware that will be applied to all tool executions.
// Middleware is applied in the order it's registered (first registered = outermost layer).
func (tm *Toolbox[T]) RegisterMiddleware(middleware ToolMiddleware) {
	tm.middleware = append(tm.middleware, middleware)
}

// Tools returns the registered tools in registration order.
func (tm *Toolbox[T]) Tools() []T {
	out := make([]T, 0, len(tm.order))
	for _, name := range tm.order {
		out = append(out, tm.tools[name])
	}
	return out
}

// Names returns the registered tool names in registration order.
func (tm *Toolbox[T]) Names() []string {
	return append([]string(nil), tm.order...)
}

// ChatTools returns the schema list for a completion request, in
// registration order.
func (tm *Toolbox[T]) ChatTools() []*aisdk.ChatTool {
	out := make([]*aisdk.ChatTool, 0, len(tm.order))
	for _, name := range tm.order {
		tool := tm.tools[name]
		out = append(out, &aisdk.ChatTool{
			Type: tool.GetType(),
			Function: aisdk.ChatToolFunction{
				Name:        tool.GetName(),
				Description: tool.GetDescription(),
				Parameters:  tool.GetParameters(),
			},
		})
	}
	return out
}

// ExecuteTool executes a tool call with middleware applied.
func (tm *Toolbox[T]) ExecuteTool(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
	tool, exists := tm.tools[call.Function.Name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Function.Name)
	}

	final := ToolExecutor(func(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
		return tool.Execute(ctx, call)
	})
	for i := len(tm.middleware) - 1; i >= 0; i-- {
		final = tm.middleware[i](final)
	}

	return final(ctx, call)
}

// GetTool returns a specific tool by name.
func (tm *Toolbox[T]) GetTool(name string) (T, bool) {
	tool, exists := tm.tools[name]
	return tool, exists
}

// HasTool checks if a tool is available.
func (tm *Toolbox[T]) HasTool(name string) bool {
	_, exists := tm.tools[name]
	return exists
}

// LoggingMiddleware logs tool execution details.
func LoggingMiddleware(logger *slog.Logger) ToolMiddleware {
	return func(next ToolExecutor) ToolExecutor {
		return func(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
			start := time.Now()
			logger.Debug("executing tool", "tool", call.Function.Name, "id", call.ID, "params", string(call.Function.Arguments))
			result, err := next(ctx, call)
			switch {
			case err != nil:
				logger.Warn("tool execution failed", "tool", call.Function.Name, "error", err)
			case result != nil && result.IsError:
				logger.Info("tool returned error result", "tool", call.Function.Name, "duration", time.Since(start), "result", result.Text())
			default:
				logger.Debug("tool execution completed", "tool", call.Function.Name, "duration", time.Since(start))
			}
			return result, err
		}
	}
}
