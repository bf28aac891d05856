package executor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
)

// ConsoleProcessorConfig configures the console event processor
type ConsoleProcessorConfig struct {
	ShowToolArguments  bool
	ShowToolResults    bool
	ShowIntermediateAI bool
	// ShowInternal renders events of hidden turns (developer mode).
	ShowInternal     bool
	RawMode          bool
	StreamMode       bool
	MaxResultPreview int // Max display width of a result preview
	Out              io.Writer
}

// ConsoleEventProcessor processes events and writes them to a terminal
type ConsoleEventProcessor struct {
	config    ConsoleProcessorConfig
	out       io.Writer
	streaming bool
}

// NewConsoleEventProcessor creates a new console event processor
func NewConsoleEventProcessor(config ConsoleProcessorConfig) *ConsoleEventProcessor {
	if config.MaxResultPreview == 0 {
		config.MaxResultPreview = 200
	}
	out := config.Out
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleEventProcessor{config: config, out: out}
}

// Process handles a single event
func (p *ConsoleEventProcessor) Process(event ConversationEvent) error {
	if event.IsInternal() && !p.config.ShowInternal {
		return nil
	}

	if p.config.RawMode {
		switch e := event.(type) {
		case *AssistantMessageEvent:
			if len(e.ToolCalls) == 0 {
				fmt.Fprintln(p.out, e.Content)
			}
		case *PrecheckAlertEvent:
			fmt.Fprintln(p.out, e.Content)
		}
		return nil
	}

	switch e := event.(type) {
	case *AssistantStreamChunkEvent:
		if p.config.StreamMode {
			p.streaming = true
			fmt.Fprint(p.out, e.Content)
		}

	case *AssistantStreamEndEvent:
		if p.streaming {
			fmt.Fprintln(p.out)
			p.streaming = false
		}

	case *AssistantMessageEvent:
		p.processAssistantMessage(e)

	case *ToolCallRequestEvent:
		p.processToolCallRequest(e)

	case *ToolCallResponseEvent:
		p.processToolCallResponse(e)

	case *ToolCallErrorEvent:
		fmt.Fprintf(p.out, "   ❌ %s%s\n", p.preview(e.Error), formatDuration(e.Duration))

	case *ConfirmationRequiredEvent:
		fmt.Fprintf(p.out, "   ⏸  %s needs %d confirmation(s), %d received\n", e.ToolName, e.Decision.Required, e.Decision.Confirmed)

	case *SystemMessageEvent:
		p.processSystemMessage(e)

	case *PrecheckAlertEvent:
		fmt.Fprintf(p.out, "\n📦 %s\n", e.Content)

	case *ErrorEvent:
		fmt.Fprintf(p.out, "\n❌ Error in %s: %s\n", e.Context, e.Error)
	}

	return nil
}

// Close cleans up resources
func (p *ConsoleEventProcessor) Close() error {
	return nil
}

func (p *ConsoleEventProcessor) processAssistantMessage(e *AssistantMessageEvent) {
	if p.config.StreamMode {
		return
	}
	if len(e.ToolCalls) > 0 {
		if p.config.ShowIntermediateAI && e.Content != "" {
			fmt.Fprintf(p.out, "\n💭 Assistant: %s\n", e.Content)
		}
		return
	}
	fmt.Fprintln(p.out, e.Content)
}

func (p *ConsoleEventProcessor) processToolCallRequest(e *ToolCallRequestEvent) {
	marker := "🔧"
	if e.Mutating {
		marker = "✏️ "
	}
	fmt.Fprintf(p.out, "\n%s Calling tool: %s\n", marker, e.ToolCall.Function.Name)

	if p.config.ShowToolArguments {
		var args interface{}
		if err := json.Unmarshal(e.ToolCall.Function.Arguments, &args); err == nil {
			if pretty, err := json.MarshalIndent(args, "   ", "  "); err == nil {
				fmt.Fprintf(p.out, "   Arguments:\n   %s\n", pretty)
				return
			}
		}
		fmt.Fprintf(p.out, "   Arguments: %s\n", e.ToolCall.Function.Arguments)
	}
}

func (p *ConsoleEventProcessor) processToolCallResponse(e *ToolCallResponseEvent) {
	fmt.Fprintf(p.out, "   ✓ Tool completed%s\n", formatDuration(e.Duration))

	if p.config.ShowToolResults && e.Response != nil && len(e.Response.Content) > 0 {
		fmt.Fprintf(p.out, "   Result preview: %s\n", p.preview(e.Response.Text()))
	}
}

func (p *ConsoleEventProcessor) processSystemMessage(e *SystemMessageEvent) {
	switch e.Purpose {
	case "warning":
		fmt.Fprintf(p.out, "\n⚠️  %s\n", e.Message)
	case "info":
		fmt.Fprintf(p.out, "\nℹ️  %s\n", e.Message)
	}
}

// preview flattens text onto one line and truncates it to the preview width.
func (p *ConsoleEventProcessor) preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return ansi.Truncate(s, p.config.MaxResultPreview, "...")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return fmt.Sprintf(" (%v)", d.Round(10*time.Millisecond))
}
