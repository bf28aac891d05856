package executor

import (
	"time"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/confirm"
)

// EventEmitter helps emit events with common fields
type EventEmitter struct {
	sink           EventSink
	conversationID string
	iteration      int
	internal       bool
}

// NewEventEmitter creates a new event emitter. A nil sink drops every event.
func NewEventEmitter(sink EventSink, conversationID string) *EventEmitter {
	return &EventEmitter{
		sink:           sink,
		conversationID: conversationID,
	}
}

// SetIteration sets the iteration stamped on subsequent events.
func (e *EventEmitter) SetIteration(n int) { e.iteration = n }

// SetInternal marks subsequent events as belonging to hidden turns.
func (e *EventEmitter) SetInternal(internal bool) { e.internal = internal }

func (e *EventEmitter) createBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		Type:           eventType,
		Timestamp:      time.Now(),
		ConversationID: e.conversationID,
		Iteration:      e.iteration,
		Internal:       e.internal,
	}
}

func (e *EventEmitter) send(event ConversationEvent) error {
	if e == nil || e.sink == nil {
		return nil
	}
	return e.sink.Send(event)
}

// EmitUserMessage emits a user message event
func (e *EventEmitter) EmitUserMessage(msg *aisdk.Message) error {
	images := 0
	for _, p := range msg.Parts {
		if p.Type == aisdk.ContentTypeImage {
			images++
		}
	}
	return e.send(&UserMessageEvent{
		BaseEvent: e.createBaseEvent(EventUserMessage),
		Message:   msg.TextContent(),
		Images:    images,
	})
}

// EmitAssistantStreamStart emits the start of assistant streaming
func (e *EventEmitter) EmitAssistantStreamStart(model string) error {
	return e.send(&AssistantStreamStartEvent{
		BaseEvent: e.createBaseEvent(EventAssistantStreamStart),
		Model:     model,
	})
}

// EmitAssistantStreamChunk emits a chunk of streamed content
func (e *EventEmitter) EmitAssistantStreamChunk(content string) error {
	return e.send(&AssistantStreamChunkEvent{
		BaseEvent: e.createBaseEvent(EventAssistantStreamChunk),
		Content:   content,
	})
}

// EmitAssistantStreamEnd emits the end of assistant streaming
func (e *EventEmitter) EmitAssistantStreamEnd() error {
	return e.send(&AssistantStreamEndEvent{
		BaseEvent: e.createBaseEvent(EventAssistantStreamEnd),
	})
}

// EmitAssistantMessage emits a complete assistant message
func (e *EventEmitter) EmitAssistantMessage(msg *aisdk.Message, model string, usage *aisdk.Usage) error {
	return e.send(&AssistantMessageEvent{
		BaseEvent: e.createBaseEvent(EventAssistantMessage),
		Content:   msg.Content,
		ToolCalls: msg.ToolCalls,
		Model:     model,
		Usage:     usage,
	})
}

// EmitToolCallRequest emits a tool call request
func (e *EventEmitter) EmitToolCallRequest(toolCall aisdk.ToolCall, mutating bool) error {
	return e.send(&ToolCallRequestEvent{
		BaseEvent: e.createBaseEvent(EventToolCallRequest),
		ToolCall:  toolCall,
		Mutating:  mutating,
	})
}

// EmitToolCallResponse emits a tool call result
func (e *EventEmitter) EmitToolCallResponse(toolName, toolID string, response *aisdk.ToolResponse, duration time.Duration, gate string) error {
	return e.send(&ToolCallResponseEvent{
		BaseEvent: e.createBaseEvent(EventToolCallResponse),
		ToolName:  toolName,
		ToolID:    toolID,
		Response:  response,
		Duration:  duration,
		Gate:      gate,
	})
}

// EmitToolCallError emits a failed tool call
func (e *EventEmitter) EmitToolCallError(toolName, toolID, message string, duration time.Duration) error {
	return e.send(&ToolCallErrorEvent{
		BaseEvent: e.createBaseEvent(EventToolCallError),
		ToolName:  toolName,
		ToolID:    toolID,
		Error:     message,
		Duration:  duration,
	})
}

// EmitConfirmationRequired emits a gate rejection
func (e *EventEmitter) EmitConfirmationRequired(toolName, toolID string, d confirm.Decision) error {
	return e.send(&ConfirmationRequiredEvent{
		BaseEvent: e.createBaseEvent(EventConfirmationRequired),
		ToolName:  toolName,
		ToolID:    toolID,
		Decision:  d,
	})
}

// EmitSystemMessage emits a system message
func (e *EventEmitter) EmitSystemMessage(message, purpose string) error {
	return e.send(&SystemMessageEvent{
		BaseEvent: e.createBaseEvent(EventSystemMessage),
		Message:   message,
		Purpose:   purpose,
	})
}

// EmitPrecheckAlert emits the revealed precheck answer
func (e *EventEmitter) EmitPrecheckAlert(content string) error {
	return e.send(&PrecheckAlertEvent{
		BaseEvent: e.createBaseEvent(EventPrecheckAlert),
		Content:   content,
	})
}

// EmitError emits an error event
func (e *EventEmitter) EmitError(err error, context string) error {
	return e.send(&ErrorEvent{
		BaseEvent: e.createBaseEvent(EventError),
		Error:     err.Error(),
		Context:   context,
	})
}

// EmitIterationComplete emits the end of one tool batch
func (e *EventEmitter) EmitIterationComplete(remaining int, state State) error {
	return e.send(&IterationCompleteEvent{
		BaseEvent: e.createBaseEvent(EventIterationComplete),
		Remaining: remaining,
		State:     state,
	})
}

// EmitLoopComplete emits the end of a run
func (e *EventEmitter) EmitLoopComplete(state State, iterations, modelCalls int) error {
	return e.send(&LoopCompleteEvent{
		BaseEvent:  e.createBaseEvent(EventLoopComplete),
		State:      state,
		Iterations: iterations,
		ModelCalls: modelCalls,
	})
}
