package executor

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/confirm"
)

// EventType represents the type of conversation event
type EventType string

const (
	// User events
	EventUserMessage EventType = "user_message"

	// Assistant events
	EventAssistantStreamStart EventType = "assistant_stream_start"
	EventAssistantStreamChunk EventType = "assistant_stream_chunk"
	EventAssistantStreamEnd   EventType = "assistant_stream_end"
	EventAssistantMessage     EventType = "assistant_message"

	// Tool events
	EventToolCallRequest      EventType = "tool_call_request"
	EventToolCallResponse     EventType = "tool_call_response"
	EventToolCallError        EventType = "tool_call_error"
	EventConfirmationRequired EventType = "confirmation_required"

	// System events
	EventSystemMessage     EventType = "system_message"
	EventPrecheckAlert     EventType = "precheck_alert"
	EventError             EventType = "error"
	EventIterationComplete EventType = "iteration_complete"
	EventLoopComplete      EventType = "loop_complete"
)

// ConversationEvent is the base interface for all conversation events
type ConversationEvent interface {
	GetType() EventType
	GetTimestamp() time.Time
	GetConversationID() string
	GetIteration() int
	IsInternal() bool
}

// BaseEvent contains common fields for all events. Internal events belong to
// hidden turns and are only rendered in developer mode.
type BaseEvent struct {
	Type           EventType `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
	Iteration      int       `json:"iteration"`
	Internal       bool      `json:"internal,omitempty"`
}

func (e BaseEvent) GetType() EventType        { return e.Type }
func (e BaseEvent) GetTimestamp() time.Time   { return e.Timestamp }
func (e BaseEvent) GetConversationID() string { return e.ConversationID }
func (e BaseEvent) GetIteration() int         { return e.Iteration }
func (e BaseEvent) IsInternal() bool          { return e.Internal }

// UserMessageEvent represents a user message
type UserMessageEvent struct {
	BaseEvent
	Message string `json:"message"`
	Images  int    `json:"images,omitempty"`
}

// AssistantStreamStartEvent represents the start of assistant streaming
type AssistantStreamStartEvent struct {
	BaseEvent
	Model string `json:"model"`
}

// AssistantStreamChunkEvent represents a chunk of streamed content
type AssistantStreamChunkEvent struct {
	BaseEvent
	Content string `json:"content"`
}

// AssistantStreamEndEvent represents the end of assistant streaming
type AssistantStreamEndEvent struct {
	BaseEvent
}

// AssistantMessageEvent represents a complete assistant message
type AssistantMessageEvent struct {
	BaseEvent
	Content   string           `json:"content"`
	ToolCalls []aisdk.ToolCall `json:"tool_calls,omitempty"`
	Model     string           `json:"model"`
	Usage     *aisdk.Usage     `json:"usage,omitempty"`
}

// ToolCallRequestEvent represents a tool call request
type ToolCallRequestEvent struct {
	BaseEvent
	ToolCall aisdk.ToolCall `json:"tool_call"`
	Mutating bool           `json:"mutating"`
}

// ToolCallResponseEvent represents a tool call that produced a result
type ToolCallResponseEvent struct {
	BaseEvent
	ToolName string              `json:"tool_name"`
	ToolID   string              `json:"tool_id"`
	Response *aisdk.ToolResponse `json:"response"`
	Duration time.Duration       `json:"duration"`
	Gate     string              `json:"gate,omitempty"`
}

// ToolCallErrorEvent represents a tool call whose result is an error
type ToolCallErrorEvent struct {
	BaseEvent
	ToolName string        `json:"tool_name"`
	ToolID   string        `json:"tool_id"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

// ConfirmationRequiredEvent represents a mutating call rejected by the gate
type ConfirmationRequiredEvent struct {
	BaseEvent
	ToolName string           `json:"tool_name"`
	ToolID   string           `json:"tool_id"`
	Decision confirm.Decision `json:"decision"`
}

// SystemMessageEvent represents system messages such as the iteration warning
type SystemMessageEvent struct {
	BaseEvent
	Message string `json:"message"`
	Purpose string `json:"purpose"` // e.g., "warning", "info"
}

// PrecheckAlertEvent carries the precheck answer once it is made visible
type PrecheckAlertEvent struct {
	BaseEvent
	Content string `json:"content"`
}

// ErrorEvent represents an error in the conversation
type ErrorEvent struct {
	BaseEvent
	Error   string `json:"error"`
	Context string `json:"context"` // Where the error occurred
}

// IterationCompleteEvent is sent after a batch of tool results was appended
type IterationCompleteEvent struct {
	BaseEvent
	Remaining int   `json:"remaining"`
	State     State `json:"state"`
}

// LoopCompleteEvent represents the end of one run of the loop
type LoopCompleteEvent struct {
	BaseEvent
	State      State `json:"state"`
	Iterations int   `json:"iterations"`
	ModelCalls int   `json:"model_calls"`
}

// EventSink is the interface for handling conversation events
type EventSink interface {
	// Send sends an event to the sink
	Send(event ConversationEvent) error

	// Close closes the event sink
	Close() error
}

// EventProcessor processes conversation events
type EventProcessor interface {
	// Process handles a single event
	Process(event ConversationEvent) error

	// Close cleans up any resources
	Close() error
}

// ProcessorFunc adapts a function to EventProcessor.
type ProcessorFunc func(event ConversationEvent) error

func (f ProcessorFunc) Process(event ConversationEvent) error { return f(event) }
func (f ProcessorFunc) Close() error                          { return nil }

// ChannelEventSink implements EventSink using Go channels
type ChannelEventSink struct {
	events     chan ConversationEvent
	processors []EventProcessor
	done       chan struct{}
	logger     *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewChannelEventSink creates a new channel-based event sink. Events are
// handed to the processors in order on a single goroutine.
func NewChannelEventSink(logger *slog.Logger, bufferSize int, processors ...EventProcessor) *ChannelEventSink {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sink := &ChannelEventSink{
		events:     make(chan ConversationEvent, bufferSize),
		processors: processors,
		done:       make(chan struct{}),
		logger:     logger.With("component", "event_sink"),
	}

	go sink.processEvents()

	return sink
}

// Send sends an event to the sink
func (s *ChannelEventSink) Send(event ConversationEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("event sink is closed")
	}
	s.events <- event
	return nil
}

// Close drains pending events and closes the processors
func (s *ChannelEventSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()
	<-s.done

	for _, p := range s.processors {
		if err := p.Close(); err != nil {
			s.logger.Warn("error closing processor", "error", err)
		}
	}

	return nil
}

// processEvents processes events from the channel
func (s *ChannelEventSink) processEvents() {
	defer close(s.done)

	for event := range s.events {
		for _, processor := range s.processors {
			if err := processor.Process(event); err != nil {
				s.logger.Warn("error processing event", "type", event.GetType(), "error", err)
			}
		}
	}
}
