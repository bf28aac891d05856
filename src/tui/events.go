package tui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/elee1766/procurebot/src/executor"
	"github.com/elee1766/procurebot/src/tui/components/transcript"
)

// eventMsg carries one conversation event into the update loop.
type eventMsg struct {
	event executor.ConversationEvent
}

// runDoneMsg reports the end of a Send or Precheck call.
type runDoneMsg struct {
	result   *executor.RunResult
	err      error
	precheck bool
}

// voiceMsg carries a transcribed voice memo.
type voiceMsg struct {
	text string
	err  error
}

type clearedMsg struct {
	err error
}

// listenForEvents waits for the next event from the sink.
func listenForEvents(ch <-chan executor.ConversationEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg{event: ev}
	}
}

// newSink forwards every event onto a channel the program reads. Forwarding
// stops once done is closed so the sink can drain after the program exits.
func newSink(logger *slog.Logger, done <-chan struct{}) (*executor.ChannelEventSink, <-chan executor.ConversationEvent) {
	ch := make(chan executor.ConversationEvent, 64)
	sink := executor.NewChannelEventSink(logger, 64, executor.ProcessorFunc(func(ev executor.ConversationEvent) error {
		select {
		case ch <- ev:
		case <-done:
		}
		return nil
	}))
	return sink, ch
}

// applyEvent folds an event into the transcript.
func (m *Model) applyEvent(ev executor.ConversationEvent) {
	internal := ev.IsInternal()
	switch e := ev.(type) {
	case *executor.UserMessageEvent:
		content := e.Message
		if e.Images > 0 {
			content += fmt.Sprintf(" [%d image(s)]", e.Images)
		}
		m.entries = append(m.entries, transcript.Entry{Kind: transcript.KindUser, Content: content, Internal: internal})

	case *executor.AssistantStreamStartEvent:
		m.entries = append(m.entries, transcript.Entry{Kind: transcript.KindAssistant, Internal: internal})
		m.streaming = len(m.entries) - 1

	case *executor.AssistantStreamChunkEvent:
		if m.streaming >= 0 {
			m.entries[m.streaming].Content += e.Content
		}

	case *executor.AssistantMessageEvent:
		m.finishAssistant(e.Content, internal)

	case *executor.ToolCallRequestEvent:
		m.entries = append(m.entries, transcript.Entry{
			Kind:     transcript.KindTool,
			Content:  fmt.Sprintf("-> %s(%s)", e.ToolCall.Function.Name, compactJSON(e.ToolCall.Function.Arguments)),
			Internal: internal,
			DevOnly:  true,
		})

	case *executor.ToolCallResponseEvent:
		content := fmt.Sprintf("<- %s (%s): %s", e.ToolName, e.Duration.Round(time.Millisecond), e.Response.Text())
		if e.Gate != "" {
			content += " [" + e.Gate + "]"
		}
		m.entries = append(m.entries, transcript.Entry{Kind: transcript.KindTool, Content: content, Internal: internal, DevOnly: true})

	case *executor.ToolCallErrorEvent:
		m.entries = append(m.entries, transcript.Entry{
			Kind:     transcript.KindToolError,
			Content:  fmt.Sprintf("<- %s failed: %s", e.ToolName, e.Error),
			Internal: internal,
			DevOnly:  true,
		})

	case *executor.ConfirmationRequiredEvent:
		m.entries = append(m.entries, transcript.Entry{
			Kind:     transcript.KindSystem,
			Content:  e.Decision.Message(e.ToolName),
			Internal: internal,
			DevOnly:  true,
		})

	case *executor.SystemMessageEvent:
		m.entries = append(m.entries, transcript.Entry{Kind: transcript.KindSystem, Content: e.Message, Internal: internal, DevOnly: true})

	case *executor.PrecheckAlertEvent:
		m.entries = append(m.entries, transcript.Entry{Kind: transcript.KindAlert, Content: e.Content})

	case *executor.ErrorEvent:
		m.entries = append(m.entries, transcript.Entry{Kind: transcript.KindError, Content: e.Error, Internal: internal})

	case *executor.IterationCompleteEvent:
		m.status = fmt.Sprintf("%d iteration(s) left", e.Remaining)

	case *executor.LoopCompleteEvent:
		m.status = fmt.Sprintf("%s after %d model call(s)", e.State, e.ModelCalls)
	}
}

// finishAssistant settles the streamed entry, or appends the message when
// nothing was streamed. Entries left empty by tool-only replies are dropped.
func (m *Model) finishAssistant(content string, internal bool) {
	if m.streaming >= 0 {
		idx := m.streaming
		m.streaming = -1
		if content != "" {
			m.entries[idx].Content = content
		}
		if strings.TrimSpace(m.entries[idx].Content) == "" {
			m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
		}
		return
	}
	if strings.TrimSpace(content) == "" {
		return
	}
	m.entries = append(m.entries, transcript.Entry{Kind: transcript.KindAssistant, Content: content, Internal: internal})
}

// applyRunDone reports how a run ended.
func (m *Model) applyRunDone(msg runDoneMsg) {
	m.busy = false
	switch {
	case msg.err == nil:
	case errors.Is(msg.err, executor.ErrPrecheckDone):
		return
	default:
		m.entries = append(m.entries, transcript.Entry{Kind: transcript.KindError, Content: msg.err.Error(), Internal: msg.precheck})
		return
	}
	if msg.result != nil && msg.result.State == executor.StateIterationLimitReached {
		m.entries = append(m.entries, transcript.Entry{
			Kind:    transcript.KindSystem,
			Content: fmt.Sprintf("Stopped after %d tool iterations without a final answer.", msg.result.Iterations),
		})
	}
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
