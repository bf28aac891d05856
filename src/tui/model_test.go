package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/executor"
	"github.com/elee1766/procurebot/src/theme"
	"github.com/elee1766/procurebot/src/tui/components/transcript"
)

type fakeBackend struct {
	mu       sync.Mutex
	sent     []*aisdk.Message
	cleared  int
	voice    string
	voiceErr error
	result   *executor.RunResult
	err      error
}

func (f *fakeBackend) Send(_ context.Context, input *aisdk.Message, _ executor.EventSink) (*executor.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, input)
	return f.result, f.err
}

func (f *fakeBackend) Precheck(context.Context, executor.EventSink) (*executor.RunResult, error) {
	return nil, executor.ErrPrecheckDone
}

func (f *fakeBackend) Clear(context.Context) error {
	f.cleared++
	return nil
}

func (f *fakeBackend) VoiceFile(context.Context, string) (*aisdk.Message, error) {
	if f.voiceErr != nil {
		return nil, f.voiceErr
	}
	return &aisdk.Message{Role: aisdk.RoleUser, Content: f.voice}, nil
}

func newTestModel(b Backend) Model {
	return NewModel(context.Background(), b, nil, nil, ModelOptions{})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func typeLine(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func base(internal bool) executor.BaseEvent {
	return executor.BaseEvent{Internal: internal}
}

func rendered(m Model) string {
	return transcript.Render(m.entries, 0, nil, theme.NewStyles(theme.Default), m.dev)
}

func TestStreamingAssemblesAssistantEntry(t *testing.T) {
	m := newTestModel(&fakeBackend{})

	m, _ = update(t, m, eventMsg{&executor.UserMessageEvent{BaseEvent: base(false), Message: "how much milk?"}})
	m, _ = update(t, m, eventMsg{&executor.AssistantStreamStartEvent{BaseEvent: base(false)}})
	m, _ = update(t, m, eventMsg{&executor.AssistantStreamChunkEvent{BaseEvent: base(false), Content: "You have "}})
	m, _ = update(t, m, eventMsg{&executor.AssistantStreamChunkEvent{BaseEvent: base(false), Content: "12 litres."}})
	require.Len(t, m.entries, 2)
	assert.Equal(t, "You have 12 litres.", m.entries[1].Content)

	m, _ = update(t, m, eventMsg{&executor.AssistantMessageEvent{BaseEvent: base(false), Content: "You have 12 litres."}})
	require.Len(t, m.entries, 2)
	assert.Equal(t, -1, m.streaming)
	assert.Equal(t, transcript.KindAssistant, m.entries[1].Kind)
}

func TestToolOnlyReplyLeavesNoEmptyEntry(t *testing.T) {
	m := newTestModel(&fakeBackend{})

	m, _ = update(t, m, eventMsg{&executor.AssistantStreamStartEvent{BaseEvent: base(false)}})
	m, _ = update(t, m, eventMsg{&executor.AssistantMessageEvent{BaseEvent: base(false)}})
	assert.Empty(t, m.entries)
}

func TestDevModeRevealsHiddenTraffic(t *testing.T) {
	m := newTestModel(&fakeBackend{})

	m, _ = update(t, m, eventMsg{&executor.UserMessageEvent{BaseEvent: base(true), Message: "check stock levels"}})
	m, _ = update(t, m, eventMsg{&executor.ToolCallRequestEvent{
		BaseEvent: base(true),
		ToolCall:  aisdk.ToolCall{Function: aisdk.FunctionCall{Name: "read_ledger", Arguments: []byte(`{ "dataset": "inventory" }`)}},
	}})
	m, _ = update(t, m, eventMsg{&executor.PrecheckAlertEvent{BaseEvent: base(false), Content: "Coffee beans are low."}})

	out := rendered(m)
	assert.Contains(t, out, "Coffee beans are low.")
	assert.NotContains(t, out, "check stock levels")
	assert.NotContains(t, out, "read_ledger")

	m, _ = typeLine(t, m, "/dev")
	assert.True(t, m.dev)
	out = rendered(m)
	assert.Contains(t, out, "[hidden] You: check stock levels")
	assert.Contains(t, out, `read_ledger({"dataset":"inventory"})`)

	m, _ = typeLine(t, m, "/dev")
	assert.False(t, m.dev)
}

func TestSubmitSendsMessage(t *testing.T) {
	b := &fakeBackend{result: &executor.RunResult{State: executor.StateDone}}
	m := newTestModel(b)

	m, cmd := typeLine(t, m, "  Bestelle 50 Liter Milch  ")
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	done, ok := msg.(runDoneMsg)
	require.True(t, ok)
	require.Len(t, b.sent, 1)
	assert.Equal(t, "Bestelle 50 Liter Milch", b.sent[0].Content)
	assert.Equal(t, aisdk.RoleUser, b.sent[0].Role)

	m, _ = update(t, m, done)
	assert.False(t, m.busy)
	assert.Empty(t, m.entries)
}

func TestSubmitWhileBusyIsIgnored(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(b)
	m.busy = true

	m, cmd := typeLine(t, m, "hello")
	assert.Nil(t, cmd)
	assert.Equal(t, "hello", m.input.Value())
	assert.Empty(t, b.sent)
}

func TestRunDone(t *testing.T) {
	tests := []struct {
		name     string
		msg      runDoneMsg
		wantKind transcript.Kind
		wantNone bool
	}{
		{
			name:     "precheck already ran",
			msg:      runDoneMsg{err: executor.ErrPrecheckDone, precheck: true},
			wantNone: true,
		},
		{
			name:     "failure",
			msg:      runDoneMsg{err: errors.New("provider unavailable")},
			wantKind: transcript.KindError,
		},
		{
			name:     "iteration limit",
			msg:      runDoneMsg{result: &executor.RunResult{State: executor.StateIterationLimitReached, Iterations: 5}},
			wantKind: transcript.KindSystem,
		},
		{
			name:     "done",
			msg:      runDoneMsg{result: &executor.RunResult{State: executor.StateDone}},
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(&fakeBackend{})
			m.busy = true
			m, _ = update(t, m, tt.msg)
			assert.False(t, m.busy)
			if tt.wantNone {
				assert.Empty(t, m.entries)
				return
			}
			require.Len(t, m.entries, 1)
			assert.Equal(t, tt.wantKind, m.entries[0].Kind)
		})
	}
}

func TestClearCommand(t *testing.T) {
	b := &fakeBackend{}
	m := newTestModel(b)
	m.entries = []transcript.Entry{{Kind: transcript.KindUser, Content: "hi"}}

	m, cmd := typeLine(t, m, "/clear")
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, 1, b.cleared)
	assert.Empty(t, m.entries)
	assert.False(t, m.busy)
}

func TestVoiceCommandSendsTranscript(t *testing.T) {
	b := &fakeBackend{voice: "we need more oat milk"}
	m := newTestModel(b)

	m, cmd := typeLine(t, m, "/voice memo.ogg")
	require.NotNil(t, cmd)
	assert.True(t, m.busy)

	m, cmd = update(t, m, cmd())
	require.NotNil(t, cmd)
	_, ok := cmd().(runDoneMsg)
	require.True(t, ok)
	require.Len(t, b.sent, 1)
	assert.Equal(t, "we need more oat milk", b.sent[0].Content)
}

func TestVoiceCommandError(t *testing.T) {
	b := &fakeBackend{voiceErr: errors.New("duplicate recording")}
	m := newTestModel(b)

	m, cmd := typeLine(t, m, "/voice memo.ogg")
	m, _ = update(t, m, cmd())
	assert.False(t, m.busy)
	require.Len(t, m.entries, 1)
	assert.Equal(t, transcript.KindError, m.entries[0].Kind)
	assert.Empty(t, b.sent)
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"/image", "usage: /image"},
		{"/voice", "usage: /voice"},
		{"/image /does/not/exist.png", "no such file"},
		{"/frobnicate", "unknown command /frobnicate"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			b := &fakeBackend{}
			m := newTestModel(b)
			m, cmd := typeLine(t, m, tt.line)
			assert.Nil(t, cmd)
			require.Len(t, m.entries, 1)
			assert.Equal(t, transcript.KindError, m.entries[0].Kind)
			assert.Contains(t, m.entries[0].Content, tt.want)
			assert.Empty(t, b.sent)
		})
	}
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		line, name, rest string
	}{
		{"/help", "help", ""},
		{"/IMAGE shelf.jpg what is missing?", "image", "shelf.jpg what is missing?"},
		{"  /voice   memo.ogg ", "voice", "memo.ogg"},
	}
	for _, tt := range tests {
		name, rest := splitCommand(tt.line)
		assert.Equal(t, tt.name, name, tt.line)
		assert.Equal(t, tt.rest, rest, tt.line)
	}
}

func TestWindowResize(t *testing.T) {
	m := newTestModel(&fakeBackend{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.viewport.Width)
	assert.Equal(t, 36, m.viewport.Height)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 0, Height: 0})
	assert.Equal(t, 120, m.viewport.Width)
	assert.Contains(t, m.View(), "procurebot")
}
