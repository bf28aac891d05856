// Package tui is the interactive chat interface. The model reads conversation
// events from a sink and renders them into a scrolling transcript; internal
// turns and tool traffic only show in developer mode.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/elee1766/procurebot/src/aisdk"
	"github.com/elee1766/procurebot/src/executor"
	"github.com/elee1766/procurebot/src/theme"
	"github.com/elee1766/procurebot/src/tui/components/transcript"
)

// Backend is the conversation the TUI drives.
type Backend interface {
	Send(ctx context.Context, input *aisdk.Message, sink executor.EventSink) (*executor.RunResult, error)
	Precheck(ctx context.Context, sink executor.EventSink) (*executor.RunResult, error)
	Clear(ctx context.Context) error
	VoiceFile(ctx context.Context, path string) (*aisdk.Message, error)
}

// Model implements tea.Model
type Model struct {
	ctx     context.Context
	backend Backend
	sink    executor.EventSink
	events  <-chan executor.ConversationEvent
	logger  *slog.Logger

	styles   theme.Styles
	markdown transcript.Markdown

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	entries   []transcript.Entry
	streaming int
	busy      bool
	dev       bool
	precheck  bool
	status    string
	sessionID string

	width  int
	height int
}

// ModelOptions configures a Model.
type ModelOptions struct {
	SessionID string
	// Dev starts with internal turns and tool traffic visible.
	Dev bool
	// Precheck runs the hidden stock check as soon as the program starts.
	Precheck bool
	Markdown transcript.Markdown
	Logger   *slog.Logger
}

// NewModel creates the chat model.
func NewModel(ctx context.Context, backend Backend, sink executor.EventSink, events <-chan executor.ConversationEvent, opts ModelOptions) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about the ledger, or /help"
	ti.Prompt = "> "
	ti.Focus()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	styles := theme.NewStyles(theme.CurrentTheme)
	ti.PromptStyle = styles.Prompt

	return Model{
		ctx:       ctx,
		backend:   backend,
		sink:      sink,
		events:    events,
		logger:    logger,
		styles:    styles,
		markdown:  opts.Markdown,
		input:     ti,
		viewport:  viewport.New(80, 20),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		streaming: -1,
		dev:       opts.Dev,
		precheck:  opts.Precheck,
		busy:      opts.Precheck,
		sessionID: opts.SessionID,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.events != nil {
		cmds = append(cmds, listenForEvents(m.events))
	}
	if m.precheck {
		cmds = append(cmds, m.precheckCmd())
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case eventMsg:
		m.applyEvent(msg.event)
		m.refresh()
		return m, listenForEvents(m.events)

	case runDoneMsg:
		m.applyRunDone(msg)
		m.refresh()
		return m, nil

	case voiceMsg:
		if msg.err != nil {
			m.busy = false
			m.addEntry(transcript.KindError, msg.err.Error())
			return m, nil
		}
		cmd := m.sendCmd(&aisdk.Message{Role: aisdk.RoleUser, Content: msg.text})
		return m, cmd

	case clearedMsg:
		m.busy = false
		if msg.err != nil {
			m.addEntry(transcript.KindError, msg.err.Error())
			return m, nil
		}
		m.entries = nil
		m.streaming = -1
		m.status = "conversation cleared"
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width = width
	m.height = height
	m.input.Width = width - 4
	// header, input, status
	vpHeight := height - 4
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.refresh()
}

// refresh re-renders the transcript into the viewport.
func (m *Model) refresh() {
	width := m.viewport.Width - 2
	m.viewport.SetContent(transcript.Render(m.entries, width, m.markdown, m.styles, m.dev))
	m.viewport.GotoBottom()
}

func (m *Model) addEntry(kind transcript.Kind, content string) {
	m.entries = append(m.entries, transcript.Entry{Kind: kind, Content: content})
	m.refresh()
}

// submit handles the enter key.
func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}
	if m.busy {
		m.status = "still working on the last message"
		return m, nil
	}
	m.input.SetValue("")

	if strings.HasPrefix(line, "/") {
		return m.runCommand(line)
	}
	cmd := m.sendCmd(&aisdk.Message{Role: aisdk.RoleUser, Content: line})
	return m, cmd
}

func (m *Model) sendCmd(input *aisdk.Message) tea.Cmd {
	m.busy = true
	m.status = ""
	ctx, backend, sink := m.ctx, m.backend, m.sink
	return func() tea.Msg {
		result, err := backend.Send(ctx, input, sink)
		return runDoneMsg{result: result, err: err}
	}
}

func (m Model) precheckCmd() tea.Cmd {
	ctx, backend, sink := m.ctx, m.backend, m.sink
	return func() tea.Msg {
		result, err := backend.Precheck(ctx, sink)
		return runDoneMsg{result: result, err: err, precheck: true}
	}
}

// View renders the UI
func (m Model) View() string {
	header := m.styles.Status.Render("procurebot")
	if m.sessionID != "" {
		header += m.styles.Status.Render("  session " + m.sessionID)
	}
	if m.dev {
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, " ", m.styles.DevBadge.Render("DEV"))
	}

	status := m.status
	if m.busy {
		status = m.spinner.View() + " thinking..."
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		m.input.View(),
		m.styles.Status.Render(status),
	)
}
