package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/elee1766/procurebot/src/app"
	"github.com/elee1766/procurebot/src/tui/components/transcript"
)

const helpText = `Commands:
  /image <path> [text]  send a photo with an optional question
  /voice <path>         transcribe a voice memo and send it
  /clear                start a new conversation
  /dev                  toggle developer mode (hidden turns and tool calls)
  /help                 show this help
  /quit                 exit`

// splitCommand splits "/name rest of line" into its name and argument text.
func splitCommand(line string) (name, rest string) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "/")
	name, rest, _ = strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(rest)
}

func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	name, rest := splitCommand(line)
	switch name {
	case "quit", "exit":
		return m, tea.Quit

	case "help":
		m.addEntry(transcript.KindSystem, helpText)

	case "dev":
		m.dev = !m.dev
		if m.dev {
			m.status = "developer mode on"
		} else {
			m.status = "developer mode off"
		}
		m.refresh()

	case "clear":
		m.busy = true
		ctx, backend := m.ctx, m.backend
		return m, func() tea.Msg {
			return clearedMsg{err: backend.Clear(ctx)}
		}

	case "image":
		path, text, _ := strings.Cut(rest, " ")
		if path == "" {
			m.addEntry(transcript.KindError, "usage: /image <path> [text]")
			return m, nil
		}
		msg, err := app.ImageFile(strings.TrimSpace(text), path)
		if err != nil {
			m.addEntry(transcript.KindError, err.Error())
			return m, nil
		}
		cmd := m.sendCmd(msg)
		return m, cmd

	case "voice":
		if rest == "" {
			m.addEntry(transcript.KindError, "usage: /voice <path>")
			return m, nil
		}
		m.busy = true
		ctx, backend := m.ctx, m.backend
		return m, func() tea.Msg {
			msg, err := backend.VoiceFile(ctx, rest)
			if err != nil {
				return voiceMsg{err: err}
			}
			return voiceMsg{text: msg.Content}
		}

	default:
		m.addEntry(transcript.KindError, "unknown command /"+name+", try /help")
	}
	return m, nil
}
