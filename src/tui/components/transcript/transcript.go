// Package transcript renders the chat history shown by the TUI.
package transcript

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/elee1766/procurebot/src/theme"
)

// Kind classifies an entry for styling.
type Kind int

const (
	KindUser Kind = iota
	KindAssistant
	KindTool
	KindToolError
	KindAlert
	KindSystem
	KindError
)

// Entry is one rendered block of the transcript.
type Entry struct {
	Kind    Kind
	Content string
	// Internal entries come from hidden turns.
	Internal bool
	// DevOnly entries describe tool traffic.
	DevOnly bool
}

// Hidden reports whether the entry is filtered out when developer mode is off.
func (e Entry) Hidden(dev bool) bool {
	return !dev && (e.Internal || e.DevOnly)
}

// Markdown renders assistant text. Implementations may fail; the raw text is
// shown instead.
type Markdown interface {
	Render(in string) (string, error)
}

// Render formats the visible entries for a viewport of the given width.
func Render(entries []Entry, width int, md Markdown, styles theme.Styles, dev bool) string {
	var blocks []string
	for _, e := range entries {
		if e.Hidden(dev) {
			continue
		}
		blocks = append(blocks, renderEntry(e, width, md, styles))
	}
	return strings.Join(blocks, "\n\n")
}

func renderEntry(e Entry, width int, md Markdown, styles theme.Styles) string {
	prefix := ""
	if e.Internal {
		prefix = "[hidden] "
	}
	switch e.Kind {
	case KindUser:
		return styles.User.Render(prefix + "You: " + e.Content)
	case KindAssistant:
		if md != nil {
			if out, err := md.Render(e.Content); err == nil {
				return prefix + strings.TrimRight(out, "\n")
			}
		}
		return styles.Assistant.Render(prefix + e.Content)
	case KindTool:
		return styles.Tool.Render(prefix + Truncate(e.Content, width))
	case KindToolError:
		return styles.ToolError.Render(prefix + Truncate(e.Content, width))
	case KindAlert:
		return styles.Alert.Render(e.Content)
	case KindSystem:
		return styles.System.Render(prefix + e.Content)
	case KindError:
		return styles.Error.Render("Error: " + e.Content)
	}
	return e.Content
}

// Truncate shortens each line of s to width display cells.
func Truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, width, "…")
	}
	return strings.Join(lines, "\n")
}
