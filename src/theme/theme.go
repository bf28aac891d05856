// Package theme holds the terminal palette and the lipgloss styles built on it.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme represents a color theme
type Theme struct {
	Primary    lipgloss.AdaptiveColor
	Text       lipgloss.AdaptiveColor
	TextMuted  lipgloss.AdaptiveColor
	Warning    lipgloss.AdaptiveColor
	Error      lipgloss.AdaptiveColor
	Success    lipgloss.AdaptiveColor
	Background lipgloss.AdaptiveColor
}

// Default is the built-in palette.
var Default = Theme{
	Primary:    lipgloss.AdaptiveColor{Light: "#1f6feb", Dark: "#58a6ff"},
	Text:       lipgloss.AdaptiveColor{Light: "#1f2328", Dark: "#e6edf3"},
	TextMuted:  lipgloss.AdaptiveColor{Light: "#656d76", Dark: "#8b949e"},
	Warning:    lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"},
	Error:      lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"},
	Success:    lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"},
	Background: lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#0d1117"},
}

// CurrentTheme is the active palette.
var CurrentTheme = Default

// SetTheme sets the current theme
func SetTheme(t Theme) {
	CurrentTheme = t
}

// Styles are the rendered styles of one theme.
type Styles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	Tool      lipgloss.Style
	ToolError lipgloss.Style
	Alert     lipgloss.Style
	System    lipgloss.Style
	Error     lipgloss.Style
	Status    lipgloss.Style
	DevBadge  lipgloss.Style
	Prompt    lipgloss.Style
}

// NewStyles builds the styles for t.
func NewStyles(t Theme) Styles {
	return Styles{
		User:      lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		Assistant: lipgloss.NewStyle().Foreground(t.Text),
		Tool:      lipgloss.NewStyle().Foreground(t.TextMuted).PaddingLeft(2),
		ToolError: lipgloss.NewStyle().Foreground(t.Error).PaddingLeft(2),
		Alert: lipgloss.NewStyle().
			Foreground(t.Warning).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Warning).
			Padding(0, 1),
		System:   lipgloss.NewStyle().Foreground(t.Warning).Italic(true),
		Error:    lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		Status:   lipgloss.NewStyle().Foreground(t.TextMuted),
		DevBadge: lipgloss.NewStyle().Foreground(t.Background).Background(t.Warning).Padding(0, 1),
		Prompt:   lipgloss.NewStyle().Foreground(t.Primary),
	}
}
