package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#B39DDB")
	muted  = lipgloss.Color("#545454")

	headerStyle    = lipgloss.NewStyle().Foreground(accent).Bold(true)
	userLabel      = lipgloss.NewStyle().Foreground(lipgloss.Color("#81C784")).Bold(true)
	assistantLabel = lipgloss.NewStyle().Foreground(accent).Bold(true)
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E57373"))
	helpStyle      = lipgloss.NewStyle().Foreground(muted)
	selectedStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	listStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
)
