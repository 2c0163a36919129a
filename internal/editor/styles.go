package editor

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	encryptedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	modifiedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	statusStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	helpStyle      = lipgloss.NewStyle().Faint(true)
)
