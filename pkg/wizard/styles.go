package wizard

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title    lipgloss.Style
	Subtle   lipgloss.Style
	Label    lipgloss.Style
	Selected lipgloss.Style
	Value    lipgloss.Style
	Empty    lipgloss.Style
	Error    lipgloss.Style
	Info     lipgloss.Style
	Progress lipgloss.Style
	Box      lipgloss.Style
}

func defaultStyles() styles {
	green := lipgloss.Color("#2E7D32")
	return styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(green),
		Subtle:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Label:    lipgloss.NewStyle().Width(24),
		Selected: lipgloss.NewStyle().Width(24).Bold(true).Foreground(green),
		Value:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Empty:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#C62828")),
		Info:     lipgloss.NewStyle().Foreground(lipgloss.Color("#1565C0")),
		Progress: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(green).
			Padding(0, 1),
	}
}
