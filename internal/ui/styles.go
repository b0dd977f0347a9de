package ui

import "github.com/charmbracelet/lipgloss"

// ------- styling helpers (Lip Gloss) -------
type styles struct {
	title    lipgloss.Style
	success  lipgloss.Style
	pending  lipgloss.Style
	accent   lipgloss.Style
	muted    lipgloss.Style
	errorS   lipgloss.Style
	key      lipgloss.Style
	caption  lipgloss.Style
	editing  lipgloss.Style
	panel    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(t.Title),
		success:  lipgloss.NewStyle().Foreground(t.Success),
		pending:  lipgloss.NewStyle().Foreground(t.Pending),
		accent:   lipgloss.NewStyle().Foreground(t.Accent),
		muted:    lipgloss.NewStyle().Faint(true),
		errorS:   lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		key:      lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		caption:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("0")),
		editing:  lipgloss.NewStyle().Bold(true).Reverse(true),
		panel:    lipgloss.NewStyle().Border(t.Border).BorderForeground(t.Muted).Padding(0, 1),
	}
}
