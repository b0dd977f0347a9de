package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme bundles palette + symbols + box borders.
// All UI helpers pull from the theme the model was built with.
type Theme struct {
	Name                                          string
	Title, Muted, Accent, Success, Error, Pending lipgloss.TerminalColor
	Border                                        lipgloss.Border
	SymOK, SymFail, SymBusy                       string
}

func ThemeByName(name string) Theme {
	switch strings.ToLower(name) {
	case "neon":
		return Theme{
			Name:  "neon",
			Title: lipgloss.Color("13"), // bright magenta
			Muted: lipgloss.Color("8"), Accent: lipgloss.Color("14"),
			Success: lipgloss.Color("10"), Error: lipgloss.Color("9"), Pending: lipgloss.Color("11"),
			Border: lipgloss.RoundedBorder(),
			SymOK:  "✔", SymFail: "✖", SymBusy: "◌",
		}
	case "mono":
		return Theme{
			Name:  "mono",
			Title: lipgloss.NoColor{}, Muted: lipgloss.NoColor{}, Accent: lipgloss.NoColor{},
			Success: lipgloss.NoColor{}, Error: lipgloss.NoColor{}, Pending: lipgloss.NoColor{},
			Border: lipgloss.ASCIIBorder(),
			SymOK:  "ok", SymFail: "x", SymBusy: "...",
		}
	default: // classic
		return Theme{
			Name:  "classic",
			Title: lipgloss.NoColor{}, Muted: lipgloss.Color("8"), Accent: lipgloss.Color("12"),
			Success: lipgloss.Color("42"), Error: lipgloss.Color("9"), Pending: lipgloss.Color("214"),
			Border: lipgloss.RoundedBorder(),
			SymOK:  "✔", SymFail: "✖", SymBusy: "•",
		}
	}
}
