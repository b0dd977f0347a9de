package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes one-shot command output (outside the TUI) in the theme.
type Printer struct {
	Out, Err io.Writer
	st       styles
	theme    Theme
}

func NewPrinter(out, errw io.Writer, theme Theme) *Printer {
	return &Printer{Out: out, Err: errw, st: newStyles(theme), theme: theme}
}

func (p *Printer) OK(msg string) {
	fmt.Fprintln(p.Out, p.st.success.Render(p.theme.SymOK+" "+msg))
}

func (p *Printer) Fail(msg string) {
	fmt.Fprintln(p.Err, p.st.errorS.Render(p.theme.SymFail+" "+msg))
}

// Panel draws a framed box around lines.
func (p *Printer) Panel(lines []string) {
	fmt.Fprintln(p.Out, p.st.panel.Render(strings.Join(lines, "\n")))
}

// Field renders a "label  value" row for panels.
func (p *Printer) Field(label, value string) string {
	return p.st.muted.Render(fmt.Sprintf("%-8s", label)) + " " + value
}

func (p *Printer) Title(s string) string { return p.st.title.Render(s) }

// panelLines frames lines and pads the result to exactly height rows.
func panelLines(st lipgloss.Style, title string, body string, width, height int) []string {
	box := st.Width(max(0, width-2)).Render(title + "\n" + body)
	lines := strings.Split(box, "\n")
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lines
}
