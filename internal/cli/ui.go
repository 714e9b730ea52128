package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
	cyanStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// panel draws body in a rounded box with an optional bold title line.
func panel(title, body string, border lipgloss.Color) string {
	if title != "" {
		body = boldStyle.Render(title) + "\n" + body
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Render(strings.TrimRight(body, "\n"))
}

// banner is the framed heading every command starts with.
func banner(title, subtitle string) string {
	return panel("", titleStyle.Render(title)+"\n"+subtitle, lipgloss.Color("12"))
}

// renderTable draws rows under headers. Columns listed in centered are centered.
func renderTable(title string, headers []string, rows [][]string, centered ...int) string {
	center := make(map[int]bool, len(centered))
	for _, c := range centered {
		center[c] = true
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := cellStyle
			if row == table.HeaderRow {
				s = headerStyle
			}
			if center[col] {
				s = s.Align(lipgloss.Center)
			}
			return s
		})
	out := t.Render()
	if title != "" {
		out = boldStyle.Render(title) + "\n" + out
	}
	return out
}

func check(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

// markdown renders replies through glamour when enabled and writing to a terminal.
type markdown struct {
	renderer *glamour.TermRenderer
}

func newMarkdown(enabled bool, f *os.File) *markdown {
	if !enabled || !term.IsTerminal(int(f.Fd())) {
		return &markdown{}
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width-4))
	if err != nil {
		return &markdown{}
	}
	return &markdown{renderer: r}
}

// Render returns text unchanged when markdown rendering is off or fails.
func (m *markdown) Render(text string) string {
	if m == nil || m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
