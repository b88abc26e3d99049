package diff

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#44C25B"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F25F5C"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6A1BB")).Italic(true)
)

// Colorize styles grouped or unified report lines for a terminal.
func Colorize(report string) string {
	lines := strings.Split(report, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---"):
			lines[i] = metaStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = hunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = addedStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = removedStyle.Render(line)
		case line == NoChanges:
			lines[i] = metaStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
