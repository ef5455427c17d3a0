package bubbletea

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderSidebar renders the conversation list, newest first, with the
// active conversation highlighted.
func (m Model) renderSidebar(height int) string {
	var b strings.Builder
	b.WriteString(m.styles.Accent.Render("Conversations"))
	b.WriteString("\n\n")

	summaries := m.machine.Summaries()
	if len(summaries) == 0 {
		b.WriteString(m.styles.Muted.Render("(none yet)"))
	}

	active := m.machine.ActiveID()
	for _, s := range summaries {
		title := truncateTitle(s.Title, sidebarWidth-2)
		if s.ID == active {
			b.WriteString(m.styles.Selected.Render("▌ " + title))
		} else {
			b.WriteString("  " + title)
		}
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(sidebarWidth).
		Height(height).
		MarginRight(1).
		Render(b.String())
}

func truncateTitle(title string, limit int) string {
	runes := []rune(title)
	if len(runes) <= limit {
		return title
	}
	return string(runes[:limit-1]) + "…"
}
