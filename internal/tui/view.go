package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.state == stateAddHabit && m.form != nil {
		return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("New habit"),
			m.form.View(),
			mutedStyle.Render("esc to cancel"),
		))
	}

	var content string
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		content = "\n  No active habits.\n  Press 'a' to add one.\n"
	} else {
		content = m.list.View()
	}

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.viewHeader(),
		content,
		m.viewStatus(),
		m.help.View(m),
	))
}

func (m Model) viewHeader() string {
	met, total := 0, 0
	for _, it := range m.list.Items() {
		if i, ok := it.(item); ok {
			total++
			if i.status.IsMet {
				met++
			}
		}
	}
	summary := fmt.Sprintf("%d/%d met", met, total)
	if total > 0 && met == total {
		summary = doneStyle.Render(summary)
	} else {
		summary = mutedStyle.Render(summary)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, titleStyle.Render("Today "+m.day), " ", summary)
}

func (m Model) viewStatus() string {
	if m.err != nil {
		return dangerStyle.Render("✗ " + m.err.Error())
	}
	if m.status != "" {
		return warningStyle.Render(m.status)
	}
	return ""
}
