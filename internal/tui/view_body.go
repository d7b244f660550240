package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"threadterm/internal/model"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("39")).
	PaddingBottom(1)

func bodyHeader(m model.Message) string {
	return headerStyle.Render(fmt.Sprintf("Thread: %s\nMessage: #%d\nRole: %s", m.ThreadUID, m.Order, m.Role))
}

func bodyFooter() string {
	return footerStyle.Render("esc: back  q: quit")
}
