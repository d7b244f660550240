package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"threadterm/internal/util"
	"threadterm/internal/workflow"
)

var (
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingTop(1)

	toolbarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color("241"))

	enabledStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pendingStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)
)

// toolbar shows the archiving instruction and whether archiving is possible.
// It stays on "loading..." until the instruction has arrived.
func toolbar(v *workflow.View) string {
	if v == nil {
		return toolbarStyle.Render("no thread")
	}

	instruction, ok := v.Instructions().Archiving()
	if !ok {
		return toolbarStyle.Render(fmt.Sprintf("%s  loading...", v.ThreadUID()))
	}

	sel := v.Selection()
	selected := "nothing selected"
	if !sel.Empty() {
		selected = "selected " + util.FormatOrders(sel.Orders())
	}

	action := disabledStyle.Render("a: archive")
	if v.CanArchive() {
		action = enabledStyle.Render("a: archive")
	}

	return toolbarStyle.Render(fmt.Sprintf("%s  %s\n%s  %s",
		v.ThreadUID(), instruction.Preview(60), selected, action))
}

func confirmView(v *workflow.View) string {
	pending, ok := v.Pending()
	if !ok {
		return "No suggestion pending.\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Archive messages %s of %s?", util.FormatOrders(pending.ArchiveFor), v.ThreadUID())))
	b.WriteString("\n")
	b.WriteString(pendingStyle.Render(pending.Text))
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("y: confirm  n: cancel"))
	return b.String()
}
