package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"

	"threadterm/internal/model"
	"threadterm/internal/selection"
	"threadterm/internal/util"
)

// messageItem wraps a thread message for the list display.
type messageItem struct {
	msg      model.Message
	selected bool
	since    string
}

func (m messageItem) FilterValue() string { return m.msg.Text }
func (m messageItem) Title() string {
	box := "[ ]"
	if m.selected {
		box = "[x]"
	}
	return fmt.Sprintf("%s #%d %s", box, m.msg.Order, m.msg.Role)
}
func (m messageItem) Description() string {
	preview := model.Message{Text: util.FirstLine(m.msg.Text)}.Preview(72)
	if m.since != "" {
		return preview + "  (selected " + m.since + ")"
	}
	return preview
}

// startLookup returns when an order was selected, if known.
type startLookup func(order int) (time.Time, bool)

func messageItems(msgs []model.Message, sel *selection.Selection, started startLookup, now time.Time) []list.Item {
	items := make([]list.Item, len(msgs))
	for i, msg := range msgs {
		item := messageItem{msg: msg, selected: sel.Contains(msg.Order)}
		if item.selected && started != nil {
			if at, ok := started(msg.Order); ok {
				item.since = humanize.RelTime(at, now, "ago", "from now")
			}
		}
		items[i] = item
	}
	return items
}

func threadFooter() string {
	return footerStyle.Render("space: select  a: archive  enter: view  r: reload  t: thread  q: quit")
}
