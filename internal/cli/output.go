package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"

	"threadterm/internal/model"
	"threadterm/internal/util"
)

var (
	styleDim         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleTableHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	styleSuccess     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleLabel       = styleDim
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type printer struct {
	out    io.Writer
	format string
	now    func() time.Time
}

func newPrinter(out io.Writer, format string) (printer, error) {
	switch format {
	case formatText, formatJSON, formatYAML:
		return printer{out: out, format: format, now: time.Now}, nil
	}
	return printer{}, errors.Errorf("unknown output format %q (want text, json or yaml)", format)
}

// structured writes v as json or yaml and reports whether it did.
func (p printer) structured(v any) (bool, error) {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case formatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return true, errors.Wrap(err, "encode yaml")
		}
		_, err = p.out.Write(data)
		return true, err
	}
	return false, nil
}

func (p printer) messages(msgs []model.Message) error {
	if done, err := p.structured(model.EncodeMessages(msgs)); done {
		return err
	}
	if len(msgs) == 0 {
		_, err := fmt.Fprintln(p.out, styleDim.Render("No messages."))
		return err
	}

	t := table.New().
		Headers("ORDER", "ROLE", "TEXT", "ARCHIVES").
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
	for _, m := range msgs {
		t.Row(strconv.Itoa(m.Order), string(m.Role), model.Message{Text: util.FirstLine(m.Text)}.Preview(60), util.FormatOrders(m.ArchiveFor))
	}
	_, err := fmt.Fprintln(p.out, t.Render())
	return err
}

func (p printer) message(m model.Message) error {
	if done, err := p.structured(m.Payload()); done {
		return err
	}
	var b strings.Builder
	b.WriteString(kvLine("thread", m.ThreadUID) + "\n")
	b.WriteString(kvLine("order", strconv.Itoa(m.Order)) + "\n")
	b.WriteString(kvLine("role", string(m.Role)) + "\n")
	if m.IsArchiveSuggestion() {
		b.WriteString(kvLine("archives", util.FormatOrders(m.ArchiveFor)) + "\n")
	}
	b.WriteString("\n" + m.Text + "\n")
	_, err := io.WriteString(p.out, b.String())
	return err
}

func (p printer) archives(recs []model.ArchiveRecord) error {
	if recs == nil {
		recs = []model.ArchiveRecord{}
	}
	if done, err := p.structured(recs); done {
		return err
	}
	if len(recs) == 0 {
		_, err := fmt.Fprintln(p.out, styleDim.Render("No archives recorded."))
		return err
	}

	t := table.New().
		Headers("THREAD", "ORDERS", "CONFIRMED", "TEXT").
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(true).
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
	now := p.now()
	for _, r := range recs {
		t.Row(r.ThreadUID, util.FormatOrders(r.Orders), humanize.RelTime(r.ConfirmedAt, now, "ago", "from now"),
			model.Message{Text: util.FirstLine(r.Text)}.Preview(50))
	}
	_, err := fmt.Fprintln(p.out, t.Render())
	return err
}

func (p printer) line(s string) error {
	if p.format != formatText {
		return nil
	}
	_, err := fmt.Fprintln(p.out, s)
	return err
}

func kvLine(key, value string) string {
	return fmt.Sprintf("  %s %s", styleLabel.Render(key+":"), value)
}
