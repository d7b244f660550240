package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"threadterm/internal/stash"
	"threadterm/internal/util"
	"threadterm/internal/workflow"
)

type viewState int

const (
	viewPrompt  viewState = iota // waiting for a thread uid
	viewLoading                  // thread load in flight
	viewThread                   // message list + toolbar
	viewBody                     // single message body
	viewConfirm                  // suggestion awaiting y/n
	viewFailed                   // load failed
)

type Options struct {
	// Thread is opened on start; empty shows the prompt.
	Thread string
	// Stash is optional.
	Stash  *stash.ActivityStash
	Logger zerolog.Logger
	Now    func() time.Time
}

type AppModel struct {
	// Core state
	workflow *workflow.Workflow
	view     *workflow.View
	stash    *stash.ActivityStash
	logger   zerolog.Logger
	now      func() time.Time
	thread   string
	status   string
	// statusSeq tags the status so a late clear does not wipe a newer one.
	statusSeq int

	state     viewState
	prevState viewState

	// Sub-models
	textInput    textinput.Model
	messagesList list.Model
	bodyViewport viewport.Model

	// Layout
	width, height int
}

func NewAppModel(wf *workflow.Workflow, opts Options) AppModel {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ti := textinput.New()
	ti.Placeholder = "thread uid"
	ti.Focus()

	ml := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	// q quits through handleKey; the list must not swallow esc.
	ml.KeyMap.Quit.SetKeys("q")
	ml.SetShowHelp(false)

	return AppModel{
		workflow:     wf,
		stash:        opts.Stash,
		logger:       opts.Logger,
		now:          opts.Now,
		thread:       opts.Thread,
		state:        viewPrompt,
		textInput:    ti,
		messagesList: ml,
		bodyViewport: viewport.New(0, 0),
	}
}

func (m *AppModel) Init() tea.Cmd {
	if m.thread != "" {
		return m.openThread(m.thread)
	}
	return textinput.Blink
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listH := msg.Height - 7 // room for toolbar + footer
		m.messagesList.SetSize(msg.Width, max(listH, 1))
		m.bodyViewport.Width = msg.Width
		m.bodyViewport.Height = msg.Height - 6 // room for header + footer
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case loadedMsg:
		return m.applyLoad(msg.res)

	case suggestedMsg:
		if m.view == nil || !m.view.ApplySuggest(msg.res) {
			return m, nil
		}
		if msg.res.Err != nil {
			m.setStatus(workflow.Describe(msg.res.Err))
			return m, nil
		}
		m.setStatus("")
		m.state = viewConfirm
		return m, nil

	case confirmedMsg:
		return m.applyConfirm(msg.res)

	case statusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	}

	// Delegate to active sub-model
	var cmd tea.Cmd
	switch m.state {
	case viewPrompt:
		m.textInput, cmd = m.textInput.Update(msg)
	case viewThread:
		m.messagesList, cmd = m.messagesList.Update(msg)
	case viewBody:
		m.bodyViewport, cmd = m.bodyViewport.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.state {
	case viewPrompt:
		switch key {
		case "enter":
			uid := strings.TrimSpace(m.textInput.Value())
			if uid == "" {
				return m, nil
			}
			m.textInput.Reset()
			return m, m.openThread(uid)
		case "esc":
			if m.view != nil {
				m.state = m.prevState
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd

	case viewLoading:
		switch key {
		case "q":
			return m, tea.Quit
		case "t":
			return m.promptThread()
		}
		return m, nil

	case viewFailed:
		switch key {
		case "q":
			return m, tea.Quit
		case "r":
			return m, m.reload()
		case "t":
			return m.promptThread()
		}
		return m, nil

	case viewThread:
		// When the list is filtering, let it handle all keys except ctrl+c
		if m.messagesList.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.messagesList, cmd = m.messagesList.Update(msg)
			return m, cmd
		}
		switch key {
		case "q":
			return m, tea.Quit
		case " ":
			return m.toggleSelected()
		case "a":
			return m.archive()
		case "enter":
			return m.enterMessage()
		case "r":
			return m, m.reload()
		case "t":
			return m.promptThread()
		}
		var cmd tea.Cmd
		m.messagesList, cmd = m.messagesList.Update(msg)
		return m, cmd

	case viewBody:
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			m.state = viewThread
			return m, nil
		}
		var cmd tea.Cmd
		m.bodyViewport, cmd = m.bodyViewport.Update(msg)
		return m, cmd

	case viewConfirm:
		switch key {
		case "y", "enter":
			return m.confirm()
		case "n", "esc":
			if !m.view.Cancel() {
				m.setStatus("Archiving in progress, it can no longer be cancelled")
				return m, nil
			}
			m.state = viewThread
			m.setStatus("Archive cancelled")
			return m, m.clearStatusAfter(2 * time.Second)
		}
		return m, nil
	}

	return m, nil
}

// openThread replaces the current view and starts loading the new thread.
func (m *AppModel) openThread(uid string) tea.Cmd {
	m.forgetSelection(m.selectedOrders())

	v, err := m.workflow.Open(uid)
	if err != nil {
		m.setStatus(workflow.Describe(err))
		return nil
	}
	m.view = v
	m.thread = uid
	m.messagesList.SetItems(nil)
	m.messagesList.Title = uid
	return m.reload()
}

func (m *AppModel) reload() tea.Cmd {
	if m.view == nil {
		return nil
	}
	ticket := m.view.StartLoad()
	m.state = viewLoading
	m.setStatus("")
	return func() tea.Msg {
		return loadedMsg{res: ticket.Fetch()}
	}
}

func (m *AppModel) applyLoad(res workflow.LoadResult) (tea.Model, tea.Cmd) {
	if m.view == nil {
		return m, nil
	}
	before := m.selectedOrders()
	if !m.view.ApplyLoad(res) {
		return m, nil
	}

	if m.view.State() == workflow.StateFailed {
		m.state = viewFailed
		m.setStatus(workflow.Describe(m.view.Err()))
		return m, nil
	}

	var dropped []int
	for _, o := range before {
		if !m.view.Selection().Contains(o) {
			dropped = append(dropped, o)
		}
	}
	m.forgetSelection(dropped)

	m.refreshItems()
	m.messagesList.Title = fmt.Sprintf("%s (%d messages)", m.view.ThreadUID(), len(m.view.Messages()))
	m.state = viewThread
	return m, nil
}

func (m *AppModel) promptThread() (tea.Model, tea.Cmd) {
	m.prevState = m.state
	m.state = viewPrompt
	m.textInput.Reset()
	m.textInput.Focus()
	return m, textinput.Blink
}

func (m *AppModel) toggleSelected() (tea.Model, tea.Cmd) {
	item, ok := m.messagesList.SelectedItem().(messageItem)
	if !ok {
		return m, nil
	}
	order := item.msg.Order

	selected, err := m.view.Toggle(order)
	if err != nil {
		m.setStatus(workflow.Describe(err))
		return m, m.clearStatusAfter(2 * time.Second)
	}

	if selected {
		m.rememberSelection(order)
	} else {
		m.forgetSelection([]int{order})
	}
	m.refreshItems()
	return m, nil
}

func (m *AppModel) archive() (tea.Model, tea.Cmd) {
	ticket, err := m.view.StartSuggest()
	if err != nil {
		m.setStatus(workflow.Describe(err))
		return m, m.clearStatusAfter(2 * time.Second)
	}
	m.setStatus(fmt.Sprintf("Asking for an archive of %s...", util.FormatOrders(ticket.Orders())))
	return m, func() tea.Msg {
		return suggestedMsg{res: ticket.Fetch()}
	}
}

func (m *AppModel) confirm() (tea.Model, tea.Cmd) {
	ticket, err := m.view.StartConfirm()
	if err != nil {
		m.setStatus(workflow.Describe(err))
		return m, nil
	}
	m.setStatus("Archiving...")
	return m, func() tea.Msg {
		return confirmedMsg{res: ticket.Fetch()}
	}
}

func (m *AppModel) applyConfirm(res workflow.ConfirmResult) (tea.Model, tea.Cmd) {
	if m.view == nil {
		return m, nil
	}
	before := m.selectedOrders()
	if !m.view.ApplyConfirm(res) {
		return m, nil
	}
	if res.Err != nil {
		m.setStatus(workflow.Describe(res.Err))
		return m, nil
	}

	m.forgetSelection(before)
	m.refreshItems()
	m.state = viewThread
	status := fmt.Sprintf("Archived %s", util.FormatOrders(res.Ack.Suggestion.ArchiveFor))
	if res.Ack.JournalErr != nil {
		status += " (not recorded locally: " + res.Ack.JournalErr.Error() + ")"
	}
	m.setStatus(status)
	return m, m.clearStatusAfter(3 * time.Second)
}

func (m *AppModel) enterMessage() (tea.Model, tea.Cmd) {
	item, ok := m.messagesList.SelectedItem().(messageItem)
	if !ok {
		return m, nil
	}
	m.bodyViewport.SetContent(bodyHeader(item.msg) + "\n\n" + item.msg.Text)
	m.bodyViewport.GotoTop()
	m.state = viewBody
	return m, nil
}

func (m *AppModel) refreshItems() {
	if m.view == nil {
		return
	}
	m.messagesList.SetItems(messageItems(m.view.Messages(), m.view.Selection(), m.selectionStart, m.now()))
}

func (m *AppModel) selectedOrders() []int {
	if m.view == nil {
		return nil
	}
	return m.view.Selection().Orders()
}

func (m *AppModel) stashID(order int) string {
	return fmt.Sprintf("%s/%d", m.view.ThreadUID(), order)
}

func (m *AppModel) selectionStart(order int) (time.Time, bool) {
	if m.stash == nil {
		return time.Time{}, false
	}
	at, ok, err := m.stash.SelectStart(m.stashID(order))
	if err != nil {
		m.logger.Warn().Err(err).Int("order", order).Msg("read selection start")
		return time.Time{}, false
	}
	return at, ok
}

func (m *AppModel) rememberSelection(order int) {
	if m.stash == nil {
		return
	}
	err := m.stash.AddSelectStart(m.stashID(order), m.now())
	if err != nil && !errors.Is(err, stash.ErrAlreadyStarted) {
		m.logger.Warn().Err(err).Int("order", order).Msg("stash selection start")
	}
}

func (m *AppModel) forgetSelection(orders []int) {
	if m.stash == nil || m.view == nil {
		return
	}
	for _, o := range orders {
		if err := m.stash.RemoveSelectStart(m.stashID(o)); err != nil {
			m.logger.Warn().Err(err).Int("order", o).Msg("clear selection start")
		}
	}
}

func (m *AppModel) setStatus(s string) {
	m.status = s
	m.statusSeq++
}

// clearStatusAfter clears the current status after d unless it has been
// replaced by then.
func (m *AppModel) clearStatusAfter(d time.Duration) tea.Cmd {
	seq := m.statusSeq
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusMsg{seq: seq}
	})
}

// View renders the appropriate view based on current state.
func (m *AppModel) View() string {
	var b strings.Builder

	switch m.state {
	case viewPrompt:
		b.WriteString("Open thread:\n\n")
		b.WriteString(m.textInput.View())
		if m.view != nil {
			b.WriteString("\n\n")
			b.WriteString(footerStyle.Render("enter: open  esc: back"))
		}
	case viewLoading:
		b.WriteString(toolbar(m.view))
		b.WriteString("\nLoading ")
		b.WriteString(m.thread)
		b.WriteString("...\n")
	case viewFailed:
		b.WriteString(toolbar(m.view))
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Could not load " + m.thread))
		b.WriteString("\n")
		b.WriteString(footerStyle.Render("r: retry  t: thread  q: quit"))
	case viewThread:
		b.WriteString(toolbar(m.view))
		b.WriteString("\n")
		b.WriteString(m.messagesList.View())
		b.WriteString("\n")
		b.WriteString(threadFooter())
	case viewBody:
		b.WriteString(m.bodyViewport.View())
		b.WriteString("\n")
		b.WriteString(bodyFooter())
	case viewConfirm:
		b.WriteString(confirmView(m.view))
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
	}

	return b.String()
}
