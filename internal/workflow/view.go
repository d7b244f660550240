package workflow

import (
	"context"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"threadterm/internal/model"
	"threadterm/internal/selection"
)

type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateReady
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// View is one thread as the user sees it: its messages, its instructions and
// the user's selection.
type View struct {
	id        uint64
	threadUID string
	wf        *Workflow
	ctx       context.Context
	cancel    context.CancelFunc
	closed    bool
	logger    zerolog.Logger

	selection    *selection.Selection
	messages     []model.Message
	instructions model.Instructions
	state        LoadState
	loadErr      error

	loadSeq    uint64
	suggestSeq uint64
	confirmSeq uint64
	suggesting bool
	confirming bool
	pending    *model.Message
}

func (v *View) ThreadUID() string { return v.threadUID }

// Selection is shared with the message list and the toolbar. Prefer
// Toggle, which checks the order against the loaded messages.
func (v *View) Selection() *selection.Selection { return v.selection }

func (v *View) Messages() []model.Message {
	out := make([]model.Message, len(v.messages))
	for i, m := range v.messages {
		out[i] = m.Clone()
	}
	return out
}

func (v *View) Instructions() model.Instructions { return v.instructions }
func (v *View) State() LoadState                 { return v.state }
func (v *View) Err() error                       { return v.loadErr }
func (v *View) Closed() bool                     { return v.closed }

// Pending returns the suggestion awaiting confirmation.
func (v *View) Pending() (model.Message, bool) {
	if v.pending == nil {
		return model.Message{}, false
	}
	return v.pending.Clone(), true
}

// Busy reports whether a suggestion is being fetched, awaits confirmation or
// is being committed.
func (v *View) Busy() bool {
	return v.suggesting || v.confirming || v.pending != nil
}

// CanArchive reports whether the archive action is available.
func (v *View) CanArchive() bool {
	return v.live() &&
		v.state == StateReady &&
		v.instructions.IsComplete() &&
		!v.selection.Empty() &&
		!v.Busy()
}

func (v *View) live() bool {
	return !v.closed && v.wf.current == v
}

func (v *View) teardown() {
	if v.closed {
		return
	}
	v.closed = true
	v.cancel()
	v.selection.Clear()
	v.pending = nil
	v.suggesting = false
	v.confirming = false
	v.logger.Debug().Msg("view torn down")
}

func (v *View) hasOrder(order int) bool {
	_, found := slices.BinarySearchFunc(v.messages, order, func(m model.Message, o int) int {
		return m.Order - o
	})
	return found
}

// Toggle flips the selection of order. Orders not in the loaded list, and
// any change while a suggestion is in progress, are rejected.
func (v *View) Toggle(order int) (bool, error) {
	if !v.live() {
		return false, errors.Wrap(model.ErrCallerContract, "toggle: view is closed")
	}
	if v.Busy() {
		return false, errors.Wrap(model.ErrCallerContract, "toggle: finish or cancel the pending archive first")
	}
	if !v.hasOrder(order) {
		return false, errors.Wrapf(model.ErrCallerContract, "toggle: no message %d in thread %s", order, v.threadUID)
	}
	return v.selection.Toggle(order), nil
}

// LoadTicket identifies one load of the view.
type LoadTicket struct {
	view *View
	seq  uint64
}

type LoadResult struct {
	ticket      LoadTicket
	Messages    []model.Message
	Instruction model.Message
	Err         error
}

// View returns the view the result belongs to.
func (r LoadResult) View() *View { return r.ticket.view }

// StartLoad marks the view as loading. Any earlier load still in flight
// becomes stale.
func (v *View) StartLoad() LoadTicket {
	v.loadSeq++
	v.state = StateLoading
	v.loadErr = nil
	return LoadTicket{view: v, seq: v.loadSeq}
}

// Fetch loads the message list and the archiving instruction concurrently
// and waits for both.
func (t LoadTicket) Fetch() LoadResult {
	v := t.view
	res := LoadResult{ticket: t}

	g, ctx := errgroup.WithContext(v.ctx)
	g.Go(func() error {
		msgs, err := v.wf.dialog.ListMessages(ctx, v.threadUID)
		res.Messages = msgs
		return err
	})
	g.Go(func() error {
		instr, err := v.wf.dialog.FetchArchivingInstruction(ctx, v.threadUID)
		res.Instruction = instr
		return err
	})
	res.Err = g.Wait()
	return res
}

// ApplyLoad folds a load result into the view. It returns false, changing
// nothing, when the result is stale.
func (v *View) ApplyLoad(res LoadResult) bool {
	if res.ticket.view != v || !v.live() || res.ticket.seq != v.loadSeq {
		v.logger.Debug().Uint64("seq", res.ticket.seq).Msg("dropping stale load result")
		return false
	}

	if res.Err != nil {
		v.state = StateFailed
		v.loadErr = res.Err
		v.logger.Error().Err(res.Err).Msg("thread load failed")
		return true
	}

	v.messages = res.Messages
	v.instructions = model.NewInstructions(res.Instruction)
	v.state = StateReady

	orders := make([]int, len(v.messages))
	for i, m := range v.messages {
		orders[i] = m.Order
	}
	if dropped := v.selection.Prune(orders); len(dropped) > 0 {
		v.logger.Info().Ints("orders", dropped).Msg("pruned stale selection")
		v.dropSuggestionFor(dropped)
	}

	v.logger.Debug().Int("messages", len(v.messages)).Msg("thread loaded")
	return true
}

// dropSuggestionFor discards a suggestion, pending or in flight, that
// targets any of the given orders. A commit already under way is left alone.
func (v *View) dropSuggestionFor(orders []int) {
	if v.confirming {
		return
	}
	if v.suggesting {
		// The selection is frozen while suggesting, so the request targets orders.
		v.suggestSeq++
		v.suggesting = false
		v.logger.Info().Msg("suggestion in flight dropped by reload")
	}
	if v.pending != nil && slices.ContainsFunc(v.pending.ArchiveFor, func(o int) bool {
		return slices.Contains(orders, o)
	}) {
		v.pending = nil
		v.logger.Info().Ints("orders", orders).Msg("pending suggestion dropped by reload")
	}
}

type SuggestTicket struct {
	view   *View
	seq    uint64
	orders []int
}

// Orders is the selection snapshot the suggestion is requested for.
func (t SuggestTicket) Orders() []int { return slices.Clone(t.orders) }

type SuggestResult struct {
	ticket     SuggestTicket
	Suggestion model.Message
	Err        error
}

func (r SuggestResult) View() *View { return r.ticket.view }

// StartSuggest snapshots the selection for an archive suggestion. It fails
// with ErrCallerContract when the archive action is not available.
func (v *View) StartSuggest() (SuggestTicket, error) {
	if !v.CanArchive() {
		return SuggestTicket{}, errors.Wrap(model.ErrCallerContract, v.archiveBlocker())
	}
	v.suggestSeq++
	v.suggesting = true
	return SuggestTicket{view: v, seq: v.suggestSeq, orders: v.selection.Orders()}, nil
}

func (v *View) archiveBlocker() string {
	switch {
	case !v.live():
		return "archive: view is closed"
	case v.state != StateReady || !v.instructions.IsComplete():
		return "archive: thread is not loaded yet"
	case v.selection.Empty():
		return "archive: no messages selected"
	default:
		return "archive: another archive is in progress"
	}
}

func (t SuggestTicket) Fetch() SuggestResult {
	v := t.view
	m, err := v.wf.dialog.SuggestArchiving(v.ctx, v.threadUID, t.orders)
	return SuggestResult{ticket: t, Suggestion: m, Err: err}
}

// ApplySuggest stores a fetched suggestion as pending. Nothing else in the
// view changes; a failed suggestion leaves the view as it was.
func (v *View) ApplySuggest(res SuggestResult) bool {
	if res.ticket.view != v || !v.live() || !v.suggesting || res.ticket.seq != v.suggestSeq {
		v.logger.Debug().Uint64("seq", res.ticket.seq).Msg("dropping stale suggestion")
		return false
	}

	v.suggesting = false
	if res.Err != nil {
		v.logger.Error().Err(res.Err).Ints("orders", res.ticket.orders).Msg("archive suggestion failed")
		return true
	}

	m := res.Suggestion.Clone()
	v.pending = &m
	v.logger.Info().Ints("orders", m.ArchiveFor).Msg("archive suggestion ready")
	return true
}

// Cancel rejects the pending suggestion, or abandons one still in flight.
// The selection and the messages are left untouched.
func (v *View) Cancel() bool {
	if v.confirming {
		return false
	}
	changed := v.pending != nil || v.suggesting
	if v.suggesting {
		v.suggestSeq++
		v.suggesting = false
	}
	v.pending = nil
	if changed {
		v.logger.Info().Msg("archive cancelled")
	}
	return changed
}

// Acknowledgement describes a confirmed archive.
type Acknowledgement struct {
	Suggestion model.Message
	// Committed is the server's archive message; nil without a committer.
	Committed   *model.Message
	ConfirmedAt time.Time
	// JournalErr is set when the archive went through but could not be
	// recorded locally.
	JournalErr error
}

type ConfirmTicket struct {
	view       *View
	seq        uint64
	suggestion model.Message
}

type ConfirmResult struct {
	ticket ConfirmTicket
	Ack    Acknowledgement
	Err    error
}

func (r ConfirmResult) View() *View { return r.ticket.view }

// StartConfirm begins committing the pending suggestion.
func (v *View) StartConfirm() (ConfirmTicket, error) {
	if !v.live() {
		return ConfirmTicket{}, errors.Wrap(model.ErrCallerContract, "confirm: view is closed")
	}
	if v.pending == nil {
		return ConfirmTicket{}, errors.Wrap(model.ErrCallerContract, "confirm: no suggestion to confirm")
	}
	if v.confirming {
		return ConfirmTicket{}, errors.Wrap(model.ErrCallerContract, "confirm: already confirming")
	}
	v.confirmSeq++
	v.confirming = true
	return ConfirmTicket{view: v, seq: v.confirmSeq, suggestion: v.pending.Clone()}, nil
}

func (t ConfirmTicket) Fetch() ConfirmResult {
	v := t.view
	opts := v.wf.opts
	res := ConfirmResult{ticket: t, Ack: Acknowledgement{Suggestion: t.suggestion}}

	if opts.Committer != nil {
		committed, err := opts.Committer.CommitArchive(v.ctx, t.suggestion)
		if err != nil {
			res.Err = err
			return res
		}
		res.Ack.Committed = &committed
	}

	res.Ack.ConfirmedAt = opts.Now()
	if opts.Journal != nil {
		res.Ack.JournalErr = opts.Journal.RecordArchive(v.ctx, model.ArchiveRecord{
			ThreadUID:   v.threadUID,
			Orders:      slices.Clone(t.suggestion.ArchiveFor),
			Text:        t.suggestion.Text,
			ConfirmedAt: res.Ack.ConfirmedAt,
		})
	}
	return res
}

// ApplyConfirm finishes a confirmation. On success the pending suggestion
// and the selection are cleared; on failure both are kept for a retry.
func (v *View) ApplyConfirm(res ConfirmResult) bool {
	if res.ticket.view != v || !v.live() || !v.confirming || res.ticket.seq != v.confirmSeq {
		v.logger.Debug().Uint64("seq", res.ticket.seq).Msg("dropping stale confirmation")
		return false
	}

	v.confirming = false
	if res.Err != nil {
		v.logger.Error().Err(res.Err).Msg("archive commit failed")
		return true
	}

	if res.Ack.JournalErr != nil {
		v.logger.Warn().Err(res.Ack.JournalErr).Msg("archive not recorded in journal")
	}
	v.pending = nil
	v.selection.Clear()
	v.logger.Info().Ints("orders", res.Ack.Suggestion.ArchiveFor).Msg("archive confirmed")
	return true
}

// Reload runs a full load synchronously.
func (v *View) Reload() error {
	res := v.StartLoad().Fetch()
	if !v.ApplyLoad(res) {
		return errors.Wrap(context.Canceled, "reload: view was replaced")
	}
	return res.Err
}

// Suggest runs a suggestion synchronously and returns the pending message.
func (v *View) Suggest() (model.Message, error) {
	t, err := v.StartSuggest()
	if err != nil {
		return model.Message{}, err
	}
	res := t.Fetch()
	if !v.ApplySuggest(res) {
		return model.Message{}, errors.Wrap(context.Canceled, "suggest: view was replaced")
	}
	return res.Suggestion, res.Err
}

// Confirm commits the pending suggestion synchronously.
func (v *View) Confirm() (Acknowledgement, error) {
	t, err := v.StartConfirm()
	if err != nil {
		return Acknowledgement{}, err
	}
	res := t.Fetch()
	if !v.ApplyConfirm(res) {
		return Acknowledgement{}, errors.Wrap(context.Canceled, "confirm: view was replaced")
	}
	return res.Ack, res.Err
}
