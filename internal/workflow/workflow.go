// Package workflow drives the archive action for one open thread: loading
// the thread, tracking the selection, asking for a suggestion and confirming
// it.
//
// Every network step is split in three so it fits a single-threaded UI loop:
// StartX mutates the view and hands out a ticket, ticket.Fetch does the I/O
// without touching the view, and ApplyX folds the result back in. ApplyX
// drops results whose view was torn down or superseded.
package workflow

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"threadterm/internal/model"
	"threadterm/internal/selection"
)

// Dialog is the subset of dialog.Service a view needs.
type Dialog interface {
	ListMessages(ctx context.Context, threadUID string) ([]model.Message, error)
	FetchArchivingInstruction(ctx context.Context, threadUID string) (model.Message, error)
	SuggestArchiving(ctx context.Context, threadUID string, orders []int) (model.Message, error)
}

// ArchiveCommitter performs the archive once the user confirms a suggestion.
type ArchiveCommitter interface {
	CommitArchive(ctx context.Context, suggestion model.Message) (model.Message, error)
}

// ArchiveJournal keeps a local record of confirmed archives.
type ArchiveJournal interface {
	RecordArchive(ctx context.Context, rec model.ArchiveRecord) error
}

type Options struct {
	// Committer is optional; without it confirming only acknowledges.
	Committer ArchiveCommitter
	// Journal is optional.
	Journal ArchiveJournal
	Logger  zerolog.Logger
	Now     func() time.Time
}

// Workflow owns the current thread view. Opening a thread tears down the
// previous view so its in-flight results are discarded.
type Workflow struct {
	dialog  Dialog
	opts    Options
	nextID  uint64
	current *View
}

func New(dialog Dialog, opts Options) *Workflow {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Workflow{dialog: dialog, opts: opts}
}

// Open tears down the current view, if any, and starts a fresh one for
// threadUID with an empty selection and incomplete instructions.
func (w *Workflow) Open(threadUID string) (*View, error) {
	if threadUID == "" {
		return nil, errors.Wrap(model.ErrCallerContract, "open: thread uid is required")
	}

	w.Close()

	w.nextID++
	ctx, cancel := context.WithCancel(context.Background())
	v := &View{
		id:        w.nextID,
		threadUID: threadUID,
		wf:        w,
		ctx:       ctx,
		cancel:    cancel,
		selection: selection.New(),
		logger:    w.opts.Logger.With().Str("thread", threadUID).Uint64("view", w.nextID).Logger(),
	}
	w.current = v
	v.logger.Debug().Msg("view opened")
	return v, nil
}

// Current returns the open view or nil.
func (w *Workflow) Current() *View { return w.current }

// Close tears down the current view.
func (w *Workflow) Close() {
	if w.current == nil {
		return
	}
	w.current.teardown()
	w.current = nil
}
