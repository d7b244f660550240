// Package dialog holds the thread-scoped operations the client performs
// against the dialog backend.
package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"threadterm/internal/model"
)

// Requester is the transport the service runs on. backend.Connector
// implements it.
type Requester interface {
	Read(ctx context.Context, route string, query url.Values) (json.RawMessage, error)
	Write(ctx context.Context, route string, body any) (json.RawMessage, error)
}

type Service struct {
	requester Requester
	logger    zerolog.Logger
}

func NewService(requester Requester, logger zerolog.Logger) *Service {
	return &Service{
		requester: requester,
		logger:    logger.With().Str("component", "dialog").Logger(),
	}
}

func threadRoute(threadUID string, parts ...string) string {
	route := "/threads/" + url.PathEscape(threadUID)
	for _, p := range parts {
		route += "/" + p
	}
	return route
}

func requireThread(threadUID string) error {
	if threadUID == "" {
		return errors.Wrap(model.ErrCallerContract, "thread uid is required")
	}
	return nil
}

// ListMessages returns the thread's messages in the order the server sent
// them. The server is trusted to send ascending orders; a list that is not
// strictly ascending is rejected rather than re-sorted.
func (s *Service) ListMessages(ctx context.Context, threadUID string) ([]model.Message, error) {
	if err := requireThread(threadUID); err != nil {
		return nil, err
	}

	raw, err := s.requester.Read(ctx, threadRoute(threadUID, "messages"), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "list messages of %s", threadUID)
	}

	msgs, err := model.DecodeMessages(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "list messages of %s", threadUID)
	}

	for i := 1; i < len(msgs); i++ {
		if msgs[i].Order <= msgs[i-1].Order {
			return nil, errors.Wrapf(model.ErrMalformedPayload,
				"list messages of %s: order %d follows %d", threadUID, msgs[i].Order, msgs[i-1].Order)
		}
	}

	s.logger.Debug().Str("thread", threadUID).Int("count", len(msgs)).Msg("listed messages")
	return msgs, nil
}

// GetMessage fetches a single message by order.
func (s *Service) GetMessage(ctx context.Context, threadUID string, order int) (model.Message, error) {
	if err := requireThread(threadUID); err != nil {
		return model.Message{}, err
	}

	raw, err := s.requester.Read(ctx, threadRoute(threadUID, "messages", strconv.Itoa(order)), nil)
	if err != nil {
		return model.Message{}, errors.Wrapf(err, "get message %d of %s", order, threadUID)
	}

	m, err := model.DecodeMessage(raw)
	if err != nil {
		return model.Message{}, errors.Wrapf(err, "get message %d of %s", order, threadUID)
	}
	return m, nil
}

// FetchArchivingInstruction returns the system message shown before any
// selection is made.
func (s *Service) FetchArchivingInstruction(ctx context.Context, threadUID string) (model.Message, error) {
	if err := requireThread(threadUID); err != nil {
		return model.Message{}, err
	}

	raw, err := s.requester.Read(ctx, threadRoute(threadUID, "instructions", "archiving"), nil)
	if err != nil {
		return model.Message{}, errors.Wrapf(err, "archiving instruction of %s", threadUID)
	}

	m, err := model.DecodeMessage(raw)
	if err != nil {
		return model.Message{}, errors.Wrapf(err, "archiving instruction of %s", threadUID)
	}
	return m, nil
}

// SuggestArchiving asks the server to propose an archive of the given orders.
// The returned message always targets exactly orders: an empty archive_for is
// filled in, a mismatching one is rejected.
func (s *Service) SuggestArchiving(ctx context.Context, threadUID string, orders []int) (model.Message, error) {
	if err := requireThread(threadUID); err != nil {
		return model.Message{}, err
	}
	if len(orders) == 0 {
		return model.Message{}, errors.Wrap(model.ErrCallerContract, "suggest archiving: selection is empty")
	}

	query := url.Values{}
	for _, o := range orders {
		query.Add("messages_orders", strconv.Itoa(o))
	}

	raw, err := s.requester.Read(ctx, threadRoute(threadUID, "archives", "suggest"), query)
	if err != nil {
		return model.Message{}, errors.Wrapf(err, "suggest archiving for %s", threadUID)
	}

	m, err := model.DecodeMessage(raw)
	if err != nil {
		return model.Message{}, errors.Wrapf(err, "suggest archiving for %s", threadUID)
	}

	if !m.IsArchiveSuggestion() {
		return m.WithArchiveFor(orders), nil
	}
	if !sameSet(m.ArchiveFor, orders) {
		return model.Message{}, errors.Wrapf(model.ErrMalformedPayload,
			"suggest archiving for %s: suggestion targets %v, selection was %v", threadUID, m.ArchiveFor, orders)
	}
	return m, nil
}

// PersistMessages stores msgs on the server and returns what it confirmed.
// All messages must belong to the same thread.
func (s *Service) PersistMessages(ctx context.Context, msgs []model.Message) ([]model.Message, error) {
	if len(msgs) == 0 {
		return nil, errors.Wrap(model.ErrCallerContract, "persist messages: batch is empty")
	}

	threadUID := msgs[0].ThreadUID
	if err := requireThread(threadUID); err != nil {
		return nil, err
	}
	for _, m := range msgs[1:] {
		if m.ThreadUID != threadUID {
			return nil, errors.Wrapf(model.ErrCallerContract,
				"persist messages: batch mixes threads %q and %q", threadUID, m.ThreadUID)
		}
	}

	raw, err := s.requester.Write(ctx, threadRoute(threadUID, "messages"), model.EncodeMessages(msgs))
	if err != nil {
		return nil, errors.Wrapf(err, "persist messages to %s", threadUID)
	}

	confirmed, err := model.DecodeMessages(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "persist messages to %s", threadUID)
	}

	s.logger.Info().Str("thread", threadUID).Int("count", len(confirmed)).Msg("persisted messages")
	return confirmed, nil
}

// CommitArchive sends a confirmed suggestion to the server's archive
// endpoint and returns the stored archive message.
func (s *Service) CommitArchive(ctx context.Context, suggestion model.Message) (model.Message, error) {
	if err := requireThread(suggestion.ThreadUID); err != nil {
		return model.Message{}, err
	}
	if !suggestion.IsArchiveSuggestion() {
		return model.Message{}, errors.Wrap(model.ErrCallerContract, "commit archive: message targets nothing")
	}

	raw, err := s.requester.Write(ctx, threadRoute(suggestion.ThreadUID, "archives"), suggestion.Payload())
	if err != nil {
		return model.Message{}, errors.Wrapf(err, "commit archive to %s", suggestion.ThreadUID)
	}

	m, err := model.DecodeMessage(raw)
	if err != nil {
		return model.Message{}, errors.Wrapf(err, "commit archive to %s", suggestion.ThreadUID)
	}

	s.logger.Info().
		Str("thread", suggestion.ThreadUID).
		Str("targets", fmt.Sprint(m.ArchiveFor)).
		Msg("archive committed")
	return m, nil
}

func sameSet(a, b []int) bool {
	as := slices.Compact(slices.Sorted(slices.Values(a)))
	bs := slices.Compact(slices.Sorted(slices.Values(b)))
	return slices.Equal(as, bs)
}
