package devserver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"threadterm/internal/model"
)

// Suggester writes the archive message for a set of messages. background
// holds the messages of the thread that precede the first target.
type Suggester interface {
	Suggest(ctx context.Context, instruction model.Message, background, targets []model.Message) (model.Message, error)
}

// MockSuggester produces a placeholder text instead of calling a model.
type MockSuggester struct{}

func (MockSuggester) Suggest(ctx context.Context, instruction model.Message, background, targets []model.Message) (model.Message, error) {
	if len(targets) == 0 {
		return model.Message{}, errors.Wrap(ErrInvalid, "nothing to archive")
	}

	orders := make([]int, len(targets))
	labels := make([]string, len(targets))
	for i, m := range targets {
		orders[i] = m.Order
		labels[i] = strconv.Itoa(m.Order)
	}

	return model.Message{
		ThreadUID:  targets[0].ThreadUID,
		Order:      targets[0].Order,
		Role:       model.RoleAssistant,
		Text:       fmt.Sprintf("Some generated %s for [%s]", uuid.NewString(), strings.Join(labels, ", ")),
		ArchiveFor: orders,
	}, nil
}
