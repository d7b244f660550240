// Package stash remembers when the user started selecting each message, so
// the thread view can show how long a selection has been open. The storage
// is injected; callers choose a Backend explicitly.
package stash

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Backend is a string key/value store.
type Backend interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
}

const (
	selectStartKey     = "SELECT_ACTIVITY_START_HASH_KEY"
	selectStartDefault = "{}"
)

var ErrAlreadyStarted = errors.New("selection already started")

// ActivityStash keeps selection start times keyed by activity id. It is safe
// for concurrent use as long as it is the only writer to its backend.
type ActivityStash struct {
	mu      sync.Mutex
	backend Backend
}

// New seeds missing keys with their defaults.
func New(backend Backend) (*ActivityStash, error) {
	_, ok, err := backend.GetItem(selectStartKey)
	if err != nil {
		return nil, errors.Wrap(err, "read stash")
	}
	if !ok {
		if err := backend.SetItem(selectStartKey, selectStartDefault); err != nil {
			return nil, errors.Wrap(err, "seed stash")
		}
	}
	return &ActivityStash{backend: backend}, nil
}

func (s *ActivityStash) load() (map[string]string, error) {
	raw, ok, err := s.backend.GetItem(selectStartKey)
	if err != nil {
		return nil, errors.Wrap(err, "read stash")
	}
	starts := map[string]string{}
	if !ok || raw == "" || raw == "null" {
		return starts, nil
	}
	if err := json.Unmarshal([]byte(raw), &starts); err != nil {
		return nil, errors.Wrap(err, "decode stash")
	}
	return starts, nil
}

func (s *ActivityStash) save(starts map[string]string) error {
	data, err := json.Marshal(starts)
	if err != nil {
		return errors.Wrap(err, "encode stash")
	}
	return errors.Wrap(s.backend.SetItem(selectStartKey, string(data)), "write stash")
}

// AddSelectStart records that id was selected at t.
func (s *ActivityStash) AddSelectStart(id string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	starts, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := starts[id]; ok {
		return errors.Wrapf(ErrAlreadyStarted, "activity %s", id)
	}
	starts[id] = t.UTC().Format(time.RFC3339Nano)
	return s.save(starts)
}

// SelectStart returns when id was selected, if it is.
func (s *ActivityStash) SelectStart(id string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	starts, err := s.load()
	if err != nil {
		return time.Time{}, false, err
	}
	raw, ok := starts[id]
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, errors.Wrapf(err, "decode start of %s", id)
	}
	return t, true, nil
}

// RemoveSelectStart forgets id. Removing an absent id is a no-op.
func (s *ActivityStash) RemoveSelectStart(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	starts, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := starts[id]; !ok {
		return nil
	}
	delete(starts, id)
	return s.save(starts)
}
