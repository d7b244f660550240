package devserver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"threadterm/internal/model"
	"threadterm/internal/util"
)

const instructionFile = "archiving_instruction.txt"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
	ErrInvalid  = errors.New("invalid request")

	messageFile = regexp.MustCompile(`^(\d{6,})_([a-z]+)\.txt$`)
	archiveFile = regexp.MustCompile(`^archive_(\d{6,})\.json$`)
)

// FileBroker serves threads from a directory tree:
//
//	<root>/<thread>/000001_user.txt
//	<root>/<thread>/archiving_instruction.txt   (falls back to <root>/archiving_instruction.txt)
//	<root>/<thread>/archive_000001.json
type FileBroker struct {
	mu   sync.RWMutex
	root string
}

func NewFileBroker(root string) (*FileBroker, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create storage root")
	}
	return &FileBroker{root: root}, nil
}

func (b *FileBroker) threadDir(threadUID string) (string, error) {
	if threadUID == "" || threadUID == "." || threadUID == ".." || strings.ContainsAny(threadUID, `/\`) {
		return "", errors.Wrapf(ErrInvalid, "thread uid %q", threadUID)
	}
	return filepath.Join(b.root, threadUID), nil
}

func (b *FileBroker) existingThreadDir(threadUID string) (string, error) {
	dir, err := b.threadDir(threadUID)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) || (err == nil && !info.IsDir()) {
		return "", errors.Wrapf(ErrNotFound, "thread %s", threadUID)
	}
	return dir, err
}

// Messages lists a thread ordered by message order.
func (b *FileBroker) Messages(threadUID string) ([]model.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dir, err := b.existingThreadDir(threadUID)
	if err != nil {
		return nil, err
	}
	return b.readMessages(threadUID, dir)
}

func (b *FileBroker) readMessages(threadUID, dir string) ([]model.Message, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read thread %s", threadUID)
	}

	var msgs []model.Message
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m, ok, err := readMessageFile(threadUID, dir, e.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			msgs = append(msgs, m)
		}
	}
	slices.SortFunc(msgs, func(a, b model.Message) int { return a.Order - b.Order })
	return msgs, nil
}

func readMessageFile(threadUID, dir, name string) (model.Message, bool, error) {
	match := messageFile.FindStringSubmatch(name)
	if match == nil {
		return model.Message{}, false, nil
	}
	order, _ := strconv.Atoi(match[1])
	role, err := model.ParseRole(match[2])
	if err != nil {
		return model.Message{}, false, errors.Wrapf(err, "file %s", name)
	}
	text, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return model.Message{}, false, errors.Wrapf(err, "read %s", name)
	}
	return model.Message{
		ThreadUID: threadUID,
		Order:     order,
		Role:      role,
		Text:      util.NormalizeText(string(text)),
	}, true, nil
}

func (b *FileBroker) Message(threadUID string, order int) (model.Message, error) {
	msgs, err := b.Messages(threadUID)
	if err != nil {
		return model.Message{}, err
	}
	i, found := slices.BinarySearchFunc(msgs, order, func(m model.Message, o int) int { return m.Order - o })
	if !found {
		return model.Message{}, errors.Wrapf(ErrNotFound, "there's no %d message in %s thread", order, threadUID)
	}
	return msgs[i], nil
}

// MessagesByOrders returns the requested messages, ascending. Every order
// must exist.
func (b *FileBroker) MessagesByOrders(threadUID string, orders []int) ([]model.Message, error) {
	msgs, err := b.Messages(threadUID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Message, 0, len(orders))
	for _, o := range orders {
		i, found := slices.BinarySearchFunc(msgs, o, func(m model.Message, o int) int { return m.Order - o })
		if !found {
			return nil, errors.Wrapf(ErrNotFound, "there's no %d message in %s thread", o, threadUID)
		}
		out = append(out, msgs[i])
	}
	return out, nil
}

// ArchivingInstruction is always order 0, role system.
func (b *FileBroker) ArchivingInstruction(threadUID string) (model.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dir, err := b.existingThreadDir(threadUID)
	if err != nil {
		return model.Message{}, err
	}

	text, err := os.ReadFile(filepath.Join(dir, instructionFile))
	if os.IsNotExist(err) {
		text, err = os.ReadFile(filepath.Join(b.root, instructionFile))
	}
	if os.IsNotExist(err) {
		return model.Message{}, errors.Wrapf(ErrNotFound, "no archiving instruction for %s", threadUID)
	}
	if err != nil {
		return model.Message{}, errors.Wrap(err, "read archiving instruction")
	}
	return model.Message{
		ThreadUID: threadUID,
		Order:     0,
		Role:      model.RoleSystem,
		Text:      util.NormalizeText(string(text)),
	}, nil
}

// Append writes new messages, creating the thread if needed. Orders that
// already exist are rejected and nothing is written.
func (b *FileBroker) Append(threadUID string, msgs []model.Message) ([]model.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dir, err := b.threadDir(threadUID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create thread")
	}
	existing, err := b.readMessages(threadUID, dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(existing)+len(msgs))
	for _, m := range existing {
		seen[m.Order] = true
	}
	for _, m := range msgs {
		if m.ThreadUID != threadUID {
			return nil, errors.Wrapf(ErrInvalid, "message %d belongs to thread %s", m.Order, m.ThreadUID)
		}
		if m.Order <= 0 {
			return nil, errors.Wrapf(ErrInvalid, "message order %d must be positive", m.Order)
		}
		if seen[m.Order] {
			return nil, errors.Wrapf(ErrConflict, "message %d in %s thread", m.Order, threadUID)
		}
		seen[m.Order] = true
	}

	for _, m := range msgs {
		name := fmt.Sprintf("%06d_%s.txt", m.Order, m.Role)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(m.Text), 0o644); err != nil {
			return nil, errors.Wrapf(err, "write %s", name)
		}
	}
	return b.readMessages(threadUID, dir)
}

// SetArchivingInstruction writes the thread's own instruction.
func (b *FileBroker) SetArchivingInstruction(threadUID, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dir, err := b.threadDir(threadUID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create thread")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(dir, instructionFile), []byte(text), 0o644), "write archiving instruction")
}

// SaveArchive stores a committed archive message as the next
// archive_NNNNNN.json of the thread.
func (b *FileBroker) SaveArchive(m model.Message) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dir, err := b.existingThreadDir(m.ThreadUID)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, "read thread %s", m.ThreadUID)
	}
	next := 1
	for _, e := range entries {
		if match := archiveFile.FindStringSubmatch(e.Name()); match != nil {
			if n, _ := strconv.Atoi(match[1]); n >= next {
				next = n + 1
			}
		}
	}

	data, err := json.MarshalIndent(model.EncodeMessage(m), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode archive")
	}
	name := fmt.Sprintf("archive_%06d.json", next)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", name)
	}
	return name, nil
}
