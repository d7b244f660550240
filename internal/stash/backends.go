package stash

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"threadterm/internal/store"
)

type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: map[string]string{}}
}

func (b *MemoryBackend) GetItem(key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.items[key]
	return v, ok, nil
}

func (b *MemoryBackend) SetItem(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[key] = value
	return nil
}

// FileBackend keeps all items in one JSON object on disk and rewrites the
// file on every set.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create stash directory")
	}
	return &FileBackend{path: path}, nil
}

func (b *FileBackend) read() (map[string]string, error) {
	items := map[string]string{}
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return items, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read stash file")
	}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrapf(err, "decode %s", b.path)
	}
	return items, nil
}

func (b *FileBackend) GetItem(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	items, err := b.read()
	if err != nil {
		return "", false, err
	}
	v, ok := items[key]
	return v, ok, nil
}

func (b *FileBackend) SetItem(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	items, err := b.read()
	if err != nil {
		return err
	}
	items[key] = value
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode stash file")
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "write stash file")
	}
	return errors.Wrap(os.Rename(tmp, b.path), "replace stash file")
}

// SQLiteBackend stores items in the kv table of the local store.
type SQLiteBackend struct {
	store *store.SQLiteStore
}

func NewSQLiteBackend(s *store.SQLiteStore) *SQLiteBackend {
	return &SQLiteBackend{store: s}
}

func (b *SQLiteBackend) GetItem(key string) (string, bool, error) {
	return b.store.GetValue(context.Background(), key)
}

func (b *SQLiteBackend) SetItem(key, value string) error {
	return b.store.SetValue(context.Background(), key, value)
}

type PebbleBackend struct {
	db *pebble.DB
}

func OpenPebbleBackend(dir string) (*PebbleBackend, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble at %s", dir)
	}
	return &PebbleBackend{db: db}, nil
}

func (b *PebbleBackend) GetItem(key string) (string, bool, error) {
	v, closer, err := b.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get %q", key)
	}
	defer closer.Close()
	return string(v), true, nil
}

func (b *PebbleBackend) SetItem(key, value string) error {
	return errors.Wrapf(b.db.Set([]byte(key), []byte(value), pebble.Sync), "set %q", key)
}

func (b *PebbleBackend) Close() error {
	return b.db.Close()
}
