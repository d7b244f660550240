package stash

import (
	"path/filepath"

	"github.com/pkg/errors"

	"threadterm/internal/store"
)

const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindPebble = "pebble"
)

// OpenBackend builds the backend named by kind. Files live under dataDir;
// the sqlite backend shares st. The returned close func is never nil.
func OpenBackend(kind, dataDir string, st *store.SQLiteStore) (Backend, func() error, error) {
	noop := func() error { return nil }

	switch kind {
	case KindMemory:
		return NewMemoryBackend(), noop, nil
	case KindFile:
		b, err := NewFileBackend(filepath.Join(dataDir, "stash.json"))
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil
	case KindSQLite:
		if st == nil {
			return nil, noop, errors.New("sqlite stash needs the local store")
		}
		return NewSQLiteBackend(st), noop, nil
	case KindPebble:
		b, err := OpenPebbleBackend(filepath.Join(dataDir, "stash.pebble"))
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	}
	return nil, noop, errors.Errorf("unknown stash backend %q", kind)
}
