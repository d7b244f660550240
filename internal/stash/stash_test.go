package stash

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadterm/internal/store"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileBackend(filepath.Join(dir, "file", "stash.json"))
	require.NoError(t, err)

	st, err := store.NewSQLiteStore(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	peb, err := OpenPebbleBackend(filepath.Join(dir, "pebble"))
	require.NoError(t, err)
	t.Cleanup(func() { peb.Close() })

	return map[string]Backend{
		KindMemory: NewMemoryBackend(),
		KindFile:   file,
		KindSQLite: NewSQLiteBackend(st),
		KindPebble: peb,
	}
}

func TestBackends(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := b.GetItem("k")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.SetItem("k", "v1"))
			require.NoError(t, b.SetItem("k", "v2"))
			v, ok, err := b.GetItem("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v2", v)
		})
	}
}

func TestNewSeedsDefault(t *testing.T) {
	b := NewMemoryBackend()
	_, err := New(b)
	require.NoError(t, err)

	v, ok, _ := b.GetItem(selectStartKey)
	assert.True(t, ok)
	assert.Equal(t, "{}", v)
}

func TestNewKeepsExisting(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.SetItem(selectStartKey, `{"t1/2":"2026-10-18T10:00:00Z"}`))

	s, err := New(b)
	require.NoError(t, err)
	start, ok, err := s.SelectStart("t1/2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC), start)
}

func TestSelectStartLifecycle(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, err := New(b)
			require.NoError(t, err)
			at := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

			require.NoError(t, s.AddSelectStart("t1/1", at))
			err = s.AddSelectStart("t1/1", at.Add(time.Hour))
			assert.ErrorIs(t, err, ErrAlreadyStarted)

			got, ok, err := s.SelectStart("t1/1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.True(t, got.Equal(at), "start time must not be overwritten")

			require.NoError(t, s.RemoveSelectStart("t1/1"))
			_, ok, err = s.SelectStart("t1/1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.RemoveSelectStart("t1/1"), "removing twice is a no-op")
			require.NoError(t, s.AddSelectStart("t1/1", at))
		})
	}
}

func TestFileBackendPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stash.json")
	b, err := NewFileBackend(path)
	require.NoError(t, err)
	s, err := New(b)
	require.NoError(t, err)
	require.NoError(t, s.AddSelectStart("t1/3", time.Unix(0, 0)))

	reopened, err := NewFileBackend(path)
	require.NoError(t, err)
	s, err = New(reopened)
	require.NoError(t, err)
	_, ok, err := s.SelectStart("t1/3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()

	for _, kind := range []string{KindMemory, KindFile, KindPebble} {
		b, closeFn, err := OpenBackend(kind, dir, nil)
		require.NoError(t, err, kind)
		require.NotNil(t, b)
		require.NoError(t, closeFn())
	}

	_, _, err := OpenBackend(KindSQLite, dir, nil)
	assert.Error(t, err)

	_, closeFn, err := OpenBackend("redis", dir, nil)
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}
