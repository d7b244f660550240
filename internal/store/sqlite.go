package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"threadterm/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps small local state in a SQLite database: a key/value
// table used by the activity stash and a journal of confirmed archives.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "create db directory")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// WAL lets the CLI read the journal while the TUI writes to it.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set busy timeout")
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS archive_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	thread_uid   TEXT NOT NULL,
	orders       TEXT NOT NULL,
	text         TEXT NOT NULL DEFAULT '',
	confirmed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS archive_log_thread ON archive_log (thread_uid, confirmed_at);
`
	if _, err := db.Exec(schema); err != nil {
		return errors.Wrap(err, "migrate schema")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetValue returns the value stored under key and whether it was present.
func (s *SQLiteStore) GetValue(ctx context.Context, key string) (string, bool, error) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get %q", key)
	}
	return val, true, nil
}

func (s *SQLiteStore) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return errors.Wrapf(err, "set %q", key)
}

// journalTimeLayout keeps a fixed width so confirmed_at sorts as text.
const journalTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordArchive appends a confirmed archive to the journal.
func (s *SQLiteStore) RecordArchive(ctx context.Context, rec model.ArchiveRecord) error {
	if rec.ThreadUID == "" {
		return errors.Wrap(model.ErrCallerContract, "record archive: thread uid is required")
	}
	orders, err := json.Marshal(rec.Orders)
	if err != nil {
		return errors.Wrap(err, "encode orders")
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO archive_log (thread_uid, orders, text, confirmed_at) VALUES (?, ?, ?, ?)",
		rec.ThreadUID, string(orders), rec.Text, rec.ConfirmedAt.UTC().Format(journalTimeLayout))
	return errors.Wrap(err, "record archive")
}

// ListArchives returns the journal for one thread, oldest first. An empty
// thread lists every thread.
func (s *SQLiteStore) ListArchives(ctx context.Context, threadUID string) ([]model.ArchiveRecord, error) {
	query := "SELECT thread_uid, orders, text, confirmed_at FROM archive_log"
	var args []any
	if threadUID != "" {
		query += " WHERE thread_uid = ?"
		args = append(args, threadUID)
	}
	query += " ORDER BY confirmed_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list archives")
	}
	defer rows.Close()

	var recs []model.ArchiveRecord
	for rows.Next() {
		var (
			rec         model.ArchiveRecord
			orders      string
			confirmedAt string
		)
		if err := rows.Scan(&rec.ThreadUID, &orders, &rec.Text, &confirmedAt); err != nil {
			return nil, errors.Wrap(err, "scan archive")
		}
		if err := json.Unmarshal([]byte(orders), &rec.Orders); err != nil {
			return nil, errors.Wrapf(err, "decode orders of %s", rec.ThreadUID)
		}
		if rec.ConfirmedAt, err = time.Parse(journalTimeLayout, confirmedAt); err != nil {
			return nil, errors.Wrapf(err, "decode time of %s", rec.ThreadUID)
		}
		recs = append(recs, rec)
	}
	return recs, errors.Wrap(rows.Err(), "list archives")
}

// CountArchives returns the number of journal entries across all threads.
func (s *SQLiteStore) CountArchives(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM archive_log").Scan(&count)
	return count, errors.Wrap(err, "count archives")
}
