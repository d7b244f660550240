package store

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/pkg/errors"

	"threadterm/internal/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKeyValue(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, ok, err := s.GetValue(ctx, "missing")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if ok {
		t.Fatal("expected missing key")
	}

	if err := s.SetValue(ctx, "k", "one"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	val, ok, _ := s.GetValue(ctx, "k")
	if !ok || val != "one" {
		t.Fatalf("expected one, got %q (present=%v)", val, ok)
	}

	// Overwrite
	s.SetValue(ctx, "k", "two")
	val, _, _ = s.GetValue(ctx, "k")
	if val != "two" {
		t.Fatalf("expected two, got %q", val)
	}

	// Empty values are still present.
	s.SetValue(ctx, "empty", "")
	if _, ok, _ := s.GetValue(ctx, "empty"); !ok {
		t.Fatal("empty value should be present")
	}
}

func TestArchiveJournal(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	recs := []model.ArchiveRecord{
		{ThreadUID: "t1", Orders: []int{1, 3}, Text: "first", ConfirmedAt: base},
		{ThreadUID: "t2", Orders: []int{2}, Text: "other", ConfirmedAt: base.Add(time.Minute)},
		{ThreadUID: "t1", Orders: []int{4}, Text: "second", ConfirmedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range recs {
		if err := s.RecordArchive(ctx, r); err != nil {
			t.Fatalf("RecordArchive: %v", err)
		}
	}

	count, err := s.CountArchives(ctx)
	if err != nil {
		t.Fatalf("CountArchives: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}

	t1, err := s.ListArchives(ctx, "t1")
	if err != nil {
		t.Fatalf("ListArchives: %v", err)
	}
	if len(t1) != 2 {
		t.Fatalf("expected 2 records for t1, got %d", len(t1))
	}
	if t1[0].Text != "first" || t1[1].Text != "second" {
		t.Fatalf("unexpected order: %+v", t1)
	}
	if !slices.Equal(t1[0].Orders, []int{1, 3}) {
		t.Fatalf("orders not preserved: %v", t1[0].Orders)
	}
	if !t1[0].ConfirmedAt.Equal(base) {
		t.Fatalf("time not preserved: %v", t1[0].ConfirmedAt)
	}

	all, _ := s.ListArchives(ctx, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 records overall, got %d", len(all))
	}
}

func TestListArchivesSubSecondOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

	// Recorded out of order; the listing must follow confirmed_at.
	later := model.ArchiveRecord{ThreadUID: "t1", Orders: []int{2}, Text: "later", ConfirmedAt: base.Add(500 * time.Millisecond)}
	earlier := model.ArchiveRecord{ThreadUID: "t1", Orders: []int{1}, Text: "earlier", ConfirmedAt: base}
	for _, r := range []model.ArchiveRecord{later, earlier} {
		if err := s.RecordArchive(ctx, r); err != nil {
			t.Fatalf("RecordArchive: %v", err)
		}
	}

	recs, err := s.ListArchives(ctx, "t1")
	if err != nil {
		t.Fatalf("ListArchives: %v", err)
	}
	if len(recs) != 2 || recs[0].Text != "earlier" || recs[1].Text != "later" {
		t.Fatalf("unexpected order: %+v", recs)
	}
	if !recs[1].ConfirmedAt.Equal(later.ConfirmedAt) {
		t.Fatalf("time not preserved: %v", recs[1].ConfirmedAt)
	}
}

func TestRecordArchiveRequiresThread(t *testing.T) {
	s := testStore(t)
	err := s.RecordArchive(context.Background(), model.ArchiveRecord{Orders: []int{1}})
	if !errors.Is(err, model.ErrCallerContract) {
		t.Fatalf("expected caller contract error, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "state.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	s.SetValue(ctx, "k", "v")
	s.Close()

	s, err = NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if val, ok, _ := s.GetValue(ctx, "k"); !ok || val != "v" {
		t.Fatalf("expected v after reopen, got %q", val)
	}
}
