package audit

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/redline/internal/models"
	"github.com/starford/redline/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func entry(action models.Action, summary string) models.LogEntry {
	return models.LogEntry{TextContent: summary, Action: action, Timestamp: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries`).Scan(&count); err != nil {
		t.Fatalf("entries table missing: %v", err)
	}
}

func TestAppendAssignsSequence(t *testing.T) {
	db := testDB(t)
	for i, a := range []models.Action{models.ActionSetContent, models.ActionHighlight, models.ActionApplyEdit} {
		seq, err := db.Append(Record{Session: "s1", Entry: entry(a, "text"), HTML: "<p>x</p>"})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if seq != i {
			t.Errorf("seq = %d, want %d", seq, i)
		}
	}
	seq, err := db.Append(Record{Session: "s2", Entry: entry(models.ActionSetContent, "other")})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if seq != 0 {
		t.Errorf("sequence should be per session, got %d", seq)
	}
}

func TestEntriesRoundTrip(t *testing.T) {
	db := testDB(t)
	e := entry(models.ActionApplyEdit, "Hello there")
	e.EditedHTML = strPtr("there")
	e.OriginalHTML = strPtr("world")
	_, _ = db.Append(Record{Session: "s1", Entry: entry(models.ActionSetContent, "Hello world"), HTML: "<p>Hello world</p>"})
	_, _ = db.Append(Record{Session: "s1", Entry: e, HTML: "<p>Hello there</p>"})

	got, err := db.Entries("s1")
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Entry.EditedHTML != nil {
		t.Errorf("first entry edited = %q, want nil", *got[0].Entry.EditedHTML)
	}
	second := got[1]
	if second.Seq != 1 || second.Entry.Action != models.ActionApplyEdit {
		t.Errorf("second = %+v", second)
	}
	if second.HTML != "<p>Hello there</p>" {
		t.Errorf("html = %q", second.HTML)
	}
	if second.Entry.EditedHTML == nil || *second.Entry.EditedHTML != "there" {
		t.Errorf("edited = %v", second.Entry.EditedHTML)
	}
	if second.Entry.OriginalHTML == nil || *second.Entry.OriginalHTML != "world" {
		t.Errorf("original = %v", second.Entry.OriginalHTML)
	}
	if !second.Entry.Timestamp.Equal(e.Timestamp) {
		t.Errorf("timestamp = %v, want %v", second.Entry.Timestamp, e.Timestamp)
	}
}

func TestClear(t *testing.T) {
	db := testDB(t)
	_, _ = db.Append(Record{Session: "s1", Entry: entry(models.ActionSetContent, "a")})
	_, _ = db.Append(Record{Session: "s2", Entry: entry(models.ActionSetContent, "b")})

	if err := db.Clear("s1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, _ := db.Entries("s1")
	if len(got) != 0 {
		t.Errorf("s1 entries = %d, want 0", len(got))
	}
	sessions, _ := db.Sessions()
	if len(sessions) != 1 || sessions[0] != "s2" {
		t.Errorf("sessions = %v", sessions)
	}

	seq, _ := db.Append(Record{Session: "s1", Entry: entry(models.ActionSetContent, "again")})
	if seq != 0 {
		t.Errorf("seq after clear = %d, want 0", seq)
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	_, _ = db.Append(Record{Session: "s1", Entry: entry(models.ActionSetContent, "The quick brown fox")})
	_, _ = db.Append(Record{Session: "s2", Entry: entry(models.ActionSetContent, "A lazy dog")})

	results, err := db.Search("brown", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Session != "s1" || results[0].Action != models.ActionSetContent {
		t.Errorf("result = %+v", results[0])
	}
}

func TestSyncRemovesStaleSessions(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := store.Save(ctx, "live", models.SessionState{}); err != nil {
		t.Fatal(err)
	}
	_, _ = db.Append(Record{Session: "live", Entry: entry(models.ActionSetContent, "a")})
	_, _ = db.Append(Record{Session: "gone", Entry: entry(models.ActionSetContent, "b")})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := Sync(ctx, db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	sessions, _ := db.Sessions()
	if len(sessions) != 1 || sessions[0] != "live" {
		t.Errorf("sessions = %v, want [live]", sessions)
	}
}
