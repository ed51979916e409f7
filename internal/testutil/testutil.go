// Package testutil provides shared test helpers for setting up stores, audit
// databases and services.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/redline/internal/audit"
	"github.com/starford/redline/internal/editservice"
	"github.com/starford/redline/internal/storage"
)

// TestDB creates a temporary audit database that is automatically cleaned up.
func TestDB(t *testing.T) *audit.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "redline-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := audit.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary session directory with a storage.Provider.
func TestStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestService wires a Service over a temporary store and audit database.
// pub may be nil.
func TestService(t *testing.T, pub editservice.Publisher) *editservice.Service {
	t.Helper()
	_, store := TestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := editservice.New(store, TestDB(t), pub, logger, editservice.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return svc
}
