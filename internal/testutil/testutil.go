// Package testutil provides shared test helpers for setting up stores.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/webnote/internal/notestore"
	"github.com/starford/webnote/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite-backed provider that is closed on cleanup.
func TestDB(t *testing.T) storage.Provider {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "webnote-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore returns a note store over an in-memory provider, and the provider.
func TestStore(t *testing.T, opts ...notestore.Option) (*notestore.Store, *storage.Memory) {
	t.Helper()
	kv := storage.NewMemory()
	opts = append([]notestore.Option{notestore.WithLogger(Logger())}, opts...)
	return notestore.New(kv, opts...), kv
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}
