package testsupport

import (
	"context"
	"testing"

	"recap/internal/config"
	"recap/internal/tracker"
)

// MustOpenStore opens a tracker.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *tracker.Store {
	t.Helper()

	store, err := tracker.Open(context.Background(), cfg.Paths.LogDir)
	if err != nil {
		t.Fatalf("tracker.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginExecution registers a new execution for tests using the provided store.
func BeginExecution(t testing.TB, store *tracker.Store, path string) *tracker.Execution {
	t.Helper()

	exec, err := store.Begin(context.Background(), path, "Test Title", tracker.KindManual)
	if err != nil {
		t.Fatalf("store.Begin: %v", err)
	}
	return exec
}
