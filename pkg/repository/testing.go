package repository

import (
	"path/filepath"
	"testing"
)

// OpenMemory opens a throwaway trial store backed by a temp file, closed via
// t.Cleanup. Intended for package tests.
func OpenMemory(t *testing.T, opts ...Option) TrialStore {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "trials.db"), opts...)
	if err != nil {
		t.Fatalf("failed to open test trial store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close test trial store: %v", err)
		}
	})

	return store
}
