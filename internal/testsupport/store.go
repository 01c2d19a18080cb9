package testsupport

import (
	"testing"

	"kiln/internal/config"
	"kiln/internal/runstore"
)

// MustOpenStore opens a run ledger store for the given config and closes it
// when the test finishes.
func MustOpenStore(t *testing.T, cfg *config.Config) *runstore.Store {
	t.Helper()

	store, err := runstore.Open(cfg)
	if err != nil {
		t.Fatalf("open run store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close run store: %v", err)
		}
	})
	return store
}
