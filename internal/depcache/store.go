package depcache

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store persists dependency build artifacts keyed by workspace content.
//
// Save must provide at-most-one-writer-per-key semantics: when two runs race
// on the same key, one writes and the other either waits or observes the
// completed entry. Restore is safe concurrently once an entry is complete.
type Store interface {
	// Restore copies the cached artifact tree for key into targetDir. It
	// returns false when no complete entry exists.
	Restore(ctx context.Context, key Key, targetDir string) (bool, error)
	// Save persists the artifact tree rooted at targetDir under key.
	// Saving an already-present key is a no-op.
	Save(ctx context.Context, key Key, targetDir string) error
	// Has reports whether a complete entry exists for key.
	Has(ctx context.Context, key Key) (bool, error)
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[Key]map[string][]byte

	// SaveCalls and RestoreCalls count operations for assertions.
	SaveCalls    int
	RestoreCalls int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]map[string][]byte)}
}

func (m *MemoryStore) Restore(_ context.Context, key Key, targetDir string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RestoreCalls++

	files, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	for rel, contents := range files {
		path := filepath.Join(targetDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return false, err
		}
		if err := os.WriteFile(path, contents, 0o644); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (m *MemoryStore) Save(_ context.Context, key Key, targetDir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++

	if _, ok := m.entries[key]; ok {
		return nil
	}

	files := make(map[string][]byte)
	err := filepath.WalkDir(targetDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(targetDir, path)
		if err != nil {
			return err
		}
		contents, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[rel] = contents
		return nil
	})
	if err != nil {
		return err
	}
	m.entries[key] = files
	return nil
}

func (m *MemoryStore) Has(_ context.Context, key Key) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok, nil
}

var _ Store = (*MemoryStore)(nil)
