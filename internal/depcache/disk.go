package depcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"kiln/internal/fileutil"
)

const (
	metaFileName   = "meta.toml"
	artifactSubdir = "artifacts"

	lockRetryDelay = 100 * time.Millisecond
)

type entryMeta struct {
	CreatedAt time.Time `toml:"created_at"`
	Files     int       `toml:"files"`
}

// DiskStore is a content-addressed on-disk Store. Each entry is a directory
// named by its key; a meta file written as the last step marks the entry
// complete, and a per-key flock serializes writers.
type DiskStore struct {
	root string
}

// NewDiskStore opens (creating if needed) a disk store rooted at root.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &DiskStore{root: root}, nil
}

// Root returns the store's directory.
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) entryDir(key Key) string {
	return filepath.Join(s.root, string(key)[:2], string(key))
}

func (s *DiskStore) Has(_ context.Context, key Key) (bool, error) {
	_, err := os.Stat(filepath.Join(s.entryDir(key), metaFileName))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *DiskStore) Restore(ctx context.Context, key Key, targetDir string) (bool, error) {
	ok, err := s.Has(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return false, err
	}
	if err := fileutil.CopyTree(filepath.Join(s.entryDir(key), artifactSubdir), targetDir); err != nil {
		return false, fmt.Errorf("restore cache entry %s: %w", key.Short(), err)
	}
	return true, nil
}

func (s *DiskStore) Save(ctx context.Context, key Key, targetDir string) error {
	if ok, err := s.Has(ctx, key); err != nil {
		return err
	} else if ok {
		return nil
	}

	entryDir := s.entryDir(key)
	if err := os.MkdirAll(filepath.Dir(entryDir), 0o755); err != nil {
		return fmt.Errorf("create cache shard: %w", err)
	}

	lock := flock.New(entryDir + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire cache write lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("cache write lock for %s unavailable", key.Short())
	}
	defer func() { _ = lock.Unlock() }()

	// Another writer may have completed the entry while we waited.
	if ok, err := s.Has(ctx, key); err != nil {
		return err
	} else if ok {
		return nil
	}

	stagingDir := entryDir + ".partial"
	if err := os.RemoveAll(stagingDir); err != nil {
		return fmt.Errorf("clear stale partial entry: %w", err)
	}
	if err := fileutil.CopyTree(targetDir, filepath.Join(stagingDir, artifactSubdir)); err != nil {
		return fmt.Errorf("stage cache entry %s: %w", key.Short(), err)
	}

	meta := entryMeta{CreatedAt: time.Now().UTC(), Files: countFiles(filepath.Join(stagingDir, artifactSubdir))}
	metaBytes, err := toml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode cache metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(stagingDir, metaFileName), metaBytes, 0o644); err != nil {
		return fmt.Errorf("write cache metadata: %w", err)
	}

	if err := os.Rename(stagingDir, entryDir); err != nil {
		return fmt.Errorf("publish cache entry %s: %w", key.Short(), err)
	}
	return nil
}

// Clear removes every entry from the store.
func (s *DiskStore) Clear() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("read cache root: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.root, entry.Name())); err != nil {
			return fmt.Errorf("remove cache shard %q: %w", entry.Name(), err)
		}
	}
	return nil
}

func countFiles(root string) int {
	count := 0
	_ = filepath.WalkDir(root, func(_ string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			count++
		}
		return nil
	})
	return count
}

var _ Store = (*DiskStore)(nil)
