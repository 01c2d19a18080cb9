package watch_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"kiln/internal/watch"
)

func startWatcher(t *testing.T, roots []string) *watch.Watcher {
	t.Helper()
	w, err := watch.New(roots)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func awaitChange(t *testing.T, w *watch.Watcher) string {
	t.Helper()
	select {
	case root := <-w.Changes:
		return root
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
		return ""
	}
}

func TestWatcherReportsRootOfChangedFile(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "voice", "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, []string{root})

	if err := os.WriteFile(filepath.Join(src, "main.rs"), []byte("fn main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := awaitChange(t, w); got != root {
		t.Fatalf("change root = %q, want %q", got, root)
	}
}

func TestWatcherCoalescesBursts(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, []string{root})

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte("x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	awaitChange(t, w)
	select {
	case root := <-w.Changes:
		t.Fatalf("burst produced a second change for %q", root)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherIgnoresTargetDir(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target", "release")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatal(err)
	}

	w := startWatcher(t, []string{root})

	if err := os.WriteFile(filepath.Join(target, "voice"), []byte("bin"), 0o755); err != nil {
		t.Fatal(err)
	}

	select {
	case root := <-w.Changes:
		t.Fatalf("build output change reported for %q", root)
	case <-time.After(500 * time.Millisecond):
	}
}
