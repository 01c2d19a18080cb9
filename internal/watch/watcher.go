package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 250 * time.Millisecond

// Watcher monitors workspace trees for source and manifest changes. Changes
// are coalesced per workspace root: a burst of writes produces one
// notification carrying the root that changed.
type Watcher struct {
	Changes <-chan string

	changes chan string
	done    chan struct{}
	watcher *fsnotify.Watcher
	roots   []string
	// dirRoot maps each watched directory to its workspace root.
	dirRoot map[string]string
}

// New creates a watcher for the given workspace roots. Start must be called
// before any change is delivered.
func New(roots []string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan string, 16)
	return &Watcher{
		Changes: ch,
		changes: ch,
		done:    make(chan struct{}),
		watcher: fw,
		roots:   roots,
		dirRoot: make(map[string]string),
	}, nil
}

// Start registers every directory under the roots and begins delivering
// changes. Build output and hidden directories are not watched.
func (w *Watcher) Start() error {
	for _, root := range w.roots {
		if err := w.addTree(root, root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) addTree(dir, root string) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && skipDir(entry.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.dirRoot[path] = root
		return nil
	})
}

func skipDir(name string) bool {
	return name == "target" || strings.HasPrefix(name, ".")
}

func (w *Watcher) loop() {
	defer close(w.done)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				for root := range pending {
					w.changes <- root
				}
				return
			}
			root, ok := w.rootFor(event.Name)
			if !ok {
				continue
			}
			if event.Has(fsnotify.Create) {
				// A new crate directory needs its own watch.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDir(filepath.Base(event.Name)) {
					_ = w.addTree(event.Name, root)
				}
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[root] = time.Now()
			}

		case _, ok := <-ticker.C:
			if !ok {
				return
			}
			now := time.Now()
			for root, last := range pending {
				if now.Sub(last) >= debounce {
					w.changes <- root
					delete(pending, root)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) rootFor(name string) (string, bool) {
	dir := filepath.Dir(name)
	if root, ok := w.dirRoot[dir]; ok {
		return root, true
	}
	// The event may reference a directory we watch directly.
	if root, ok := w.dirRoot[name]; ok {
		return root, true
	}
	return "", false
}
