package rag

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval coalesces the event bursts editors produce on save.
const debounceInterval = 500 * time.Millisecond

// Watcher reindexes store files as they change on disk.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
}

func NewWatcher(store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the root and every subdirectory; fsnotify is not recursive.
	err = filepath.WalkDir(store.Source().Root(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
	if err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{store: store, watcher: fw}, nil
}

// Run blocks, reindexing changed files until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(debounceInterval)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if event.Op&fsnotify.Create != 0 {
					_ = w.watcher.Add(event.Name)
				}
				continue
			}
			if w.store.Source().Matches(event.Name, info.Size()) {
				pending[event.Name] = struct{}{}
				timer.Reset(debounceInterval)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watch error", "store", w.store.Name(), "error", err)

		case <-timer.C:
			for path := range pending {
				if chunks, err := w.store.IndexFile(ctx, path); err != nil {
					slog.Warn("Failed to reindex changed file", "path", path, "error", err)
				} else {
					slog.Info("Reindexed changed file", "path", path, "chunks", chunks)
				}
			}
			pending = make(map[string]struct{})
		}
	}
}
