// Package watch publishes change events for page files edited outside the
// engine (editors, sync tools) so connected clients can refresh.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/urlkey"
)

// EventCallback is called for every observed page change.
// kind is one of "created", "updated", "deleted"; url is the canonical page url.
type EventCallback func(kind string, url string)

// Watch starts an fsnotify watcher on the content root and processes file
// change events until ctx is cancelled. A checksum ledger keeps no-op
// rewrites (e.g. editors re-saving identical content) from producing events.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that compares the
// ledger against the files actually on disk.
func Watch(ctx context.Context, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	// Seed the ledger so pre-existing pages do not fire "created" on the
	// first reconcile.
	known := make(map[string]string)
	if infos, listErr := store.List(""); listErr == nil {
		for _, fi := range infos {
			known[fi.Path] = fi.Checksum
		}
	} else {
		logger.Warn("watcher: initial list failed", slog.String("error", listErr.Error()))
	}

	logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	emit := func(kind, rel string) {
		if cb != nil {
			cb(kind, pageURL(rel))
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(store, known, logger, emit)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// --- Handle new directories: add to watcher ---
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Pick up any page files already in the new directory.
					announceNewDir(store, known, root, absPath, logger, emit)
					continue
				}
			}

			// Only process page files from here on.
			if !strings.HasSuffix(absPath, storage.PageExt) {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				cs := checksum.Sum(data)
				prev, seen := known[rel]
				if seen && prev == cs {
					continue
				}
				known[rel] = cs
				kind := "updated"
				if !seen {
					kind = "created"
				}
				logger.Debug("watcher: page changed", slog.String("path", rel), slog.String("op", kind))
				emit(kind, rel)

			case ev.Op&fsnotify.Remove != 0:
				if _, seen := known[rel]; !seen {
					continue
				}
				delete(known, rel)
				logger.Debug("watcher: page removed", slog.String("path", rel))
				emit("deleted", rel)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new
				// path will arrive as a separate Create event (if it
				// stays within a watched dir). We drop the old entry
				// immediately and schedule a short reconciliation pass
				// to catch any stragglers.
				if _, seen := known[rel]; seen {
					delete(known, rel)
					logger.Debug("watcher: rename old removed", slog.String("path", rel))
					emit("deleted", rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile compares the checksum ledger against the files on disk:
// ledger entries without a file are announced as deleted, on-disk files
// missing or stale in the ledger as created/updated.
func reconcile(store storage.Provider, known map[string]string, logger *slog.Logger, emit func(kind, rel string)) {
	infos, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(infos))
	for _, fi := range infos {
		disk[fi.Path] = fi.Checksum
	}

	for p := range known {
		if _, ok := disk[p]; !ok {
			delete(known, p)
			logger.Debug("reconcile: removed stale", slog.String("path", p))
			emit("deleted", p)
		}
	}

	for p, cs := range disk {
		prev, seen := known[p]
		if seen && prev == cs {
			continue
		}
		known[p] = cs
		kind := "updated"
		if !seen {
			kind = "created"
		}
		logger.Debug("reconcile: picked up", slog.String("path", p), slog.String("op", kind))
		emit(kind, p)
	}
}

// announceNewDir records any page files found in a newly created directory.
func announceNewDir(store storage.Provider, known map[string]string, root, dirPath string, logger *slog.Logger, emit func(kind, rel string)) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, storage.PageExt) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		data, readErr := store.Read(rel)
		if readErr != nil {
			return nil
		}
		cs := checksum.Sum(data)
		if prev, seen := known[rel]; seen && prev == cs {
			return nil
		}
		known[rel] = cs
		logger.Debug("watcher: page from new dir", slog.String("path", rel))
		emit("created", rel)
		return nil
	})
}

// pageURL derives the canonical url from a page file path.
func pageURL(rel string) string {
	return urlkey.Clean(strings.TrimSuffix(rel, storage.PageExt))
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
