package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/storage"
)

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(kind, url string) {
	l.mu.Lock()
	l.events = append(l.events, kind+":"+url)
	l.mu.Unlock()
}

func (l *eventLog) has(want string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == want {
			return true
		}
	}
	return false
}

func watcherTestEnv(t *testing.T) (string, storage.Provider, *eventLog, context.CancelFunc) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := &eventLog{}
	go Watch(ctx, store, root, logger, log.add)
	time.Sleep(100 * time.Millisecond)

	return root, store, log, cancel
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewPage(t *testing.T) {
	root, _, log, _ := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(root, "New Page.md"), []byte("title: New\n\nbody\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("created:new_page")
	}, "expected created:new_page event")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, _, log, _ := watcherTestEnv(t)

	subDir := filepath.Join(root, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(200 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("title: Deep\n\nbody\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("created:subdir/deep")
	}, "file in new subdir not announced")
}

func TestWatcher_Delete(t *testing.T) {
	root, _, log, _ := watcherTestEnv(t)

	path := filepath.Join(root, "gone.md")
	_ = os.WriteFile(path, []byte("title: Gone\n\nbody\n"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("created:gone")
	}, "precondition: create event missing")

	_ = os.Remove(path)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("deleted:gone")
	}, "expected deleted:gone event")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, _, log, _ := watcherTestEnv(t)

	oldPath := filepath.Join(root, "old.md")
	_ = os.WriteFile(oldPath, []byte("title: Old\n\nbody\n"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("created:old")
	}, "precondition: create event missing")

	_ = os.Rename(oldPath, filepath.Join(root, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("deleted:old") && log.has("created:renamed")
	}, "rename should announce deleted:old and created:renamed")
}

func TestWatcher_NoEventForIdenticalRewrite(t *testing.T) {
	root, _, log, _ := watcherTestEnv(t)

	path := filepath.Join(root, "same.md")
	content := []byte("title: Same\n\nbody\n")
	_ = os.WriteFile(path, content, 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("created:same")
	}, "precondition: create event missing")

	_ = os.WriteFile(path, content, 0o644)
	time.Sleep(300 * time.Millisecond)

	if log.has("updated:same") {
		t.Error("identical rewrite should not produce an updated event")
	}
}
