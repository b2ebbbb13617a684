// Package testutil provides shared test helpers for setting up wiki repositories.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/wiki"
)

// TestRoot creates a temporary content directory with a storage.Provider.
func TestRoot(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// TestRepo creates a repository over a temporary content directory, with wiki
// links resolving to /pages/ routes and logging discarded.
func TestRepo(t *testing.T) *wiki.Repository {
	t.Helper()
	_, store := TestRoot(t)
	proc := render.Default(func(route, url string) string {
		return "/pages/" + url
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return wiki.NewRepository(store, proc, logger)
}
