package wiki

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/storage"
)

func testRepo(t *testing.T) (*Repository, storage.Provider) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	proc := render.Default(func(route, url string) string { return "/pages/" + url })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRepository(store, proc, logger), store
}

func createPage(t *testing.T, repo *Repository, url, title, tags, body string) *Page {
	t.Helper()
	p, err := repo.GetBare(url)
	if err != nil {
		t.Fatalf("GetBare(%s): %v", url, err)
	}
	p.SetTitle(title)
	if tags != "" {
		p.SetTags(tags)
	}
	p.SetBody(body)
	if err := p.Save("tester"); err != nil {
		t.Fatalf("Save(%s): %v", url, err)
	}
	return p
}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo, _ := testRepo(t)
	createPage(t, repo, "round", "Round Trip", "", "Line one\r\nLine two\n")

	p, err := repo.Get("round")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p == nil {
		t.Fatal("page missing after save")
	}
	if p.Body() != "Line one\nLine two\n" {
		t.Errorf("body = %q, want CRLF normalized", p.Body())
	}
	if p.Title() != "Round Trip" {
		t.Errorf("title = %q", p.Title())
	}
	if !strings.Contains(p.HTML(), "Line one") {
		t.Errorf("html = %q", p.HTML())
	}
}

func TestSaveAppendsHistory(t *testing.T) {
	repo, _ := testRepo(t)
	p := createPage(t, repo, "hist", "History", "", "v1\n")

	if p.History().Len() != 1 {
		t.Fatalf("history len = %d, want 1", p.History().Len())
	}

	p.SetBody("v2\n")
	if err := p.Save("editor"); err != nil {
		t.Fatal(err)
	}
	if p.History().Len() != 2 {
		t.Fatalf("history len = %d, want 2", p.History().Len())
	}

	keys := p.History().OrderedKeys()
	newest, _ := p.History().Entry(keys[0])
	if newest.Version != "v2\n" {
		t.Errorf("newest version = %q", newest.Version)
	}
	if newest.User != "editor" {
		t.Errorf("user = %q", newest.User)
	}
}

func TestTitleFallsBackToURL(t *testing.T) {
	repo, store := testRepo(t)
	_ = store.Write("plain.md", []byte("tags: x\n\nbody\n"))

	p, err := repo.Get("plain")
	if err != nil {
		t.Fatal(err)
	}
	if p.Title() != "plain" {
		t.Errorf("title = %q, want url fallback", p.Title())
	}
}

func TestRatingAndFlagDefaults(t *testing.T) {
	repo, store := testRepo(t)
	_ = store.Write("bare.md", []byte("title: Bare\n\nbody\n"))

	p, err := repo.Get("bare")
	if err != nil {
		t.Fatal(err)
	}
	if p.Rating() != 0 {
		t.Errorf("rating = %v, want 0", p.Rating())
	}
	if p.Flag() != 0 {
		t.Errorf("flag = %v, want 0", p.Flag())
	}
}

func TestSubmitRating(t *testing.T) {
	repo, _ := testRepo(t)
	p := createPage(t, repo, "rated", "Rated", "", "body\n")

	if err := p.SubmitRating("critic", 4); err != nil {
		t.Fatalf("SubmitRating: %v", err)
	}
	if p.Rating() != 4 {
		t.Errorf("rating = %v, want 4", p.Rating())
	}

	// A fresh load sees the persisted rating.
	p2, err := repo.Get("rated")
	if err != nil {
		t.Fatal(err)
	}
	if p2.Rating() != 4 {
		t.Errorf("reloaded rating = %v, want 4", p2.Rating())
	}
}

func TestRatingAverageFold(t *testing.T) {
	repo, store := testRepo(t)
	_ = store.Write("avg.md", []byte("title: Avg\ntotal: 10\ntimesrated: 2\nrating: 4\n\nbody\n"))

	p, err := repo.Get("avg")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := p.Get("total"); v != "14" {
		t.Errorf("total = %q, want 14", v)
	}
	if v, _ := p.Get("timesrated"); v != "3" {
		t.Errorf("timesrated = %q, want 3", v)
	}
}

func TestSaveKeepStateSkipsRefresh(t *testing.T) {
	repo, store := testRepo(t)
	p := createPage(t, repo, "stale", "Stale", "", "old body\n")
	renderedBefore := p.HTML()

	p.SetBody("new body\n")
	if err := p.SaveKeepState("tester"); err != nil {
		t.Fatalf("SaveKeepState: %v", err)
	}

	// Disk and history are updated, derived render state is not.
	if p.HTML() != renderedBefore {
		t.Error("html was re-rendered")
	}
	raw, err := store.Read("stale.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "new body") {
		t.Errorf("file = %q, want new body persisted", raw)
	}
	if n := p.History().Len(); n != 2 {
		t.Errorf("history len = %d, want 2", n)
	}

	reloaded, err := repo.MustGet("stale")
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Body() != "new body\n" {
		t.Errorf("reloaded body = %q", reloaded.Body())
	}
	if !strings.Contains(reloaded.HTML(), "new body") {
		t.Errorf("reloaded html = %q", reloaded.HTML())
	}
}

func TestMetaHeaderWrittenInOrder(t *testing.T) {
	repo, store := testRepo(t)
	p, err := repo.GetBare("ordered")
	if err != nil {
		t.Fatal(err)
	}
	p.SetTitle("Ordered")
	p.Set("zeta", "1")
	p.Set("alpha", "2")
	p.SetBody("body\n")
	if err := p.Save("tester"); err != nil {
		t.Fatal(err)
	}

	raw, err := store.Read("ordered.md")
	if err != nil {
		t.Fatal(err)
	}
	want := "title: Ordered\nzeta: 1\nalpha: 2\n\nbody\n"
	if string(raw) != want {
		t.Errorf("file = %q, want %q", raw, want)
	}
}
