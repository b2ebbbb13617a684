package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
)

func TestProcessBasic(t *testing.T) {
	p := New(Config{})
	input := "title: Hello\ntags: a, b\n\nSome *text* here.\n"

	html, body, m, err := p.Process(input)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(html, "<em>text</em>") {
		t.Errorf("html missing rendered emphasis: %q", html)
	}
	if strings.Contains(html, "title:") {
		t.Errorf("metadata header leaked into html: %q", html)
	}
	if body != "Some *text* here.\n" {
		t.Errorf("body = %q", body)
	}
	if v, _ := m.Get("title"); v != "Hello" {
		t.Errorf("title = %q", v)
	}
	if v, _ := m.Get("tags"); v != "a, b" {
		t.Errorf("tags = %q", v)
	}
}

func TestProcessWindowsLineEndings(t *testing.T) {
	p := New(Config{})
	input := "title: Windows Page\r\n\r\nSome body text.\r\n"

	html, body, m, err := p.Process(input)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if v, _ := m.Get("title"); v != "Windows Page" {
		t.Errorf("title = %q", v)
	}
	if body != "Some body text.\n" {
		t.Errorf("body = %q", body)
	}
	if !strings.Contains(html, "Some body text.") {
		t.Errorf("html = %q", html)
	}
}

func TestProcessMetaOrder(t *testing.T) {
	p := New(Config{})
	input := "Zebra: 1\nalpha: 2\nMiddle: 3\n\nbody\n"

	_, _, m, err := p.Process(input)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	var keys []string
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	want := []string{"zebra", "alpha", "middle"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestProcessMissingSeparator(t *testing.T) {
	p := New(Config{})
	_, _, _, err := p.Process("title: No Body Here")
	if !errors.Is(err, apperr.ErrMalformedContent) {
		t.Errorf("err = %v, want ErrMalformedContent", err)
	}
}

func TestProcessBadMetaLine(t *testing.T) {
	p := New(Config{})
	_, _, _, err := p.Process("title: ok\nthis line has no separator\n\nbody\n")
	if !errors.Is(err, apperr.ErrMalformedContent) {
		t.Errorf("err = %v, want ErrMalformedContent", err)
	}
}

func TestProcessRatingFold(t *testing.T) {
	p := New(Config{})
	input := "title: T\ntotal: 10\ntimesrated: 2\nrating: 4\n\nbody\n"

	_, _, m, err := p.Process(input)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if v, _ := m.Get("total"); v != "14" {
		t.Errorf("total = %q, want 14", v)
	}
	if v, _ := m.Get("timesrated"); v != "3" {
		t.Errorf("timesrated = %q, want 3", v)
	}
	if v, _ := m.Get("rating"); v != "4.666666666666667" {
		t.Errorf("rating = %q", v)
	}
}

func TestProcessRatingWithoutHistory(t *testing.T) {
	p := New(Config{})
	_, _, m, err := p.Process("rating: 4\n\nbody\n")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	// First rating: average of one vote is the vote itself, and the
	// total/timesrated keys are only rewritten when already present.
	if v, _ := m.Get("rating"); v != "4" {
		t.Errorf("rating = %q, want 4", v)
	}
	if _, ok := m.Get("total"); ok {
		t.Error("total should not be introduced")
	}
}

func TestProcessPreTransforms(t *testing.T) {
	shout := func(s string) string { return strings.ReplaceAll(s, "quiet", "LOUD") }
	p := New(Config{Pre: []Transform{shout}})

	html, body, _, err := p.Process("title: T\n\na quiet word\n")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(html, "LOUD") {
		t.Errorf("pre transform not applied to html: %q", html)
	}
	if !strings.Contains(body, "LOUD") {
		t.Errorf("split must run on pre-processed source, body = %q", body)
	}
}

func TestProcessPostTransformOrder(t *testing.T) {
	first := func(s string) string { return s + "<!--1-->" }
	second := func(s string) string { return s + "<!--2-->" }
	p := New(Config{Post: []Transform{first, second}})

	html, _, _, err := p.Process("title: T\n\nbody\n")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.HasSuffix(html, "<!--1--><!--2-->") {
		t.Errorf("post transforms out of order: %q", html)
	}
}

func TestProcessTable(t *testing.T) {
	p := New(Config{})
	input := "title: T\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"

	html, _, _, err := p.Process(input)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(html, "<table>") {
		t.Errorf("table extension not active: %q", html)
	}
}

func TestProcessFencedCodeHighlighted(t *testing.T) {
	p := New(Config{})
	input := "title: T\n\n```go\nfunc main() {}\n```\n"

	html, _, _, err := p.Process(input)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(html, "chroma") && !strings.Contains(html, "<pre") {
		t.Errorf("fenced code not rendered/highlighted: %q", html)
	}
}

func TestDefaultResolvesWikiLinks(t *testing.T) {
	p := Default(func(route, url string) string { return "/pages/" + url })

	html, _, _, err := p.Process("title: T\n\nSee [[Other Page]].\n")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(html, "<a href='/pages/other_page'>Other Page</a>") {
		t.Errorf("wiki link not resolved: %q", html)
	}
}
