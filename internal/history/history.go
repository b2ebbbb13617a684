// Package history implements the append-only, JSON-backed edit log kept
// next to each wiki page.
package history

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/starford/ansuz/internal/storage"
)

// dateLayout is the human-readable form stored with each entry.
const dateLayout = "Jan 02, 2006 at 03:04:05 PM"

// Entry is one immutable recorded edit: who saved, when, and the full body
// snapshot at that point (not a diff).
type Entry struct {
	User          string `json:"user"`
	FormattedDate string `json:"formatted-date"`
	Version       string `json:"version"`
}

// Store holds the full edit log of one page in memory, keyed by fractional
// epoch-seconds timestamps. Existing keys are never rewritten or removed.
type Store struct {
	url     string
	path    string
	store   storage.Provider
	entries map[string]Entry
}

// LoadOrCreate opens the history file at path (relative to the content
// root), creating it as an empty JSON object if absent, and loads all
// entries into memory. A file that exists but is not valid JSON is a
// storage error.
func LoadOrCreate(store storage.Provider, path, url string) (*Store, error) {
	if !store.Exists(path) {
		if err := store.Write(path, []byte("{}\n")); err != nil {
			return nil, err
		}
	}
	data, err := store.Read(path)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("history: parse %s: %w", path, err)
	}
	return &Store{url: url, path: path, store: store, entries: entries}, nil
}

// Append records a new entry keyed by the current timestamp and persists the
// whole log back to the backing file. When two saves land on the same
// nanosecond the key is bumped until unique, so N appends always yield N
// entries.
func (s *Store) Append(user, version string) error {
	now := time.Now()
	key := timestampKey(now)
	for _, taken := s.entries[key]; taken; _, taken = s.entries[key] {
		now = now.Add(time.Nanosecond)
		key = timestampKey(now)
	}
	s.entries[key] = Entry{
		User:          user,
		FormattedDate: now.Format(dateLayout),
		Version:       version,
	}

	data, err := json.MarshalIndent(s.entries, "", "    ")
	if err != nil {
		return fmt.Errorf("history: encode %s: %w", s.path, err)
	}
	return s.store.Write(s.path, append(data, '\n'))
}

// OrderedKeys returns all timestamp keys sorted descending (newest first).
func (s *Store) OrderedKeys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

// Entry returns the entry stored under key.
func (s *Store) Entry(key string) (Entry, bool) {
	e, ok := s.entries[key]
	return e, ok
}

// Len returns the number of recorded entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// Path returns the history file path relative to the content root.
func (s *Store) Path() string {
	return s.path
}

// URL returns the url of the page this history belongs to.
func (s *Store) URL() string {
	return s.url
}

// timestampKey renders t as fractional epoch seconds. Fixed-width
// nanosecond padding keeps lexicographic and numeric ordering identical.
func timestampKey(t time.Time) string {
	return fmt.Sprintf("%d.%09d", t.Unix(), t.Nanosecond())
}
