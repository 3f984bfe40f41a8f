package snippet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"rentdesk/internal/fsutil"
	appLog "rentdesk/internal/log"
	"rentdesk/internal/model"
)

const (
	appDirName = "RentDesk"
	fileName   = "snippets.json"
)

var (
	ErrNotFound = errors.New("snippet: not found")
	ErrExists   = errors.New("snippet: id already exists")
)

// DefaultPath is <user config dir>/RentDesk/snippets.json, which is
// ~/Library/Application Support/RentDesk on macOS.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDirName, fileName), nil
}

// LoadFile reads a snippet list. A missing file is an empty list, not an error.
func LoadFile(path string) ([]model.Snippet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.Snippet{}, nil
		}
		return nil, err
	}

	var out []model.Snippet
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("snippet: decode %s: %w", path, err)
	}
	if out == nil {
		out = []model.Snippet{}
	}
	return out, nil
}

// SaveFile writes the whole list, replacing the file atomically.
func SaveFile(path string, snippets []model.Snippet) error {
	if snippets == nil {
		snippets = []model.Snippet{}
	}
	data, err := json.MarshalIndent(snippets, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o600)
}

// New returns a snippet with a fresh ID.
func New(title, content string, tags []string) model.Snippet {
	if tags == nil {
		tags = []string{}
	}
	return model.Snippet{
		ID:      uuid.NewString(),
		Title:   title,
		Content: content,
		Tags:    tags,
	}
}

// ParseTags splits a comma-separated tag field, trimming blanks.
func ParseTags(s string) []string {
	tags := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

// FormatTags is the inverse of ParseTags.
func FormatTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// Store owns the ordered snippet list and is the only writer of its file.
// Snippets are kept in case-insensitive alphabetical order by title; equal
// titles keep insertion order.
//
// Persistence failures are logged and dropped: the in-memory list stays
// authoritative until the next successful save.
type Store struct {
	mu    sync.Mutex
	path  string
	items []model.Snippet
}

// NewStore returns an empty store bound to path. Call Load to read the file.
func NewStore(path string) *Store {
	return &Store{path: path, items: []model.Snippet{}}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load replaces the in-memory list with the file content. Decode errors
// are logged and leave the store empty.
func (s *Store) Load() []model.Snippet {
	items, err := LoadFile(s.path)
	if err != nil {
		appLog.Error("snippet store load failed; starting empty", err, "path", s.path)
		items = []model.Snippet{}
	}

	s.mu.Lock()
	s.items = items
	out := s.copyLocked()
	s.mu.Unlock()

	appLog.Debug("snippet store loaded", "path", s.path, "count", len(out))
	return out
}

// List returns a copy of all snippets in store order.
func (s *Store) List() []model.Snippet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Get looks a snippet up by ID.
func (s *Store) Get(id string) (model.Snippet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	return model.Snippet{}, false
}

// Add inserts sn before the first snippet whose lower-cased title sorts
// after it. An empty ID is filled in.
func (s *Store) Add(sn model.Snippet) (model.Snippet, error) {
	if sn.ID == "" {
		sn.ID = uuid.NewString()
	}
	if sn.Tags == nil {
		sn.Tags = []string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(sn.ID) >= 0 {
		return model.Snippet{}, ErrExists
	}

	pos := len(s.items)
	lower := strings.ToLower(sn.Title)
	for i, it := range s.items {
		if strings.ToLower(it.Title) > lower {
			pos = i
			break
		}
	}
	s.items = append(s.items, model.Snippet{})
	copy(s.items[pos+1:], s.items[pos:])
	s.items[pos] = sn

	s.persistLocked()
	return sn, nil
}

// Update replaces the snippet with the same ID in place.
func (s *Store) Update(sn model.Snippet) error {
	if sn.Tags == nil {
		sn.Tags = []string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(sn.ID)
	if i < 0 {
		return ErrNotFound
	}
	s.items[i] = sn
	s.persistLocked()
	return nil
}

// Delete removes the snippet with id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persistLocked()
	return nil
}

// DeleteMany removes every snippet whose ID is in ids and returns how many
// were removed. Unknown IDs are ignored.
func (s *Store) DeleteMany(ids []string) int {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	for _, it := range s.items {
		if _, ok := drop[it.ID]; !ok {
			kept = append(kept, it)
		}
	}
	removed := len(s.items) - len(kept)
	s.items = kept
	if removed > 0 {
		s.persistLocked()
	}
	return removed
}

// Search returns snippets whose title or any tag contains query,
// case-insensitively. An empty query returns everything.
func (s *Store) Search(query string) []model.Snippet {
	q := strings.ToLower(strings.TrimSpace(query))

	s.mu.Lock()
	defer s.mu.Unlock()

	if q == "" {
		return s.copyLocked()
	}
	out := make([]model.Snippet, 0)
	for _, it := range s.items {
		if matches(it, q) {
			out = append(out, it)
		}
	}
	return out
}

func matches(sn model.Snippet, q string) bool {
	if strings.Contains(strings.ToLower(sn.Title), q) {
		return true
	}
	for _, tag := range sn.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func (s *Store) indexLocked(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) copyLocked() []model.Snippet {
	out := make([]model.Snippet, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) persistLocked() {
	if err := SaveFile(s.path, s.items); err != nil {
		appLog.Error("snippet store save failed", err, "path", s.path, "count", len(s.items))
		return
	}
	appLog.Debug("snippet store saved", "path", s.path, "count", len(s.items))
}
