package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"rentdesk/internal/fsutil"
	appLog "rentdesk/internal/log"
)

// Store is a small JSON-file-backed key/value store. Each value is kept as
// raw JSON and the whole file is rewritten atomically on every mutation.
type Store struct {
	mu   sync.Mutex
	path string
	data map[string]json.RawMessage
}

// Open loads the store at path. A missing file yields an empty store; a
// malformed file is logged and also treated as empty so the app can start.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("kvstore: path is empty")
	}
	s := &Store{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Debug("kvstore: no state file yet", "path", path)
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		appLog.Error("kvstore: state file is malformed; starting empty", err, "path", path)
		s.data = make(map[string]json.RawMessage)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Get decodes the value stored under key into v. ok is false when the key
// is absent.
func (s *Store) Get(key string, v any) (ok bool, err error) {
	s.mu.Lock()
	raw, found := s.data[key]
	s.mu.Unlock()

	if !found {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("kvstore: decode %q: %w", key, err)
	}
	return true, nil
}

// Set stores v under key and persists the file.
func (s *Store) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kvstore: encode %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return s.flushLocked()
}

// Delete removes key and persists the file. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flushLocked()
}

// Keys lists stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) flushLocked() error {
	out, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(s.path, out, 0o600)
}
