package photo

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	appLog "rentdesk/internal/log"
)

// Manager copies object photos into one directory under generated names.
type Manager struct {
	dir string
}

// NewManager returns a Manager rooted at dir, creating it if needed.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		return nil, errors.New("photo: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the photo directory.
func (m *Manager) Dir() string { return m.dir }

// Save copies src into the photo directory as <uuid><ext> and returns the
// stored path.
func (m *Manager) Save(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("photo: open source: %w", err)
	}
	defer in.Close()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(src))
	dst := filepath.Join(m.dir, name)

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("photo: copy: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", err
	}

	appLog.Info("photo saved", "src", src, "path", dst)
	return dst, nil
}

// Delete removes a stored photo. Paths outside the photo directory are
// refused so a tampered state file cannot delete arbitrary files.
func (m *Manager) Delete(path string) error {
	rel, err := filepath.Rel(m.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("photo: %s is outside %s", path, m.dir)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
