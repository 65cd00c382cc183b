// Package credentials persists user accounts in a line-oriented flat file.
//
// Each line holds "username,password". The format has no escaping, so
// neither field may contain a comma or a line break; callers must reject
// such values before saving.
package credentials

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore reads and rewrites the credential file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore for path. The file need not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// LoadAll returns every account keyed by username. A missing file yields an
// empty map. Blank lines are skipped; a line without exactly one comma is an error.
func (s *FileStore) LoadAll() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	users := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("credentials line %d: expected 2 fields, got %d", n, len(parts))
		}
		users[parts[0]] = parts[1]
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan credentials: %w", err)
	}
	return users, nil
}

// SaveAll rewrites the whole file. The write goes to a temp file that is
// renamed into place.
func (s *FileStore) SaveAll(users map[string]string) error {
	names := make([]string, 0, len(users))
	for u := range users {
		names = append(names, u)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	for _, u := range names {
		fmt.Fprintf(&buf, "%s,%s\n", u, users[u])
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp credentials: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close() //nolint:errcheck // chmod error takes precedence
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}
