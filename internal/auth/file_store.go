package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileUserStore keeps the whole user table in a single json object mapping
// username to password hash. Every write rewrites the file.
type FileUserStore struct {
	path string
	mu   sync.Mutex
}

var _ UserStore = (*FileUserStore)(nil)

func NewFileUserStore(path string) (*FileUserStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for user table: %w", err)
	}
	return &FileUserStore{path: path}, nil
}

func (s *FileUserStore) Get(ctx context.Context, username string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUnlocked()
	if err != nil {
		return "", false, err
	}
	hash, ok := users[username]
	return hash, ok, nil
}

func (s *FileUserStore) Create(ctx context.Context, username, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUnlocked()
	if err != nil {
		return err
	}
	if _, exists := users[username]; exists {
		return ErrUserExists
	}
	users[username] = hash

	return s.saveUnlocked(users)
}

func (s *FileUserStore) loadUnlocked() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read user table %s: %w", s.path, err)
	}

	users := map[string]string{}
	if len(data) == 0 {
		return users, nil
	}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse user table %s: %w", s.path, err)
	}
	return users, nil
}

func (s *FileUserStore) saveUnlocked(users map[string]string) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to encode user table: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
