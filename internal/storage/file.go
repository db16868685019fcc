package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pfrederiksen/athens-bands/internal/config"
	"github.com/pfrederiksen/athens-bands/internal/event"
)

// FileStore keeps the payload as an indented JSON file
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore, creating dataDir if needed. An empty key
// uses config.DefaultStorageKey.
func NewFileStore(dataDir, key string) (*FileStore, error) {
	if dataDir == "" {
		dataDir = config.DefaultStorageDir
	}
	if key == "" {
		key = config.DefaultStorageKey
	}

	dataDir, err := expandHome(dataDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &FileStore{path: filepath.Join(dataDir, key)}, nil
}

// Path returns the payload file location
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the stored payload
func (s *FileStore) Load(ctx context.Context) (*event.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading payload: %w", err)
	}

	var payload event.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing payload: %w", err)
	}

	return &payload, nil
}

// Save replaces the stored payload. The file is written to a temporary name
// and renamed so readers never observe a partial write.
func (s *FileStore) Save(ctx context.Context, payload *event.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing payload: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing payload: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing payload: %w", err)
	}

	return nil
}

// Close is a no-op for file storage
func (s *FileStore) Close() error {
	return nil
}
