package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/athens-bands/internal/config"
	"github.com/pfrederiksen/athens-bands/internal/event"
)

// ErrNotFound is returned by Load when no payload has been saved yet
var ErrNotFound = errors.New("no payload stored")

// Store holds the latest payload under a single key
type Store interface {
	Load(ctx context.Context) (*event.Payload, error)
	Save(ctx context.Context, payload *event.Payload) error
	Close() error
}

// Open returns the store selected by cfg.Driver
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileStore(cfg.Dir, cfg.Key)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN, cfg.Table, cfg.Key)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// expandHome expands a leading ~/ to the user's home directory
func expandHome(dir string) (string, error) {
	if !strings.HasPrefix(dir, "~/") {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dir[2:]), nil
}
