package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"marketdata-backend/internal/domain"
)

// FileSnapshotCache persists the full coin list as one JSON document.
// Writes go through a temp file plus rename so a crash mid-write never
// corrupts the previous snapshot.
type FileSnapshotCache struct {
	path string
}

func NewFileSnapshotCache(path string) *FileSnapshotCache {
	return &FileSnapshotCache{path: path}
}

func (c *FileSnapshotCache) Save(coins []domain.Coin) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.Marshal(coins)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), "snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Load returns a DecodeError when the file is absent or unparseable.
// Callers treat that as "no cache", not as a fatal condition.
func (c *FileSnapshotCache) Load() ([]domain.Coin, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, &domain.DecodeError{Err: err}
	}

	var coins []domain.Coin
	if err := json.Unmarshal(data, &coins); err != nil {
		return nil, &domain.DecodeError{Err: err}
	}
	return coins, nil
}
