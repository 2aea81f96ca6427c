package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"SigRoute/internal/domain/models"
	"SigRoute/internal/domain/repository"
)

// FileSnapshotStore persists ledger snapshots as a JSON file. Writes go
// through a temp file and rename so a crashed write never corrupts the
// last good snapshot.
type FileSnapshotStore struct {
	path string
}

// NewFileSnapshotStore creates a file-backed snapshot store, ensuring the
// parent directory exists.
func NewFileSnapshotStore(path string) (repository.SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("snapshot dir: %w", err)
	}
	return &FileSnapshotStore{path: path}, nil
}

func (s *FileSnapshotStore) Save(ctx context.Context, snap *models.LedgerSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (s *FileSnapshotStore) Load(ctx context.Context) (*models.LedgerSnapshot, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap models.LedgerSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, nil
}

func (s *FileSnapshotStore) Close() error { return nil }
