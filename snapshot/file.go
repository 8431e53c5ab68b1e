// Package snapshot provides SnapshotStore implementations for the stock ledger:
// a single-document JSON file and a redis key.
package snapshot

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/pinto1232/pos-stock-ledger/core/stock"
)

type FileStore struct {
	path string
}

// NewFileStore persists snapshots as one JSON document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (*stock.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}

	snap := &stock.Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, errors.WithMessage(err, "failed to parse snapshot file")
	}
	return snap, nil
}

func (s *FileStore) Save(ctx context.Context, snap *stock.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.WithStack(err)
	}

	// Write-then-rename so a crash mid-write never leaves a torn snapshot.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.Rename(tmp, s.path))
}
