package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/jkoh/wealthtower/internal/common"
	"github.com/jkoh/wealthtower/internal/models"
)

type snapshotStorage struct {
	store  *Store
	logger *common.Logger
}

// NewSnapshotStorage creates a SnapshotStore backed by BadgerHold.
func NewSnapshotStorage(store *Store, logger *common.Logger) *snapshotStorage {
	return &snapshotStorage{store: store, logger: logger}
}

func (s *snapshotStorage) SavePending(_ context.Context, snap *models.PendingSnapshot) error {
	if err := s.store.db.Upsert(snap.ID, snap); err != nil {
		return fmt.Errorf("failed to save pending snapshot %s: %w", snap.ID, err)
	}
	return nil
}

func (s *snapshotStorage) GetPending(_ context.Context, id string) (*models.PendingSnapshot, error) {
	var snap models.PendingSnapshot
	err := s.store.db.Get(id, &snap)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("pending snapshot '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get pending snapshot '%s': %w", id, err)
	}
	return &snap, nil
}

func (s *snapshotStorage) DeletePending(_ context.Context, id string) error {
	err := s.store.db.Delete(id, models.PendingSnapshot{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete pending snapshot '%s': %w", id, err)
	}
	return nil
}

func (s *snapshotStorage) ListPending(_ context.Context) ([]*models.PendingSnapshot, error) {
	var snaps []models.PendingSnapshot
	if err := s.store.db.Find(&snaps, nil); err != nil {
		return nil, fmt.Errorf("failed to list pending snapshots: %w", err)
	}

	out := make([]*models.PendingSnapshot, 0, len(snaps))
	for i := range snaps {
		out = append(out, &snaps[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
