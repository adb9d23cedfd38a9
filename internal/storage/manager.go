// Package storage provides the top-level StorageManager over the local
// BadgerHold area. The spreadsheet is the system of record; this store
// only holds what must survive a failed remote write.
package storage

import (
	"fmt"

	"github.com/jkoh/wealthtower/internal/common"
	"github.com/jkoh/wealthtower/internal/interfaces"
	"github.com/jkoh/wealthtower/internal/storage/badger"
)

// Manager implements interfaces.StorageManager.
type Manager struct {
	store     *badger.Store
	snapshots interfaces.SnapshotStore
	system    interfaces.SystemStore
	logger    *common.Logger
}

// NewManager creates a new StorageManager at the configured path.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	store, err := badger.NewStore(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create local store: %w", err)
	}

	logger.Info().Str("path", config.Storage.Path).Msg("Storage manager initialized")

	return &Manager{
		store:     store,
		snapshots: badger.NewSnapshotStorage(store, logger),
		system:    badger.NewKVStorage(store, logger),
		logger:    logger,
	}, nil
}

func (m *Manager) SnapshotStore() interfaces.SnapshotStore {
	return m.snapshots
}

func (m *Manager) SystemStore() interfaces.SystemStore {
	return m.system
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// Ensure Manager implements StorageManager
var _ interfaces.StorageManager = (*Manager)(nil)
