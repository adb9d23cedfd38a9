package interfaces

import (
	"context"

	"github.com/jkoh/wealthtower/internal/models"
)

// StorageManager coordinates the local storage backends.
type StorageManager interface {
	SnapshotStore() SnapshotStore
	SystemStore() SystemStore

	// Lifecycle
	Close() error
}

// SnapshotStore parks reconciled records whose remote write failed, until
// an operator retry succeeds.
type SnapshotStore interface {
	SavePending(ctx context.Context, snap *models.PendingSnapshot) error
	GetPending(ctx context.Context, id string) (*models.PendingSnapshot, error)
	DeletePending(ctx context.Context, id string) error
	ListPending(ctx context.Context) ([]*models.PendingSnapshot, error)
}

// SystemStore is the system-level key-value area (schema markers, last
// successful persist, operational breadcrumbs).
type SystemStore interface {
	GetSystemKV(ctx context.Context, key string) (string, error)
	SetSystemKV(ctx context.Context, key, value string) error
	DeleteSystemKV(ctx context.Context, key string) error
}
