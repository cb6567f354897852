package state

import (
	"context"
	"errors"

	"roadwatch/internal/domain"
)

var (
	// ErrNotFound indicates absent snapshot key.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates revision mismatch for CAS update.
	ErrConflict = errors.New("revision conflict")
)

// SnapshotStore persists full notification store snapshots.
// Params: load/save operations keyed by one configured snapshot key.
// Returns: backend persistence behavior.
type SnapshotStore interface {
	Load(ctx context.Context) ([]domain.Notification, uint64, error)
	Save(ctx context.Context, expectedRevision uint64, items []domain.Notification) (uint64, error)
	Close() error
}
