package state

import (
	"context"
	"sync"

	"roadwatch/internal/domain"
)

// MemoryStore keeps the last saved snapshot in process memory.
// Params: guarded snapshot and revision counter.
// Returns: snapshot store without external dependencies.
type MemoryStore struct {
	mu       sync.RWMutex
	items    []domain.Notification
	revision uint64
	saved    bool
}

// NewMemoryStore creates empty in-memory snapshot store.
// Params: none.
// Returns: initialized store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns last saved snapshot.
// Params: context is unused.
// Returns: snapshot and revision, or ErrNotFound before first save.
func (s *MemoryStore) Load(context.Context) ([]domain.Notification, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.saved {
		return nil, 0, ErrNotFound
	}
	return append([]domain.Notification(nil), s.items...), s.revision, nil
}

// Save stores snapshot using revision CAS; revision 0 writes unconditionally.
// Params: expected revision and snapshot.
// Returns: new revision or ErrConflict.
func (s *MemoryStore) Save(_ context.Context, expectedRevision uint64, items []domain.Notification) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expectedRevision != 0 && expectedRevision != s.revision {
		return 0, ErrConflict
	}
	s.items = append([]domain.Notification(nil), items...)
	s.revision++
	s.saved = true
	return s.revision, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
