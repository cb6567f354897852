package state

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"roadwatch/internal/domain"
	"roadwatch/internal/metrics"
)

// Persister mirrors notification store contents into a SnapshotStore.
// Params: snapshot backend and logger.
// Returns: store observer that saves the latest snapshot asynchronously.
type Persister struct {
	backend SnapshotStore
	logger  *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	pending  []domain.Notification
	version  uint64
	dirty    bool
	revision uint64
	wake     chan struct{}
	idle     *sync.Cond
	running  bool
}

// NewPersister creates persister over snapshot backend.
// Params: backend store and logger.
// Returns: persister; call Run to start saving.
func NewPersister(backend SnapshotStore, logger *slog.Logger) *Persister {
	p := &Persister{
		backend: backend,
		logger:  logger,
		timeout: 5 * time.Second,
		wake:    make(chan struct{}, 1),
	}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// Restore loads persisted snapshot into store.
// Params: context and target store.
// Returns: load error; a missing snapshot is not an error.
func (p *Persister) Restore(ctx context.Context, store *NotificationStore) error {
	items, revision, err := p.backend.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.PersistOperations.WithLabelValues("load", "empty").Inc()
			return nil
		}
		metrics.PersistOperations.WithLabelValues("load", "error").Inc()
		return err
	}
	metrics.PersistOperations.WithLabelValues("load", "ok").Inc()
	store.Restore(items)

	p.mu.Lock()
	p.revision = revision
	p.mu.Unlock()
	p.logger.Info("notifications restored", "count", len(items), "revision", revision)
	return nil
}

// Observe is a ChangeObserver that schedules latest snapshot for saving.
// Older unsaved snapshots are replaced; only the newest is written.
// Snapshots older than one already observed are ignored.
func (p *Persister) Observe(items []domain.Notification, _ int, version uint64) {
	p.mu.Lock()
	if version <= p.version {
		p.mu.Unlock()
		return
	}
	p.version = version
	p.pending = items
	p.dirty = true
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run saves scheduled snapshots until ctx is canceled, then flushes once more.
// Params: lifecycle context.
// Returns: when ctx is done and last snapshot is written.
func (p *Persister) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.saveDirty(context.Background())
			return
		case <-p.wake:
			p.saveDirty(ctx)
		}
	}
}

// Flush blocks until no snapshot is pending or being written.
// Must only be called while Run is active.
func (p *Persister) Flush() {
	p.mu.Lock()
	for p.dirty || p.running {
		p.idle.Wait()
	}
	p.mu.Unlock()
}

func (p *Persister) saveDirty(parent context.Context) {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return
	}
	items := p.pending
	revision := p.revision
	p.dirty = false
	p.running = true
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, p.timeout)
	newRevision, err := p.backend.Save(ctx, revision, items)
	if errors.Is(err, ErrConflict) {
		// Another writer moved the key; this instance owns the inbox, overwrite.
		p.logger.Warn("notification snapshot revision conflict, overwriting", "expected_revision", revision)
		newRevision, err = p.backend.Save(ctx, 0, items)
	}
	cancel()

	p.mu.Lock()
	if err != nil {
		metrics.PersistOperations.WithLabelValues("save", "error").Inc()
		p.logger.Error("notification snapshot save failed", "count", len(items), "error", err)
	} else {
		metrics.PersistOperations.WithLabelValues("save", "ok").Inc()
		p.revision = newRevision
	}
	p.running = false
	p.idle.Broadcast()
	p.mu.Unlock()

	if err == nil {
		p.logger.Debug("notification snapshot saved", "count", len(items), "revision", newRevision)
	}
}
