package issues

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"roadwatch/internal/domain"
)

var (
	// ErrNotFound indicates absent issue ID.
	ErrNotFound = errors.New("issue not found")
	// ErrExists indicates duplicate issue ID on create.
	ErrExists = errors.New("issue already exists")
)

// Source supplies a point-in-time view of tracked issues.
// Params: context for transports that block.
// Returns: records in collection order or source error.
type Source interface {
	Snapshot(ctx context.Context) ([]domain.IssueRecord, error)
}

// Collection is the in-memory issue collection read by the monitor.
// Params: ordered records keyed by ID plus change observers.
// Returns: thread-safe Source implementation.
type Collection struct {
	mu        sync.RWMutex
	records   []domain.IssueRecord
	index     map[string]int
	observers []func()
	// upstream holds the status last reported by Sync for each upstream ID.
	upstream map[string]domain.Status
}

// NewCollection creates collection seeded with records.
// Params: initial records; later duplicates replace earlier ones.
// Returns: initialized collection.
func NewCollection(records []domain.IssueRecord) *Collection {
	c := &Collection{index: make(map[string]int), upstream: make(map[string]domain.Status)}
	c.replaceLocked(records)
	return c
}

// OnChange registers callback invoked after collection contents change.
func (c *Collection) OnChange(observer func()) {
	if observer == nil {
		return
	}
	c.mu.Lock()
	c.observers = append(c.observers, observer)
	c.mu.Unlock()
}

// Snapshot returns copy of records in collection order.
func (c *Collection) Snapshot(context.Context) ([]domain.IssueRecord, error) {
	return c.List(), nil
}

// List returns copy of records in collection order.
func (c *Collection) List() []domain.IssueRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.IssueRecord(nil), c.records...)
}

// Len returns number of tracked records.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Get returns one record by ID.
func (c *Collection) Get(id string) (domain.IssueRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.index[id]
	if !ok {
		return domain.IssueRecord{}, false
	}
	return c.records[idx], true
}

// Sync merges an upstream listing into the collection.
// Upstream records replace local copies, except that a status changed locally
// survives until upstream reports a different status for that ID. Records
// added locally and unknown upstream are kept ahead of upstream records.
// Params: upstream records in display order.
// Returns: nothing; observers are notified.
func (c *Collection) Sync(records []domain.IssueRecord) {
	c.mu.Lock()
	upstream := make(map[string]domain.Status, len(records))
	merged := make([]domain.IssueRecord, 0, len(records)+len(c.records))
	for _, record := range c.records {
		if _, known := c.upstream[record.ID]; !known {
			merged = append(merged, record)
		}
	}
	for _, record := range records {
		reported := record.Status
		if idx, ok := c.index[record.ID]; ok {
			local := c.records[idx].Status
			if last, known := c.upstream[record.ID]; known && local != last && reported == last {
				record.Status = local
			}
		}
		upstream[record.ID] = reported
		merged = append(merged, record)
	}
	c.upstream = upstream
	c.replaceLocked(merged)
	c.notifyLocked()
}

// Upsert inserts new record at the front or updates existing one in place.
// An update without status keeps the stored workflow status.
// Params: record with non-empty ID.
// Returns: previous record and whether it existed.
func (c *Collection) Upsert(record domain.IssueRecord) (domain.IssueRecord, bool) {
	c.mu.Lock()
	idx, ok := c.index[record.ID]
	var previous domain.IssueRecord
	if ok {
		previous = c.records[idx]
		if record.Status == "" {
			record.Status = previous.Status
		}
		c.records[idx] = record
	} else {
		c.records = append([]domain.IssueRecord{record}, c.records...)
		c.reindexLocked()
	}
	c.notifyLocked()
	return previous, ok
}

// Create inserts new record at the front.
// Params: record with unique ID.
// Returns: ErrExists when ID is already tracked.
func (c *Collection) Create(record domain.IssueRecord) error {
	c.mu.Lock()
	if _, ok := c.index[record.ID]; ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExists, record.ID)
	}
	c.records = append([]domain.IssueRecord{record}, c.records...)
	c.reindexLocked()
	c.notifyLocked()
	return nil
}

// SetStatus changes workflow status of one record.
// Params: issue ID and new status.
// Returns: updated record and previous status, or ErrNotFound.
func (c *Collection) SetStatus(id string, status domain.Status) (domain.IssueRecord, domain.Status, error) {
	c.mu.Lock()
	idx, ok := c.index[id]
	if !ok {
		c.mu.Unlock()
		return domain.IssueRecord{}, "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	old := c.records[idx].Status
	c.records[idx].Status = status
	updated := c.records[idx]
	if old == status {
		c.mu.Unlock()
		return updated, old, nil
	}
	c.notifyLocked()
	return updated, old, nil
}

func (c *Collection) replaceLocked(records []domain.IssueRecord) {
	c.records = make([]domain.IssueRecord, 0, len(records))
	c.index = make(map[string]int, len(records))
	for _, record := range records {
		if idx, ok := c.index[record.ID]; ok {
			c.records[idx] = record
			continue
		}
		c.index[record.ID] = len(c.records)
		c.records = append(c.records, record)
	}
}

func (c *Collection) reindexLocked() {
	for i, record := range c.records {
		c.index[record.ID] = i
	}
}

// notifyLocked releases the lock and runs observers.
func (c *Collection) notifyLocked() {
	observers := append([]func(){}, c.observers...)
	c.mu.Unlock()
	for _, observer := range observers {
		observer()
	}
}
