package state

import (
	"sync"

	"roadwatch/internal/domain"
)

// ChangeObserver receives store contents after each mutation.
// Params: newest-first copy of notifications, unread count, and mutation version.
// Versions increase with every mutation; observers may run concurrently, so a
// call can arrive after one carrying a higher version.
// Returns: nothing; items is shared between observers and must not be modified.
type ChangeObserver func(items []domain.Notification, unread int, version uint64)

// NotificationStore holds in-app notifications newest first.
// Params: optional capacity bound; zero keeps every notification.
// Returns: mutex-serialized store shared by dispatcher, monitor, and API.
type NotificationStore struct {
	mu        sync.Mutex
	items     []domain.Notification
	unread    int
	max       int
	version   uint64
	observers []ChangeObserver
}

// NewNotificationStore creates empty store.
// Params: max notifications to retain, 0 for unbounded.
// Returns: initialized store.
func NewNotificationStore(max int) *NotificationStore {
	if max < 0 {
		max = 0
	}
	return &NotificationStore{max: max}
}

// OnChange registers observer called after every mutation.
// Params: observer callback.
// Returns: nothing.
func (s *NotificationStore) OnChange(observer ChangeObserver) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, observer)
	s.mu.Unlock()
}

// Add prepends notification and trims oldest entries beyond capacity.
// Params: fully built notification.
// Returns: nothing.
func (s *NotificationStore) Add(n domain.Notification) {
	s.mu.Lock()
	s.items = append(s.items, domain.Notification{})
	copy(s.items[1:], s.items)
	s.items[0] = n
	if s.max > 0 && len(s.items) > s.max {
		s.items = s.items[:s.max]
	}
	s.commitLocked()
}

// MarkRead flags one notification as read.
// Params: notification ID.
// Returns: false when ID is absent; the store is left untouched.
func (s *NotificationStore) MarkRead(id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	if s.items[idx].Read {
		s.mu.Unlock()
		return true
	}
	s.items[idx].Read = true
	s.commitLocked()
	return true
}

// MarkAllRead flags every notification as read.
func (s *NotificationStore) MarkAllRead() {
	s.mu.Lock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.commitLocked()
}

// Remove deletes one notification.
// Params: notification ID.
// Returns: false when ID is absent.
func (s *NotificationStore) Remove(id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.commitLocked()
	return true
}

// Clear removes every notification.
func (s *NotificationStore) Clear() {
	s.mu.Lock()
	s.items = nil
	s.commitLocked()
}

// Restore replaces contents with a previously persisted snapshot.
// Params: newest-first notifications.
// Returns: nothing; capacity bound is applied.
func (s *NotificationStore) Restore(items []domain.Notification) {
	s.mu.Lock()
	s.items = append([]domain.Notification(nil), items...)
	if s.max > 0 && len(s.items) > s.max {
		s.items = s.items[:s.max]
	}
	s.unread = countUnread(s.items)
	s.mu.Unlock()
}

// List returns copy of all notifications newest first.
func (s *NotificationStore) List() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification{}, s.items...)
}

// Get returns one notification by ID.
func (s *NotificationStore) Get(id string) (domain.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return domain.Notification{}, false
	}
	return s.items[idx], true
}

// UnreadCount returns number of unread notifications.
func (s *NotificationStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Len returns number of stored notifications.
func (s *NotificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// HighPriority returns high-priority and escalation notifications.
func (s *NotificationStore) HighPriority() []domain.Notification {
	return s.filter(domain.Notification.IsHighPriority)
}

// ActionRequired returns unread notifications that require action.
func (s *NotificationStore) ActionRequired() []domain.Notification {
	return s.filter(func(n domain.Notification) bool {
		return n.ActionRequired && !n.Read
	})
}

func (s *NotificationStore) filter(keep func(domain.Notification) bool) []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, 0)
	for _, n := range s.items {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

func (s *NotificationStore) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// commitLocked recomputes unread count, releases the lock, and notifies observers.
func (s *NotificationStore) commitLocked() {
	s.unread = countUnread(s.items)
	s.version++
	snapshot := append([]domain.Notification{}, s.items...)
	unread, version := s.unread, s.version
	observers := append([]ChangeObserver(nil), s.observers...)
	s.mu.Unlock()

	for _, observer := range observers {
		observer(snapshot, unread, version)
	}
}

func countUnread(items []domain.Notification) int {
	unread := 0
	for _, n := range items {
		if !n.Read {
			unread++
		}
	}
	return unread
}
