package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"

	"roadwatch/internal/clock"
	"roadwatch/internal/domain"
	"roadwatch/internal/issues"
	"roadwatch/internal/metrics"
)

// ErrInvalidSubmission marks citizen submissions rejected by validation.
var ErrInvalidSubmission = errors.New("invalid submission")

// EventSink receives pothole lifecycle events for notification.
type EventSink interface {
	Submission(record domain.IssueRecord, contact string) domain.Notification
	HighPriority(record domain.IssueRecord) domain.Notification
	StatusUpdate(record domain.IssueRecord, contact string, oldStatus, newStatus domain.Status) domain.Notification
}

// Submission is a citizen pothole report.
type Submission struct {
	RoadName     string          `json:"road_name"`
	Ward         string          `json:"ward"`
	Description  string          `json:"description"`
	Lat          float64         `json:"lat"`
	Lng          float64         `json:"lng"`
	Priority     domain.Priority `json:"priority"`
	Severity     float64         `json:"severity"`
	ContactEmail string          `json:"contact_email"`
}

// Manager coordinates issue intake, status workflow, and lifecycle notifications.
// Params: issue collection, event sink, clock, and logger.
// Returns: IssueSink for ingest transports and entrypoint for API mutations.
type Manager struct {
	collection *issues.Collection
	events     EventSink
	clock      clock.Clock
	logger     *slog.Logger
	newID      func() string

	mu       sync.Mutex
	contacts map[string]string
}

// NewManager creates manager.
// Params: collection, event sink, clock, and logger.
// Returns: initialized manager.
func NewManager(collection *issues.Collection, events EventSink, clk clock.Clock, logger *slog.Logger) *Manager {
	return &Manager{
		collection: collection,
		events:     events,
		clock:      clk,
		logger:     logger,
		newID:      uuid.NewString,
		contacts:   make(map[string]string),
	}
}

// Push upserts one record received from ingest interfaces.
// Params: validated record.
// Returns: nil; notifications never fail intake.
func (m *Manager) Push(record domain.IssueRecord) error {
	m.apply(record)
	metrics.IssuesTracked.Set(float64(m.collection.Len()))
	return nil
}

// PushBatch upserts records in order.
// Params: validated records.
// Returns: nil; notifications never fail intake.
func (m *Manager) PushBatch(records []domain.IssueRecord) error {
	for _, record := range records {
		m.apply(record)
	}
	metrics.IssuesTracked.Set(float64(m.collection.Len()))
	return nil
}

func (m *Manager) apply(record domain.IssueRecord) {
	previous, existed := m.collection.Upsert(record)
	if !existed {
		if isUrgent(record) {
			m.events.HighPriority(record)
		}
		return
	}
	if previous.Status != record.Status && record.Status != "" {
		m.events.StatusUpdate(record, m.contact(record.ID), previous.Status, record.Status)
	}
}

// Submit registers a citizen report as a new issue.
// Params: submission payload.
// Returns: created record or ErrInvalidSubmission-wrapped validation error.
func (m *Manager) Submit(submission Submission) (domain.IssueRecord, error) {
	priority := domain.Priority(strings.ToLower(strings.TrimSpace(string(submission.Priority))))
	if priority != "" && !priority.Known() {
		return domain.IssueRecord{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidSubmission, submission.Priority)
	}
	if submission.Severity < 0 || submission.Severity > 1 {
		return domain.IssueRecord{}, fmt.Errorf("%w: severity must be within [0,1]", ErrInvalidSubmission)
	}
	contact := strings.TrimSpace(submission.ContactEmail)
	if contact != "" {
		address, err := mail.ParseAddress(contact)
		if err != nil {
			return domain.IssueRecord{}, fmt.Errorf("%w: contact_email: %v", ErrInvalidSubmission, err)
		}
		contact = address.Address
	}

	now := m.clock.Now()
	record := domain.IssueRecord{
		ID:          m.reportID(now.Year()),
		DetectedAt:  now,
		Priority:    priority,
		Status:      domain.StatusNew,
		RoadName:    strings.TrimSpace(submission.RoadName),
		Ward:        strings.TrimSpace(submission.Ward),
		Description: strings.TrimSpace(submission.Description),
		Lat:         submission.Lat,
		Lng:         submission.Lng,
		Severity:    submission.Severity,
		Source:      "citizen",
	}
	if err := m.collection.Create(record); err != nil {
		return domain.IssueRecord{}, err
	}
	if contact != "" {
		m.mu.Lock()
		m.contacts[record.ID] = contact
		m.mu.Unlock()
	}
	metrics.IssuesIngested.WithLabelValues("citizen", "ok").Inc()
	metrics.IssuesTracked.Set(float64(m.collection.Len()))

	m.events.Submission(record, contact)
	if isUrgent(record) {
		m.events.HighPriority(record)
	}
	m.logger.Info("citizen report registered", "pothole_id", record.ID, "priority", string(record.Priority.OrDefault()))
	return record, nil
}

// UpdateStatus moves one issue to a new workflow status.
// Params: issue ID and target status.
// Returns: updated record, issues.ErrNotFound, or validation error.
func (m *Manager) UpdateStatus(id string, status domain.Status) (domain.IssueRecord, error) {
	if !status.Known() {
		return domain.IssueRecord{}, fmt.Errorf("%w: unknown status %q", ErrInvalidSubmission, status)
	}
	updated, old, err := m.collection.SetStatus(id, status)
	if err != nil {
		return domain.IssueRecord{}, err
	}
	if old != status {
		m.events.StatusUpdate(updated, m.contact(id), old, status)
	}
	return updated, nil
}

func (m *Manager) contact(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contacts[id]
}

// reportID builds PH-<year>-<6 upper-case hex chars> identifier.
func (m *Manager) reportID(year int) string {
	suffix := strings.ToUpper(strings.ReplaceAll(m.newID(), "-", ""))
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return fmt.Sprintf("PH-%d-%s", year, suffix)
}

func isUrgent(record domain.IssueRecord) bool {
	if record.Status == domain.StatusCompleted {
		return false
	}
	return record.Priority == domain.PriorityHigh || record.Priority == domain.PriorityCritical
}
