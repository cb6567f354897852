package domain

import "time"

// NotificationType classifies in-app notification origin.
type NotificationType string

const (
	NotificationSubmission   NotificationType = "submission"
	NotificationHighPriority NotificationType = "high-priority"
	NotificationEscalation   NotificationType = "escalation"
	NotificationStatusUpdate NotificationType = "status-update"
)

// NotificationSeverity is a presentation hint for the UI.
type NotificationSeverity string

const (
	SeverityInfo    NotificationSeverity = "info"
	SeverityWarning NotificationSeverity = "warning"
	SeverityError   NotificationSeverity = "error"
	SeveritySuccess NotificationSeverity = "success"
)

// Notification is one user-visible in-app record of an event.
// Params: identity, classification, text, optional pothole back-reference, and read state.
// Returns: entry owned by the notification store.
type Notification struct {
	ID             string               `json:"id"`
	Type           NotificationType     `json:"type"`
	Severity       NotificationSeverity `json:"severity"`
	Title          string               `json:"title"`
	Message        string               `json:"message"`
	PotholeID      string               `json:"potholeId,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
	Read           bool                 `json:"read"`
	ActionRequired bool                 `json:"actionRequired"`
}

// IsHighPriority reports whether notification belongs to the high-priority view.
func (n Notification) IsHighPriority() bool {
	return n.Type == NotificationHighPriority || n.Type == NotificationEscalation
}

// MessageCategory identifies outbound message template family.
type MessageCategory string

const (
	CategorySubmissionConfirmation MessageCategory = "submission_confirmation"
	CategoryStatusUpdate           MessageCategory = "status_update"
	CategoryEscalation             MessageCategory = "escalation"
)

// OutboundMessage is a rendered message handed to external delivery.
// Params: recipients, subject/body, category, and originating pothole.
// Returns: payload for outbound senders.
type OutboundMessage struct {
	ID        string          `json:"id"`
	To        []string        `json:"to"`
	Subject   string          `json:"subject"`
	Body      string          `json:"body"`
	Category  MessageCategory `json:"category"`
	PotholeID string          `json:"pothole_id"`
	CreatedAt time.Time       `json:"created_at"`
}
