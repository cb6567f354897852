package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/google/uuid"

	"roadwatch/internal/clock"
	"roadwatch/internal/config"
	"roadwatch/internal/domain"
	"roadwatch/internal/metrics"
	"roadwatch/internal/state"
)

// Dispatcher turns pothole events into in-app notifications and outbound messages.
// Params: notification store, outbox, clock, and role address book.
// Returns: dispatcher shared by monitor and API layers.
type Dispatcher struct {
	store  *state.NotificationStore
	outbox Outbox
	clock  clock.Clock
	roles  map[string]string
	domain string
	logger *slog.Logger
	newID  func() string
}

// NewDispatcher creates dispatcher.
// Params: store, optional outbox (nil keeps notifications in-app only), clock, e-mail config, and logger.
// Returns: dispatcher.
func NewDispatcher(store *state.NotificationStore, outbox Outbox, clk clock.Clock, email config.EmailNotifier, logger *slog.Logger) *Dispatcher {
	roles := make(map[string]string, len(email.RoleAddress))
	for role, address := range email.RoleAddress {
		roles[strings.ToLower(strings.TrimSpace(role))] = strings.TrimSpace(address)
	}
	mailDomain := strings.TrimSpace(email.Domain)
	if mailDomain == "" {
		mailDomain = "brampton.ca"
	}
	return &Dispatcher{
		store:  store,
		outbox: outbox,
		clock:  clk,
		roles:  roles,
		domain: mailDomain,
		logger: logger,
		newID:  uuid.NewString,
	}
}

// Escalation records overdue notification and sends escalation notice to rule roles.
// Params: evaluator alert.
// Returns: stored notification.
func (d *Dispatcher) Escalation(alert domain.EscalationAlert) domain.Notification {
	notification := d.newNotification(
		domain.NotificationEscalation,
		domain.SeverityError,
		fmt.Sprintf("OVERDUE: %s Priority Repair", strings.ToUpper(string(alert.Priority.OrDefault()))),
		fmt.Sprintf("Pothole at %s is %d days overdue. Immediate action required.", orDefault(alert.RoadName, "Unknown Location"), alert.DaysOverdue),
		alert.PotholeID,
		true,
	)
	d.store.Add(notification)

	data := messageData{
		ID:              alert.PotholeID,
		RoadName:        alert.RoadName,
		Ward:            alert.Ward,
		Priority:        alert.Priority.OrDefault(),
		Status:          alert.Status,
		DetectedAt:      alert.DetectedAt,
		DaysOverdue:     alert.DaysOverdue,
		DeadlineDays:    alert.Rule.DeadlineDays,
		EscalationLevel: len(alert.Rule.NotifyRoles),
		Roles:           alert.Rule.NotifyRoles,
	}
	d.send(domain.CategoryEscalation, alert.PotholeID, d.Recipients(alert.Rule.NotifyRoles), EscalationSubject(alert.PotholeID), escalationTemplate, data)
	return notification
}

// Submission records new-report notification and confirms to reporter.
// Params: submitted record and optional reporter e-mail.
// Returns: stored notification.
func (d *Dispatcher) Submission(record domain.IssueRecord, contact string) domain.Notification {
	notification := d.newNotification(
		domain.NotificationSubmission,
		domain.SeverityInfo,
		"New Pothole Report",
		fmt.Sprintf("New pothole reported at %s - Priority: %s", orDefault(record.RoadName, "Unknown Location"), record.Priority.OrDefault()),
		record.ID,
		false,
	)
	d.store.Add(notification)

	if contact = strings.TrimSpace(contact); contact != "" {
		d.send(domain.CategorySubmissionConfirmation, record.ID, []string{contact}, SubmissionSubject(record.ID), submissionTemplate, recordData(record))
	}
	return notification
}

// HighPriority records alert for a newly reported high or critical pothole.
// Params: reported record.
// Returns: stored notification.
func (d *Dispatcher) HighPriority(record domain.IssueRecord) domain.Notification {
	priority := record.Priority.OrDefault()
	notification := d.newNotification(
		domain.NotificationHighPriority,
		domain.SeverityWarning,
		fmt.Sprintf("%s Priority Pothole Detected", strings.ToUpper(string(priority))),
		fmt.Sprintf("New %s priority pothole reported at %s in %s. Requires immediate attention.",
			priority, orDefault(record.RoadName, "Unknown Location"), orDefault(record.Ward, "Unknown Ward")),
		record.ID,
		true,
	)
	d.store.Add(notification)
	return notification
}

// StatusUpdate records workflow change and informs reporter.
// Params: updated record, optional reporter e-mail, and old/new status.
// Returns: stored notification.
func (d *Dispatcher) StatusUpdate(record domain.IssueRecord, contact string, oldStatus, newStatus domain.Status) domain.Notification {
	severity := domain.SeverityInfo
	if newStatus == domain.StatusCompleted {
		severity = domain.SeveritySuccess
	}
	notification := d.newNotification(
		domain.NotificationStatusUpdate,
		severity,
		"Pothole Status Updated",
		fmt.Sprintf("Pothole at %s changed from %s to %s.",
			orDefault(record.RoadName, "Unknown Location"), strings.ToUpper(string(oldStatus)), strings.ToUpper(string(newStatus))),
		record.ID,
		false,
	)
	d.store.Add(notification)

	if contact = strings.TrimSpace(contact); contact != "" {
		data := recordData(record)
		data.OldStatus = oldStatus
		data.NewStatus = newStatus
		data.StatusMessage = StatusMessage(newStatus)
		d.send(domain.CategoryStatusUpdate, record.ID, []string{contact}, StatusUpdateSubject(record.ID), statusUpdateTemplate, data)
	}
	return notification
}

// Recipients resolves roles to e-mail addresses.
// Params: ordered role names.
// Returns: configured address per role, or role@domain when unmapped.
func (d *Dispatcher) Recipients(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]bool, len(roles))
	for _, role := range roles {
		key := strings.ToLower(strings.TrimSpace(role))
		if key == "" {
			continue
		}
		address, ok := d.roles[key]
		if !ok || address == "" {
			address = key + "@" + d.domain
		}
		if seen[address] {
			continue
		}
		seen[address] = true
		out = append(out, address)
	}
	return out
}

func (d *Dispatcher) newNotification(kind domain.NotificationType, severity domain.NotificationSeverity, title, message, potholeID string, action bool) domain.Notification {
	metrics.NotificationsCreated.WithLabelValues(string(kind)).Inc()
	return domain.Notification{
		ID:             "notif-" + d.newID(),
		Type:           kind,
		Severity:       severity,
		Title:          title,
		Message:        message,
		PotholeID:      potholeID,
		CreatedAt:      d.clock.Now(),
		ActionRequired: action,
	}
}

// send renders and submits message; failures are logged and never reach the store.
func (d *Dispatcher) send(category domain.MessageCategory, potholeID string, to []string, subject string, tmpl *template.Template, data messageData) {
	if d.outbox == nil {
		return
	}
	body, err := renderBody(tmpl, data)
	if err != nil {
		d.logger.Error("outbound message render failed", "category", string(category), "pothole_id", potholeID, "error", err)
		return
	}
	message := domain.OutboundMessage{
		ID:        "msg-" + d.newID(),
		To:        to,
		Subject:   subject,
		Body:      body,
		Category:  category,
		PotholeID: potholeID,
		CreatedAt: d.clock.Now(),
	}
	if err := d.outbox.Submit(message); err != nil {
		d.logger.Warn("outbound message not queued", "message_id", message.ID, "category", string(category), "pothole_id", potholeID, "error", err)
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
