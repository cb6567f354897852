package domain

import "time"

// EscalationRule is priority-keyed repair policy in days.
// Params: priority, deadline, escalate-after threshold, and ordered roles to notify.
// Returns: rule entry of the escalation rule table.
type EscalationRule struct {
	Priority          Priority `json:"priority" toml:"-"`
	DeadlineDays      int      `json:"deadline_days" toml:"deadline_days"`
	EscalateAfterDays int      `json:"escalate_after_days" toml:"escalate_after_days"`
	NotifyRoles       []string `json:"notify_roles" toml:"notify_roles"`
}

// EscalationAlert is produced for one overdue record past its escalate-after threshold.
// Params: record identity, computed day counters, resolved rule, and copied descriptive fields.
// Returns: evaluator output consumed by the dispatcher.
type EscalationAlert struct {
	PotholeID   string
	DaysElapsed int
	DaysOverdue int
	Rule        EscalationRule
	Priority    Priority
	Status      Status
	RoadName    string
	Ward        string
	DetectedAt  time.Time
}

// DedupKey identifies one alert occurrence for repeat suppression.
func (a EscalationAlert) DedupKey() AlertKey {
	return AlertKey{PotholeID: a.PotholeID, DaysOverdue: a.DaysOverdue}
}

// AlertKey is (pothole, days overdue) identity of an escalation alert.
type AlertKey struct {
	PotholeID   string
	DaysOverdue int
}

// PriorityAlertKind is category of dashboard priority alert.
type PriorityAlertKind string

const (
	AlertKindCritical     PriorityAlertKind = "critical"
	AlertKindOverdue      PriorityAlertKind = "overdue"
	AlertKindHighPriority PriorityAlertKind = "high-priority"
)

// Rank returns sort precedence: critical < overdue < high-priority.
func (k PriorityAlertKind) Rank() int {
	switch k {
	case AlertKindCritical:
		return 0
	case AlertKindOverdue:
		return 1
	case AlertKindHighPriority:
		return 2
	default:
		return 3
	}
}

// PriorityAlert is one entry of the dashboard "priority alerts" view.
type PriorityAlert struct {
	ID                string            `json:"id"`
	Kind              PriorityAlertKind `json:"type"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Priority          Priority          `json:"priority"`
	DaysInfo          string            `json:"daysInfo"`
	DaysUntilDeadline int               `json:"daysUntilDeadline"`
	PotholeID         string            `json:"potholeId"`
}
