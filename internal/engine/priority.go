package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"roadwatch/internal/domain"
)

// PriorityAlerts builds the dashboard priority-alert view.
// Params: record snapshot, rule table, and evaluation time.
// Returns: alerts sorted critical, overdue, high-priority; ties keep input order.
func PriorityAlerts(records []domain.IssueRecord, table *RuleTable, now time.Time) []domain.PriorityAlert {
	alerts := make([]domain.PriorityAlert, 0)
	for _, record := range records {
		if record.Status == domain.StatusCompleted || !record.HasDetectedAt() {
			continue
		}
		daysLeft := DaysUntilDeadline(record, table, now)
		road := orDefault(record.RoadName, "Unknown Location")

		if record.Priority == domain.PriorityCritical {
			info := fmt.Sprintf("Due in %d days", daysLeft)
			if daysLeft < 0 {
				info = overdueText(daysLeft)
			}
			alerts = append(alerts, domain.PriorityAlert{
				ID:                "critical-" + record.ID,
				Kind:              domain.AlertKindCritical,
				Title:             "CRITICAL Priority Pothole",
				Description:       road + " - " + orDefault(record.Ward, "No Ward"),
				Priority:          domain.PriorityCritical,
				DaysInfo:          info,
				DaysUntilDeadline: daysLeft,
				PotholeID:         record.ID,
			})
		}

		if record.Priority == domain.PriorityHigh && daysLeft <= 1 {
			info := "Due today"
			if daysLeft < 0 {
				info = overdueText(daysLeft)
			}
			alerts = append(alerts, domain.PriorityAlert{
				ID:                "high-" + record.ID,
				Kind:              domain.AlertKindHighPriority,
				Title:             "High Priority Repair Urgent",
				Description:       road + " - " + orDefault(record.Ward, "No Ward"),
				Priority:          domain.PriorityHigh,
				DaysInfo:          info,
				DaysUntilDeadline: daysLeft,
				PotholeID:         record.ID,
			})
		}

		if daysLeft < 0 {
			priority := record.Priority.OrDefault()
			alerts = append(alerts, domain.PriorityAlert{
				ID:                "overdue-" + record.ID,
				Kind:              domain.AlertKindOverdue,
				Title:             "Overdue Repair",
				Description:       road + " - " + strings.ToUpper(string(priority)),
				Priority:          priority,
				DaysInfo:          overdueText(daysLeft),
				DaysUntilDeadline: daysLeft,
				PotholeID:         record.ID,
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Kind.Rank() < alerts[j].Kind.Rank()
	})
	return alerts
}

func overdueText(daysLeft int) string {
	if daysLeft < 0 {
		daysLeft = -daysLeft
	}
	return fmt.Sprintf("%d days overdue", daysLeft)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
