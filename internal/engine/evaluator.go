package engine

import (
	"time"

	"roadwatch/internal/domain"
)

// Evaluator scans issue records and produces escalation alerts.
// Params: rule table used for deadline and threshold lookup.
// Returns: pure evaluation entrypoint without side effects.
type Evaluator struct {
	table *RuleTable
}

// Result is one evaluation pass output.
// Params: ordered alerts and count of skipped malformed records.
// Returns: evaluator output for monitor and API layers.
type Result struct {
	Alerts    []domain.EscalationAlert
	Skipped   int
	Evaluated int
}

// NewEvaluator creates evaluator over rule table.
// Params: validated rule table.
// Returns: evaluator.
func NewEvaluator(table *RuleTable) *Evaluator {
	return &Evaluator{table: table}
}

// Rules exposes evaluator rule table.
func (e *Evaluator) Rules() *RuleTable {
	return e.table
}

// Evaluate flags overdue records that crossed their escalate-after threshold.
// Params: record snapshot and evaluation time.
// Returns: alerts in input order; identical inputs always yield identical output.
func (e *Evaluator) Evaluate(records []domain.IssueRecord, now time.Time) Result {
	var result Result
	for _, record := range records {
		if record.Status == domain.StatusCompleted {
			continue
		}
		if !record.HasDetectedAt() {
			result.Skipped++
			continue
		}
		result.Evaluated++

		rule := e.table.Lookup(record.Priority)
		elapsed := DaysElapsed(record, now)
		if elapsed <= rule.DeadlineDays {
			continue
		}
		// With the default table escalate_after never exceeds deadline, so this
		// check only matters for overridden tables.
		if elapsed < rule.EscalateAfterDays {
			continue
		}

		result.Alerts = append(result.Alerts, domain.EscalationAlert{
			PotholeID:   record.ID,
			DaysElapsed: elapsed,
			DaysOverdue: elapsed - rule.DeadlineDays,
			Rule:        rule,
			Priority:    record.Priority.OrDefault(),
			Status:      record.Status,
			RoadName:    record.RoadName,
			Ward:        record.Ward,
			DetectedAt:  record.DetectedAt,
		})
	}
	return result
}

// IsOverdue reports whether record is past its deadline at now.
// Params: record and evaluation time.
// Returns: false for completed or malformed records.
func (e *Evaluator) IsOverdue(record domain.IssueRecord, now time.Time) bool {
	if record.Status == domain.StatusCompleted || !record.HasDetectedAt() {
		return false
	}
	return DaysElapsed(record, now) > e.table.Lookup(record.Priority).DeadlineDays
}
