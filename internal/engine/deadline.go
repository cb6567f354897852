package engine

import (
	"math"
	"time"

	"roadwatch/internal/domain"
)

const day = 24 * time.Hour

// Deadline returns repair due date for record.
// Params: record with detection timestamp and rule table.
// Returns: detection time plus rule deadline in calendar days, in the timestamp's own offset.
func Deadline(record domain.IssueRecord, table *RuleTable) time.Time {
	rule := table.Lookup(record.Priority)
	return record.DetectedAt.AddDate(0, 0, rule.DeadlineDays)
}

// DaysUntilDeadline returns whole days left before the deadline, rounded up.
// Params: record, rule table, and evaluation time.
// Returns: remaining days; negative values mean past due by abs(value) days.
func DaysUntilDeadline(record domain.IssueRecord, table *RuleTable, now time.Time) int {
	return ceilDays(Deadline(record, table).Sub(now))
}

// DaysElapsed returns whole days since detection, rounded down.
// Params: record and evaluation time.
// Returns: elapsed days; negative when detection lies in the future.
func DaysElapsed(record domain.IssueRecord, now time.Time) int {
	return floorDays(now.Sub(record.DetectedAt))
}

func floorDays(d time.Duration) int {
	return int(math.Floor(float64(d) / float64(day)))
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(float64(d) / float64(day)))
}
