package issues

import (
	"time"

	"roadwatch/internal/domain"
)

// Filter narrows issue listings.
// Params: zero-valued fields match everything; Overdue needs an overdue predicate.
// Returns: listing criteria.
type Filter struct {
	Status      domain.Status
	Priority    domain.Priority
	Ward        string
	MinSeverity float64
	Since       time.Time
	Until       time.Time
	Overdue     bool
}

// Apply returns records matching filter in input order.
// Params: records, and overdue predicate used only when Overdue is set.
// Returns: filtered copy.
func (f Filter) Apply(records []domain.IssueRecord, overdue func(domain.IssueRecord) bool) []domain.IssueRecord {
	out := make([]domain.IssueRecord, 0, len(records))
	for _, record := range records {
		if f.Status != "" && record.Status != f.Status {
			continue
		}
		if f.Priority != "" && record.Priority != f.Priority {
			continue
		}
		if f.Ward != "" && record.Ward != f.Ward {
			continue
		}
		if record.Severity < f.MinSeverity {
			continue
		}
		if !f.Since.IsZero() && record.DetectedAt.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && record.DetectedAt.After(f.Until) {
			continue
		}
		if f.Overdue && (overdue == nil || !overdue(record)) {
			continue
		}
		out = append(out, record)
	}
	return out
}

// Stats is aggregate view of the issue collection.
type Stats struct {
	TotalDetections       int     `json:"total_detections"`
	New                   int     `json:"new"`
	InProgress            int     `json:"in_progress"`
	Completed             int     `json:"completed"`
	Scheduled             int     `json:"scheduled"`
	AverageSeverity       float64 `json:"average_severity"`
	EstimatedTotalCostCAD float64 `json:"estimated_total_cost_cad"`
	HighPriorityCount     int     `json:"high_priority_count"`
}

// ComputeStats aggregates status counts, severity, and repair cost.
// Params: records to aggregate.
// Returns: stats; average severity is 0 for empty input.
func ComputeStats(records []domain.IssueRecord) Stats {
	var stats Stats
	var severity float64
	for _, record := range records {
		stats.TotalDetections++
		switch record.Status {
		case domain.StatusNew:
			stats.New++
		case domain.StatusInProgress:
			stats.InProgress++
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusScheduled:
			stats.Scheduled++
		}
		severity += record.Severity
		stats.EstimatedTotalCostCAD += record.EstimatedRepairCostCAD
		if record.Priority == domain.PriorityHigh || record.Priority == domain.PriorityCritical {
			stats.HighPriorityCount++
		}
	}
	if stats.TotalDetections > 0 {
		stats.AverageSeverity = severity / float64(stats.TotalDetections)
	}
	return stats
}
