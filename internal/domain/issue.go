package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Priority is repair urgency assigned to one pothole.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists supported priorities from least to most urgent.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// Known reports whether priority is one of the four supported values.
func (p Priority) Known() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// OrDefault returns medium for absent or unrecognized priority.
// Params: none.
// Returns: effective priority used for rule lookup and message text.
func (p Priority) OrDefault() Priority {
	if p.Known() {
		return p
	}
	return PriorityMedium
}

// Status is repair workflow status of one pothole.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusScheduled  Status = "scheduled"
	StatusCompleted  Status = "completed"
)

// Known reports whether status is one of the supported workflow values.
func (s Status) Known() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusScheduled, StatusCompleted:
		return true
	default:
		return false
	}
}

// IssueRecord is one reported road defect.
// Params: identity, detection timestamp, priority/status, and descriptive location fields.
// Returns: record consumed by deadline and escalation evaluation.
type IssueRecord struct {
	ID                     string
	DetectedAt             time.Time
	Priority               Priority
	Status                 Status
	RoadName               string
	Ward                   string
	Description            string
	Lat                    float64
	Lng                    float64
	Severity               float64
	EstimatedRepairCostCAD float64
	Source                 string
}

// HasDetectedAt reports whether record carries a usable detection timestamp.
func (r IssueRecord) HasDetectedAt() bool {
	return !r.DetectedAt.IsZero()
}

// issueWire mirrors the JSON shape served by the pothole API.
type issueWire struct {
	ID                     string   `json:"id"`
	DetectedAt             string   `json:"detected_at"`
	Priority               Priority `json:"priority,omitempty"`
	Status                 Status   `json:"status"`
	RoadName               string   `json:"road_name,omitempty"`
	Ward                   string   `json:"ward,omitempty"`
	Description            string   `json:"description,omitempty"`
	Lat                    float64  `json:"lat"`
	Lng                    float64  `json:"lng"`
	Severity               float64  `json:"severity"`
	EstimatedRepairCostCAD float64  `json:"estimated_repair_cost_cad"`
	Source                 string   `json:"source,omitempty"`
}

// MarshalJSON encodes record in API wire shape.
func (r IssueRecord) MarshalJSON() ([]byte, error) {
	wire := issueWire{
		ID:                     r.ID,
		Priority:               r.Priority,
		Status:                 r.Status,
		RoadName:               r.RoadName,
		Ward:                   r.Ward,
		Description:            r.Description,
		Lat:                    r.Lat,
		Lng:                    r.Lng,
		Severity:               r.Severity,
		EstimatedRepairCostCAD: r.EstimatedRepairCostCAD,
		Source:                 r.Source,
	}
	if r.HasDetectedAt() {
		wire.DetectedAt = r.DetectedAt.Format(time.RFC3339)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes API wire shape.
// An absent or unparsable detected_at leaves DetectedAt zero instead of failing,
// so one bad record never rejects a whole batch.
func (r *IssueRecord) UnmarshalJSON(raw []byte) error {
	var wire issueWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	*r = IssueRecord{
		ID:                     wire.ID,
		DetectedAt:             ParseTimestamp(wire.DetectedAt),
		Priority:               Priority(strings.ToLower(strings.TrimSpace(string(wire.Priority)))),
		Status:                 Status(strings.ToLower(strings.TrimSpace(string(wire.Status)))),
		RoadName:               wire.RoadName,
		Ward:                   wire.Ward,
		Description:            wire.Description,
		Lat:                    wire.Lat,
		Lng:                    wire.Lng,
		Severity:               wire.Severity,
		EstimatedRepairCostCAD: wire.EstimatedRepairCostCAD,
		Source:                 wire.Source,
	}
	return nil
}

// ParseTimestamp parses ISO-8601 timestamp keeping its own offset.
// Params: raw timestamp text.
// Returns: parsed time or zero time when value is empty/invalid.
func ParseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// DecodeIssue decodes and validates one issue payload.
// Params: JSON document bytes.
// Returns: decoded record or decode/validation error.
func DecodeIssue(raw []byte) (IssueRecord, error) {
	var record IssueRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return IssueRecord{}, fmt.Errorf("decode issue: %w", err)
	}
	if err := record.Validate(); err != nil {
		return IssueRecord{}, err
	}
	return record, nil
}

// DecodeIssues decodes one JSON array of issues.
// Params: JSON array bytes.
// Returns: decoded records; records are validated by identity only.
func DecodeIssues(raw []byte) ([]IssueRecord, error) {
	var records []IssueRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode issue batch: %w", err)
	}
	for i := range records {
		if strings.TrimSpace(records[i].ID) == "" {
			return nil, fmt.Errorf("issue[%d]: id is required", i)
		}
	}
	return records, nil
}

// Validate checks fields required to accept a new report.
// Unrecognized priorities are accepted and resolve to medium through OrDefault.
// Params: record fields parsed from transport.
// Returns: validation error when contract is violated.
func (r IssueRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("id is required")
	}
	if r.Status != "" && !r.Status.Known() {
		return fmt.Errorf("unsupported status %q", r.Status)
	}
	return nil
}
