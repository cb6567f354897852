package domain

import (
	"strings"
	"testing"
	"time"
)

func TestDecodeIssueKeepsOffset(t *testing.T) {
	t.Parallel()

	record, err := DecodeIssue([]byte(`{"id":"PH-1","detected_at":"2025-11-10T14:25:00-05:00","status":"new","priority":"HIGH","road_name":"Queen Street West"}`))
	if err != nil {
		t.Fatalf("decode issue: %v", err)
	}
	if record.Priority != PriorityHigh {
		t.Fatalf("expected normalized priority, got %q", record.Priority)
	}
	_, offset := record.DetectedAt.Zone()
	if offset != -5*3600 {
		t.Fatalf("expected -05:00 offset, got %d", offset)
	}
}

func TestDecodeIssuesToleratesBadTimestamp(t *testing.T) {
	t.Parallel()

	records, err := DecodeIssues([]byte(`[{"id":"a","detected_at":"not-a-date","status":"new"},{"id":"b","status":"new"}]`))
	if err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, record := range records {
		if record.HasDetectedAt() {
			t.Fatalf("expected zero detected_at for %q", record.ID)
		}
	}
}

func TestDecodeIssuesRejectsMissingID(t *testing.T) {
	t.Parallel()

	if _, err := DecodeIssues([]byte(`[{"detected_at":"2025-11-10T14:25:00Z"}]`)); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestIssueRecordJSONRoundTripShape(t *testing.T) {
	t.Parallel()

	record := IssueRecord{ID: "PH-1", DetectedAt: time.Date(2025, 11, 10, 14, 25, 0, 0, time.UTC), Status: StatusNew}
	raw, err := record.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"detected_at":"2025-11-10T14:25:00Z"`) {
		t.Fatalf("unexpected wire shape: %s", raw)
	}
}

func TestPriorityOrDefault(t *testing.T) {
	t.Parallel()

	cases := map[Priority]Priority{
		"":               PriorityMedium,
		"urgent":         PriorityMedium,
		PriorityLow:      PriorityLow,
		PriorityCritical: PriorityCritical,
	}
	for input, want := range cases {
		if got := input.OrDefault(); got != want {
			t.Fatalf("priority %q: got %q want %q", input, got, want)
		}
	}
}
