package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"roadwatch/internal/clock"
	"roadwatch/internal/config"
	"roadwatch/internal/domain"
	"roadwatch/internal/engine"
	"roadwatch/internal/issues"
)

var monitorNow = time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func daysBefore(days int) time.Time {
	return monitorNow.Add(-time.Duration(days) * 24 * time.Hour)
}

type captureAlerts struct {
	mu     sync.Mutex
	alerts []domain.EscalationAlert
}

func (c *captureAlerts) Escalation(alert domain.EscalationAlert) domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, alert)
	return domain.Notification{ID: "notif-" + alert.PotholeID}
}

func (c *captureAlerts) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

func (c *captureAlerts) Keys() []domain.AlertKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.AlertKey, 0, len(c.alerts))
	for _, alert := range c.alerts {
		out = append(out, alert.DedupKey())
	}
	return out
}

type failingSource struct{}

func (failingSource) Snapshot(context.Context) ([]domain.IssueRecord, error) {
	return nil, errors.New("pothole api unavailable")
}

type staticRecords []domain.IssueRecord

func (s staticRecords) Snapshot(context.Context) ([]domain.IssueRecord, error) {
	return append([]domain.IssueRecord(nil), s...), nil
}

func newTestMonitor(t *testing.T, source issues.Source, dedup bool) (*Monitor, *captureAlerts, *clock.ManualClock) {
	t.Helper()
	alerts := &captureAlerts{}
	clk := clock.NewManual(monitorNow)
	monitor := NewMonitor(source, engine.NewEvaluator(engine.MustDefaultRuleTable()), alerts, clk, config.MonitorConfig{
		IntervalSec: 3600,
		Dedup:       &dedup,
	}, testLogger())
	return monitor, alerts, clk
}

func monitorRecords() []domain.IssueRecord {
	return []domain.IssueRecord{
		{ID: "crit-overdue", Priority: domain.PriorityCritical, Status: domain.StatusNew, DetectedAt: daysBefore(3)},
		{ID: "medium-fresh", Priority: domain.PriorityMedium, Status: domain.StatusNew, DetectedAt: daysBefore(2)},
		{ID: "done", Priority: domain.PriorityCritical, Status: domain.StatusCompleted, DetectedAt: daysBefore(30)},
		{ID: "no-timestamp", Priority: domain.PriorityHigh, Status: domain.StatusNew},
	}
}

func TestMonitorRunOnceDispatchesAndDeduplicates(t *testing.T) {
	t.Parallel()

	collection := issues.NewCollection(monitorRecords())
	monitor, alerts, clk := newTestMonitor(t, collection, true)

	first, err := monitor.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if first.Dispatched != 1 || first.Skipped != 1 || first.Overdue != 1 || first.Records != 4 {
		t.Fatalf("unexpected first report: %+v", first)
	}

	second, err := monitor.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if second.Dispatched != 0 || second.Deduplicated != 1 {
		t.Fatalf("unexpected second report: %+v", second)
	}

	clk.Advance(24 * time.Hour)
	third, err := monitor.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if third.Dispatched != 1 {
		t.Fatalf("new days-overdue value must dispatch again: %+v", third)
	}

	want := []domain.AlertKey{
		{PotholeID: "crit-overdue", DaysOverdue: 2},
		{PotholeID: "crit-overdue", DaysOverdue: 3},
	}
	got := alerts.Keys()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("alert keys=%v want %v", got, want)
	}
}

func TestMonitorDedupForgetsKeysNoLongerFlagged(t *testing.T) {
	t.Parallel()

	collection := issues.NewCollection(monitorRecords())
	monitor, alerts, _ := newTestMonitor(t, collection, true)

	if _, err := monitor.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if _, _, err := collection.SetStatus("crit-overdue", domain.StatusCompleted); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if report, _ := monitor.RunOnce(context.Background()); report.Alerts != 0 {
		t.Fatalf("completed record must not alert: %+v", report)
	}
	if _, _, err := collection.SetStatus("crit-overdue", domain.StatusInProgress); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, err := monitor.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if alerts.Len() != 2 {
		t.Fatalf("reopened record must alert again, got %d alerts", alerts.Len())
	}
}

func TestMonitorWithoutDedupRepeatsAlerts(t *testing.T) {
	t.Parallel()

	monitor, alerts, _ := newTestMonitor(t, issues.NewCollection(monitorRecords()), false)
	for i := 0; i < 3; i++ {
		if _, err := monitor.RunOnce(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if alerts.Len() != 3 {
		t.Fatalf("expected alert every cycle, got %d", alerts.Len())
	}
}

func TestMonitorSourceErrorSkipsCycle(t *testing.T) {
	t.Parallel()

	monitor, alerts, _ := newTestMonitor(t, failingSource{}, true)
	if _, err := monitor.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected source error")
	}
	if alerts.Len() != 0 {
		t.Fatalf("no alerts expected on source error")
	}
}

func TestMonitorStartRunsInitialCycleAndTrigger(t *testing.T) {
	t.Parallel()

	collection := issues.NewCollection(monitorRecords())
	monitor, alerts, _ := newTestMonitor(t, collection, true)
	collection.OnChange(monitor.Trigger)

	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer monitor.Stop()
	if err := monitor.Start(context.Background()); !errors.Is(err, ErrMonitorRunning) {
		t.Fatalf("expected already running error, got %v", err)
	}
	waitForAlerts(t, alerts, 1)

	collection.Upsert(domain.IssueRecord{
		ID:         "high-overdue",
		Priority:   domain.PriorityHigh,
		Status:     domain.StatusNew,
		DetectedAt: daysBefore(5),
	})
	waitForAlerts(t, alerts, 2)

	monitor.Stop()
	monitor.Stop()
}

func TestMonitorStartOnEmptyWaitsForPopulation(t *testing.T) {
	t.Parallel()

	collection := issues.NewCollection(nil)
	monitor, alerts, _ := newTestMonitor(t, collection, true)
	collection.OnChange(monitor.Trigger)

	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer monitor.Stop()
	time.Sleep(50 * time.Millisecond)
	if alerts.Len() != 0 {
		t.Fatalf("empty collection must not alert, got %d", alerts.Len())
	}

	poller := issues.NewPoller(staticRecords(monitorRecords()), collection, 0, testLogger())
	if err := poller.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	waitForAlerts(t, alerts, 1)
	if got := alerts.Keys(); got[0].PotholeID != "crit-overdue" {
		t.Fatalf("unexpected alert keys %v", got)
	}
}

func TestMonitorStopWithoutStart(t *testing.T) {
	t.Parallel()

	monitor, _, _ := newTestMonitor(t, issues.NewCollection(nil), true)
	monitor.Stop()
	monitor.Trigger()
	monitor.Trigger()
}

func waitForAlerts(t *testing.T, alerts *captureAlerts, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for alerts.Len() < want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d alerts, got %d", want, alerts.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
