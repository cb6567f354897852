package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"roadwatch/internal/clock"
	"roadwatch/internal/config"
	"roadwatch/internal/domain"
	"roadwatch/internal/engine"
	"roadwatch/internal/issues"
	"roadwatch/internal/metrics"
)

// ErrMonitorRunning is returned by Start on an already started monitor.
var ErrMonitorRunning = errors.New("monitor already running")

// AlertSink receives escalation alerts selected by the monitor.
type AlertSink interface {
	Escalation(alert domain.EscalationAlert) domain.Notification
}

// CycleReport summarizes one evaluation cycle.
type CycleReport struct {
	At           time.Time `json:"at"`
	Records      int       `json:"records"`
	Evaluated    int       `json:"evaluated"`
	Skipped      int       `json:"skipped"`
	Overdue      int       `json:"overdue"`
	Alerts       int       `json:"alerts"`
	Dispatched   int       `json:"dispatched"`
	Deduplicated int       `json:"deduplicated"`
}

// Monitor periodically evaluates issues and dispatches escalation alerts.
// Params: issue source, evaluator, alert sink, clock, and monitor config.
// Returns: lifecycle-managed background checker.
type Monitor struct {
	source    issues.Source
	evaluator *engine.Evaluator
	alerts    AlertSink
	clock     clock.Clock
	interval  time.Duration
	dedup     bool
	logger    *slog.Logger
	trigger   chan struct{}

	cycleMu sync.Mutex
	seen    map[domain.AlertKey]struct{}

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates monitor.
// Params: source, evaluator, alert sink, clock, monitor config, and logger.
// Returns: stopped monitor; call Start to run it.
func NewMonitor(source issues.Source, evaluator *engine.Evaluator, alerts AlertSink, clk clock.Clock, cfg config.MonitorConfig, logger *slog.Logger) *Monitor {
	return &Monitor{
		source:    source,
		evaluator: evaluator,
		alerts:    alerts,
		clock:     clk,
		interval:  time.Duration(cfg.IntervalSec) * time.Second,
		dedup:     cfg.DedupEnabled(),
		logger:    logger,
		trigger:   make(chan struct{}, 1),
		seen:      make(map[domain.AlertKey]struct{}),
	}
}

// Start launches the monitor loop.
// The first cycle runs immediately when the source already has records.
// Params: parent context.
// Returns: ErrMonitorRunning when already started.
func (m *Monitor) Start(ctx context.Context) error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if m.cancel != nil {
		return ErrMonitorRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(loopCtx, m.done)
	m.logger.Info("escalation monitor started", "interval", m.interval.String(), "dedup", m.dedup)
	return nil
}

// Stop cancels the loop and waits for the running cycle to finish.
func (m *Monitor) Stop() {
	m.lifeMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.lifeMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.logger.Info("escalation monitor stopped")
}

// Trigger requests an extra cycle; repeated requests coalesce.
func (m *Monitor) Trigger() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// RunOnce performs one evaluation cycle synchronously.
// Params: context for the source snapshot.
// Returns: cycle report or source error; the cycle is skipped on error.
func (m *Monitor) RunOnce(ctx context.Context) (CycleReport, error) {
	return m.cycle(ctx, false)
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	m.runLogged(ctx, true)

	var tick <-chan time.Time
	if m.interval > 0 {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			m.runLogged(ctx, false)
		case <-m.trigger:
			m.runLogged(ctx, false)
		}
	}
}

func (m *Monitor) runLogged(ctx context.Context, skipEmpty bool) {
	report, err := m.cycle(ctx, skipEmpty)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.logger.Warn("escalation cycle skipped", "error", err)
		}
		return
	}
	if report.Dispatched > 0 {
		m.logger.Info("escalation cycle dispatched alerts",
			"records", report.Records,
			"overdue", report.Overdue,
			"dispatched", report.Dispatched,
			"deduplicated", report.Deduplicated,
		)
	}
}

func (m *Monitor) cycle(ctx context.Context, skipEmpty bool) (CycleReport, error) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	started := time.Now()
	records, err := m.source.Snapshot(ctx)
	if err != nil {
		metrics.EscalationCycles.WithLabelValues("source_error").Inc()
		return CycleReport{}, fmt.Errorf("issue snapshot: %w", err)
	}
	now := m.clock.Now()
	report := CycleReport{At: now, Records: len(records)}
	if skipEmpty && len(records) == 0 {
		return report, nil
	}

	result := m.evaluator.Evaluate(records, now)
	report.Evaluated = result.Evaluated
	report.Skipped = result.Skipped
	report.Alerts = len(result.Alerts)
	for _, record := range records {
		if m.evaluator.IsOverdue(record, now) {
			report.Overdue++
		}
	}

	flagged := make(map[domain.AlertKey]struct{}, len(result.Alerts))
	for _, alert := range result.Alerts {
		key := alert.DedupKey()
		flagged[key] = struct{}{}
		priority := string(alert.Priority)
		if _, ok := m.seen[key]; ok && m.dedup {
			report.Deduplicated++
			metrics.EscalationAlerts.WithLabelValues(priority, "deduplicated").Inc()
			continue
		}
		m.alerts.Escalation(alert)
		report.Dispatched++
		metrics.EscalationAlerts.WithLabelValues(priority, "dispatched").Inc()
	}
	m.seen = flagged

	metrics.EscalationSkipped.Add(float64(result.Skipped))
	metrics.OverdueIssues.Set(float64(report.Overdue))
	metrics.EscalationCycles.WithLabelValues("ok").Inc()
	metrics.EscalationCycleDuration.Observe(time.Since(started).Seconds())
	return report, nil
}
