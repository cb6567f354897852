package app

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roadwatch/internal/clock"
	"roadwatch/internal/domain"
	"roadwatch/internal/engine"
	"roadwatch/internal/ingest"
	"roadwatch/internal/issues"
	"roadwatch/internal/state"
)

// API serves notification, issue, and escalation endpoints for the dashboard.
type API struct {
	prefix     string
	maxBody    int64
	store      *state.NotificationStore
	collection *issues.Collection
	evaluator  *engine.Evaluator
	manager    *Manager
	monitor    *Monitor
	clock      clock.Clock
	logger     *slog.Logger
}

type deadlineView struct {
	ID                string                `json:"id"`
	Priority          domain.Priority       `json:"priority"`
	Status            domain.Status         `json:"status"`
	DetectedAt        time.Time             `json:"detected_at"`
	Deadline          time.Time             `json:"deadline"`
	DaysElapsed       int                   `json:"days_elapsed"`
	DaysUntilDeadline int                   `json:"days_until_deadline"`
	Overdue           bool                  `json:"overdue"`
	Rule              domain.EscalationRule `json:"rule"`
}

// Register mounts API routes on mux.
// Params: target mux.
// Returns: nothing.
func (a *API) Register(mux *http.ServeMux) {
	p := a.prefix
	mux.HandleFunc("GET "+p+"/notifications", a.listNotifications)
	mux.HandleFunc("DELETE "+p+"/notifications", a.clearNotifications)
	mux.HandleFunc("GET "+p+"/notifications/unread-count", a.unreadCount)
	mux.HandleFunc("GET "+p+"/notifications/high-priority", a.highPriority)
	mux.HandleFunc("GET "+p+"/notifications/action-required", a.actionRequired)
	mux.HandleFunc("POST "+p+"/notifications/read-all", a.markAllRead)
	mux.HandleFunc("POST "+p+"/notifications/{id}/read", a.markRead)
	mux.HandleFunc("DELETE "+p+"/notifications/{id}", a.removeNotification)

	mux.HandleFunc("GET "+p+"/alerts", a.priorityAlerts)
	mux.HandleFunc("GET "+p+"/rules", a.rules)
	mux.HandleFunc("GET "+p+"/stats", a.stats)
	mux.HandleFunc("POST "+p+"/escalations/run", a.runEscalations)

	mux.HandleFunc("GET "+p+"/issues", a.listIssues)
	mux.HandleFunc("POST "+p+"/issues", a.submitIssue)
	mux.HandleFunc("GET "+p+"/issues/{id}", a.getIssue)
	mux.HandleFunc("GET "+p+"/issues/{id}/deadline", a.issueDeadline)
	mux.HandleFunc("POST "+p+"/issues/{id}/status", a.updateStatus)

	mux.Handle(p+"/ingest", ingest.NewHTTPHandler(a.manager, a.maxBody, a.logger))
}

func (a *API) listNotifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": a.store.List(),
		"unread":        a.store.UnreadCount(),
	})
}

func (a *API) unreadCount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"unread": a.store.UnreadCount()})
}

func (a *API) highPriority(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.store.HighPriority())
}

func (a *API) actionRequired(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.store.ActionRequired())
}

func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	if !a.store.MarkRead(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) markAllRead(w http.ResponseWriter, _ *http.Request) {
	a.store.MarkAllRead()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) removeNotification(w http.ResponseWriter, r *http.Request) {
	if !a.store.Remove(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) clearNotifications(w http.ResponseWriter, _ *http.Request) {
	a.store.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) priorityAlerts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, engine.PriorityAlerts(a.collection.List(), a.evaluator.Rules(), a.clock.Now()))
}

func (a *API) rules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.evaluator.Rules().Rules())
}

func (a *API) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, issues.ComputeStats(a.collection.List()))
}

func (a *API) runEscalations(w http.ResponseWriter, r *http.Request) {
	report, err := a.monitor.RunOnce(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) listIssues(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := a.clock.Now()
	records := filter.Apply(a.collection.List(), func(record domain.IssueRecord) bool {
		return a.evaluator.IsOverdue(record, now)
	})
	writeJSON(w, http.StatusOK, records)
}

func (a *API) getIssue(w http.ResponseWriter, r *http.Request) {
	record, ok := a.collection.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "issue not found")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *API) issueDeadline(w http.ResponseWriter, r *http.Request) {
	record, ok := a.collection.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "issue not found")
		return
	}
	if !record.HasDetectedAt() {
		writeError(w, http.StatusUnprocessableEntity, "issue has no valid detected_at")
		return
	}
	now := a.clock.Now()
	table := a.evaluator.Rules()
	writeJSON(w, http.StatusOK, deadlineView{
		ID:                record.ID,
		Priority:          record.Priority.OrDefault(),
		Status:            record.Status,
		DetectedAt:        record.DetectedAt,
		Deadline:          engine.Deadline(record, table),
		DaysElapsed:       engine.DaysElapsed(record, now),
		DaysUntilDeadline: engine.DaysUntilDeadline(record, table, now),
		Overdue:           a.evaluator.IsOverdue(record, now),
		Rule:              table.Lookup(record.Priority),
	})
}

func (a *API) submitIssue(w http.ResponseWriter, r *http.Request) {
	var submission Submission
	if err := a.decodeBody(w, r, &submission); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	record, err := a.manager.Submit(submission)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (a *API) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status domain.Status `json:"status"`
	}
	if err := a.decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := domain.Status(strings.ToLower(strings.TrimSpace(string(body.Status))))
	record, err := a.manager.UpdateStatus(r.PathValue("id"), status)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBody))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, target)
}

// parseFilter reads issue listing filters from query string.
func parseFilter(r *http.Request) (issues.Filter, error) {
	query := r.URL.Query()
	filter := issues.Filter{
		Status:   domain.Status(strings.ToLower(query.Get("status"))),
		Priority: domain.Priority(strings.ToLower(query.Get("priority"))),
		Ward:     query.Get("ward"),
	}
	if filter.Status != "" && !filter.Status.Known() {
		return issues.Filter{}, errors.New("unknown status filter")
	}
	if filter.Priority != "" && !filter.Priority.Known() {
		return issues.Filter{}, errors.New("unknown priority filter")
	}
	if raw := query.Get("min_severity"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return issues.Filter{}, errors.New("min_severity must be a number")
		}
		filter.MinSeverity = value
	}
	for name, target := range map[string]*time.Time{"since": &filter.Since, "until": &filter.Until} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		parsed := domain.ParseTimestamp(raw)
		if parsed.IsZero() {
			return issues.Filter{}, errors.New(name + " must be an ISO-8601 timestamp")
		}
		*target = parsed
	}
	if raw := query.Get("overdue"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return issues.Filter{}, errors.New("overdue must be a boolean")
		}
		filter.Overdue = value
	}
	return filter, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, issues.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, issues.ErrExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidSubmission):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
