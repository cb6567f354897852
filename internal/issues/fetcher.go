package issues

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"roadwatch/internal/config"
	"roadwatch/internal/domain"
	"roadwatch/internal/metrics"
)

const maxFetchBodyBytes = 16 << 20

// Fetcher reads issues from the pothole REST API.
// Params: base URL, HTTP client, and demo fallback policy.
// Returns: Source backed by GET <base>/potholes.
type Fetcher struct {
	baseURL      string
	client       *http.Client
	demoFallback bool
	logger       *slog.Logger
}

// NewFetcher creates REST fetcher from source config.
// Params: source config and logger.
// Returns: initialized fetcher.
func NewFetcher(cfg config.SourceConfig, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		client:       &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		demoFallback: !cfg.DisableDemoFallback,
		logger:       logger,
	}
}

// Snapshot fetches current issue list.
// Params: request context.
// Returns: fetched records, demo records when API fails and fallback is on, or error.
func (f *Fetcher) Snapshot(ctx context.Context) ([]domain.IssueRecord, error) {
	if f.baseURL == "" {
		return Demo(), nil
	}
	records, err := f.fetch(ctx)
	if err == nil {
		return records, nil
	}
	if !f.demoFallback {
		return nil, err
	}
	f.logger.Warn("issue api unavailable, using demo data", "url", f.baseURL, "error", err)
	return Demo(), nil
}

func (f *Fetcher) fetch(ctx context.Context) ([]domain.IssueRecord, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/potholes", nil)
	if err != nil {
		return nil, fmt.Errorf("build issue request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := f.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("fetch issues: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch issues status=%d", response.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(response.Body, maxFetchBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read issues: %w", err)
	}
	return domain.DecodeIssues(body)
}

// Poller refreshes a Collection from a Source on an interval.
// Params: upstream source, target collection, and poll interval.
// Returns: background refresher started by Run.
type Poller struct {
	source     Source
	collection *Collection
	interval   time.Duration
	logger     *slog.Logger
}

// NewPoller creates collection refresher.
// Params: source, collection, interval, and logger.
// Returns: poller.
func NewPoller(source Source, collection *Collection, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{source: source, collection: collection, interval: interval, logger: logger}
}

// Refresh fetches once and merges the listing into the collection.
// Params: request context.
// Returns: source error; collection is left unchanged on error.
func (p *Poller) Refresh(ctx context.Context) error {
	records, err := p.source.Snapshot(ctx)
	if err != nil {
		metrics.IssuesIngested.WithLabelValues("poll", "error").Inc()
		return err
	}
	metrics.IssuesIngested.WithLabelValues("poll", "ok").Add(float64(len(records)))
	p.collection.Sync(records)
	metrics.IssuesTracked.Set(float64(p.collection.Len()))
	return nil
}

// Run refreshes immediately and then on every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil {
		p.logger.Warn("issue refresh failed", "error", err)
	}
	if p.interval <= 0 {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				p.logger.Warn("issue refresh failed", "error", err)
			}
		}
	}
}
