package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"roadwatch/internal/clock"
	"roadwatch/internal/config"
	"roadwatch/internal/domain"
	"roadwatch/internal/engine"
	"roadwatch/internal/ingest"
	"roadwatch/internal/issues"
	"roadwatch/internal/logging"
	"roadwatch/internal/metrics"
	"roadwatch/internal/notify"
	"roadwatch/internal/notifyqueue"
	"roadwatch/internal/state"
)

// Service composes runtime dependencies and process lifecycle.
// Params: validated config and shared runtime components.
// Returns: runnable pothole escalation service.
type Service struct {
	cfg      config.Config
	logger   *slog.Logger
	closeLog func()
	clock    clock.Clock

	evaluator  *engine.Evaluator
	collection *issues.Collection
	poller     *issues.Poller
	store      *state.NotificationStore
	snapshots  state.SnapshotStore
	persister  *state.Persister
	delivery   *notify.Delivery
	outbox     *notify.AsyncOutbox
	producer   *notifyqueue.NATSProducer
	worker     *notifyqueue.NATSWorker
	dispatcher *notify.Dispatcher
	manager    *Manager
	monitor    *Monitor
	natsSub    *ingest.NATSSubscriber
	handler    http.Handler
	httpSrv    *http.Server
	readyFlag  atomic.Bool
}

// NewService builds service instance from config source.
// Params: config source and clock implementation.
// Returns: initialized service or setup error.
func NewService(source config.ConfigSource, clk clock.Clock) (*Service, error) {
	cfg, err := config.LoadSnapshot(source)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Log, cfg.Service.Name)
	if err != nil {
		return nil, err
	}

	service, err := newService(cfg, logger, clk)
	if err != nil {
		closeLog()
		return nil, err
	}
	service.closeLog = closeLog
	return service, nil
}

// newService wires components for validated config.
func newService(cfg config.Config, logger *slog.Logger, clk clock.Clock) (*Service, error) {
	table, err := engine.RuleTableFromConfig(cfg.Rule)
	if err != nil {
		return nil, err
	}
	for _, warning := range table.Warnings() {
		logger.Warn("escalation rule table", "warning", warning)
	}

	s := &Service{cfg: cfg, logger: logger, clock: clk, evaluator: engine.NewEvaluator(table)}
	s.buildIssues()
	s.store = state.NewNotificationStore(cfg.Store.MaxNotifications)
	s.store.OnChange(func(items []domain.Notification, unread int, _ uint64) {
		metrics.NotificationsStored.Set(float64(len(items)))
		metrics.NotificationsUnread.Set(float64(unread))
	})

	if err := s.buildPersistence(); err != nil {
		s.cleanupInitResources()
		return nil, err
	}
	outbox, err := s.buildOutbound()
	if err != nil {
		s.cleanupInitResources()
		return nil, err
	}

	s.dispatcher = notify.NewDispatcher(s.store, outbox, clk, cfg.Notify.Email, logger)
	s.manager = NewManager(s.collection, s.dispatcher, clk, logger)
	s.monitor = NewMonitor(s.collection, s.evaluator, s.dispatcher, clk, cfg.Monitor, logger)
	s.collection.OnChange(s.monitor.Trigger)

	if err := s.buildNATSSubscriber(); err != nil {
		s.cleanupInitResources()
		return nil, err
	}
	s.buildHTTPServer()
	return s, nil
}

// buildIssues prepares issue collection and optional REST poller.
func (s *Service) buildIssues() {
	switch s.cfg.Source.Kind {
	case config.SourceKindDemo:
		s.collection = issues.NewCollection(issues.Demo())
	case config.SourceKindHTTP:
		s.collection = issues.NewCollection(nil)
		fetcher := issues.NewFetcher(s.cfg.Source, s.logger)
		s.poller = issues.NewPoller(fetcher, s.collection, time.Duration(s.cfg.Source.PollIntervalSec)*time.Second, s.logger)
	default:
		s.collection = issues.NewCollection(nil)
	}
	metrics.IssuesTracked.Set(float64(s.collection.Len()))
}

// buildPersistence opens notification snapshot backend when enabled.
func (s *Service) buildPersistence() error {
	if !s.cfg.Store.Persist {
		return nil
	}
	backend, err := state.NewNATSStore(state.NATSSettings{
		URL:                s.cfg.NATS.URL,
		Bucket:             s.cfg.Store.Bucket,
		Key:                s.cfg.Store.Key,
		AllowCreateBuckets: true,
	})
	if err != nil {
		return err
	}
	s.snapshots = backend
	s.persister = state.NewPersister(backend, s.logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.persister.Restore(ctx, s.store); err != nil {
		return fmt.Errorf("restore notifications: %w", err)
	}
	metrics.NotificationsStored.Set(float64(s.store.Len()))
	metrics.NotificationsUnread.Set(float64(s.store.UnreadCount()))
	s.store.OnChange(s.persister.Observe)
	return nil
}

// buildOutbound builds channel delivery and selects in-process or JetStream outbox.
// Returns: outbox for the dispatcher, nil when no channel is enabled.
func (s *Service) buildOutbound() (notify.Outbox, error) {
	delivery, err := notify.NewDelivery(s.cfg.Notify, s.logger)
	if err != nil {
		return nil, err
	}
	s.delivery = delivery
	if len(delivery.Channels()) == 0 {
		s.logger.Info("no outbound channels enabled, notifications stay in-app")
		return nil, nil
	}

	if s.cfg.Notify.Queue.Enabled {
		producer, err := notifyqueue.NewNATSProducer(s.cfg.Notify.Queue, s.logger)
		if err != nil {
			return nil, err
		}
		s.producer = producer
		worker, err := notifyqueue.NewNATSWorker(s.cfg.Notify.Queue, s.logger, delivery.Deliver)
		if err != nil {
			return nil, err
		}
		s.worker = worker
		s.logger.Info("outbound delivery via jetstream", "stream", s.cfg.Notify.Queue.Stream, "channels", delivery.Channels())
		return producer, nil
	}

	s.outbox = notify.NewAsyncOutbox(delivery, s.cfg.Notify.Workers, s.cfg.Notify.Buffer, s.logger)
	s.logger.Info("outbound delivery in-process", "workers", s.cfg.Notify.Workers, "channels", delivery.Channels())
	return s.outbox, nil
}

// buildNATSSubscriber starts NATS issue ingest in NATS mode.
func (s *Service) buildNATSSubscriber() error {
	if s.cfg.Service.Mode != config.ServiceModeNATS {
		return nil
	}
	subscriber, err := ingest.NewNATSSubscriber(s.cfg.NATS.URL, s.cfg.NATS.IssueSubject, s.manager, s.logger)
	if err != nil {
		return err
	}
	s.natsSub = subscriber
	return nil
}

// buildHTTPServer wires API, health, readiness, and metrics endpoints.
func (s *Service) buildHTTPServer() {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.HTTP.HealthPath, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte("ok"))
	})
	mux.HandleFunc(s.cfg.HTTP.ReadyPath, func(writer http.ResponseWriter, _ *http.Request) {
		if !s.readyFlag.Load() {
			writer.WriteHeader(http.StatusServiceUnavailable)
			_, _ = writer.Write([]byte("not-ready"))
			return
		}
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte("ready"))
	})
	mux.Handle(s.cfg.HTTP.MetricsPath, promhttp.Handler())

	api := &API{
		prefix:     s.cfg.HTTP.APIPrefix,
		maxBody:    s.cfg.HTTP.MaxBodyBytes,
		store:      s.store,
		collection: s.collection,
		evaluator:  s.evaluator,
		manager:    s.manager,
		monitor:    s.monitor,
		clock:      s.clock,
		logger:     s.logger,
	}
	api.Register(mux)

	s.handler = mux
	s.httpSrv = &http.Server{
		Addr:              s.cfg.HTTP.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Handler returns HTTP routes; used by tests and embedding callers.
func (s *Service) Handler() http.Handler {
	return s.handler
}

// Run starts service lifecycle and blocks until shutdown signal.
// Params: root context for service runtime.
// Returns: terminal run error.
func (s *Service) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	persisterDone := make(chan struct{})
	if s.persister != nil {
		go func() {
			defer close(persisterDone)
			s.persister.Run(runCtx)
		}()
	} else {
		close(persisterDone)
	}
	if s.outbox != nil {
		s.outbox.Start(runCtx)
	}
	if s.poller != nil {
		go s.poller.Run(runCtx)
	}
	if err := s.monitor.Start(runCtx); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "listen", s.cfg.HTTP.Listen, "mode", s.cfg.Service.Mode)
		err := s.httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	s.readyFlag.Store(true)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errChan:
		runErr = fmt.Errorf("http server failed: %w", err)
	case <-sigChan:
	}

	shutdownErr := s.shutdown(cancel, persisterDone)
	if runErr != nil {
		return runErr
	}
	return shutdownErr
}

// shutdown stops intake first, then evaluation, then delivery and persistence.
// Params: run context cancel and persister completion signal.
// Returns: first close error.
func (s *Service) shutdown(cancel context.CancelFunc, persisterDone <-chan struct{}) error {
	s.readyFlag.Store(false)
	ctx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	var firstErr error
	markErr := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("http shutdown failed", "error", err.Error())
		markErr(fmt.Errorf("http shutdown: %w", err))
	}
	if s.natsSub != nil {
		if err := s.natsSub.Close(); err != nil {
			s.logger.Error("nats subscriber close failed", "error", err.Error())
			markErr(fmt.Errorf("nats subscriber close: %w", err))
		}
	}
	s.monitor.Stop()
	if s.outbox != nil {
		s.outbox.Close()
	}
	if s.worker != nil {
		if err := s.worker.Close(); err != nil {
			s.logger.Error("notify queue worker close failed", "error", err.Error())
			markErr(fmt.Errorf("notify queue worker close: %w", err))
		}
	}
	if s.producer != nil {
		markErr(s.producer.Close())
	}

	cancel()
	<-persisterDone
	if s.snapshots != nil {
		if err := s.snapshots.Close(); err != nil {
			s.logger.Error("snapshot store close failed", "error", err.Error())
			markErr(fmt.Errorf("snapshot store close: %w", err))
		}
	}
	s.logger.Info("service stopped")
	if s.closeLog != nil {
		s.closeLog()
	}
	return firstErr
}

// cleanupInitResources closes partially initialized resources on startup failures.
func (s *Service) cleanupInitResources() {
	if s.natsSub != nil {
		_ = s.natsSub.Close()
		s.natsSub = nil
	}
	if s.worker != nil {
		_ = s.worker.Close()
		s.worker = nil
	}
	if s.producer != nil {
		_ = s.producer.Close()
		s.producer = nil
	}
	if s.snapshots != nil {
		_ = s.snapshots.Close()
		s.snapshots = nil
	}
}
