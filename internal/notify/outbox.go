package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"roadwatch/internal/domain"
	"roadwatch/internal/metrics"
)

// ErrOutboxFull indicates the in-process outbox dropped a message.
var ErrOutboxFull = errors.New("outbox is full")

// ErrOutboxClosed indicates submit after shutdown.
var ErrOutboxClosed = errors.New("outbox is closed")

// Outbox accepts rendered messages for asynchronous delivery.
// Params: message to deliver.
// Returns: enqueue error only; delivery outcome is never reported back.
type Outbox interface {
	Submit(message domain.OutboundMessage) error
}

// Deliverer performs actual delivery of one message.
type Deliverer interface {
	Deliver(ctx context.Context, message domain.OutboundMessage) error
}

// AsyncOutbox delivers messages on a bounded worker pool.
// Params: deliverer, worker count, and queue capacity.
// Returns: Outbox that never blocks callers.
type AsyncOutbox struct {
	deliverer Deliverer
	queue     chan domain.OutboundMessage
	workers   int
	logger    *slog.Logger

	mu      sync.RWMutex
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewAsyncOutbox creates worker-pool outbox.
// Params: deliverer, workers (min 1), buffer size (min 1), and logger.
// Returns: outbox; call Start before submitting.
func NewAsyncOutbox(deliverer Deliverer, workers, buffer int, logger *slog.Logger) *AsyncOutbox {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 1
	}
	return &AsyncOutbox{
		deliverer: deliverer,
		queue:     make(chan domain.OutboundMessage, buffer),
		workers:   workers,
		logger:    logger,
	}
}

// Start launches delivery workers.
// Params: parent context; canceling it aborts in-flight retries.
// Returns: nothing.
func (o *AsyncOutbox) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return
	}
	o.started = true
	o.ctx, o.cancel = context.WithCancel(ctx)
	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go o.worker()
	}
}

// Submit enqueues message without waiting for delivery.
// Params: rendered message.
// Returns: ErrOutboxFull when buffer is full, ErrOutboxClosed after Close.
func (o *AsyncOutbox) Submit(message domain.OutboundMessage) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrOutboxClosed
	}
	select {
	case o.queue <- message:
		metrics.OutboxDepth.Set(float64(len(o.queue)))
		return nil
	default:
		metrics.DeliveryAttempts.WithLabelValues("outbox", "dropped").Inc()
		if o.logger != nil {
			o.logger.Warn("outbox full, message dropped", "message_id", message.ID, "category", string(message.Category))
		}
		return ErrOutboxFull
	}
}

// Close stops accepting messages, drains the queue, and waits for workers.
func (o *AsyncOutbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	started := o.started
	o.mu.Unlock()

	if started {
		o.wg.Wait()
		o.cancel()
	}
}

func (o *AsyncOutbox) worker() {
	defer o.wg.Done()
	for message := range o.queue {
		metrics.OutboxDepth.Set(float64(len(o.queue)))
		if err := o.deliverer.Deliver(o.ctx, message); err != nil && o.logger != nil {
			o.logger.Warn("outbound delivery incomplete", "message_id", message.ID, "error", err.Error())
		}
	}
}
