package notifyqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"roadwatch/internal/config"
	"roadwatch/internal/domain"
	"roadwatch/internal/metrics"
	"roadwatch/internal/permanent"
)

const notifyStreamMaxAge = 24 * time.Hour

// NATSProducer publishes outbound messages into JetStream work queue.
// Params: NATS connection and publish subject settings.
// Returns: outbox implementation backed by JetStream.
type NATSProducer struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
	logger  *slog.Logger
	acks    sync.WaitGroup
}

// NewNATSProducer creates JetStream producer for outbound message queue.
// Params: queue config from notify section and logger.
// Returns: initialized producer or setup error.
func NewNATSProducer(cfg config.NotifyQueue, logger *slog.Logger) (*NATSProducer, error) {
	nc, js, err := openNotifyQueueJetStream(cfg)
	if err != nil {
		return nil, err
	}
	return &NATSProducer{nc: nc, js: js, subject: cfg.Subject, logger: logger}, nil
}

// Submit publishes one message asynchronously; message ID doubles as JetStream dedup id.
// The stream acknowledgement is awaited in the background and failures are logged and counted.
// Params: rendered outbound message.
// Returns: marshal error or error when the publish could not be queued.
func (p *NATSProducer) Submit(message domain.OutboundMessage) error {
	msg, err := p.encode(message)
	if err != nil {
		return err
	}
	future, err := p.js.PublishMsgAsync(msg)
	if err != nil {
		metrics.DeliveryAttempts.WithLabelValues("queue", "publish_failed").Inc()
		return fmt.Errorf("publish outbound message: %w", err)
	}
	p.acks.Add(1)
	go p.awaitAck(message.ID, future)
	return nil
}

// Publish publishes one message and waits for the stream acknowledgement.
// Params: context and rendered outbound message.
// Returns: marshal or publish error.
func (p *NATSProducer) Publish(ctx context.Context, message domain.OutboundMessage) error {
	msg, err := p.encode(message)
	if err != nil {
		return err
	}
	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		metrics.DeliveryAttempts.WithLabelValues("queue", "publish_failed").Inc()
		return fmt.Errorf("publish outbound message: %w", err)
	}
	metrics.DeliveryAttempts.WithLabelValues("queue", "published").Inc()
	return nil
}

// Close waits briefly for outstanding acknowledgements, then closes the connection.
// Params: none.
// Returns: nil after connection close.
func (p *NATSProducer) Close() error {
	if p == nil || p.nc == nil {
		return nil
	}
	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(publishTimeout):
		p.log(slog.LevelWarn, "notify queue closing with unacknowledged publishes", "pending", p.js.PublishAsyncPending())
	}
	p.nc.Close()
	p.acks.Wait()
	return nil
}

func (p *NATSProducer) encode(message domain.OutboundMessage) (*nats.Msg, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("marshal outbound message: %w", err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = body
	if id := strings.TrimSpace(message.ID); id != "" {
		msg.Header.Set(nats.MsgIdHdr, id)
	}
	return msg, nil
}

func (p *NATSProducer) awaitAck(messageID string, future nats.PubAckFuture) {
	defer p.acks.Done()
	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-future.Ok():
		metrics.DeliveryAttempts.WithLabelValues("queue", "published").Inc()
	case err := <-future.Err():
		metrics.DeliveryAttempts.WithLabelValues("queue", "publish_failed").Inc()
		p.log(slog.LevelWarn, "notify queue publish failed", "message_id", messageID, "error", err)
	case <-timer.C:
		metrics.DeliveryAttempts.WithLabelValues("queue", "publish_unconfirmed").Inc()
		p.log(slog.LevelWarn, "notify queue publish not acknowledged", "message_id", messageID, "timeout", publishTimeout.String())
	}
}

func (p *NATSProducer) log(level slog.Level, msg string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Log(context.Background(), level, msg, args...)
}

// NATSWorker consumes outbound messages via durable queue group consumer.
// Params: NATS connection and queue subscription.
// Returns: worker lifecycle handle.
type NATSWorker struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewNATSWorker starts queue consumer for outbound message delivery.
// Params: queue config, logger, and per-message handler.
// Returns: running worker or setup error.
func NewNATSWorker(cfg config.NotifyQueue, logger *slog.Logger, handler Handler) (*NATSWorker, error) {
	if handler == nil {
		return nil, errors.New("notify queue handler is required")
	}
	nc, js, err := openNotifyQueueJetStream(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	worker := &NATSWorker{nc: nc, logger: logger, ctx: ctx, cancel: cancel}
	nackDelay := time.Duration(cfg.NackDelayMS) * time.Millisecond
	subOpts := []nats.SubOpt{
		nats.BindStream(cfg.Stream),
		nats.Durable(cfg.ConsumerName),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.AckWait(time.Duration(cfg.AckWaitSec) * time.Second),
		nats.MaxDeliver(cfg.MaxDeliver),
		nats.MaxAckPending(cfg.MaxAckPending),
		nats.DeliverAll(),
	}
	sub, err := js.QueueSubscribe(cfg.Subject, cfg.DeliverGroup, func(msg *nats.Msg) {
		worker.handle(msg, handler, cfg.MaxDeliver, nackDelay)
	}, subOpts...)
	if err != nil {
		cancel()
		nc.Close()
		return nil, fmt.Errorf("queue subscribe notify %q/%q: %w", cfg.Subject, cfg.DeliverGroup, err)
	}
	worker.sub = sub
	return worker, nil
}

func (w *NATSWorker) handle(msg *nats.Msg, handler Handler, maxDeliver int, nackDelay time.Duration) {
	if msg == nil {
		return
	}
	var message domain.OutboundMessage
	if err := json.Unmarshal(msg.Data, &message); err != nil {
		w.log(slog.LevelWarn, "notify queue decode failed", "subject", msg.Subject, "error", err.Error())
		metrics.DeliveryAttempts.WithLabelValues("queue", string(OutcomeDrop)).Inc()
		_ = msg.Ack()
		return
	}

	err := handler(w.ctx, message)
	attempts := deliveryAttempts(msg)
	outcome := Decide(err, permanent.Is(err), attempts, maxDeliver)
	metrics.DeliveryAttempts.WithLabelValues("queue", string(outcome)).Inc()
	switch outcome {
	case OutcomeAck:
		_ = msg.Ack()
	case OutcomeRetry:
		w.log(slog.LevelWarn, "notify queue delivery failed, will retry", "message_id", message.ID, "attempt", attempts, "error", err.Error())
		if nackDelay > 0 {
			_ = msg.NakWithDelay(nackDelay)
		} else {
			_ = msg.Nak()
		}
	default:
		w.log(slog.LevelError, "notify queue message abandoned",
			"message_id", message.ID,
			"category", string(message.Category),
			"pothole_id", message.PotholeID,
			"outcome", string(outcome),
			"attempt", attempts,
			"error", err.Error(),
		)
		_ = msg.Ack()
	}
}

func (w *NATSWorker) log(level slog.Level, msg string, args ...any) {
	if w.logger == nil {
		return
	}
	w.logger.Log(context.Background(), level, msg, args...)
}

// Close drains worker subscription and closes NATS connection.
// Params: none.
// Returns: close error from subscription drain.
func (w *NATSWorker) Close() error {
	if w == nil || w.nc == nil {
		return nil
	}
	defer w.cancel()
	if w.sub != nil {
		if err := w.sub.Drain(); err != nil {
			w.nc.Close()
			return err
		}
	}
	w.nc.Close()
	return nil
}

// ensureStream ensures work-queue stream exists.
// Params: JetStream context and stream settings.
// Returns: stream create/lookup error.
func ensureStream(js nats.JetStreamContext, streamName, subject string) error {
	if _, err := js.StreamInfo(streamName); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %q: %w", streamName, err)
	}

	_, err := js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
		MaxAge:    notifyStreamMaxAge,
	})
	if err != nil {
		return fmt.Errorf("create stream %q: %w", streamName, err)
	}
	return nil
}

// openNotifyQueueJetStream opens connection/JetStream and ensures queue stream exists.
// Params: queue config with URL and stream/subject names.
// Returns: opened NATS connection, JetStream context, and setup error.
func openNotifyQueueJetStream(cfg config.NotifyQueue) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(strings.Join(cfg.URL, ","))
	if err != nil {
		return nil, nil, fmt.Errorf("connect notify queue nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream init for notify queue: %w", err)
	}
	if err := ensureStream(js, cfg.Stream, cfg.Subject); err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, js, nil
}

// deliveryAttempts returns number of delivery attempts from JetStream metadata.
// Params: delivered NATS message.
// Returns: delivered-attempt count (at least 1 when message is non-nil).
func deliveryAttempts(message *nats.Msg) uint64 {
	if message == nil {
		return 0
	}
	metadata, err := message.Metadata()
	if err != nil || metadata == nil || metadata.NumDelivered <= 0 {
		return 1
	}
	return metadata.NumDelivered
}
