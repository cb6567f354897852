package ingest

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"roadwatch/internal/metrics"
)

const ingestQueueGroup = "roadwatch-ingest"

// NATSSubscriber consumes issue records from a NATS subject and forwards to sink.
// Params: NATS connection, queue subscription, and issue sink.
// Returns: NATS ingest lifecycle handle.
type NATSSubscriber struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	logger *slog.Logger
}

// NewNATSSubscriber creates queue subscription for issue ingestion.
// Params: NATS URLs, subject, sink, and logger.
// Returns: started subscriber or initialization error.
func NewNATSSubscriber(urls []string, subject string, sink IssueSink, logger *slog.Logger) (*NATSSubscriber, error) {
	nc, err := nats.Connect(strings.Join(urls, ","), nats.Name("roadwatch-ingest"))
	if err != nil {
		return nil, fmt.Errorf("connect nats ingest: %w", err)
	}

	subscriber := &NATSSubscriber{nc: nc, logger: logger}
	sub, err := nc.QueueSubscribe(subject, ingestQueueGroup, subscriber.handler(sink))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("queue subscribe %q/%q: %w", subject, ingestQueueGroup, err)
	}
	subscriber.sub = sub
	return subscriber, nil
}

// handler decodes messages and replies with status when the publisher asked for one.
func (s *NATSSubscriber) handler(sink IssueSink) nats.MsgHandler {
	return func(message *nats.Msg) {
		records, batch, err := decodePayload(message.Data)
		if err != nil {
			metrics.IssuesIngested.WithLabelValues("nats", "invalid").Inc()
			if s.logger != nil {
				s.logger.Warn("nats ingest decode failed", "subject", message.Subject, "error", err.Error())
			}
			s.reply(message, "error: "+err.Error())
			return
		}
		if err := deliver(sink, records, batch); err != nil {
			metrics.IssuesIngested.WithLabelValues("nats", "error").Inc()
			if s.logger != nil {
				s.logger.Error("nats ingest push failed", "subject", message.Subject, "error", err.Error())
			}
			s.reply(message, "error: "+err.Error())
			return
		}
		metrics.IssuesIngested.WithLabelValues("nats", "ok").Add(float64(len(records)))
		s.reply(message, "ok")
	}
}

// reply responds to request-style publishes and logs reply failures.
func (s *NATSSubscriber) reply(message *nats.Msg, status string) {
	if message == nil || message.Reply == "" {
		return
	}
	if err := message.Respond([]byte(status)); err != nil && s.logger != nil {
		s.logger.Warn("nats ingest reply failed", "subject", message.Subject, "error", err.Error())
	}
}

// Close stops NATS subscription and closes connection.
// Params: none.
// Returns: close error from subscription drain.
func (s *NATSSubscriber) Close() error {
	if s.sub != nil {
		if err := s.sub.Drain(); err != nil {
			s.nc.Close()
			return err
		}
	}
	s.nc.Close()
	return nil
}
