package notifyqueue

import (
	"context"
	"time"

	"roadwatch/internal/domain"
)

// publishTimeout bounds the wait for one JetStream publish acknowledgement.
const publishTimeout = 5 * time.Second

// Handler delivers one queued outbound message.
// Params: context and decoded message.
// Returns: nil to ack, permanent error to drop, other errors to redeliver.
type Handler func(ctx context.Context, message domain.OutboundMessage) error

// Outcome is worker decision for one delivered queue message.
type Outcome string

const (
	// OutcomeAck acknowledges successful delivery.
	OutcomeAck Outcome = "ack"
	// OutcomeRetry asks JetStream for redelivery.
	OutcomeRetry Outcome = "retry"
	// OutcomeDrop acknowledges a message that will never succeed.
	OutcomeDrop Outcome = "drop"
	// OutcomeExhausted acknowledges a message whose final attempt failed.
	OutcomeExhausted Outcome = "exhausted"
)

// Decide maps handler result and attempt counters to queue action.
// Params: handler error, permanent classification, current attempt, and max deliver.
// Returns: worker outcome.
func Decide(err error, permanentErr bool, attempts uint64, maxDeliver int) Outcome {
	switch {
	case err == nil:
		return OutcomeAck
	case permanentErr:
		return OutcomeDrop
	case isMaxDeliverExceeded(attempts, maxDeliver):
		return OutcomeExhausted
	default:
		return OutcomeRetry
	}
}

// isMaxDeliverExceeded reports if current attempt reached configured max deliver.
// Params: attempt counter and max deliver config.
// Returns: true when current attempt is final allowed delivery.
func isMaxDeliverExceeded(attempts uint64, maxDeliver int) bool {
	if maxDeliver <= 0 {
		return false
	}
	return attempts >= uint64(maxDeliver)
}
