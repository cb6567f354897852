package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"roadwatch/internal/config"
	"roadwatch/internal/domain"
	"roadwatch/internal/metrics"
	"roadwatch/internal/permanent"
)

const (
	breakerClosed   = 0
	breakerHalfOpen = 1
	breakerOpen     = 2
)

// breakerSender guards one channel sender with a circuit breaker.
// Params: wrapped sender and breaker settings.
// Returns: ChannelSender failing fast while the breaker is open.
type breakerSender struct {
	next    ChannelSender
	breaker *gobreaker.CircuitBreaker
}

// withBreaker wraps sender when breaker is enabled.
// Params: sender, breaker config, and logger.
// Returns: wrapped or original sender.
func withBreaker(next ChannelSender, cfg config.BreakerConfig, logger *slog.Logger) ChannelSender {
	if !cfg.Enabled {
		return next
	}
	channel := next.Channel()
	metrics.BreakerState.WithLabelValues(channel).Set(breakerClosed)
	return &breakerSender{
		next: next,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        channel,
			MaxRequests: cfg.MaxRequests,
			Interval:    time.Duration(cfg.IntervalSec) * time.Second,
			Timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cfg.MinRequests {
					return false
				}
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return failureRatio >= cfg.FailureRatio
			},
			IsSuccessful: func(err error) bool {
				// Permanent errors are bad input, not an unhealthy channel.
				return err == nil || permanent.Is(err)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				if logger != nil {
					logger.Info("notify breaker state changed", "channel", name, "from", from.String(), "to", to.String())
				}
				var value float64
				switch to {
				case gobreaker.StateClosed:
					value = breakerClosed
				case gobreaker.StateHalfOpen:
					value = breakerHalfOpen
				case gobreaker.StateOpen:
					value = breakerOpen
				}
				metrics.BreakerState.WithLabelValues(name).Set(value)
			},
		}),
	}
}

// Channel returns wrapped sender channel.
func (s *breakerSender) Channel() string {
	return s.next.Channel()
}

// Send executes wrapped send through the breaker.
func (s *breakerSender) Send(ctx context.Context, message domain.OutboundMessage) (SendResult, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.next.Send(ctx, message)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.DeliveryAttempts.WithLabelValues(s.Channel(), "breaker_open").Inc()
		}
		return SendResult{}, err
	}
	sent, _ := result.(SendResult)
	return sent, nil
}
