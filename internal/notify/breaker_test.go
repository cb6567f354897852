package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"

	"roadwatch/internal/config"
	"roadwatch/internal/domain"
	"roadwatch/internal/permanent"
)

func testBreakerConfig() config.BreakerConfig {
	return config.BreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		IntervalSec:  60,
		TimeoutSec:   60,
		MinRequests:  2,
		FailureRatio: 0.5,
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	inner := &flakySender{channel: "breaker-open", fails: -1}
	sender := withBreaker(inner, testBreakerConfig(), testLogger())

	for i := 0; i < 2; i++ {
		if _, err := sender.Send(context.Background(), domain.OutboundMessage{}); err == nil {
			t.Fatalf("attempt %d: expected failure", i)
		}
	}
	_, err := sender.Send(context.Background(), domain.OutboundMessage{})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if inner.Calls() != 2 {
		t.Fatalf("open breaker must not call sender, calls=%d", inner.Calls())
	}
}

func TestBreakerIgnoresPermanentErrors(t *testing.T) {
	t.Parallel()

	inner := &flakySender{channel: "breaker-permanent", fails: -1, err: permanent.Mark(errors.New("rejected"))}
	sender := withBreaker(inner, testBreakerConfig(), testLogger())

	for i := 0; i < 5; i++ {
		_, err := sender.Send(context.Background(), domain.OutboundMessage{})
		if !permanent.Is(err) {
			t.Fatalf("attempt %d: expected permanent error, got %v", i, err)
		}
	}
	if inner.Calls() != 5 {
		t.Fatalf("expected every call to reach sender, calls=%d", inner.Calls())
	}
}

func TestBreakerDisabledReturnsSender(t *testing.T) {
	t.Parallel()

	inner := &captureSender{channel: ChannelLog}
	if got := withBreaker(inner, config.BreakerConfig{}, nil); got != ChannelSender(inner) {
		t.Fatalf("disabled breaker must return original sender")
	}
}
