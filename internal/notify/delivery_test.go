package notify

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"roadwatch/internal/config"
	"roadwatch/internal/domain"
	"roadwatch/internal/permanent"
)

type flakySender struct {
	channel string
	fails   int
	err     error

	mu    sync.Mutex
	calls int
}

func (s *flakySender) Channel() string { return s.channel }

func (s *flakySender) Send(_ context.Context, _ domain.OutboundMessage) (SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fails < 0 || s.calls <= s.fails {
		if s.err != nil {
			return SendResult{}, s.err
		}
		return SendResult{}, errors.New("temporary error")
	}
	return SendResult{}, nil
}

func (s *flakySender) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type captureSender struct {
	channel string

	mu    sync.Mutex
	items []domain.OutboundMessage
}

func (s *captureSender) Channel() string { return s.channel }

func (s *captureSender) Send(_ context.Context, message domain.OutboundMessage) (SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, message)
	return SendResult{ExternalRef: message.ID}, nil
}

func (s *captureSender) Items() []domain.OutboundMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboundMessage(nil), s.items...)
}

func newTestDelivery() *Delivery {
	return &Delivery{
		senders:    make(map[string]ChannelSender),
		retries:    make(map[string]config.NotifyRetry),
		categories: make(map[string]map[domain.MessageCategory]bool),
	}
}

func fastRetry(maxAttempts int) config.NotifyRetry {
	return config.NotifyRetry{
		Enabled:     true,
		Backoff:     "exponential",
		InitialMS:   1,
		MaxMS:       2,
		MaxAttempts: maxAttempts,
	}
}

func TestDeliveryRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	sender := &flakySender{channel: ChannelTelegram, fails: 2}
	delivery := newTestDelivery()
	delivery.add(sender, fastRetry(0), nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := delivery.Send(ctx, ChannelTelegram, domain.OutboundMessage{ID: "msg-1"}); err != nil {
		t.Fatalf("expected retry success, got %v", err)
	}
	if sender.Calls() != 3 {
		t.Fatalf("expected 3 attempts, got %d", sender.Calls())
	}
}

func TestDeliveryStopsAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	sender := &flakySender{channel: ChannelHTTP, fails: -1}
	delivery := newTestDelivery()
	delivery.add(sender, fastRetry(3), nil)

	_, err := delivery.Send(context.Background(), ChannelHTTP, domain.OutboundMessage{ID: "msg-1"})
	if err == nil || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("expected attempts error, got %v", err)
	}
	if sender.Calls() != 3 {
		t.Fatalf("expected 3 attempts, got %d", sender.Calls())
	}
}

func TestDeliveryDoesNotRetryPermanentError(t *testing.T) {
	t.Parallel()

	sender := &flakySender{channel: ChannelHTTP, fails: -1, err: permanent.Mark(errors.New("bad request"))}
	delivery := newTestDelivery()
	delivery.add(sender, fastRetry(5), nil)

	_, err := delivery.Send(context.Background(), ChannelHTTP, domain.OutboundMessage{ID: "msg-1"})
	if !permanent.Is(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if sender.Calls() != 1 {
		t.Fatalf("expected single attempt, got %d", sender.Calls())
	}
}

func TestDeliveryRetryHonorsContext(t *testing.T) {
	t.Parallel()

	sender := &flakySender{channel: ChannelHTTP, fails: -1}
	delivery := newTestDelivery()
	delivery.add(sender, config.NotifyRetry{Enabled: true, Backoff: "fixed", InitialMS: 60000, MaxMS: 60000}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := delivery.Send(ctx, ChannelHTTP, domain.OutboundMessage{ID: "msg-1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestDeliveryReturnsUnknownChannel(t *testing.T) {
	t.Parallel()

	delivery := newTestDelivery()
	if _, err := delivery.Send(context.Background(), ChannelTelegram, domain.OutboundMessage{}); err == nil {
		t.Fatalf("expected unknown channel error")
	}
}

func TestNewDeliveryChannels(t *testing.T) {
	t.Parallel()

	delivery, err := NewDelivery(config.NotifyConfig{
		Email: config.EmailNotifier{
			Enabled:  true,
			SMTPHost: "smtp.local",
			From:     "roads@brampton.ca",
		},
		Telegram: config.TelegramNotifier{
			Enabled:  true,
			BotToken: "token",
			ChatID:   "chat",
			APIBase:  "http://localhost",
		},
		HTTP: config.HTTPNotifier{
			Enabled: true,
			URL:     "http://localhost/callback",
		},
		Breaker: config.BreakerConfig{Enabled: true, MaxRequests: 1, IntervalSec: 60, TimeoutSec: 30, MinRequests: 3, FailureRatio: 0.6},
	}, testLogger())
	if err != nil {
		t.Fatalf("new delivery: %v", err)
	}

	got := delivery.Channels()
	want := []string{ChannelEmail, ChannelHTTP, ChannelTelegram}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("channels mismatch: got=%v want=%v", got, want)
	}
}

func TestNewDeliveryRejectsIncompleteEmail(t *testing.T) {
	t.Parallel()

	_, err := NewDelivery(config.NotifyConfig{
		Email: config.EmailNotifier{Enabled: true, From: "roads@brampton.ca"},
	}, testLogger())
	if err == nil || !strings.Contains(err.Error(), "notify.email") {
		t.Fatalf("expected email config error, got %v", err)
	}
}

func TestDeliverRoutesByCategoryAndRecipients(t *testing.T) {
	t.Parallel()

	email := &captureSender{channel: ChannelEmail}
	telegram := &captureSender{channel: ChannelTelegram}
	webhook := &captureSender{channel: ChannelHTTP}
	delivery := newTestDelivery()
	delivery.add(email, config.NotifyRetry{}, nil)
	delivery.add(telegram, config.NotifyRetry{}, map[domain.MessageCategory]bool{domain.CategoryEscalation: true})
	delivery.add(webhook, config.NotifyRetry{}, nil)

	messages := []domain.OutboundMessage{
		{ID: "msg-1", To: []string{"resident@example.com"}, Category: domain.CategorySubmissionConfirmation},
		{ID: "msg-2", To: []string{"supervisor@brampton.ca"}, Category: domain.CategoryEscalation},
		{ID: "msg-3", Category: domain.CategoryStatusUpdate},
	}
	for _, message := range messages {
		if err := delivery.Deliver(context.Background(), message); err != nil {
			t.Fatalf("deliver %s: %v", message.ID, err)
		}
	}

	if got := messageIDs(email.Items()); !reflect.DeepEqual(got, []string{"msg-1", "msg-2"}) {
		t.Fatalf("email got %v", got)
	}
	if got := messageIDs(telegram.Items()); !reflect.DeepEqual(got, []string{"msg-2"}) {
		t.Fatalf("telegram got %v", got)
	}
	if got := messageIDs(webhook.Items()); !reflect.DeepEqual(got, []string{"msg-1", "msg-2", "msg-3"}) {
		t.Fatalf("webhook got %v", got)
	}
}

func TestDeliverJoinsChannelErrors(t *testing.T) {
	t.Parallel()

	ok := &captureSender{channel: ChannelLog}
	failing := &flakySender{channel: ChannelHTTP, fails: -1}
	delivery := newTestDelivery()
	delivery.add(ok, config.NotifyRetry{}, nil)
	delivery.add(failing, config.NotifyRetry{}, nil)

	err := delivery.Deliver(context.Background(), domain.OutboundMessage{ID: "msg-1"})
	if err == nil || !strings.Contains(err.Error(), "temporary error") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ok.Items()) != 1 {
		t.Fatalf("healthy channel must still receive message")
	}
}

func messageIDs(items []domain.OutboundMessage) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
