package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"roadwatch/internal/config"
	"roadwatch/internal/domain"
	"roadwatch/internal/metrics"
	"roadwatch/internal/permanent"
)

// Delivery sends outbound messages to every enabled channel with retries.
// Params: sender set, per-channel retry policy, and category filters.
// Returns: delivery executor used by outbox workers.
type Delivery struct {
	senders    map[string]ChannelSender
	channels   []string
	retries    map[string]config.NotifyRetry
	categories map[string]map[domain.MessageCategory]bool
	logger     *slog.Logger
}

// NewDelivery builds delivery from enabled channels.
// Params: notify config and logger.
// Returns: configured delivery or sender init error.
func NewDelivery(cfg config.NotifyConfig, logger *slog.Logger) (*Delivery, error) {
	d := &Delivery{
		senders:    make(map[string]ChannelSender),
		retries:    make(map[string]config.NotifyRetry),
		categories: make(map[string]map[domain.MessageCategory]bool),
		logger:     logger,
	}
	for _, channel := range ChannelNames() {
		if !channelEnabled(cfg, channel) {
			continue
		}
		sender, err := newSenderForChannel(channel, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("notify.%s: %w", channel, err)
		}
		d.add(withBreaker(sender, cfg.Breaker, logger), channelRetry(cfg, channel), channelCategories(cfg, channel))
	}
	return d, nil
}

// newSenderForChannel builds transport sender implementation for one channel key.
// Params: channel key, full notify config, and logger.
// Returns: channel sender or config error.
func newSenderForChannel(channel string, cfg config.NotifyConfig, logger *slog.Logger) (ChannelSender, error) {
	switch channel {
	case ChannelEmail:
		return NewEmailSender(cfg.Email)
	case ChannelTelegram:
		return NewTelegramSender(cfg.Telegram), nil
	case ChannelHTTP:
		return NewWebhookSender(cfg.HTTP), nil
	case ChannelLog:
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown channel %q", channel)
	}
}

func (d *Delivery) add(sender ChannelSender, retry config.NotifyRetry, categories map[domain.MessageCategory]bool) {
	channel := sender.Channel()
	d.senders[channel] = sender
	d.retries[channel] = retry
	if categories != nil {
		d.categories[channel] = categories
	}
	d.channels = append(d.channels, channel)
	sort.Strings(d.channels)
}

// Channels returns configured channel list.
// Params: none.
// Returns: deterministic sender keys.
func (d *Delivery) Channels() []string {
	return d.channels
}

// Deliver sends message to every channel that accepts its category.
// Email is skipped for messages without recipients.
// Params: context and rendered message.
// Returns: joined per-channel errors; nil when every accepting channel succeeded.
func (d *Delivery) Deliver(ctx context.Context, message domain.OutboundMessage) error {
	var errs []error
	for _, channel := range d.channels {
		if !d.accepts(channel, message) {
			continue
		}
		if _, err := d.Send(ctx, channel, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Delivery) accepts(channel string, message domain.OutboundMessage) bool {
	if channel == ChannelEmail && len(message.To) == 0 {
		return false
	}
	allowed, ok := d.categories[channel]
	if !ok {
		return true
	}
	return allowed[message.Category]
}

// Send sends one message to one channel with retry policy.
// Params: destination channel and message.
// Returns: channel metadata and final error after retries.
func (d *Delivery) Send(ctx context.Context, channel string, message domain.OutboundMessage) (SendResult, error) {
	sender, ok := d.senders[channel]
	if !ok {
		return SendResult{}, fmt.Errorf("notify channel %q is not configured", channel)
	}
	started := time.Now()
	result, err := d.sendWithRetry(ctx, sender, message, d.retries[channel])
	metrics.DeliveryDuration.WithLabelValues(channel).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.DeliveryAttempts.WithLabelValues(channel, "failed").Inc()
		if d.logger != nil {
			d.logger.Error("notify send failed",
				"channel", channel,
				"message_id", message.ID,
				"category", string(message.Category),
				"pothole_id", message.PotholeID,
				"error", err.Error(),
			)
		}
		return SendResult{}, err
	}
	metrics.DeliveryAttempts.WithLabelValues(channel, "success").Inc()
	return result, nil
}

// sendWithRetry sends one message with channel-specific retry policy.
// Permanent errors stop retrying immediately.
// Params: sender, payload, and retry policy for the sender channel.
// Returns: channel metadata and final error after retries.
func (d *Delivery) sendWithRetry(ctx context.Context, sender ChannelSender, message domain.OutboundMessage, retry config.NotifyRetry) (SendResult, error) {
	if !retry.Enabled {
		return sender.Send(ctx, message)
	}

	attempt := 0
	backoff := time.Duration(retry.InitialMS) * time.Millisecond
	maxBackoff := time.Duration(retry.MaxMS) * time.Millisecond
	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	defer stopTimer(timer)

	for {
		attempt++
		result, err := sender.Send(ctx, message)
		if err == nil {
			if retry.LogEachAttempt && attempt > 1 && d.logger != nil {
				d.logger.Info("notify send recovered after retries", "channel", sender.Channel(), "attempt", attempt)
			}
			return result, nil
		}
		if retry.LogEachAttempt && d.logger != nil {
			d.logger.Warn("notify send attempt failed", "channel", sender.Channel(), "attempt", attempt, "error", err.Error())
		}
		if permanent.Is(err) {
			return SendResult{}, fmt.Errorf("channel %s rejected message: %w", sender.Channel(), err)
		}
		if retry.MaxAttempts > 0 && attempt >= retry.MaxAttempts {
			return SendResult{}, fmt.Errorf("channel %s failed after %d attempts: %w", sender.Channel(), attempt, err)
		}

		timer.Reset(backoff)
		select {
		case <-ctx.Done():
			return SendResult{}, ctx.Err()
		case <-timer.C:
		}

		if strings.EqualFold(retry.Backoff, "exponential") {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

func stopTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
