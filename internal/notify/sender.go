package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"roadwatch/internal/config"
	"roadwatch/internal/domain"
	"roadwatch/internal/permanent"
)

const (
	// ChannelEmail delivers to resolved recipient addresses over SMTP.
	ChannelEmail = "email"
	// ChannelTelegram posts to the operations Telegram chat.
	ChannelTelegram = "telegram"
	// ChannelHTTP posts JSON to a webhook.
	ChannelHTTP = "http"
	// ChannelLog writes messages to the service log.
	ChannelLog = "log"
)

// SendResult returns channel-specific metadata after successful delivery.
// Params: sender-specific metadata fields.
// Returns: optional message identifiers.
type SendResult struct {
	MessageID   int
	ExternalRef string
}

// ChannelSender sends one outbound message to one channel.
// Params: context and rendered message.
// Returns: channel send metadata and transport error when send fails.
type ChannelSender interface {
	Channel() string
	Send(ctx context.Context, message domain.OutboundMessage) (SendResult, error)
}

// ChannelNames returns supported channel keys in deterministic order.
func ChannelNames() []string {
	return []string{ChannelEmail, ChannelHTTP, ChannelLog, ChannelTelegram}
}

// channelEnabled reports whether channel is switched on in config.
func channelEnabled(cfg config.NotifyConfig, channel string) bool {
	switch channel {
	case ChannelEmail:
		return cfg.Email.Enabled
	case ChannelTelegram:
		return cfg.Telegram.Enabled
	case ChannelHTTP:
		return cfg.HTTP.Enabled
	case ChannelLog:
		return cfg.Log.Enabled
	default:
		return false
	}
}

// channelRetry returns retry policy for channel; log never retries.
func channelRetry(cfg config.NotifyConfig, channel string) config.NotifyRetry {
	switch channel {
	case ChannelEmail:
		return cfg.Email.Retry
	case ChannelTelegram:
		return cfg.Telegram.Retry
	case ChannelHTTP:
		return cfg.HTTP.Retry
	default:
		return config.NotifyRetry{}
	}
}

// channelCategories returns accepted categories; nil accepts everything.
func channelCategories(cfg config.NotifyConfig, channel string) map[domain.MessageCategory]bool {
	var raw []string
	switch channel {
	case ChannelTelegram:
		raw = cfg.Telegram.Categories
	case ChannelHTTP:
		raw = cfg.HTTP.Categories
	}
	if len(raw) == 0 {
		return nil
	}
	out := make(map[domain.MessageCategory]bool, len(raw))
	for _, category := range raw {
		out[domain.MessageCategory(strings.TrimSpace(category))] = true
	}
	return out
}

// unexpectedHTTPStatusError formats non-2xx HTTP response with optional body.
// Params: sender prefix label and HTTP response pointer.
// Returns: status error, permanent for non-retryable client errors.
func unexpectedHTTPStatusError(prefix string, response *http.Response) error {
	if response == nil {
		return fmt.Errorf("%s status=0", prefix)
	}
	rawBody, readErr := io.ReadAll(io.LimitReader(response.Body, 4096))
	if readErr != nil {
		return fmt.Errorf("%s status=%d (read body error: %w)", prefix, response.StatusCode, readErr)
	}
	return permanent.HTTPStatus(prefix, response.StatusCode, strings.TrimSpace(string(rawBody)))
}
