package notify

import (
	"context"
	"log/slog"

	"roadwatch/internal/domain"
)

// LogSender writes outbound messages to the service log.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates log channel sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Channel returns sender channel name.
func (s *LogSender) Channel() string {
	return ChannelLog
}

// Send logs message metadata and body.
func (s *LogSender) Send(_ context.Context, message domain.OutboundMessage) (SendResult, error) {
	s.logger.Info("outbound message",
		"message_id", message.ID,
		"category", string(message.Category),
		"pothole_id", message.PotholeID,
		"to", message.To,
		"subject", message.Subject,
		"body", message.Body,
	)
	return SendResult{ExternalRef: message.ID}, nil
}
