package notify

import (
	"context"
	"log/slog"
)

// LogSender writes notifications to the application log. It is the default
// sender when no broker is configured, which keeps notification tasks
// runnable in development and in tests.
type LogSender struct {
	Channel string
}

func NewLogSender(channel string) *LogSender {
	if channel == "" {
		channel = "default"
	}
	return &LogSender{Channel: channel}
}

func (s *LogSender) Send(ctx context.Context, recipient string, data map[string]any) error {
	slog.Info("Notification sent", "channel", s.Channel, "recipient", recipient, "fields", len(data))
	return nil
}
