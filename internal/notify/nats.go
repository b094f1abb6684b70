package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSSender publishes notifications as JSON messages on a NATS subject
// derived from the recipient, one subject per recipient under the
// configured prefix.
type NATSSender struct {
	nc            *nats.Conn
	subjectPrefix string
}

// NewNATSSender connects to the NATS server at url. The connection retries
// on its own, so a broker restart does not take notifications down with it.
func NewNATSSender(url, subjectPrefix string) (*NATSSender, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if subjectPrefix == "" {
		subjectPrefix = "stagehand.notify"
	}

	nc, err := nats.Connect(
		url,
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info("NATS connection closed")
		}),
		nats.PingInterval(20*time.Second),
		nats.MaxPingsOutstanding(5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	return &NATSSender{nc: nc, subjectPrefix: subjectPrefix}, nil
}

func (s *NATSSender) Send(ctx context.Context, recipient string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", s.subjectPrefix, recipient)
	if err := s.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish notification to %s: %w", subject, err)
	}

	slog.Info("Notification published", "subject", subject, "bytes", len(payload))
	return nil
}

func (s *NATSSender) Close() error {
	if s.nc != nil && !s.nc.IsClosed() {
		s.nc.Close()
	}
	return nil
}
