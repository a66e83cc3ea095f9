package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("brainsync"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// PublishNoteSynced announces a written note.
func (c *Client) PublishNoteSynced(ev NoteSyncedEvent) error {
	return c.Publish(SubjectNoteSynced, ev)
}

// PublishScanCompleted announces the result of a full scan.
func (c *Client) PublishScanCompleted(ev ScanCompletedEvent) error {
	return c.Publish(SubjectScanCompleted, ev)
}

// Close flushes pending publishes and closes the connection.
func (c *Client) Close() {
	_ = c.conn.Drain()
}
