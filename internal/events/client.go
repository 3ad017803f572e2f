// Package events publishes ingest lifecycle events over NATS. The publisher
// is optional: a nil *Client is safe to call and publishes nothing.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectSourceCompleted fires after each platform export finishes.
	SubjectSourceCompleted = "recall.ingest.source.completed"
	// SubjectIngestCompleted fires once at the end of a full run.
	SubjectIngestCompleted = "recall.ingest.completed"
)

// SourceCompleted reports per-platform ingestion counts.
type SourceCompleted struct {
	Platform      string `json:"platform"`
	Conversations int    `json:"conversations"`
	CodeSnippets  int    `json:"code_snippets"`
	Errors        int    `json:"errors"`
}

// IngestCompleted reports aggregate counts for a run.
type IngestCompleted struct {
	Conversations int    `json:"conversations"`
	CodeSnippets  int    `json:"code_snippets"`
	ChunksStored  int    `json:"chunks_stored"`
	Errors        int    `json:"errors"`
	DryRun        bool   `json:"dry_run"`
	FinishedAt    string `json:"finished_at"`
}

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
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
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	c.conn.Close()
}
