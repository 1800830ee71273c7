// Package dlq dead-letters raw frames the decoder rejected.
//
// Rejected frames are never worth crashing over but are worth keeping:
// a hub firmware update that changes the wire format shows up here first.
// Writes are best effort; a DLQ failure is logged and ingestion continues.
package dlq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ericvh/waggle-tempest/internal/logging"
	"github.com/ericvh/waggle-tempest/internal/metrics"
	"github.com/ericvh/waggle-tempest/pkg/messaging"
	natsclient "github.com/ericvh/waggle-tempest/pkg/messaging/nats"
)

// Drop reasons, appended to the DLQ subject.
const (
	ReasonMalformed    = "malformed"
	ReasonUnrecognized = "unrecognized"
)

// Entry is one dead-lettered frame with enough context to replay it.
type Entry struct {
	ID         string    `json:"id"`
	Raw        []byte    `json:"raw"`
	Peer       string    `json:"peer,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	Error      string    `json:"error"`
	Reason     string    `json:"reason"`
}

// Queue accepts rejected frames. The NoOp implementation lets the
// pipeline run without JetStream configured.
type Queue interface {
	Write(ctx context.Context, entry Entry) error
	Close() error
}

// JetStreamQueue persists entries to a JetStream stream so they survive
// process restarts.
type JetStreamQueue struct {
	client *natsclient.JetStreamClient
	logger *logging.Logger
}

// NewJetStreamQueue connects to NATS and ensures the DLQ stream exists.
func NewJetStreamQueue(ctx context.Context, cfg natsclient.Config, logger *logging.Logger) (*JetStreamQueue, error) {
	if logger == nil {
		logger = logging.Default()
	}

	client, err := natsclient.NewJetStreamClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect dead-letter queue: %w", err)
	}

	if _, err := client.CreateOrUpdateStream(ctx, natsclient.TempestDLQStream); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure dead-letter stream: %w", err)
	}

	return &JetStreamQueue{client: client, logger: logger}, nil
}

// Write persists one rejected frame. The subject carries the drop reason
// so consumers can subscribe to a single failure class.
func (q *JetStreamQueue) Write(ctx context.Context, entry Entry) error {
	if entry.Reason == "" {
		return errors.New("dlq entry requires a reason")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal dlq entry: %w", err)
	}

	subject := messaging.DLQSubjectPrefix + "." + entry.Reason
	if _, err := q.client.PublishSync(ctx, subject, data); err != nil {
		return fmt.Errorf("publish dlq entry: %w", err)
	}

	metrics.DLQWrites.WithLabelValues(entry.Reason).Inc()
	q.logger.Debug("frame dead-lettered",
		logging.MessageID(entry.ID),
		logging.Reason(entry.Reason),
		logging.Bytes(len(entry.Raw)),
	)
	return nil
}

// Close releases the NATS connection.
func (q *JetStreamQueue) Close() error {
	return q.client.Close()
}

// NoOpQueue discards every entry. Used when the DLQ is disabled.
type NoOpQueue struct{}

// NewNoOpQueue returns a queue that drops everything.
func NewNoOpQueue() *NoOpQueue { return &NoOpQueue{} }

// Write implements Queue.
func (*NoOpQueue) Write(context.Context, Entry) error { return nil }

// Close implements Queue.
func (*NoOpQueue) Close() error { return nil }
