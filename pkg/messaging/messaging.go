// Package messaging provides abstractions for the downstream publish sink.
// It defines interfaces that let the pipeline publish measurements without
// being coupled to a specific broker implementation.
package messaging

import (
	"context"
	"time"
)

// Message represents a message sent to the message broker.
type Message struct {
	// Subject is the topic/channel the message is published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata contains optional key-value pairs for message headers.
	Metadata map[string]string

	// Timestamp is when the message was published.
	Timestamp time.Time
}

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish sends a message to the specified subject.
	// The message is fire-and-forget.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishMsg sends a Message with full control over headers and metadata.
	PublishMsg(ctx context.Context, msg *Message) error

	// Close releases any resources held by the publisher.
	Close() error
}

// Client extends Publisher with connection lifecycle control.
type Client interface {
	Publisher

	// Drain gracefully closes the connection, allowing in-flight messages to complete.
	Drain() error

	// IsConnected returns true if the client is connected to the broker.
	IsConnected() bool
}
