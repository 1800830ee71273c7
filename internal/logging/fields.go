package logging

import "log/slog"

// Common field names for consistent logging across the plugin.
const (
	FieldService     = "service"
	FieldTransport   = "transport"
	FieldPort        = "port"
	FieldPeer        = "peer"
	FieldMessageType = "message_type"
	FieldTopic       = "topic"
	FieldSubject     = "subject"
	FieldBytes       = "bytes"
	FieldCount       = "count"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldMessageID   = "message_id"
	FieldReason      = "reason"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Transport returns a slog attribute for the transport kind (udp or tcp).
func Transport(kind string) slog.Attr {
	return slog.String(FieldTransport, kind)
}

// Port returns a slog attribute for a listen port.
func Port(port int) slog.Attr {
	return slog.Int(FieldPort, port)
}

// Peer returns a slog attribute for the remote peer address.
func Peer(addr string) slog.Attr {
	return slog.String(FieldPeer, addr)
}

// MessageType returns a slog attribute for the hub message type tag.
func MessageType(t string) slog.Attr {
	return slog.String(FieldMessageType, t)
}

// Topic returns a slog attribute for a publish topic.
func Topic(topic string) slog.Attr {
	return slog.String(FieldTopic, topic)
}

// Subject returns a slog attribute for a broker subject.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

// Bytes returns a slog attribute for a byte count.
func Bytes(n int) slog.Attr {
	return slog.Int(FieldBytes, n)
}

// Count returns a slog attribute for a generic count.
func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

// MessageID returns a slog attribute for an ingest message ID.
func MessageID(id string) slog.Attr {
	return slog.String(FieldMessageID, id)
}

// Reason returns a slog attribute for a drop or failure reason.
func Reason(reason string) slog.Attr {
	return slog.String(FieldReason, reason)
}
