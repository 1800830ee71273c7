// Package listener owns the network endpoint the weather-station hub
// broadcasts on and yields an infinite stream of raw message buffers.
//
// Two interchangeable transports exist: UDP (each datagram is one
// complete message) and TCP (length-prefixed frames on a persistent
// connection). Both run a blocking read loop on a dedicated goroutine and
// hand messages to the coordinator over a bounded channel, so a slow
// publish never stalls the socket read and never lets the OS receive
// buffer overflow.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/ericvh/waggle-tempest/internal/logging"
)

// ErrAlreadyOpen reports a second Open on the same listener. The produced
// stream is not restartable; reconnection requires a fresh listener.
var ErrAlreadyOpen = errors.New("listener already opened")

// ErrClosed reports an operation on a closed listener.
var ErrClosed = errors.New("listener closed")

// RawMessage is one received unit: an opaque buffer plus transport
// metadata. It is consumed immediately by the decoder and not retained.
type RawMessage struct {
	ID         uuid.UUID
	Data       []byte
	Peer       net.Addr
	ReceivedAt time.Time
}

// Listener produces an infinite, non-restartable stream of RawMessages.
//
// Open fails if the endpoint cannot be acquired (fatal at startup).
// Transport errors after a successful Open are reported on Errs and never
// terminate the stream; the message channel closes only on Close.
type Listener interface {
	Open(ctx context.Context) (<-chan RawMessage, error)

	// Errs reports recoverable transport errors (read failures, peer
	// disconnects, frame resyncs) for the status path.
	Errs() <-chan error

	Close() error
}

// Config holds shared listener configuration.
type Config struct {
	Bind string
	Port int
	// QueueSize bounds the listener-to-coordinator handoff channel.
	QueueSize int
}

// New constructs a listener for the configured transport kind.
func New(transport string, cfg Config, logger *logging.Logger) (Listener, error) {
	switch transport {
	case "udp":
		return NewUDPListener(cfg, logger), nil
	case "tcp":
		return NewTCPListener(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}

const (
	// maxDatagramSize covers any UDP packet the hub can send.
	maxDatagramSize = 65536

	// socketBufferSize enlarges the OS receive buffer so bursts survive a
	// briefly busy coordinator.
	socketBufferSize = 2 * 1024 * 1024

	// readPollInterval is the read deadline used to poll for shutdown.
	readPollInterval = 100 * time.Millisecond
)

// reportErr delivers err on errs without ever blocking the read loop.
func reportErr(errs chan error, err error) {
	select {
	case errs <- err:
	default:
	}
}

// isTimeout reports whether err is a net timeout from deadline polling.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
