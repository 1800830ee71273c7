package listener

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ericvh/waggle-tempest/internal/logging"
	"github.com/ericvh/waggle-tempest/internal/metrics"
)

// UDPListener receives hub broadcasts, one complete message per datagram.
// Delivery is unordered and at-most-once, as the network provides.
type UDPListener struct {
	cfg    Config
	logger *logging.Logger

	conn *net.UDPConn
	out  chan RawMessage
	errs chan error

	opened   atomic.Bool
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewUDPListener creates a UDP listener; the socket is not bound until Open.
func NewUDPListener(cfg Config, logger *logging.Logger) *UDPListener {
	if logger == nil {
		logger = logging.Default()
	}
	return &UDPListener{
		cfg:      cfg,
		logger:   logger.With(logging.Transport("udp"), logging.Port(cfg.Port)),
		errs:     make(chan error, 1),
		shutdown: make(chan struct{}),
	}
}

// Open binds the socket and starts the read loop.
func (l *UDPListener) Open(ctx context.Context) (<-chan RawMessage, error) {
	if !l.opened.CompareAndSwap(false, true) {
		return nil, ErrAlreadyOpen
	}

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", l.cfg.Bind, l.cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("resolve udp address %s:%d: %w", l.cfg.Bind, l.cfg.Port, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind udp port %d: %w", l.cfg.Port, err)
	}

	if err := conn.SetReadBuffer(socketBufferSize); err != nil {
		// Some systems cap the buffer; not fatal
		l.logger.Warn("could not set UDP receive buffer size", logging.Error(err))
	}

	l.conn = conn
	l.out = make(chan RawMessage, l.cfg.QueueSize)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(l.out)
		l.readLoop(ctx)
	}()

	l.logger.Info("UDP listener started")
	return l.out, nil
}

// Errs implements Listener.
func (l *UDPListener) Errs() <-chan error {
	return l.errs
}

// readLoop blocks on the socket until shutdown. Read errors are reported
// and the loop continues; UDP has no connection to re-acquire.
func (l *UDPListener) readLoop(ctx context.Context) {
	buf := make([]byte, maxDatagramSize)

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.shutdown:
			return
		default:
		}

		// Deadline polling lets the loop observe shutdown promptly
		_ = l.conn.SetReadDeadline(time.Now().Add(readPollInterval))

		n, peer, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			select {
			case <-l.shutdown:
				return
			default:
			}
			metrics.TransportErrors.WithLabelValues("udp").Inc()
			l.logger.Warn("UDP read error", logging.Error(err))
			reportErr(l.errs, err)
			continue
		}

		metrics.MessagesReceived.WithLabelValues("udp").Inc()
		metrics.BytesReceived.Add(float64(n))

		data := make([]byte, n)
		copy(data, buf[:n])

		msg := RawMessage{
			ID:         uuid.New(),
			Data:       data,
			Peer:       peer,
			ReceivedAt: time.Now().UTC(),
		}

		select {
		case l.out <- msg:
			metrics.QueueDepth.Set(float64(len(l.out)))
		default:
			// Coordinator is behind; dropping protects the socket loop
			metrics.QueueDrops.Inc()
		}
	}
}

// Close stops the read loop and releases the socket. The message channel
// closes once the loop exits; the listener cannot be reopened.
func (l *UDPListener) Close() error {
	select {
	case <-l.shutdown:
		return ErrClosed
	default:
		close(l.shutdown)
	}

	if l.conn != nil {
		_ = l.conn.Close()
	}
	l.wg.Wait()
	l.logger.Info("UDP listener stopped")
	return nil
}
