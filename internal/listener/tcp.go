package listener

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ericvh/waggle-tempest/internal/logging"
	"github.com/ericvh/waggle-tempest/internal/metrics"
)

// TCP framing: a 4-byte unsigned big-endian length prefix followed by
// exactly that many bytes of message body. Fixed by the hub.
const (
	framePrefixSize = 4
	maxFrameSize    = 65535
)

// ErrFrameTooLarge reports a length prefix outside the plausible range.
// The connection is dropped and the listener resynchronizes by accepting
// the next connection.
var ErrFrameTooLarge = errors.New("implausible frame length")

// TCPListener accepts hub connections carrying length-prefixed messages.
// One client is served at a time; a disconnect or framing error drops the
// connection and the accept loop re-acquires the next one.
type TCPListener struct {
	cfg    Config
	logger *logging.Logger

	ln   net.Listener
	out  chan RawMessage
	errs chan error

	opened   atomic.Bool
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewTCPListener creates a TCP listener; the port is not bound until Open.
func NewTCPListener(cfg Config, logger *logging.Logger) *TCPListener {
	if logger == nil {
		logger = logging.Default()
	}
	return &TCPListener{
		cfg:      cfg,
		logger:   logger.With(logging.Transport("tcp"), logging.Port(cfg.Port)),
		errs:     make(chan error, 1),
		shutdown: make(chan struct{}),
	}
}

// Open binds the listen port and starts the accept loop.
func (l *TCPListener) Open(ctx context.Context) (<-chan RawMessage, error) {
	if !l.opened.CompareAndSwap(false, true) {
		return nil, ErrAlreadyOpen
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", l.cfg.Bind, l.cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("bind tcp port %d: %w", l.cfg.Port, err)
	}

	l.ln = ln
	l.out = make(chan RawMessage, l.cfg.QueueSize)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(l.out)
		l.acceptLoop(ctx)
	}()

	l.logger.Info("TCP listener started")
	return l.out, nil
}

// Errs implements Listener.
func (l *TCPListener) Errs() <-chan error {
	return l.errs
}

func (l *TCPListener) acceptLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.shutdown:
			return
		default:
		}

		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.shutdown:
				return
			default:
			}
			metrics.TransportErrors.WithLabelValues("tcp").Inc()
			l.logger.Warn("TCP accept error", logging.Error(err))
			reportErr(l.errs, err)
			continue
		}

		l.logger.Debug("accepted TCP connection", logging.Peer(conn.RemoteAddr().String()))
		l.serveConn(ctx, conn)
	}
}

// serveConn reads length-prefixed frames until the peer disconnects or a
// framing error forces a resync. Partial reads are buffered by io.ReadFull
// until a complete frame is assembled.
func (l *TCPListener) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	peer := conn.RemoteAddr()
	prefix := make([]byte, framePrefixSize)

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.shutdown:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(readPollInterval))

		if err := readFullPolled(l, conn, prefix); err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			if !errors.Is(err, io.EOF) {
				metrics.TransportErrors.WithLabelValues("tcp").Inc()
				l.logger.Warn("TCP read error", logging.Peer(peer.String()), logging.Error(err))
			} else {
				l.logger.Debug("TCP peer disconnected", logging.Peer(peer.String()))
			}
			reportErr(l.errs, fmt.Errorf("tcp connection lost: %w", err))
			return
		}

		length := binary.BigEndian.Uint32(prefix)
		if length < 1 || length > maxFrameSize {
			metrics.FrameResyncs.Inc()
			l.logger.Warn("dropping connection on implausible frame length",
				logging.Peer(peer.String()), logging.Bytes(int(length)))
			reportErr(l.errs, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length))
			return
		}

		body := make([]byte, length)
		if err := readFullPolled(l, conn, body); err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
			metrics.TransportErrors.WithLabelValues("tcp").Inc()
			l.logger.Warn("TCP read error mid-frame", logging.Peer(peer.String()), logging.Error(err))
			reportErr(l.errs, fmt.Errorf("tcp connection lost: %w", err))
			return
		}

		metrics.MessagesReceived.WithLabelValues("tcp").Inc()
		metrics.BytesReceived.Add(float64(framePrefixSize + len(body)))

		msg := RawMessage{
			ID:         uuid.New(),
			Data:       body,
			Peer:       peer,
			ReceivedAt: time.Now().UTC(),
		}

		select {
		case l.out <- msg:
			metrics.QueueDepth.Set(float64(len(l.out)))
		default:
			metrics.QueueDrops.Inc()
		}
	}
}

// readFullPolled fills buf, extending the read deadline across timeout
// ticks so shutdown is still observed between frames. A frame split over
// multiple socket reads assembles here.
func readFullPolled(l *TCPListener, conn net.Conn, buf []byte) error {
	read := 0
	for read < len(buf) {
		select {
		case <-l.shutdown:
			return ErrClosed
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(readPollInterval))
		n, err := conn.Read(buf[read:])
		read += n
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, io.EOF) && read > 0 && read < len(buf) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
	}
	return nil
}

// Close stops the accept loop and releases the port. The message channel
// closes once the loop exits; the listener cannot be reopened.
func (l *TCPListener) Close() error {
	select {
	case <-l.shutdown:
		return ErrClosed
	default:
		close(l.shutdown)
	}

	if l.ln != nil {
		_ = l.ln.Close()
	}
	l.wg.Wait()
	l.logger.Info("TCP listener stopped")
	return nil
}
