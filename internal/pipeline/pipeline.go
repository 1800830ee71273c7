// Package pipeline coordinates the ingest flow: raw frames from the
// listener are decoded, throttled, adapted, and delivered to the sink.
//
// One goroutine owns the throttle state, the adapter, and the sink
// handle, so no locking is needed on the hot path and a slow publish
// can never stall the socket read loop (the listener buffers and drops
// on its side of the handoff channel).
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/ericvh/waggle-tempest/internal/decoder"
	"github.com/ericvh/waggle-tempest/internal/dlq"
	"github.com/ericvh/waggle-tempest/internal/listener"
	"github.com/ericvh/waggle-tempest/internal/logging"
	"github.com/ericvh/waggle-tempest/internal/metrics"
	"github.com/ericvh/waggle-tempest/internal/publish"
	"github.com/ericvh/waggle-tempest/internal/throttle"
)

// statusType is the throttle type tag for liveness publications.
const statusType = "status"

// shutdownPublishTimeout bounds the final status publish on shutdown.
const shutdownPublishTimeout = 5 * time.Second

// Config holds pipeline tuning.
type Config struct {
	// HeartbeatInterval is the period between liveness publications.
	HeartbeatInterval time.Duration

	// ForceStatus bypasses the throttle for status publications so an
	// error indicator is never silently dropped.
	ForceStatus bool
}

// Pipeline wires the listener to the sink through decode and throttle.
type Pipeline struct {
	cfg       Config
	listener  listener.Listener
	scheduler throttle.Scheduler
	sink      *publish.Sink
	queue     dlq.Queue
	logger    *logging.Logger

	// typesSeen tracks distinct message types for the periodic status log.
	typesSeen map[string]struct{}
}

// New assembles a pipeline. The queue may be a NoOpQueue when
// dead-lettering is disabled.
func New(cfg Config, l listener.Listener, s throttle.Scheduler, sink *publish.Sink, q dlq.Queue, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Default()
	}
	if q == nil {
		q = dlq.NewNoOpQueue()
	}
	return &Pipeline{
		cfg:       cfg,
		listener:  l,
		scheduler: s,
		sink:      sink,
		queue:     q,
		logger:    logger.With(logging.Service("pipeline")),
		typesSeen: make(map[string]struct{}),
	}
}

// Run opens the listener and processes messages until ctx is cancelled
// or the listener stream ends. On clean shutdown a terminal "stopped"
// status is published before the transport is released.
func (p *Pipeline) Run(ctx context.Context) error {
	msgs, err := p.listener.Open(ctx)
	if err != nil {
		return err
	}

	heartbeat := time.NewTicker(p.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	p.publishStatus(ctx, 1, p.cfg.ForceStatus)

	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			return nil

		case msg, ok := <-msgs:
			if !ok {
				p.logger.Info("listener stream ended")
				p.shutdown()
				return nil
			}
			p.handle(ctx, msg)

		case lerr := <-p.listener.Errs():
			p.logger.Warn("listener reported an error", logging.Error(lerr))
			p.publishStatus(ctx, 0, true)

		case <-heartbeat.C:
			p.publishStatus(ctx, 1, p.cfg.ForceStatus)
			p.logger.Info("pipeline heartbeat", logging.Count(len(p.typesSeen)))
		}
	}
}

// handle runs one raw message through decode, throttle, and publish.
func (p *Pipeline) handle(ctx context.Context, msg listener.RawMessage) {
	rec, err := decoder.Decode(msg.Data)
	if err != nil {
		p.deadLetter(ctx, msg, err)
		return
	}

	typeTag := rec.Type()
	metrics.MessagesDecoded.WithLabelValues(typeTag).Inc()

	if _, seen := p.typesSeen[typeTag]; !seen {
		p.typesSeen[typeTag] = struct{}{}
		p.logger.Info("new message type observed", logging.MessageType(typeTag))
	}

	now := time.Now().UTC()
	admitted, err := p.scheduler.Admit(ctx, typeTag, now, false)
	if err != nil {
		// Scheduler failed open or closed; either way its verdict stands
		p.logger.Warn("throttle check degraded", logging.MessageType(typeTag), logging.Error(err))
	}
	if !admitted {
		metrics.ThrottleDropped.WithLabelValues(typeTag).Inc()
		return
	}
	metrics.ThrottleAdmitted.WithLabelValues(typeTag).Inc()

	p.sink.Deliver(ctx, publish.Adapt(rec, now))
}

// deadLetter records a rejected frame. Best effort: a DLQ failure is
// logged and never interrupts ingestion.
func (p *Pipeline) deadLetter(ctx context.Context, msg listener.RawMessage, decodeErr error) {
	reason := dlq.ReasonMalformed
	if errors.Is(decodeErr, decoder.ErrUnrecognized) {
		reason = dlq.ReasonUnrecognized
	}
	metrics.DecodeErrors.WithLabelValues(reason).Inc()

	p.logger.Warn("dropping undecodable frame",
		logging.MessageID(msg.ID.String()),
		logging.Reason(reason),
		logging.Bytes(len(msg.Data)),
		logging.Error(decodeErr),
	)

	entry := dlq.Entry{
		ID:         msg.ID.String(),
		Raw:        msg.Data,
		ReceivedAt: msg.ReceivedAt,
		Error:      decodeErr.Error(),
		Reason:     reason,
	}
	if msg.Peer != nil {
		entry.Peer = msg.Peer.String()
	}

	if err := p.queue.Write(ctx, entry); err != nil {
		p.logger.Warn("dead-letter write failed", logging.Error(err))
	}
}

// publishStatus emits the liveness indicator. Error and terminal states
// always pass the throttle with force so they are never silently dropped;
// periodic heartbeats force only when configured to.
func (p *Pipeline) publishStatus(ctx context.Context, value int, force bool) {
	now := time.Now().UTC()

	admitted, err := p.scheduler.Admit(ctx, statusType, now, force)
	if err != nil {
		p.logger.Warn("throttle check degraded", logging.MessageType(statusType), logging.Error(err))
	}
	if !admitted {
		metrics.ThrottleDropped.WithLabelValues(statusType).Inc()
		return
	}

	p.sink.Deliver(ctx, []publish.Intent{publish.StatusIntent(value, now)})
}

// shutdown publishes the terminal status and releases the transport.
func (p *Pipeline) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownPublishTimeout)
	defer cancel()

	p.publishStatus(ctx, 0, true)

	if err := p.listener.Close(); err != nil && !errors.Is(err, listener.ErrClosed) {
		p.logger.Warn("listener close failed", logging.Error(err))
	}
	p.logger.Info("pipeline stopped")
}
