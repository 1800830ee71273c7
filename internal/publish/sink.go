package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ericvh/waggle-tempest/internal/logging"
	"github.com/ericvh/waggle-tempest/internal/metrics"
	"github.com/ericvh/waggle-tempest/pkg/messaging"
)

// Sink delivers intent batches to the broker. Calls are serialized by
// the coordinator; Sink itself holds no mutable state.
type Sink struct {
	pub    messaging.Publisher
	logger *logging.Logger
}

// NewSink wraps a broker publisher for intent delivery.
func NewSink(pub messaging.Publisher, logger *logging.Logger) *Sink {
	if logger == nil {
		logger = logging.Default()
	}
	return &Sink{pub: pub, logger: logger}
}

// Deliver publishes each intent in order. A failure on one intent is
// logged and counted but never blocks the rest of the batch; the number
// of failed intents is returned.
func (s *Sink) Deliver(ctx context.Context, intents []Intent) int {
	failed := 0
	for _, in := range intents {
		if err := s.deliverOne(ctx, in); err != nil {
			failed++
			s.logger.Warn("publish failed",
				logging.Topic(in.Topic),
				logging.Error(err),
			)
		}
	}
	return failed
}

func (s *Sink) deliverOne(ctx context.Context, in Intent) error {
	start := time.Now()

	payload, err := json.Marshal(in.Payload())
	if err != nil {
		metrics.PublishesTotal.WithLabelValues(in.Topic, "error").Inc()
		return fmt.Errorf("marshal measurement: %w", err)
	}

	err = s.pub.PublishMsg(ctx, &messaging.Message{
		Subject:   in.Topic,
		Data:      payload,
		Metadata:  in.Metadata(),
		Timestamp: in.Timestamp,
	})

	metrics.PublishDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PublishesTotal.WithLabelValues(in.Topic, "error").Inc()
		return err
	}
	metrics.PublishesTotal.WithLabelValues(in.Topic, "ok").Inc()
	return nil
}
