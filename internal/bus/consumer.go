package bus

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ovation22/triplederby-workers/internal/config"
	"github.com/ovation22/triplederby-workers/internal/metrics"
)

// Processor is the domain collaborator a GenericConsumer bridges deliveries
// to (§4.3). Implementations are the per-domain lifecycle-backed processors.
type Processor[T any] interface {
	Process(ctx context.Context, msg T, mctx MessageContext) ProcessingResult
}

// Consumer bridges broker deliveries of type T to a Processor[T] (§4.3
// "Generic Consumer"). One Consumer is created per (MessageType, ProcessorType) pair.
type Consumer[T any] struct {
	Adapter   Adapter
	Config    config.Consumer
	Processor Processor[T]
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
	Service   string
}

// Start connects the adapter and subscribes the bridge handler to the
// configured queue/subscription.
func (c *Consumer[T]) Start(ctx context.Context) error {
	if err := c.Adapter.Connect(ctx); err != nil {
		return err
	}
	return Subscribe[T](ctx, c.Adapter, c.Config.Queue, c.Config.Concurrency, c.Logger, c.bridge)
}

// Stop awaits adapter disconnect; it never returns a panic-worthy error to the caller.
func (c *Consumer[T]) Stop(ctx context.Context) error {
	return c.Adapter.Disconnect(ctx)
}

func (c *Consumer[T]) bridge(ctx context.Context, msg T, mctx MessageContext) ProcessingResult {
	messageType := typeNameOf(msg)

	if c.Metrics != nil {
		c.Metrics.MessagesConsumed.WithLabelValues(c.Service, messageType).Inc()
		c.Metrics.InFlight.Inc()
		defer c.Metrics.InFlight.Dec()
	}

	start := time.Now()
	result := c.Processor.Process(ctx, msg, mctx)
	elapsed := time.Since(start)

	if c.Metrics != nil {
		c.Metrics.HandlerDuration.WithLabelValues(c.Service, messageType).Observe(elapsed.Seconds())
		if result.Success {
			c.Metrics.MessagesAcked.WithLabelValues(c.Service, messageType).Inc()
		} else {
			requeue := "false"
			if result.Requeue {
				requeue = "true"
			}
			c.Metrics.MessagesNacked.WithLabelValues(c.Service, messageType, requeue).Inc()
		}
	}

	event := c.Logger.Info()
	if !result.Success {
		event = c.Logger.Warn()
	}
	event.
		Str("message_type", messageType).
		Str("message_id", mctx.MessageID).
		Str("correlation_id", mctx.CorrelationID).
		Bool("success", result.Success).
		Bool("requeue", result.Requeue).
		Dur("elapsed", elapsed).
		Err(result.Err).
		Msg("processed message")

	return result
}
