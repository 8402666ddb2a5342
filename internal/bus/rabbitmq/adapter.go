// Package rabbitmq implements the bus.Adapter contract against a topic/exchange
// broker using github.com/rabbitmq/amqp091-go.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ovation22/triplederby-workers/internal/bus"
)

// Config configures the exchange/queue topology the adapter declares on Connect.
type Config struct {
	URL          string
	Exchange     string
	ExchangeKind string // default "topic"
	Queue        string
	RoutingKeys  []string // binding keys; defaults to Queue's own name if empty
	Prefetch     int

	// DeadLetter, when true, declares "<Exchange>.dlx" / "<Queue>.dlq" and binds
	// the queue's dead-letter exchange argument to it (§9 "dead-letter semantics").
	DeadLetter bool
}

// Adapter is a bus.Adapter backed by a single AMQP connection/channel.
type Adapter struct {
	cfg Config

	mu      sync.Mutex // serializes ack/nack and channel access (§9 "channel ack serialization")
	conn    *amqp.Connection
	channel *amqp.Channel

	defaultDestination string
}

// New constructs an Adapter. Connect must be called before Publish/SubscribeRaw.
func New(cfg Config) *Adapter {
	if cfg.ExchangeKind == "" {
		cfg.ExchangeKind = "topic"
	}
	return &Adapter{cfg: cfg, defaultDestination: cfg.Exchange}
}

// Connect dials the broker, opens a channel, declares the exchange, queue,
// optional dead-letter topology, and bindings, and sets the prefetch count.
// Idempotent: a second call is a no-op while already connected.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil && !a.conn.IsClosed() {
		return nil
	}

	conn, err := amqp.Dial(a.cfg.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(a.cfg.Exchange, a.cfg.ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange %s: %w", a.cfg.Exchange, err)
	}

	queueArgs := amqp.Table{}
	if a.cfg.DeadLetter {
		dlx := a.cfg.Exchange + ".dlx"
		dlq := a.cfg.Queue + ".dlq"
		if err := ch.ExchangeDeclare(dlx, "fanout", true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("declare dlx %s: %w", dlx, err)
		}
		if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("declare dlq %s: %w", dlq, err)
		}
		if err := ch.QueueBind(dlq, "#", dlx, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("bind dlq %s: %w", dlq, err)
		}
		queueArgs["x-dead-letter-exchange"] = dlx
	}

	if _, err := ch.QueueDeclare(a.cfg.Queue, true, false, false, false, queueArgs); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare queue %s: %w", a.cfg.Queue, err)
	}

	keys := a.cfg.RoutingKeys
	if len(keys) == 0 {
		keys = []string{a.cfg.Queue}
	}
	for _, key := range keys {
		if err := ch.QueueBind(a.cfg.Queue, key, a.cfg.Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("bind queue %s to %s: %w", a.cfg.Queue, key, err)
		}
	}

	if a.cfg.Prefetch > 0 {
		if err := ch.Qos(a.cfg.Prefetch, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("set qos: %w", err)
		}
	}

	a.conn = conn
	a.channel = ch
	return nil
}

// Publish serializes value to JSON and publishes it to opts.Destination (or
// the adapter's default exchange) using opts.Subject as the routing key.
func (a *Adapter) Publish(ctx context.Context, value any, opts bus.PublishOptions) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	destination := opts.Destination
	if destination == "" {
		destination = a.defaultDestination
	}

	headers := amqp.Table{"MessageType": resolveMessageType(opts)}
	for k, v := range opts.Metadata {
		headers[k] = v
	}

	correlationID := correlationIDOf(value)

	a.mu.Lock()
	ch := a.channel
	a.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("rabbitmq adapter not connected")
	}

	return ch.PublishWithContext(ctx, destination, opts.Subject, false, false, amqp.Publishing{
		ContentType:   "application/json",
		Body:          body,
		Headers:       headers,
		CorrelationId: correlationID,
		Type:          opts.Subject,
	})
}

// SubscribeRaw consumes destination with up to concurrency handlers running
// concurrently, translating handler ProcessingResult into ack/nack/requeue.
func (a *Adapter) SubscribeRaw(ctx context.Context, destination string, concurrency int, handler bus.RawHandler) error {
	a.mu.Lock()
	ch := a.channel
	a.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("rabbitmq adapter not connected")
	}

	deliveries, err := ch.ConsumeWithContext(ctx, destination, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", destination, err)
	}

	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	go func() {
		for delivery := range deliveries {
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				a.handleDelivery(ctx, d, handler)
			}(delivery)
		}
	}()

	return nil
}

func (a *Adapter) handleDelivery(ctx context.Context, d amqp.Delivery, handler bus.RawHandler) {
	mctx := bus.MessageContext{
		MessageID:     d.MessageId,
		CorrelationID: d.CorrelationId,
		DeliveryTag:   d.DeliveryTag,
		Metadata:      stringifyHeaders(d.Headers),
	}

	result := a.safeHandle(ctx, d.Body, mctx, handler)

	a.mu.Lock()
	defer a.mu.Unlock()
	if result.Success {
		_ = d.Ack(false)
		return
	}
	_ = d.Nack(false, result.Requeue)
}

// safeHandle converts a handler panic into a non-requeued Failure, mirroring
// the adapter's duty (§4.1) to catch handler exceptions and translate them.
func (a *Adapter) safeHandle(ctx context.Context, body []byte, mctx bus.MessageContext, handler bus.RawHandler) (result bus.ProcessingResult) {
	defer func() {
		if r := recover(); r != nil {
			result = bus.NackDiscard(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return handler(ctx, body, mctx)
}

// Disconnect closes the channel and connection. Safe to call without a prior Connect.
func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	if a.channel != nil {
		if err := a.channel.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.channel = nil
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.conn = nil
	}
	return firstErr
}

func stringifyHeaders(table amqp.Table) map[string]string {
	out := make(map[string]string, len(table))
	for k, v := range table {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

// resolveMessageType returns the envelope's MessageType header, preferring
// the actual type name carried on opts.MessageType over opts.Subject: §4.2
// lets a Route override Subject to an unrelated routing key, but MessageType
// must still name the message's type regardless of that override.
func resolveMessageType(opts bus.PublishOptions) string {
	if opts.MessageType != "" {
		return opts.MessageType
	}
	return opts.Subject
}

// correlationIDOf reads a RequestId field off value via JSON round-trip,
// falling back to empty (the adapter then relies on the broker's own
// message id), per §4.1's "CorrelationId (if present on value, else message id)".
func correlationIDOf(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	var probe struct {
		RequestId string `json:"requestId"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	return probe.RequestId
}
