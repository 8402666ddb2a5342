// Package bus defines the provider-agnostic message bus abstraction: the
// broker adapter contract, the routing publisher, and the generic consumer.
// Concrete providers live in the rabbitmq and servicebus subpackages.
package bus

import "context"

// MessageContext carries per-delivery metadata to a handler, mirroring the
// envelope fields described in spec.md §6.
type MessageContext struct {
	MessageID     string
	CorrelationID string
	DeliveryTag   uint64
	Metadata      map[string]string
	Attempt       int
}

// ProcessingResult is the outcome a handler returns for a single delivery.
// Success acks; a Failure with Requeue nacks-and-requeues; a Failure without
// Requeue nacks without requeue (the broker routes it to its dead-letter
// mechanism, per §4.1).
type ProcessingResult struct {
	Success bool
	Requeue bool
	Err     error
}

// Ack returns a successful ProcessingResult.
func Ack() ProcessingResult {
	return ProcessingResult{Success: true}
}

// NackRequeue returns a failed, requeue-eligible ProcessingResult.
func NackRequeue(err error) ProcessingResult {
	return ProcessingResult{Success: false, Requeue: true, Err: err}
}

// NackDiscard returns a failed ProcessingResult that will not be requeued.
func NackDiscard(err error) ProcessingResult {
	return ProcessingResult{Success: false, Requeue: false, Err: err}
}

// PublishOptions carries the per-publish overrides described in §4.1/§4.2.
type PublishOptions struct {
	Destination string
	Subject     string
	// MessageType is the message's full type name (§4.1), independent of
	// Subject/Destination — a Route may override the routing key/subject to
	// something unrelated to the type name, but MessageType must still carry
	// the type name so a consumer can tell what it received.
	MessageType string
	Metadata    map[string]string
}

// RawHandler receives an un-deserialized message body plus its delivery metadata.
type RawHandler func(ctx context.Context, body []byte, mctx MessageContext) ProcessingResult

// Adapter is the provider-specific driver hidden behind a single
// publish+subscribe+ack interface (§4.1 "Broker adapter").
type Adapter interface {
	// Connect establishes the connection and declares the configured
	// destination. Idempotent: calling it again is a no-op once connected.
	Connect(ctx context.Context) error

	// Publish serializes value to JSON and sends it with the options already
	// resolved in opts; adapters do no route merging of their own
	// (RoutingPublisher resolves opts per §4.2). Each adapter's Publish
	// documents which fields of opts it uses.
	Publish(ctx context.Context, value any, opts PublishOptions) error

	// SubscribeRaw binds handler to destination, capping concurrent in-flight
	// invocations at concurrency (mirrored to broker prefetch).
	SubscribeRaw(ctx context.Context, destination string, concurrency int, handler RawHandler) error

	// Disconnect drains in-flight ack/nack, closes channels, and closes the
	// connection. Safe to call without a prior Connect.
	Disconnect(ctx context.Context) error
}
