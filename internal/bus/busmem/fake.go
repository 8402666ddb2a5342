// Package busmem is an in-memory bus.Adapter used to test the routing
// publisher and generic consumer without a live broker
// (§8 Property 4: "a fixed in-memory broker simulator for each provider").
package busmem

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ovation22/triplederby-workers/internal/bus"
)

// Published records one call to Publish, for test assertions.
type Published struct {
	Destination string
	Subject     string
	MessageType string
	Metadata    map[string]string
	Body        []byte
	Value       any
}

// Adapter is an in-process bus.Adapter. Publish appends to Published and, if
// a handler is subscribed to the publish's destination, immediately delivers
// to it synchronously on the caller's goroutine so tests observe delivery
// deterministically.
type Adapter struct {
	mu          sync.Mutex
	connected   bool
	published   []Published
	handlers    map[string]bus.RawHandler
	concurrency map[string]int

	// FailNextPublish, when non-nil, is returned (and cleared) by the next Publish call.
	FailNextPublish error
}

// New constructs an empty in-memory Adapter.
func New() *Adapter {
	return &Adapter{
		handlers:    make(map[string]bus.RawHandler),
		concurrency: make(map[string]int),
	}
}

// Connect marks the adapter connected. Idempotent.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = true
	return nil
}

// Publish records the call and, if a handler is bound to the destination,
// invokes it synchronously and returns its ProcessingResult translated into
// an error (non-nil on Failure) so callers can observe ack/nack outcomes.
func (a *Adapter) Publish(ctx context.Context, value any, opts bus.PublishOptions) error {
	a.mu.Lock()
	if a.FailNextPublish != nil {
		err := a.FailNextPublish
		a.FailNextPublish = nil
		a.mu.Unlock()
		return err
	}
	if !a.connected {
		a.mu.Unlock()
		return fmt.Errorf("busmem: not connected")
	}

	body, err := json.Marshal(value)
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("marshal: %w", err)
	}

	a.published = append(a.published, Published{
		Destination: opts.Destination,
		Subject:     opts.Subject,
		MessageType: opts.MessageType,
		Metadata:    opts.Metadata,
		Body:        body,
		Value:       value,
	})

	handler := a.handlers[opts.Destination]
	a.mu.Unlock()

	if handler == nil {
		return nil
	}

	result := handler(ctx, body, bus.MessageContext{MessageID: opts.Subject, CorrelationID: opts.Subject})
	if !result.Success {
		if result.Err != nil {
			return result.Err
		}
		return fmt.Errorf("busmem: handler failed")
	}
	return nil
}

// SubscribeRaw binds handler to destination. Re-subscribing replaces the handler.
func (a *Adapter) SubscribeRaw(ctx context.Context, destination string, concurrency int, handler bus.RawHandler) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[destination] = handler
	a.concurrency[destination] = concurrency
	return nil
}

// Disconnect clears the connected flag.
func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
	return nil
}

// Deliver serializes value to JSON and manually invokes the handler bound to
// destination with it, returning its ProcessingResult. Used by tests
// that want to simulate broker redelivery without going through Publish.
func (a *Adapter) Deliver(ctx context.Context, destination string, value any, mctx bus.MessageContext) bus.ProcessingResult {
	a.mu.Lock()
	handler := a.handlers[destination]
	a.mu.Unlock()
	if handler == nil {
		return bus.NackDiscard(fmt.Errorf("busmem: no handler bound to %s", destination))
	}
	body, err := json.Marshal(value)
	if err != nil {
		return bus.NackDiscard(err)
	}
	return handler(ctx, body, mctx)
}

// PublishedMessages returns a snapshot of recorded publishes.
func (a *Adapter) PublishedMessages() []Published {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Published, len(a.published))
	copy(out, a.published)
	return out
}
