package bus

import (
	"context"
	"reflect"
	"sync"

	"github.com/ovation22/triplederby-workers/internal/config"
	"github.com/ovation22/triplederby-workers/internal/errs"
)

// RoutingPublisher decorates an Adapter, resolving destination and subject
// from configuration by message type (§4.2).
type RoutingPublisher struct {
	adapter Adapter
	cfg     config.Routing

	mu    sync.RWMutex
	cache map[string]config.Route
}

// NewRoutingPublisher constructs a RoutingPublisher over adapter using cfg's routes.
func NewRoutingPublisher(adapter Adapter, cfg config.Routing) *RoutingPublisher {
	return &RoutingPublisher{
		adapter: adapter,
		cfg:     cfg,
		cache:   make(map[string]config.Route),
	}
}

// Publish resolves destination/subject/metadata for value's concrete type and
// delegates to the underlying adapter.
func (p *RoutingPublisher) Publish(ctx context.Context, value any) error {
	return p.PublishWithOptions(ctx, value, PublishOptions{})
}

// PublishWithOptions is Publish with explicit per-call overrides, honored per
// the merge precedence in §4.2.
func (p *RoutingPublisher) PublishWithOptions(ctx context.Context, value any, explicit PublishOptions) error {
	if value == nil || isNilPointer(value) {
		return errs.Validation("cannot publish a nil message value")
	}

	typeName := typeNameOf(value)
	route := p.resolveRoute(typeName)

	destination := explicit.Destination
	if destination == "" {
		destination = route.Destination
	}
	if destination == "" {
		destination = p.cfg.DefaultDestination
	}

	subject := explicit.Subject
	if subject == "" {
		subject = route.RoutingKey
	}
	if subject == "" {
		subject = route.Subject
	}
	if subject == "" {
		subject = p.cfg.DefaultRoutingKey
	}
	if subject == "" {
		subject = typeName
	}

	metadata := map[string]string{}
	for k, v := range route.Metadata {
		metadata[k] = v
	}
	for k, v := range explicit.Metadata {
		metadata[k] = v
	}

	return p.adapter.Publish(ctx, value, PublishOptions{
		Destination: destination,
		Subject:     subject,
		MessageType: typeName,
		Metadata:    metadata,
	})
}

// resolveRoute looks up the configured route for typeName, caching the result
// for the publisher's lifetime (§4.2 step 1; §8 Property 3).
func (p *RoutingPublisher) resolveRoute(typeName string) config.Route {
	p.mu.RLock()
	route, ok := p.cache[typeName]
	p.mu.RUnlock()
	if ok {
		return route
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if route, ok := p.cache[typeName]; ok {
		return route
	}
	route = p.cfg.Routes[typeName]
	p.cache[typeName] = route
	return route
}

func typeNameOf(value any) string {
	t := reflect.TypeOf(value)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

func isNilPointer(value any) bool {
	v := reflect.ValueOf(value)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
