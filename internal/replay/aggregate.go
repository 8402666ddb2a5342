package replay

import (
	"context"
	"fmt"
)

// ServiceType identifies which domain's Controller an aggregate call targets.
type ServiceType string

const (
	ServiceBreeding ServiceType = "Breeding"
	ServiceFeeding  ServiceType = "Feeding"
	ServiceRacing   ServiceType = "Racing"
	ServiceTraining ServiceType = "Training"
)

// Aggregate dispatches replay operations to the registered per-domain
// Controller, so an operator CLI can target any domain from one entrypoint.
type Aggregate struct {
	controllers map[ServiceType]*Controller
}

// NewAggregate constructs an empty Aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{controllers: make(map[ServiceType]*Controller)}
}

// Register binds a domain's Controller under the given ServiceType.
func (a *Aggregate) Register(t ServiceType, c *Controller) {
	a.controllers[t] = c
}

func (a *Aggregate) controllerFor(t ServiceType) (*Controller, error) {
	c, ok := a.controllers[t]
	if !ok {
		return nil, fmt.Errorf("replay: no controller registered for service type %q", t)
	}
	return c, nil
}

// ReplayOne dispatches a single-request replay to the controller for t.
func (a *Aggregate) ReplayOne(ctx context.Context, t ServiceType, requestID string) error {
	c, err := a.controllerFor(t)
	if err != nil {
		return err
	}
	return c.ReplayOne(ctx, requestID)
}

// ReplayAll dispatches a bulk replay to the controller for t.
func (a *Aggregate) ReplayAll(ctx context.Context, t ServiceType, maxParallel int) (int, error) {
	c, err := a.controllerFor(t)
	if err != nil {
		return 0, err
	}
	return c.ReplayAllNonComplete(ctx, maxParallel)
}
