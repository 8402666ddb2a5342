// Package workerapp provides the shared process bootstrap every
// per-domain worker binary uses: broker adapter selection, metrics/signal
// handling, and graceful shutdown.
package workerapp

import (
	"fmt"

	"github.com/ovation22/triplederby-workers/internal/bus"
	"github.com/ovation22/triplederby-workers/internal/bus/rabbitmq"
	"github.com/ovation22/triplederby-workers/internal/bus/servicebus"
	"github.com/ovation22/triplederby-workers/internal/config"
)

// QueueTopology names the destination a worker's consumer binds to and the
// exchange its RabbitMQ adapter declares. Point-to-point: Service Bus binds
// to a plain queue of the same name rather than a topic/subscription pair.
type QueueTopology struct {
	Queue      string
	Exchange   string // RabbitMQ only; defaults to Queue if empty
	DeadLetter bool
}

// BuildAdapter resolves the configured provider (§4.6) and constructs the
// matching bus.Adapter for topo.
func BuildAdapter(cfg *config.Config, topo QueueTopology) (bus.Adapter, error) {
	provider, err := bus.ResolveProvider(cfg.Routing, cfg.ConnectionStrings)
	if err != nil {
		return nil, err
	}

	switch provider {
	case bus.ProviderRabbit:
		exchange := topo.Exchange
		if exchange == "" {
			exchange = topo.Queue
		}
		return rabbitmq.New(rabbitmq.Config{
			URL:         cfg.ConnectionStrings.Messaging,
			Exchange:    exchange,
			Queue:       topo.Queue,
			RoutingKeys: []string{topo.Queue},
			Prefetch:    cfg.Consumer.PrefetchCount,
			DeadLetter:  topo.DeadLetter,
		}), nil
	case bus.ProviderServiceBus:
		return servicebus.New(servicebus.Config{
			ConnectionString:      cfg.ConnectionStrings.ServiceBus,
			Queue:                 topo.Queue,
			MaxConcurrentHandlers: cfg.Consumer.Concurrency,
		}), nil
	default:
		return nil, fmt.Errorf("workerapp: unhandled provider %q", provider)
	}
}
