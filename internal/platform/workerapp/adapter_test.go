package workerapp

import (
	"testing"

	"github.com/ovation22/triplederby-workers/internal/bus/rabbitmq"
	"github.com/ovation22/triplederby-workers/internal/bus/servicebus"
	"github.com/ovation22/triplederby-workers/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAdapter_SelectsRabbitWhenConfiguredExplicitly(t *testing.T) {
	cfg := &config.Config{
		Routing:           config.Routing{Provider: "rabbit"},
		ConnectionStrings: config.ConnectionStrings{Messaging: "amqp://localhost"},
	}
	adapter, err := BuildAdapter(cfg, QueueTopology{Queue: "breeding-requests"})
	require.NoError(t, err)
	assert.IsType(t, &rabbitmq.Adapter{}, adapter)
}

func TestBuildAdapter_SelectsServiceBusWhenConfiguredExplicitly(t *testing.T) {
	cfg := &config.Config{
		Routing:           config.Routing{Provider: "servicebus"},
		ConnectionStrings: config.ConnectionStrings{ServiceBus: "Endpoint=sb://ns.servicebus.windows.net/"},
	}
	adapter, err := BuildAdapter(cfg, QueueTopology{Queue: "breeding-requests"})
	require.NoError(t, err)
	assert.IsType(t, &servicebus.Adapter{}, adapter)
}

func TestBuildAdapter_PropagatesResolveProviderError(t *testing.T) {
	cfg := &config.Config{Routing: config.Routing{Provider: "auto"}}
	_, err := BuildAdapter(cfg, QueueTopology{Queue: "breeding-requests"})
	assert.Error(t, err)
}
