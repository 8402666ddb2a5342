package bus_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovation22/triplederby-workers/internal/bus"
	"github.com/ovation22/triplederby-workers/internal/bus/busmem"
	"github.com/ovation22/triplederby-workers/internal/config"
)

type raceCompleted struct {
	RequestId string
	RaceId    uint8
}

func TestRoutingPublisher_FallbackToDefaultDestination(t *testing.T) {
	adapter := busmem.New()
	require.NoError(t, adapter.Connect(context.Background()))

	publisher := bus.NewRoutingPublisher(adapter, config.Routing{
		DefaultDestination: "events",
	})

	require.NoError(t, publisher.Publish(context.Background(), &raceCompleted{RequestId: "r1", RaceId: 3}))

	published := adapter.PublishedMessages()
	require.Len(t, published, 1)
	assert.Equal(t, "events", published[0].Destination)
	assert.Equal(t, "raceCompleted", published[0].Subject)
}

func TestRoutingPublisher_RouteOverridesWinOverDefaults(t *testing.T) {
	adapter := busmem.New()
	require.NoError(t, adapter.Connect(context.Background()))

	publisher := bus.NewRoutingPublisher(adapter, config.Routing{
		DefaultDestination: "events",
		DefaultRoutingKey:  "default.key",
		Routes: map[string]config.Route{
			"raceCompleted": {Destination: "race-events", RoutingKey: "race.completed"},
		},
	})

	require.NoError(t, publisher.Publish(context.Background(), &raceCompleted{RequestId: "r1"}))

	published := adapter.PublishedMessages()
	require.Len(t, published, 1)
	assert.Equal(t, "race-events", published[0].Destination)
	assert.Equal(t, "race.completed", published[0].Subject)
	assert.Equal(t, "raceCompleted", published[0].MessageType)
}

func TestRoutingPublisher_ExplicitOptionsWinOverRoute(t *testing.T) {
	adapter := busmem.New()
	require.NoError(t, adapter.Connect(context.Background()))

	publisher := bus.NewRoutingPublisher(adapter, config.Routing{
		Routes: map[string]config.Route{
			"raceCompleted": {Destination: "race-events", RoutingKey: "race.completed"},
		},
	})

	require.NoError(t, publisher.PublishWithOptions(context.Background(), &raceCompleted{RequestId: "r1"}, bus.PublishOptions{
		Destination: "override-dest",
		Subject:     "override.subject",
	}))

	published := adapter.PublishedMessages()
	require.Len(t, published, 1)
	assert.Equal(t, "override-dest", published[0].Destination)
	assert.Equal(t, "override.subject", published[0].Subject)
}

func TestRoutingPublisher_RouteResolutionIsCached(t *testing.T) {
	adapter := busmem.New()
	require.NoError(t, adapter.Connect(context.Background()))

	publisher := bus.NewRoutingPublisher(adapter, config.Routing{
		Routes: map[string]config.Route{
			"raceCompleted": {Destination: "race-events"},
		},
	})

	require.NoError(t, publisher.Publish(context.Background(), &raceCompleted{RequestId: "r1"}))
	require.NoError(t, publisher.Publish(context.Background(), &raceCompleted{RequestId: "r2"}))

	published := adapter.PublishedMessages()
	require.Len(t, published, 2)
	assert.Equal(t, published[0].Destination, published[1].Destination)
}

func TestRoutingPublisher_RejectsNilValue(t *testing.T) {
	adapter := busmem.New()
	require.NoError(t, adapter.Connect(context.Background()))

	publisher := bus.NewRoutingPublisher(adapter, config.Routing{})

	var nilMsg *raceCompleted
	err := publisher.Publish(context.Background(), nilMsg)
	assert.Error(t, err)
}
