package replay_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovation22/triplederby-workers/internal/replay"
)

func TestAggregate_DispatchesToRegisteredController(t *testing.T) {
	replayer := &fakeReplayer{messages: map[string]any{"r1": "breeding-requested"}}
	publisher := &fakePublisher{}
	aggregate := replay.NewAggregate()
	aggregate.Register(replay.ServiceBreeding, &replay.Controller{Replayer: replayer, Publisher: publisher, Logger: zerolog.Nop()})

	require.NoError(t, aggregate.ReplayOne(context.Background(), replay.ServiceBreeding, "r1"))
	assert.Equal(t, []any{"breeding-requested"}, publisher.published)
}

func TestAggregate_UnknownServiceTypeErrors(t *testing.T) {
	aggregate := replay.NewAggregate()
	err := aggregate.ReplayOne(context.Background(), replay.ServiceRacing, "r1")
	assert.Error(t, err)
}
