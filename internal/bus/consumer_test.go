package bus_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovation22/triplederby-workers/internal/bus"
	"github.com/ovation22/triplederby-workers/internal/bus/busmem"
	"github.com/ovation22/triplederby-workers/internal/config"
)

type greetRequested struct {
	RequestId string
	Name      string
}

type recordingProcessor struct {
	calls   []greetRequested
	outcome bus.ProcessingResult
}

func (p *recordingProcessor) Process(ctx context.Context, msg greetRequested, mctx bus.MessageContext) bus.ProcessingResult {
	p.calls = append(p.calls, msg)
	return p.outcome
}

func TestConsumer_BridgesDeliveryToProcessor(t *testing.T) {
	adapter := busmem.New()
	processor := &recordingProcessor{outcome: bus.Ack()}

	consumer := &bus.Consumer[greetRequested]{
		Adapter:   adapter,
		Config:    config.Consumer{Queue: "greet-queue", Concurrency: 2},
		Processor: processor,
		Logger:    zerolog.Nop(),
		Service:   "greet-worker",
	}

	require.NoError(t, consumer.Start(context.Background()))

	result := adapter.Deliver(context.Background(), "greet-queue", greetRequested{RequestId: "r1", Name: "Ada"}, bus.MessageContext{MessageID: "m1"})

	assert.True(t, result.Success)
	require.Len(t, processor.calls, 1)
	assert.Equal(t, "Ada", processor.calls[0].Name)
}

func TestConsumer_PropagatesFailureForRequeue(t *testing.T) {
	adapter := busmem.New()
	processor := &recordingProcessor{outcome: bus.NackRequeue(assert.AnError)}

	consumer := &bus.Consumer[greetRequested]{
		Adapter:   adapter,
		Config:    config.Consumer{Queue: "greet-queue", Concurrency: 1},
		Processor: processor,
		Logger:    zerolog.Nop(),
	}

	require.NoError(t, consumer.Start(context.Background()))

	result := adapter.Deliver(context.Background(), "greet-queue", greetRequested{RequestId: "r1"}, bus.MessageContext{})

	assert.False(t, result.Success)
	assert.True(t, result.Requeue)
}

func TestConsumer_UnrecognizedSchemaIsAckedNotRequeued(t *testing.T) {
	adapter := busmem.New()
	processor := &recordingProcessor{outcome: bus.Ack()}

	consumer := &bus.Consumer[greetRequested]{
		Adapter:   adapter,
		Config:    config.Consumer{Queue: "greet-queue", Concurrency: 1},
		Processor: processor,
		Logger:    zerolog.Nop(),
	}
	require.NoError(t, consumer.Start(context.Background()))

	result := adapter.Deliver(context.Background(), "greet-queue", "not-json-compatible-shape-is-fine-since-any-unmarshals", bus.MessageContext{})

	assert.True(t, result.Success)
	assert.Empty(t, processor.calls)
}
