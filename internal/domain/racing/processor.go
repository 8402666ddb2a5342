package racing

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ovation22/triplederby-workers/internal/bus"
	"github.com/ovation22/triplederby-workers/internal/errs"
	"github.com/ovation22/triplederby-workers/internal/requests"
)

// EventPublisher is the subset of bus.RoutingPublisher the racing processor needs.
type EventPublisher interface {
	Publish(ctx context.Context, value any) error
}

// CompletedPublisher adapts an EventPublisher + Store into a requests.Publisher[Requested].
type CompletedPublisher struct {
	Store     *Store
	Publisher EventPublisher
}

// PublishCompleted implements requests.Publisher[Requested].
func (p *CompletedPublisher) PublishCompleted(ctx context.Context, msg Requested, outputID string) error {
	runID := outputID
	if runID == "" {
		var err error
		runID, err = p.Store.RaceRunIDFor(ctx, msg.RequestId)
		if err != nil {
			return err
		}
	}
	return p.Publisher.Publish(ctx, &Completed{
		RequestId:   msg.RequestId,
		RaceId:      msg.RaceId,
		HorseId:     msg.HorseId,
		RaceRunId:   runID,
		OwnerId:     msg.OwnerId,
		CompletedAt: time.Now().UTC(),
	})
}

// Processor wires a Simulator to the generic request lifecycle Engine,
// implementing bus.Processor[Requested].
type Processor struct {
	Engine *requests.Engine[Requested]
}

// NewProcessor builds a Processor whose Execute validates the horse exists,
// simulates the race, and commits the run.
func NewProcessor(store *Store, simulator Simulator, publisher EventPublisher, logger zerolog.Logger) *Processor {
	engine := &requests.Engine[Requested]{
		Store:     store.SQLStore,
		Publisher: &CompletedPublisher{Store: store, Publisher: publisher},
		Logger:    logger,
		Execute: func(ctx context.Context, msg Requested) (string, error) {
			exists, err := store.HorseExists(ctx, msg.HorseId)
			if err != nil {
				return "", err
			}
			if !exists {
				return "", errs.NotFound("Horse", msg.HorseId)
			}

			result := simulator.Simulate(msg.RaceId, msg.HorseId)
			return store.CommitRun(ctx, msg.RequestId, msg.RaceId, msg.HorseId, msg.OwnerId, result)
		},
	}
	return &Processor{Engine: engine}
}

// Process implements bus.Processor[Requested].
func (p *Processor) Process(ctx context.Context, msg Requested, mctx bus.MessageContext) bus.ProcessingResult {
	return p.Engine.Process(ctx, msg.RequestId, msg)
}
