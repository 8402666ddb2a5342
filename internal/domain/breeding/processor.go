package breeding

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ovation22/triplederby-workers/internal/bus"
	"github.com/ovation22/triplederby-workers/internal/errs"
	"github.com/ovation22/triplederby-workers/internal/requests"
)

// EventPublisher is the subset of bus.RoutingPublisher the breeding processor
// needs to emit BreedingCompleted.
type EventPublisher interface {
	Publish(ctx context.Context, value any) error
}

// CompletedPublisher adapts an EventPublisher + Store into a
// requests.Publisher[Requested], resolving the foal id from storage when the
// republish hook calls it with an empty outputID.
type CompletedPublisher struct {
	Store     *Store
	Publisher EventPublisher
}

// PublishCompleted implements requests.Publisher[Requested].
func (p *CompletedPublisher) PublishCompleted(ctx context.Context, msg Requested, outputID string) error {
	foalID := outputID
	if foalID == "" {
		var err error
		foalID, err = p.Store.FoalIDFor(ctx, msg.RequestId)
		if err != nil {
			return err
		}
	}
	return p.Publisher.Publish(ctx, &Completed{
		RequestId:   msg.RequestId,
		SireId:      msg.SireId,
		DamId:       msg.DamId,
		FoalId:      foalID,
		OwnerId:     msg.OwnerId,
		CompletedAt: time.Now().UTC(),
	})
}

// Processor wires the breeding Genetics algorithm to the generic request
// lifecycle Engine, implementing bus.Processor[Requested].
type Processor struct {
	Engine *requests.Engine[Requested]
}

// NewProcessor builds a Processor whose Execute loads sire/dam, runs
// genetics, and commits the foal in one transaction per §4.7.
func NewProcessor(store *Store, genetics *Genetics, publisher EventPublisher, logger zerolog.Logger) *Processor {
	engine := &requests.Engine[Requested]{
		Store:     store.SQLStore,
		Publisher: &CompletedPublisher{Store: store, Publisher: publisher},
		Logger:    logger,
		Execute: func(ctx context.Context, msg Requested) (string, error) {
			sire, err := store.LoadHorse(ctx, msg.SireId)
			if err != nil {
				return "", fmt.Errorf("load sire: %w", err)
			}
			if sire == nil {
				return "", errs.NotFound("Sire", msg.SireId)
			}

			dam, err := store.LoadHorse(ctx, msg.DamId)
			if err != nil {
				return "", fmt.Errorf("load dam: %w", err)
			}
			if dam == nil {
				return "", errs.NotFound("Dam", msg.DamId)
			}

			colors, err := store.LoadColors(ctx)
			if err != nil {
				return "", err
			}

			result, err := genetics.Breed(*sire, *dam, msg.OwnerId, colors)
			if err != nil {
				return "", err
			}

			return store.CommitFoal(ctx, msg.RequestId, result)
		},
	}
	return &Processor{Engine: engine}
}

// Process implements bus.Processor[Requested].
func (p *Processor) Process(ctx context.Context, msg Requested, mctx bus.MessageContext) bus.ProcessingResult {
	return p.Engine.Process(ctx, msg.RequestId, msg)
}
