package training

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ovation22/triplederby-workers/internal/bus"
	"github.com/ovation22/triplederby-workers/internal/errs"
	"github.com/ovation22/triplederby-workers/internal/requests"
)

// EventPublisher is the subset of bus.RoutingPublisher the training processor needs.
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
	sessionID := outputID
	if sessionID == "" {
		var err error
		sessionID, err = p.Store.TrainingSessionIDFor(ctx, msg.RequestId)
		if err != nil {
			return err
		}
	}
	return p.Publisher.Publish(ctx, &Completed{
		RequestId:         msg.RequestId,
		HorseId:           msg.HorseId,
		TrainingId:        msg.TrainingId,
		SessionId:         msg.SessionId,
		TrainingSessionId: sessionID,
		UserId:            msg.UserId,
		CompletedAt:       time.Now().UTC(),
	})
}

// Processor wires the training Calculator to the generic request lifecycle
// Engine, implementing bus.Processor[Requested].
type Processor struct {
	Engine *requests.Engine[Requested]
}

// NewProcessor builds a Processor whose Execute validates eligibility,
// computes the training Outcome, and commits the session.
func NewProcessor(store *Store, calculator *Calculator, publisher EventPublisher, logger zerolog.Logger) *Processor {
	engine := &requests.Engine[Requested]{
		Store:     store.SQLStore,
		Publisher: &CompletedPublisher{Store: store, Publisher: publisher},
		Logger:    logger,
		Execute: func(ctx context.Context, msg Requested) (string, error) {
			horse, err := store.LoadHorse(ctx, msg.HorseId, msg.TrainingId)
			if err != nil {
				return "", err
			}
			if horse == nil {
				return "", errs.NotFound("Horse", msg.HorseId)
			}
			if !Eligible(*horse) {
				return "", errs.Invariant("horse is not eligible to train: already trained since last race or happiness below floor")
			}

			outcome := calculator.Compute(*horse)
			return store.CommitSession(ctx, msg.RequestId, msg.HorseId, msg.TrainingId, msg.UserId, *horse, outcome)
		},
	}
	return &Processor{Engine: engine}
}

// Process implements bus.Processor[Requested].
func (p *Processor) Process(ctx context.Context, msg Requested, mctx bus.MessageContext) bus.ProcessingResult {
	return p.Engine.Process(ctx, msg.RequestId, msg)
}
