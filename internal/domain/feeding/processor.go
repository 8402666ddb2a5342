package feeding

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ovation22/triplederby-workers/internal/bus"
	"github.com/ovation22/triplederby-workers/internal/requests"
)

// EventPublisher is the subset of bus.RoutingPublisher the feeding processor needs.
type EventPublisher interface {
	Publish(ctx context.Context, value any) error
}

// CompletedPublisher adapts an EventPublisher + Store into a
// requests.Publisher[Requested].
type CompletedPublisher struct {
	Store     *Store
	Publisher EventPublisher
}

// PublishCompleted implements requests.Publisher[Requested].
func (p *CompletedPublisher) PublishCompleted(ctx context.Context, msg Requested, outputID string) error {
	sessionID := outputID
	if sessionID == "" {
		var err error
		sessionID, err = p.Store.FeedingSessionIDFor(ctx, msg.RequestId)
		if err != nil {
			return err
		}
	}
	return p.Publisher.Publish(ctx, &Completed{
		RequestId:        msg.RequestId,
		HorseId:          msg.HorseId,
		FeedingId:        msg.FeedingId,
		SessionId:        msg.SessionId,
		FeedingSessionId: sessionID,
		UserId:           msg.UserId,
		CompletedAt:      time.Now().UTC(),
	})
}

// Processor wires the feeding calculator to the generic request lifecycle
// Engine, implementing bus.Processor[Requested].
type Processor struct {
	Engine *requests.Engine[Requested]
}

// NewProcessor builds a Processor whose Execute checks first-sample
// preference, computes the feed response, and commits the session.
func NewProcessor(store *Store, publisher EventPublisher, logger zerolog.Logger) *Processor {
	engine := &requests.Engine[Requested]{
		Store:     store.SQLStore,
		Publisher: &CompletedPublisher{Store: store, Publisher: publisher},
		Logger:    logger,
		Execute: func(ctx context.Context, msg Requested) (string, error) {
			sampled, err := store.HasSampled(ctx, msg.HorseId, msg.FeedingId)
			if err != nil {
				return "", err
			}
			response := ComputeResponse(msg.FeedingId, !sampled)
			return store.CommitSession(ctx, msg.RequestId, msg.HorseId, msg.FeedingId, msg.UserId, response)
		},
	}
	return &Processor{Engine: engine}
}

// Process implements bus.Processor[Requested].
func (p *Processor) Process(ctx context.Context, msg Requested, mctx bus.MessageContext) bus.ProcessingResult {
	return p.Engine.Process(ctx, msg.RequestId, msg)
}
