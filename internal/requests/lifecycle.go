// Package requests implements the request lifecycle state machine shared by
// every domain processor (§4.4): Pending → InProgress → Completed | Failed.
package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ovation22/triplederby-workers/internal/bus"
	"github.com/ovation22/triplederby-workers/internal/errs"
)

// Status is a Request row's lifecycle state.
type Status int

const (
	Pending Status = iota
	InProgress
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case InProgress:
		return "InProgress"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Record is the lifecycle-relevant projection of a per-domain Request row.
type Record struct {
	RequestID     string
	Status        Status
	FailureReason string
	ProcessedDate *time.Time
}

// publishFailurePrefix marks a Completed row whose Completed event failed to
// publish (§4.4 step 7 / §8 Property 5); the lifecycle engine looks for it on
// redelivery to drive the republish hook (§9).
const publishFailurePrefix = "Publish failed: "

// ErrConcurrentClaim is returned by Store.Claim when another worker already
// moved the row out of Pending|Failed (§7 "ConcurrentClaim").
var ErrConcurrentClaim = errors.New("requests: row already claimed")

// Store is the persistence surface the lifecycle engine needs from a domain's
// Request table.
type Store interface {
	// Load fetches the row; returns (nil, nil) if no row exists for requestID.
	Load(ctx context.Context, requestID string) (*Record, error)
	// Claim flips Pending|Failed -> InProgress. Returns ErrConcurrentClaim if
	// the row was not in Pending|Failed when the claim was attempted.
	Claim(ctx context.Context, requestID string) error
	// MarkFailed sets Status=Failed, FailureReason=reason, ProcessedDate=processedAt.
	MarkFailed(ctx context.Context, requestID, reason string, processedAt time.Time) error
	// AnnotatePublishFailure sets FailureReason on an already-Completed row
	// without changing Status.
	AnnotatePublishFailure(ctx context.Context, requestID, reason string) error
	// ClearFailureReason clears FailureReason after a successful republish.
	ClearFailureReason(ctx context.Context, requestID string) error
}

// Publisher publishes a Completed event for a processed message.
type Publisher[T any] interface {
	PublishCompleted(ctx context.Context, msg T, outputID string) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc[T any] func(ctx context.Context, msg T, outputID string) error

// PublishCompleted implements Publisher.
func (f PublisherFunc[T]) PublishCompleted(ctx context.Context, msg T, outputID string) error {
	return f(ctx, msg, outputID)
}

// Executor performs the domain work for one message inside its own
// transaction, writing side effects and completing the Request row, and
// returns the output pointer id (FoalId, FeedingSessionId, ...).
type Executor[T any] func(ctx context.Context, msg T) (outputID string, err error)

// Clock returns the current time; overridable in tests.
type Clock func() time.Time

// Engine is the canonical processor shape described in §4.4, generic over a
// domain's Requested message type T.
type Engine[T any] struct {
	Store     Store
	Execute   Executor[T]
	Publisher Publisher[T]
	Logger    zerolog.Logger
	Now       Clock
}

func (e *Engine[T]) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// Process runs the §4.4 algorithm for one delivery of msg whose idempotency
// token is requestID.
func (e *Engine[T]) Process(ctx context.Context, requestID string, msg T) bus.ProcessingResult {
	record, err := e.Store.Load(ctx, requestID)
	if err != nil {
		return bus.NackRequeue(fmt.Errorf("load request %s: %w", requestID, err))
	}

	// Step 1: absent row is treated as already reconciled or fabricated.
	if record == nil {
		e.Logger.Info().Str("request_id", requestID).Msg("request row absent, acking without processing")
		return bus.Ack()
	}

	switch record.Status {
	case Completed:
		// Step 2 terminal guard, plus the publish-after-commit republish hook (§9).
		return e.handleRedeliveredCompleted(ctx, requestID, msg, record)
	case InProgress:
		// Step 3: another worker holds the lease, or a prior attempt crashed;
		// recovery is the replay controller's job, not this delivery's.
		return bus.Ack()
	case Failed:
		e.Logger.Info().Str("request_id", requestID).Msg("replaying failed request")
	case Pending:
		// fall through to claim
	}

	// Step 5: claim.
	if err := e.Store.Claim(ctx, requestID); err != nil {
		if errors.Is(err, ErrConcurrentClaim) {
			return bus.Ack()
		}
		return bus.NackRequeue(fmt.Errorf("claim request %s: %w", requestID, err))
	}

	// Step 6: execute inside a transaction (the Executor owns the tx boundary).
	outputID, err := e.Execute(ctx, msg)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled mid-flight (§4.3, §8 Property 7): leave the row
			// InProgress for replay rather than marking it Failed.
			return bus.NackRequeue(ctx.Err())
		}

		reason := err.Error()
		if markErr := e.Store.MarkFailed(ctx, requestID, reason, e.now()); markErr != nil {
			return bus.NackRequeue(fmt.Errorf("mark request %s failed: %w", requestID, markErr))
		}

		e.Logger.Warn().Str("request_id", requestID).Err(err).Msg("request failed")
		return bus.NackDiscard(err)
	}

	// Step 7: publish the Completed event after commit.
	if pubErr := e.Publisher.PublishCompleted(ctx, msg, outputID); pubErr != nil {
		reason := errs.PublishFailed(pubErr).Message
		if annErr := e.Store.AnnotatePublishFailure(ctx, requestID, reason); annErr != nil {
			e.Logger.Error().Str("request_id", requestID).Err(annErr).Msg("failed to annotate publish failure")
		}
		e.Logger.Error().Str("request_id", requestID).Err(pubErr).Msg("publish-after-commit failure")
		// The side effect already committed; rely on replay (or broker
		// redelivery-from-DLQ) to trigger the republish hook above rather
		// than an immediate requeue loop.
		return bus.NackDiscard(pubErr)
	}

	return bus.Ack()
}

// handleRedeliveredCompleted implements the §9 "multiple completion events"
// resolution: a Completed row annotated with a publish-failure reason gets
// exactly one republish attempt per redelivery; any other Completed row is a
// clean no-op ack.
func (e *Engine[T]) handleRedeliveredCompleted(ctx context.Context, requestID string, msg T, record *Record) bus.ProcessingResult {
	if !strings.HasPrefix(record.FailureReason, publishFailurePrefix) {
		return bus.Ack()
	}

	// outputID is not recoverable from the Requested message alone; domain
	// Executors persist it, so the republish hook re-sends with whatever the
	// Completed message construction derives from the stored Request row via
	// the Publisher implementation (domain-specific PublishCompleted looks up
	// the output id itself when outputID is empty).
	if err := e.Publisher.PublishCompleted(ctx, msg, ""); err != nil {
		e.Logger.Warn().Str("request_id", requestID).Err(err).Msg("republish of completed event failed again")
		return bus.Ack()
	}

	if err := e.Store.ClearFailureReason(ctx, requestID); err != nil {
		e.Logger.Warn().Str("request_id", requestID).Err(err).Msg("failed to clear failure reason after republish")
	}
	return bus.Ack()
}
