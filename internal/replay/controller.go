// Package replay implements the single-request and bounded-parallel bulk
// replay paths described in §4.5, plus the ServiceType-dispatching aggregate
// controller and the stuck-InProgress reaper.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned when a replay target has no row at all.
var ErrNotFound = errors.New("replay: request not found")

// Replayer is the domain-specific surface the Controller needs: reconstruct
// the original Requested message for a given request id, and enumerate the
// ids still eligible for replay.
type Replayer interface {
	// LoadForReplay reconstructs the original Requested message for
	// requestID, or returns (nil, nil) if no such row exists.
	LoadForReplay(ctx context.Context, requestID string) (any, error)
	// ListNonTerminal returns request ids whose Status is Pending or Failed.
	ListNonTerminal(ctx context.Context) ([]string, error)
}

// Publisher publishes a reconstructed Requested message back onto the bus.
// *bus.RoutingPublisher satisfies this by method signature alone.
type Publisher interface {
	Publish(ctx context.Context, value any) error
}

// Controller drives replay for a single domain.
type Controller struct {
	Replayer  Replayer
	Publisher Publisher
	Logger    zerolog.Logger
}

// ReplayOne reconstructs and republishes the Requested message for a single
// request id (§4.5 "Single request replay").
func (c *Controller) ReplayOne(ctx context.Context, requestID string) error {
	msg, err := c.Replayer.LoadForReplay(ctx, requestID)
	if err != nil {
		return fmt.Errorf("load request %s for replay: %w", requestID, err)
	}
	if msg == nil {
		return ErrNotFound
	}
	if err := c.Publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish replay of %s: %w", requestID, err)
	}
	return nil
}

// ReplayAllNonComplete replays every Pending/Failed request for this domain,
// bounded to maxParallel concurrent replays (§4.5 "Bulk replay"). Individual
// failures are logged and skipped rather than aborting the whole batch; the
// returned count is the number successfully republished.
func (c *Controller) ReplayAllNonComplete(ctx context.Context, maxParallel int) (int, error) {
	ids, err := c.Replayer.ListNonTerminal(ctx)
	if err != nil {
		return 0, fmt.Errorf("list non-terminal requests: %w", err)
	}
	if maxParallel <= 0 {
		maxParallel = 10
	}

	sem := semaphore.NewWeighted(int64(maxParallel))
	g, gctx := errgroup.WithContext(ctx)
	var succeeded int64

	for _, id := range ids {
		requestID := id
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			if err := c.ReplayOne(gctx, requestID); err != nil {
				c.Logger.Warn().Str("request_id", requestID).Err(err).Msg("replay failed, skipping")
				return nil
			}
			atomic.AddInt64(&succeeded, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(succeeded), err
	}
	return int(succeeded), nil
}
