package replay

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// StuckInProgressResetter resets rows that have sat InProgress for longer
// than `after`, back to Pending, so a crashed worker's claim is eventually
// released without operator intervention (§9 open question: crashed workers).
type StuckInProgressResetter interface {
	ResetStuckInProgress(ctx context.Context, after time.Duration) (int, error)
}

// Reaper periodically invokes StuckInProgressResetter on a ticker until ctx
// is cancelled.
type Reaper struct {
	Store      StuckInProgressResetter
	Interval   time.Duration
	StuckAfter time.Duration
	Logger     zerolog.Logger
}

// Run blocks, ticking every r.Interval, until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	if r.Interval <= 0 {
		r.Interval = time.Minute
	}
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reaper) tick(ctx context.Context) {
	n, err := r.Store.ResetStuckInProgress(ctx, r.StuckAfter)
	if err != nil {
		r.Logger.Warn().Err(err).Msg("failed to reset stuck in-progress requests")
		return
	}
	if n > 0 {
		r.Logger.Info().Int("count", n).Dur("stuck_after", r.StuckAfter).Msg("reset stuck in-progress requests to pending")
	}
}
