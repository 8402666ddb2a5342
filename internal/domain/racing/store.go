package racing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ovation22/triplederby-workers/internal/errs"
	"github.com/ovation22/triplederby-workers/internal/platform/database"
	"github.com/ovation22/triplederby-workers/internal/requests"
)

const requestsTable = "race_requests"

// Store is the racing domain's persistence surface.
type Store struct {
	*requests.SQLStore
	db *sqlx.DB
}

// NewStore constructs a racing Store over db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{SQLStore: requests.NewSQLStore(db, requestsTable), db: db}
}

// HorseExists reports whether horseID is a known horse.
func (s *Store) HorseExists(ctx context.Context, horseID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM horses WHERE id = $1)`, horseID)
	if err != nil {
		return false, fmt.Errorf("check horse %s exists: %w", horseID, err)
	}
	return exists, nil
}

// CommitRun writes the RaceRun, updates the horse's career counters, and
// completes the Request row, all in one transaction.
func (s *Store) CommitRun(ctx context.Context, requestID string, raceID uint8, horseID, ownerID string, result RunResult) (runID string, err error) {
	runID = uuid.NewString()
	now := time.Now().UTC()

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO race_runs (id, race_id, horse_id, owner_id, place, created_date) VALUES ($1, $2, $3, $4, $5, $6)`,
			runID, raceID, horseID, ownerID, result.Place, now); err != nil {
			return fmt.Errorf("insert race run: %w", err)
		}

		won := 0
		if result.Place == 1 {
			won = 1
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE horses SET races_started = races_started + 1, races_won = races_won + $1, has_trained_since_last_race = false WHERE id = $2`,
			won, horseID); err != nil {
			return fmt.Errorf("update horse career counters: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE race_requests SET status = $1, race_run_id = $2, processed_date = $3, updated_date = now() WHERE request_id = $4`,
			int16(2), runID, now, requestID); err != nil {
			return fmt.Errorf("complete race request: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

// LoadForReplay reconstructs the original Requested message.
func (s *Store) LoadForReplay(ctx context.Context, requestID string) (any, error) {
	var row struct {
		RaceID  uint8  `db:"race_id"`
		HorseID string `db:"horse_id"`
		OwnerID string `db:"owner_id"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT race_id, horse_id, owner_id FROM race_requests WHERE request_id = $1`, requestID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load race request %s for replay: %w", requestID, err)
	}
	return &Requested{RequestId: requestID, RaceId: row.RaceID, HorseId: row.HorseID, OwnerId: row.OwnerID}, nil
}

// ListNonTerminal implements replay.Replayer.
func (s *Store) ListNonTerminal(ctx context.Context) ([]string, error) {
	return s.SQLStore.ListNonTerminal(ctx)
}

// RaceRunIDFor looks up the run id recorded against a Completed request.
func (s *Store) RaceRunIDFor(ctx context.Context, requestID string) (string, error) {
	var runID sql.NullString
	err := s.db.GetContext(ctx, &runID, `SELECT race_run_id FROM race_requests WHERE request_id = $1`, requestID)
	if err != nil {
		return "", fmt.Errorf("load race run id for request %s: %w", requestID, err)
	}
	if !runID.Valid {
		return "", errs.Invariant(fmt.Sprintf("race request %s has no race_run_id", requestID))
	}
	return runID.String, nil
}
