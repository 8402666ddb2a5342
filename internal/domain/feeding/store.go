package feeding

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ovation22/triplederby-workers/internal/platform/database"
	"github.com/ovation22/triplederby-workers/internal/requests"
)

const requestsTable = "feeding_requests"

// Store is the feeding domain's persistence surface.
type Store struct {
	*requests.SQLStore
	db *sqlx.DB
}

// NewStore constructs a feeding Store over db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{SQLStore: requests.NewSQLStore(db, requestsTable), db: db}
}

// HappinessOf reads the horse's current Happiness stat Actual value.
func (s *Store) HappinessOf(ctx context.Context, horseID string) (int, error) {
	var happiness int
	err := s.db.GetContext(ctx, &happiness,
		`SELECT actual FROM horse_statistics WHERE horse_id = $1 AND stat = 'Happiness'`, horseID)
	if err != nil {
		return 0, fmt.Errorf("load happiness for horse %s: %w", horseID, err)
	}
	return happiness, nil
}

// HasSampled reports whether horseID has a HorseFeedingPreference row for feedingID already.
func (s *Store) HasSampled(ctx context.Context, horseID string, feedingID uint8) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM horse_feeding_preferences WHERE horse_id = $1 AND feeding_id = $2)`,
		horseID, feedingID)
	if err != nil {
		return false, fmt.Errorf("check feeding preference for horse %s: %w", horseID, err)
	}
	return exists, nil
}

// CommitSession writes the FeedingSession, the first-sample preference row
// (if applicable), the updated happiness, and completes the Request row, all
// in one transaction.
func (s *Store) CommitSession(ctx context.Context, requestID, horseID string, feedingID uint8, userID string, response Response) (sessionID string, err error) {
	sessionID = uuid.NewString()
	now := time.Now().UTC()

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		current, err := s.happinessTx(ctx, tx, horseID)
		if err != nil {
			return err
		}
		updated := ClampHappiness(current + response.HappinessDelta)

		if _, err := tx.ExecContext(ctx,
			`UPDATE horse_statistics SET actual = $1 WHERE horse_id = $2 AND stat = 'Happiness'`,
			updated, horseID); err != nil {
			return fmt.Errorf("update happiness: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feeding_sessions (id, horse_id, feeding_id, user_id, happiness_delta, created_date)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			sessionID, horseID, feedingID, userID, response.HappinessDelta, now); err != nil {
			return fmt.Errorf("insert feeding session: %w", err)
		}

		if response.FirstSample {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO horse_feeding_preferences (horse_id, feeding_id, sampled_at) VALUES ($1, $2, $3)
				 ON CONFLICT (horse_id, feeding_id) DO NOTHING`,
				horseID, feedingID, now); err != nil {
				return fmt.Errorf("insert feeding preference: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE feeding_requests SET status = $1, feeding_session_id = $2, processed_date = $3, updated_date = now()
			 WHERE request_id = $4`,
			int16(2), sessionID, now, requestID); err != nil {
			return fmt.Errorf("complete feeding request: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (s *Store) happinessTx(ctx context.Context, tx *sqlx.Tx, horseID string) (int, error) {
	var happiness int
	err := tx.GetContext(ctx, &happiness,
		`SELECT actual FROM horse_statistics WHERE horse_id = $1 AND stat = 'Happiness'`, horseID)
	if err != nil {
		return 0, fmt.Errorf("load happiness for horse %s: %w", horseID, err)
	}
	return happiness, nil
}

// LoadForReplay reconstructs the original Requested message from the feeding_requests row.
func (s *Store) LoadForReplay(ctx context.Context, requestID string) (any, error) {
	var row struct {
		HorseID   string `db:"horse_id"`
		FeedingID uint8  `db:"feeding_id"`
		SessionID string `db:"session_id"`
		UserID    string `db:"user_id"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT horse_id, feeding_id, session_id, user_id FROM feeding_requests WHERE request_id = $1`, requestID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load feeding request %s for replay: %w", requestID, err)
	}
	return &Requested{RequestId: requestID, HorseId: row.HorseID, FeedingId: row.FeedingID, SessionId: row.SessionID, UserId: row.UserID}, nil
}

// ListNonTerminal implements replay.Replayer.
func (s *Store) ListNonTerminal(ctx context.Context) ([]string, error) {
	return s.SQLStore.ListNonTerminal(ctx)
}

// FeedingSessionIDFor looks up the session id recorded against a Completed request.
func (s *Store) FeedingSessionIDFor(ctx context.Context, requestID string) (string, error) {
	var sessionID sql.NullString
	err := s.db.GetContext(ctx, &sessionID, `SELECT feeding_session_id FROM feeding_requests WHERE request_id = $1`, requestID)
	if err != nil {
		return "", fmt.Errorf("load feeding session id for request %s: %w", requestID, err)
	}
	return sessionID.String, nil
}
