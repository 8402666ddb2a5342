package training

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

const requestsTable = "training_requests"

// Store is the training domain's persistence surface.
type Store struct {
	*requests.SQLStore
	db *sqlx.DB
}

// NewStore constructs a training Store over db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{SQLStore: requests.NewSQLStore(db, requestsTable), db: db}
}

// LoadHorse loads the trainable view of a horse: leg type, career phase
// derived from race count, happiness, and the horse's potential/actual for
// the stat this TrainingId trains.
func (s *Store) LoadHorse(ctx context.Context, horseID string, trainingID uint8) (*Horse, error) {
	var row struct {
		LegType                 string `db:"leg_type"`
		RacesStarted            int    `db:"races_started"`
		HasTrainedSinceLastRace bool   `db:"has_trained_since_last_race"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT leg_type, races_started, has_trained_since_last_race FROM horses WHERE id = $1`, horseID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load horse %s: %w", horseID, err)
	}

	stat := statForTraining(trainingID)

	var statRow struct {
		DominantPotential int `db:"dominant_potential"`
		Actual            int `db:"actual"`
	}
	err = s.db.GetContext(ctx, &statRow,
		`SELECT dominant_potential, actual FROM horse_statistics WHERE horse_id = $1 AND stat = $2`, horseID, stat)
	if err != nil {
		return nil, fmt.Errorf("load stat %s for horse %s: %w", stat, horseID, err)
	}

	var happiness int
	err = s.db.GetContext(ctx, &happiness,
		`SELECT actual FROM horse_statistics WHERE horse_id = $1 AND stat = 'Happiness'`, horseID)
	if err != nil {
		return nil, fmt.Errorf("load happiness for horse %s: %w", horseID, err)
	}

	return &Horse{
		ID:                      horseID,
		LegType:                 row.LegType,
		Phase:                   phaseFor(row.RacesStarted),
		Happiness:               happiness,
		HasTrainedSinceLastRace: row.HasTrainedSinceLastRace,
		Potential:               statRow.DominantPotential,
		Actual:                  statRow.Actual,
	}, nil
}

// statForTraining maps a TrainingId to the stat it trains. A full catalog
// would back this with a table; the core needs a deterministic mapping to
// exercise the lifecycle with real arithmetic.
func statForTraining(trainingID uint8) string {
	switch trainingID % 4 {
	case 0:
		return "Speed"
	case 1:
		return "Stamina"
	case 2:
		return "Agility"
	default:
		return "Temperament"
	}
}

func phaseFor(racesStarted int) Phase {
	switch {
	case racesStarted == 0:
		return PhaseJuvenile
	case racesStarted < 10:
		return PhaseProspect
	default:
		return PhaseVeteran
	}
}

// CommitSession writes the TrainingSession, updates the trained stat's
// Actual, happiness, and HasTrainedSinceLastRace, and completes the Request
// row, all in one transaction.
func (s *Store) CommitSession(ctx context.Context, requestID, horseID string, trainingID uint8, userID string, horse Horse, outcome Outcome) (sessionID string, err error) {
	sessionID = uuid.NewString()
	now := time.Now().UTC()
	stat := statForTraining(trainingID)
	newActual := horse.Actual + outcome.Gain
	newHappiness := horse.Happiness - outcome.HappinessCost
	if newHappiness < 0 {
		newHappiness = 0
	}

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE horse_statistics SET actual = $1 WHERE horse_id = $2 AND stat = $3`,
			newActual, horseID, stat); err != nil {
			return fmt.Errorf("update trained stat: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE horse_statistics SET actual = $1 WHERE horse_id = $2 AND stat = 'Happiness'`,
			newHappiness, horseID); err != nil {
			return fmt.Errorf("update happiness: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE horses SET has_trained_since_last_race = true WHERE id = $1`, horseID); err != nil {
			return fmt.Errorf("mark horse trained: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO training_sessions (id, horse_id, training_id, user_id, stat, gain, happiness_cost, overworked, created_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			sessionID, horseID, trainingID, userID, stat, outcome.Gain, outcome.HappinessCost, outcome.Overworked, now); err != nil {
			return fmt.Errorf("insert training session: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE training_requests SET status = $1, training_session_id = $2, processed_date = $3, updated_date = now()
			 WHERE request_id = $4`,
			int16(2), sessionID, now, requestID); err != nil {
			return fmt.Errorf("complete training request: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

// LoadForReplay reconstructs the original Requested message.
func (s *Store) LoadForReplay(ctx context.Context, requestID string) (any, error) {
	var row struct {
		HorseID    string `db:"horse_id"`
		TrainingID uint8  `db:"training_id"`
		SessionID  string `db:"session_id"`
		UserID     string `db:"user_id"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT horse_id, training_id, session_id, user_id FROM training_requests WHERE request_id = $1`, requestID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load training request %s for replay: %w", requestID, err)
	}
	return &Requested{RequestId: requestID, HorseId: row.HorseID, TrainingId: row.TrainingID, SessionId: row.SessionID, UserId: row.UserID}, nil
}

// ListNonTerminal implements replay.Replayer.
func (s *Store) ListNonTerminal(ctx context.Context) ([]string, error) {
	return s.SQLStore.ListNonTerminal(ctx)
}

// TrainingSessionIDFor looks up the session id recorded against a Completed request.
func (s *Store) TrainingSessionIDFor(ctx context.Context, requestID string) (string, error) {
	var sessionID sql.NullString
	err := s.db.GetContext(ctx, &sessionID, `SELECT training_session_id FROM training_requests WHERE request_id = $1`, requestID)
	if err != nil {
		return "", fmt.Errorf("load training session id for request %s: %w", requestID, err)
	}
	if !sessionID.Valid {
		return "", errs.Invariant(fmt.Sprintf("training request %s has no training_session_id", requestID))
	}
	return sessionID.String, nil
}
