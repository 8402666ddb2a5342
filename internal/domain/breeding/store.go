package breeding

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ovation22/triplederby-workers/internal/errs"
	"github.com/ovation22/triplederby-workers/internal/platform/database"
	"github.com/ovation22/triplederby-workers/internal/requests"
)

// requestsTable is the Request row this domain persists lifecycle state in.
const requestsTable = "breeding_requests"

// Store is the breeding domain's persistence surface: the shared Request
// lifecycle columns (via an embedded *requests.SQLStore) plus horse/color
// reads and the single transactional foal-commit write.
type Store struct {
	*requests.SQLStore
	db *sqlx.DB

	colorsOnce sync.Once
	colors     []Color
	colorsErr  error
}

// NewStore constructs a breeding Store over db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		SQLStore: requests.NewSQLStore(db, requestsTable),
		db:       db,
	}
}

type horseRow struct {
	ID                      string `db:"id"`
	Name                    string `db:"name"`
	OwnerID                 string `db:"owner_id"`
	SireID                  sql.NullString `db:"sire_id"`
	DamID                   sql.NullString `db:"dam_id"`
	Sex                     string `db:"sex"`
	LegType                 string `db:"leg_type"`
	ColorID                 string `db:"color_id"`
	Parented                int    `db:"parented"`
	RacesStarted            int    `db:"races_started"`
	RacesWon                int    `db:"races_won"`
	HasTrainedSinceLastRace bool   `db:"has_trained_since_last_race"`
}

type statisticRow struct {
	Stat               string `db:"stat"`
	DominantPotential  int    `db:"dominant_potential"`
	RecessivePotential int    `db:"recessive_potential"`
	Actual             int    `db:"actual"`
}

// LoadHorse loads a horse with its full statistics set, for breeding inputs.
func (s *Store) LoadHorse(ctx context.Context, id string) (*Horse, error) {
	var row horseRow
	err := s.db.GetContext(ctx, &row, `SELECT id, name, owner_id, sire_id, dam_id, sex, leg_type, color_id,
		parented, races_started, races_won, has_trained_since_last_race FROM horses WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load horse %s: %w", id, err)
	}

	var statRows []statisticRow
	err = s.db.SelectContext(ctx, &statRows,
		`SELECT stat, dominant_potential, recessive_potential, actual FROM horse_statistics WHERE horse_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("load statistics for horse %s: %w", id, err)
	}

	horse := &Horse{
		ID:                      row.ID,
		Name:                    row.Name,
		OwnerID:                 row.OwnerID,
		Sex:                     Sex(row.Sex),
		LegType:                 LegType(row.LegType),
		ColorID:                 row.ColorID,
		Parented:                row.Parented,
		RacesStarted:            row.RacesStarted,
		RacesWon:                row.RacesWon,
		HasTrainedSinceLastRace: row.HasTrainedSinceLastRace,
	}
	if row.SireID.Valid {
		horse.SireID = &row.SireID.String
	}
	if row.DamID.Valid {
		horse.DamID = &row.DamID.String
	}
	for _, sr := range statRows {
		horse.Statistics = append(horse.Statistics, Statistic{
			Stat:               Stat(sr.Stat),
			DominantPotential:  sr.DominantPotential,
			RecessivePotential: sr.RecessivePotential,
			Actual:             sr.Actual,
		})
	}
	return horse, nil
}

// LoadColors returns the color catalog, populated on first use and immutable
// afterwards for the process lifetime (§5 "per-process color-catalog cache").
func (s *Store) LoadColors(ctx context.Context) ([]Color, error) {
	s.colorsOnce.Do(func() {
		var rows []struct {
			ID        string `db:"id"`
			Name      string `db:"name"`
			Weight    int    `db:"weight"`
			IsSpecial bool   `db:"is_special"`
		}
		if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, weight, is_special FROM colors`); err != nil {
			s.colorsErr = fmt.Errorf("load color catalog: %w", err)
			return
		}
		colors := make([]Color, 0, len(rows))
		for _, r := range rows {
			colors = append(colors, Color{ID: r.ID, Name: r.Name, Weight: r.Weight, IsSpecial: r.IsSpecial})
		}
		s.colors = colors
	})
	return s.colors, s.colorsErr
}

// CommitFoal persists the genetics Result and completes the Request row in a
// single transaction (§4.7 step 8): insert the foal and its statistics,
// increment both parents' Parented counters, and mark the Request Completed
// with FoalId as the output pointer.
func (s *Store) CommitFoal(ctx context.Context, requestID string, result Result) (foalID string, err error) {
	foalID = uuid.NewString()
	now := time.Now().UTC()

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO horses
			(id, name, owner_id, sire_id, dam_id, sex, leg_type, color_id, parented, races_started, races_won, has_trained_since_last_race, created_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, 0, false, $9)`,
			foalID, result.Foal.Name, result.Foal.OwnerID, result.Foal.SireID, result.Foal.DamID,
			string(result.Foal.Sex), string(result.Foal.LegType), result.Foal.ColorID, now)
		if err != nil {
			return fmt.Errorf("insert foal: %w", err)
		}

		for _, stat := range result.Foal.Statistics {
			_, err := tx.ExecContext(ctx, `INSERT INTO horse_statistics
				(id, horse_id, stat, dominant_potential, recessive_potential, actual)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				uuid.NewString(), foalID, string(stat.Stat), stat.DominantPotential, stat.RecessivePotential, stat.Actual)
			if err != nil {
				return fmt.Errorf("insert foal statistic %s: %w", stat.Stat, err)
			}
		}

		if result.Foal.SireID != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE horses SET parented = $1 WHERE id = $2`, result.SireParented, *result.Foal.SireID); err != nil {
				return fmt.Errorf("increment sire parented: %w", err)
			}
		}
		if result.Foal.DamID != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE horses SET parented = $1 WHERE id = $2`, result.DamParented, *result.Foal.DamID); err != nil {
				return fmt.Errorf("increment dam parented: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `UPDATE breeding_requests SET status = $1, foal_id = $2, processed_date = $3, updated_date = now()
			WHERE request_id = $4`, int(requests.Completed), foalID, now, requestID)
		if err != nil {
			return fmt.Errorf("complete breeding request: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return foalID, nil
}

// LoadForReplay implements replay.Replayer by reconstructing the original
// Requested message from the breeding_requests row.
func (s *Store) LoadForReplay(ctx context.Context, requestID string) (any, error) {
	var row struct {
		SireID  string `db:"sire_id"`
		DamID   string `db:"dam_id"`
		OwnerID string `db:"owner_id"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT sire_id, dam_id, owner_id FROM breeding_requests WHERE request_id = $1`, requestID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load breeding request %s for replay: %w", requestID, err)
	}
	return &Requested{RequestId: requestID, SireId: row.SireID, DamId: row.DamID, OwnerId: row.OwnerID}, nil
}

// ListNonTerminal implements replay.Replayer by delegating to the embedded
// shared SQLStore.
func (s *Store) ListNonTerminal(ctx context.Context) ([]string, error) {
	return s.SQLStore.ListNonTerminal(ctx)
}

// FoalIDFor looks up the foal id recorded against a Completed request, for
// reconstructing a Completed event on the republish hook path.
func (s *Store) FoalIDFor(ctx context.Context, requestID string) (string, error) {
	var foalID sql.NullString
	err := s.db.GetContext(ctx, &foalID, `SELECT foal_id FROM breeding_requests WHERE request_id = $1`, requestID)
	if err != nil {
		return "", fmt.Errorf("load foal id for request %s: %w", requestID, err)
	}
	if !foalID.Valid {
		return "", errs.Invariant(fmt.Sprintf("breeding request %s has no foal_id", requestID))
	}
	return foalID.String, nil
}
