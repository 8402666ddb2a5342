package requests

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// statusCode/statusFromCode translate between the lifecycle Status enum and
// the smallint column every *_requests table stores it as.
func statusCode(s Status) int16 {
	return int16(s)
}

func statusFromCode(code int16) Status {
	return Status(code)
}

// SQLStore is a Store backed by a Postgres table shaped like the
// migrations/*_requests.up.sql tables: request_id (PK), status (smallint),
// failure_reason (text, nullable), processed_date (timestamptz, nullable),
// updated_date (timestamptz).
//
// Every domain's Request table satisfies this shape, so one implementation
// serves breeding_requests, feeding_requests, training_requests, and
// race_requests alike; domain-specific columns are read/written by the
// domain's own Executor and replay.Replayer, not by SQLStore.
type SQLStore struct {
	db    *sqlx.DB
	table string
}

// NewSQLStore constructs a SQLStore over the named table.
func NewSQLStore(db *sqlx.DB, table string) *SQLStore {
	return &SQLStore{db: db, table: table}
}

func (s *SQLStore) Load(ctx context.Context, requestID string) (*Record, error) {
	var row struct {
		Status        int16          `db:"status"`
		FailureReason sql.NullString `db:"failure_reason"`
		ProcessedDate sql.NullTime   `db:"processed_date"`
	}

	query := fmt.Sprintf(`SELECT status, failure_reason, processed_date FROM %s WHERE request_id = $1`, s.table)
	err := s.db.GetContext(ctx, &row, query, requestID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.table, err)
	}

	record := &Record{
		RequestID:     requestID,
		Status:        statusFromCode(row.Status),
		FailureReason: row.FailureReason.String,
	}
	if row.ProcessedDate.Valid {
		t := row.ProcessedDate.Time
		record.ProcessedDate = &t
	}
	return record, nil
}

func (s *SQLStore) Claim(ctx context.Context, requestID string) error {
	query := fmt.Sprintf(
		`UPDATE %s SET status = $1, updated_date = now() WHERE request_id = $2 AND status IN ($3, $4)`,
		s.table,
	)
	res, err := s.db.ExecContext(ctx, query, statusCode(InProgress), requestID, statusCode(Pending), statusCode(Failed))
	if err != nil {
		return fmt.Errorf("claim %s: %w", s.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim %s: %w", s.table, err)
	}
	if n == 0 {
		return ErrConcurrentClaim
	}
	return nil
}

func (s *SQLStore) MarkFailed(ctx context.Context, requestID, reason string, processedAt time.Time) error {
	query := fmt.Sprintf(
		`UPDATE %s SET status = $1, failure_reason = $2, processed_date = $3, updated_date = now() WHERE request_id = $4`,
		s.table,
	)
	_, err := s.db.ExecContext(ctx, query, statusCode(Failed), reason, processedAt, requestID)
	if err != nil {
		return fmt.Errorf("mark %s failed: %w", s.table, err)
	}
	return nil
}

func (s *SQLStore) AnnotatePublishFailure(ctx context.Context, requestID, reason string) error {
	query := fmt.Sprintf(`UPDATE %s SET failure_reason = $1, updated_date = now() WHERE request_id = $2`, s.table)
	_, err := s.db.ExecContext(ctx, query, reason, requestID)
	if err != nil {
		return fmt.Errorf("annotate %s publish failure: %w", s.table, err)
	}
	return nil
}

func (s *SQLStore) ClearFailureReason(ctx context.Context, requestID string) error {
	query := fmt.Sprintf(`UPDATE %s SET failure_reason = NULL, updated_date = now() WHERE request_id = $1`, s.table)
	_, err := s.db.ExecContext(ctx, query, requestID)
	if err != nil {
		return fmt.Errorf("clear %s failure reason: %w", s.table, err)
	}
	return nil
}

// ResetStuckInProgress resets rows that have been InProgress for longer than
// after back to Pending, for the reaper (§9 open question on crashed workers).
func (s *SQLStore) ResetStuckInProgress(ctx context.Context, after time.Duration) (int, error) {
	query := fmt.Sprintf(
		`UPDATE %s SET status = $1, updated_date = now() WHERE status = $2 AND updated_date < $3`,
		s.table,
	)
	cutoff := time.Now().UTC().Add(-after)
	res, err := s.db.ExecContext(ctx, query, statusCode(Pending), statusCode(InProgress), cutoff)
	if err != nil {
		return 0, fmt.Errorf("reset stuck in-progress %s: %w", s.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset stuck in-progress %s: %w", s.table, err)
	}
	return int(n), nil
}

// ListNonTerminal returns request ids whose Status is Pending or Failed, for
// the bulk replay controller.
func (s *SQLStore) ListNonTerminal(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT request_id FROM %s WHERE status IN ($1, $2) ORDER BY created_date`, s.table)
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, query, statusCode(Pending), statusCode(Failed)); err != nil {
		return nil, fmt.Errorf("list non-terminal %s: %w", s.table, err)
	}
	return ids, nil
}
