package training

import (
	"context"
	"math/rand"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovation22/triplederby-workers/internal/bus"
)

type fakeEventPublisher struct {
	published []any
}

func (f *fakeEventPublisher) Publish(ctx context.Context, value any) error {
	f.published = append(f.published, value)
	return nil
}

func TestProcessor_Process_HappyPathCommitsSessionAndPublishesCompleted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewStore(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery(`SELECT status, failure_reason, processed_date`).WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "failure_reason", "processed_date"}).AddRow(0, nil, nil))

	mock.ExpectExec(`UPDATE training_requests SET status = \$1, updated_date`).
		WithArgs(int16(1), "req-1", int16(0), int16(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT leg_type, races_started").WithArgs("horse-1").
		WillReturnRows(sqlmock.NewRows([]string{"leg_type", "races_started", "has_trained_since_last_race"}).
			AddRow("WireToWire", 2, false))
	mock.ExpectQuery("SELECT dominant_potential, actual FROM horse_statistics").WithArgs("horse-1", "Speed").
		WillReturnRows(sqlmock.NewRows([]string{"dominant_potential", "actual"}).AddRow(80, 40))
	mock.ExpectQuery("SELECT actual FROM horse_statistics").WithArgs("horse-1").
		WillReturnRows(sqlmock.NewRows([]string{"actual"}).AddRow(60))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE horse_statistics SET actual = \\$1 WHERE horse_id = \\$2 AND stat = \\$3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE horse_statistics SET actual = \\$1 WHERE horse_id = \\$2 AND stat = 'Happiness'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE horses SET has_trained_since_last_race").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO training_sessions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE training_requests SET status = \$1, training_session_id`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	calculator := &Calculator{Rand: func() *rand.Rand { return rand.New(rand.NewSource(1)) }}
	publisher := &fakeEventPublisher{}
	processor := NewProcessor(store, calculator, publisher, zerolog.Nop())

	result := processor.Process(context.Background(),
		Requested{RequestId: "req-1", HorseId: "horse-1", TrainingId: 0, SessionId: "sess-1", UserId: "user-1"},
		bus.MessageContext{})

	assert.True(t, result.Success)
	require.Len(t, publisher.published, 1)
	completed, ok := publisher.published[0].(*Completed)
	require.True(t, ok)
	assert.NotEmpty(t, completed.TrainingSessionId)
}

func TestProcessor_Process_IneligibleHorseFailsRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewStore(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery(`SELECT status, failure_reason, processed_date`).WithArgs("req-2").
		WillReturnRows(sqlmock.NewRows([]string{"status", "failure_reason", "processed_date"}).AddRow(0, nil, nil))

	mock.ExpectExec(`UPDATE training_requests SET status = \$1, updated_date`).
		WithArgs(int16(1), "req-2", int16(0), int16(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT leg_type, races_started").WithArgs("horse-1").
		WillReturnRows(sqlmock.NewRows([]string{"leg_type", "races_started", "has_trained_since_last_race"}).
			AddRow("WireToWire", 2, true))
	mock.ExpectQuery("SELECT dominant_potential, actual FROM horse_statistics").WithArgs("horse-1", "Speed").
		WillReturnRows(sqlmock.NewRows([]string{"dominant_potential", "actual"}).AddRow(80, 40))
	mock.ExpectQuery("SELECT actual FROM horse_statistics").WithArgs("horse-1").
		WillReturnRows(sqlmock.NewRows([]string{"actual"}).AddRow(60))

	mock.ExpectExec(`UPDATE training_requests SET status = \$1, failure_reason`).WillReturnResult(sqlmock.NewResult(0, 1))

	calculator := &Calculator{}
	publisher := &fakeEventPublisher{}
	processor := NewProcessor(store, calculator, publisher, zerolog.Nop())

	result := processor.Process(context.Background(),
		Requested{RequestId: "req-2", HorseId: "horse-1", TrainingId: 0, SessionId: "sess-2", UserId: "user-1"},
		bus.MessageContext{})

	assert.False(t, result.Success)
	assert.Empty(t, publisher.published)
}
