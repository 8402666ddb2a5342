package breeding

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(sqlx.NewDb(db, "sqlmock")), mock
}

func TestStore_LoadHorse_ReturnsNilWhenAbsent(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, name, owner_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(nil))

	horse, err := store.LoadHorse(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, horse)
}

func TestStore_LoadHorse_ReturnsHorseWithStatistics(t *testing.T) {
	store, mock := newMockStore(t)
	horseCols := []string{"id", "name", "owner_id", "sire_id", "dam_id", "sex", "leg_type", "color_id",
		"parented", "races_started", "races_won", "has_trained_since_last_race"}
	mock.ExpectQuery("SELECT id, name, owner_id").
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows(horseCols).AddRow("h1", "Bolt", "owner-1", nil, nil, "Colt", "Stalker", "color-1", 2, 3, 1, false))

	statCols := []string{"stat", "dominant_potential", "recessive_potential", "actual"}
	mock.ExpectQuery("SELECT stat, dominant_potential").
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows(statCols).AddRow("Speed", 60, 40, 20))

	horse, err := store.LoadHorse(context.Background(), "h1")
	require.NoError(t, err)
	require.NotNil(t, horse)
	assert.Equal(t, "Bolt", horse.Name)
	require.Len(t, horse.Statistics, 1)
	assert.Equal(t, StatSpeed, horse.Statistics[0].Stat)
}

func TestStore_LoadColors_CachesAfterFirstCall(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, name, weight, is_special").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "weight", "is_special"}).
			AddRow("color-1", "Bay", 10, false))

	colors1, err := store.LoadColors(context.Background())
	require.NoError(t, err)
	colors2, err := store.LoadColors(context.Background())
	require.NoError(t, err)

	assert.Equal(t, colors1, colors2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LoadForReplay_ReconstructsRequestedMessage(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT sire_id, dam_id, owner_id FROM breeding_requests").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"sire_id", "dam_id", "owner_id"}).AddRow("s1", "d1", "o1"))

	msg, err := store.LoadForReplay(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	requested, ok := msg.(*Requested)
	require.True(t, ok)
	assert.Equal(t, "r1", requested.RequestId)
	assert.Equal(t, "s1", requested.SireId)
}

func TestStore_FoalIDFor_ErrorsWhenUnset(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT foal_id FROM breeding_requests").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"foal_id"}).AddRow(nil))

	_, err := store.FoalIDFor(context.Background(), "r1")
	assert.Error(t, err)
}
