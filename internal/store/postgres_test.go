package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trial-eligibility-engine/internal/domain"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	store, err := NewPostgresStore(nil)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	ctx := context.Background()

	record := NewMatchRecord(uuid.New(), sampleMatch("P-001", "LUNG-01", true))
	stored := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO trial_matches").
		WithArgs(record.ID, record.RunID, "P-001", "LUNG-01", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(stored))

	require.NoError(t, store.Save(ctx, record))
	assert.Equal(t, stored, record.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_Error(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	mock.ExpectQuery("INSERT INTO trial_matches").WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), NewMatchRecord(uuid.New(), sampleMatch("P-001", "LUNG-01", true)))

	assert.ErrorContains(t, err, "failed to save match")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	ctx := context.Background()

	id, runID := uuid.New(), uuid.New()
	payload, err := json.Marshal(sampleMatch("P-001", "LUNG-01", true))
	require.NoError(t, err)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM trial_matches WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "patient_id", "trial_id", "eligible", "match_json", "created_at"}).
			AddRow(id.String(), runID.String(), "P-001", "LUNG-01", true, payload, created))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, runID, got.RunID)
	assert.True(t, got.Eligible)
	assert.Equal(t, "LUNG-01", got.Match.TrialID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM trial_matches WHERE id").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), id)

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByPatient(t *testing.T) {
	store, mock := newMockPostgresStore(t)

	payload, err := json.Marshal(sampleMatch("P-001", "LUNG-01", false))
	require.NoError(t, err)
	rows := sqlmock.NewRows([]string{"id", "run_id", "patient_id", "trial_id", "eligible", "match_json", "created_at"}).
		AddRow(uuid.NewString(), uuid.NewString(), "P-001", "LUNG-01", false, payload, time.Now().UTC())

	mock.ExpectQuery("SELECT (.+) FROM trial_matches\\s+WHERE patient_id").
		WithArgs("P-001", 20, 0).
		WillReturnRows(rows)

	got, err := store.ListByPatient(context.Background(), "P-001", 20, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Eligible)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountAndDelete(t *testing.T) {
	store, mock := newMockPostgresStore(t)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectExec("DELETE FROM trial_matches").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	require.NoError(t, store.Delete(ctx, id))
	assert.NoError(t, mock.ExpectationsWereMet())
}
