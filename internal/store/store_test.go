package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"lorry-parking-backend/internal/clock"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newMockStore(t *testing.T, now time.Time) (Store, sqlmock.Sqlmock) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB, Options{
		Clock:       clock.Func(func() time.Time { return now }),
		DefaultRate: decimal.NewFromInt(120),
	})
	return s, mock
}

func TestGormStore_GetRecordNotFound(t *testing.T) {
	s, mock := newMockStore(t, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "parking_records" WHERE "parking_records"."id" = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "token", "lorry", "status"}))

	_, err := s.GetRecord(context.Background(), 7)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DeleteRecord(t *testing.T) {
	testCases := []struct {
		name        string
		affected    int64
		expectedErr error
	}{
		{name: "Existing record is removed", affected: 1},
		{name: "Missing record reports not found", affected: 0, expectedErr: ErrRecordNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, mock := newMockStore(t, time.Now())

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "parking_records" WHERE "parking_records"."id" = $1`)).
				WithArgs(42).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))
			mock.ExpectCommit()

			err := s.DeleteRecord(context.Background(), 42)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_DeleteAllRequiresConfirmation(t *testing.T) {
	s, mock := newMockStore(t, time.Now())

	_, err := s.DeleteAllRecords(context.Background(), "yes")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, `Send {"confirm": "DELETE_ALL"} to confirm`, verr.Msg)

	// Nothing may reach the database without the confirmation.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_PurgePrintJobs(t *testing.T) {
	now := time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)
	s, mock := newMockStore(t, now)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "print_jobs" WHERE status <> $1 AND created_at < $2`)).
		WithArgs("pending", now.Add(-7*24*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := s.PurgePrintJobs(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_AcknowledgeMissingJob(t *testing.T) {
	s, mock := newMockStore(t, time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "print_jobs" WHERE "print_jobs"."id" = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "payload", "status", "created_at", "ack_at"}))
	mock.ExpectRollback()

	_, err := s.AcknowledgePrintJob(context.Background(), 99, true)
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ListRecordsDatabaseError(t *testing.T) {
	s, mock := newMockStore(t, time.Now())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "parking_records"`)).
		WillReturnError(errors.New("connection reset"))

	_, _, err := s.ListRecords(context.Background(), RecordFilter{Page: 1, PageSize: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DailyRateReadsServerDatabaseEachTime(t *testing.T) {
	s, mock := newMockStore(t, time.Now())

	mock.ExpectQuery(`SELECT \* FROM "settings"`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).AddRow("daily_rate", "120"))
	mock.ExpectQuery(`SELECT \* FROM "settings"`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).AddRow("daily_rate", "150"))

	first, err := s.DailyRate(context.Background())
	require.NoError(t, err)
	second, err := s.DailyRate(context.Background())
	require.NoError(t, err)

	assert.True(t, first.Equal(decimal.NewFromInt(120)))
	assert.True(t, second.Equal(decimal.NewFromInt(150)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
