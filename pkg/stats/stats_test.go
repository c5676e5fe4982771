package stats

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestRecomputeAverageCost(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\), AVG\(tuition\) FROM "courses" WHERE bootcamp_id = \$1`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(2, 11250.04))
	mock.ExpectExec(`UPDATE "bootcamps" SET "average_cost"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs(11250.0, sqlmock.AnyArg(), 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, RecomputeAverageCost(db, 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecomputeAverageRating_NoRows(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\), AVG\(rating\) FROM "reviews" WHERE bootcamp_id = \$1`).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(0, nil))
	mock.ExpectExec(`UPDATE "bootcamps" SET "average_rating"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs(nil, sqlmock.AnyArg(), 9).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, RecomputeAverageRating(db, 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryStale(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	assert.False(t, Summary{}.Stale())
	assert.False(t, Summary{AverageCost: f(10), LiveCost: f(10)}.Stale())
	assert.True(t, Summary{AverageCost: f(10), LiveCost: f(12)}.Stale())
	assert.True(t, Summary{AverageRating: f(7)}.Stale())
	assert.True(t, Summary{LiveRating: f(7)}.Stale())
}
