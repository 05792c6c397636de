package notifications

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestRepositoryCountUnread(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "notifications" WHERE user_id = \$1 AND is_read = \$2`).
		WithArgs("7", false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := repo.CountUnread(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryMarkRead(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "notifications" SET .*WHERE id = \$\d AND user_id = \$\d`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "notifications" SET .*WHERE id = \$\d AND user_id = \$\d`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	found, err := repo.MarkRead(context.Background(), id, "7")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.MarkRead(context.Background(), id, "8")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}
